package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/squeeze/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const businessesKey = "directory:businesses"

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:     client,
		baseTTL:    15 * time.Minute,
		balanceTTL: time.Minute,
	}
}

type RedisCache struct {
	client     *redis.Client
	baseTTL    time.Duration
	balanceTTL time.Duration
}

func (r RedisCache) GetBusinesses(ctx context.Context) ([]domain.BusinessProfile, error) {
	data, err := r.client.Get(ctx, businessesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var businesses []domain.BusinessProfile
	if err2 := json.Unmarshal(data, &businesses); err2 != nil {
		return nil, fmt.Errorf("unmarshal businesses failed: %w", err2)
	}
	return businesses, nil
}

func (r RedisCache) SetBusinesses(ctx context.Context, businesses []domain.BusinessProfile) error {
	data, err := json.Marshal(businesses)
	if err != nil {
		return fmt.Errorf("marshal businesses failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := r.client.Set(ctx, businessesKey, string(data), r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisCache) InvalidateBusinesses(ctx context.Context) error {
	if err := r.client.Del(ctx, businessesKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r RedisCache) GetBalance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	raw, err := r.client.Get(ctx, balanceKey(wallet)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, ErrCacheMiss
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("redis get failed: %w", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance failed: %w", err)
	}
	return balance, nil
}

func (r RedisCache) SetBalance(ctx context.Context, wallet string, balance decimal.Decimal) error {
	if err := r.client.Set(ctx, balanceKey(wallet), balance.String(), r.balanceTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisCache) DeleteBalance(ctx context.Context, wallet string) error {
	if err := r.client.Del(ctx, balanceKey(wallet)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func balanceKey(wallet string) string {
	return fmt.Sprintf("balance:%s", wallet)
}
