package cache

import (
	"context"
	"errors"

	"github.com/fjod/squeeze/internal/domain"
	"github.com/shopspring/decimal"
)

type DirectoryCache interface {
	GetBusinesses(ctx context.Context) ([]domain.BusinessProfile, error)
	SetBusinesses(ctx context.Context, businesses []domain.BusinessProfile) error
	InvalidateBusinesses(ctx context.Context) error
}

type BalanceCache interface {
	GetBalance(ctx context.Context, wallet string) (decimal.Decimal, error)
	SetBalance(ctx context.Context, wallet string, balance decimal.Decimal) error
	DeleteBalance(ctx context.Context, wallet string) error
}

var ErrCacheMiss = errors.New("cache miss")

// Nop never stores anything. It is used when no Redis address is configured.
type Nop struct{}

func (Nop) GetBusinesses(context.Context) ([]domain.BusinessProfile, error) {
	return nil, ErrCacheMiss
}

func (Nop) SetBusinesses(context.Context, []domain.BusinessProfile) error { return nil }
func (Nop) InvalidateBusinesses(context.Context) error                    { return nil }

func (Nop) GetBalance(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, ErrCacheMiss
}

func (Nop) SetBalance(context.Context, string, decimal.Decimal) error { return nil }
func (Nop) DeleteBalance(context.Context, string) error                { return nil }
