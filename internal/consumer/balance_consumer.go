package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/squeeze/internal/cache"
	"github.com/fjod/squeeze/internal/publisher"
	"github.com/fjod/squeeze/internal/repository"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const groupID = "squeeze-balance-cache"

var errMalformedEvent = errors.New("malformed transfer event")

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// BalanceInvalidator drops cached balances of both sides of every
// published transfer. All instances share one consumer group, so each event
// is handled by a single instance; that is enough because the evicted keys
// live in the shared Redis cache, not in process memory.
type BalanceInvalidator struct {
	cache  cache.BalanceCache
	reader messageReader
	logger *zap.Logger
}

func NewBalanceInvalidator(c cache.BalanceCache, logger *zap.Logger, brokers ...string) *BalanceInvalidator {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    publisher.TransfersTopic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &BalanceInvalidator{cache: c, reader: reader, logger: logger}
}

func (c *BalanceInvalidator) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *BalanceInvalidator) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Warn("error closing kafka reader", zap.Error(err))
	}
}

func (c *BalanceInvalidator) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.logger.Warn("error reading message", zap.Error(err))
		return
	}

	if err := c.handle(ctx, m); err != nil {
		c.logger.Warn("failed to handle transfer event", zap.String("key", string(m.Key)), zap.Error(err))
	}
}

func (c *BalanceInvalidator) handle(ctx context.Context, m kafka.Message) error {
	if eventType := header(m, "event_type"); eventType != "" && eventType != repository.TransferEventType {
		return nil
	}

	var event repository.TransferEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if event.From == "" || event.To == "" {
		return errMalformedEvent
	}

	var errs []error
	for _, wallet := range []string{event.From, event.To} {
		if err := c.cache.DeleteBalance(ctx, wallet); err != nil {
			errs = append(errs, fmt.Errorf("wallet %s: %w", wallet, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.logger.Debug("balances invalidated",
		zap.String("transfer_id", event.TransferID),
		zap.String("from", event.From),
		zap.String("to", event.To))
	return nil
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
