package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/squeeze/internal/cache"
	"github.com/fjod/squeeze/internal/domain"
	"github.com/fjod/squeeze/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// InsufficientFundsReason is reported in a failed outcome when the payer
// cannot cover the amount.
const InsufficientFundsReason = "Insufficient funds"

type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

type Service struct {
	repo       repository.LedgerRepository
	cache      cache.BalanceCache
	sfg        singleflight.Group
	balanceCB  *gobreaker.CircuitBreaker[decimal.Decimal]
	transferCB *gobreaker.CircuitBreaker[*domain.Transfer]
	logger     *zap.Logger
}

func NewService(repo repository.LedgerRepository, c cache.BalanceCache, settings BreakerSettings, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		cache:      c,
		balanceCB:  gobreaker.NewCircuitBreaker[decimal.Decimal](breakerSettings("ledger-balance", settings, logger)),
		transferCB: gobreaker.NewCircuitBreaker[*domain.Transfer](breakerSettings("ledger-transfer", settings, logger)),
		logger:     logger,
	}
}

func breakerSettings(name string, s BreakerSettings, logger *zap.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// Business rejections are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, repository.ErrInsufficientFunds) ||
				errors.Is(err, repository.ErrInvalidTransfer)
		},
	}
}

// Balance returns the wallet's balance. Wallets the ledger has never seen
// start at repository.InitialBalance.
func (s *Service) Balance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	v, err, _ := s.sfg.Do(wallet, func() (interface{}, error) {
		bal, err := s.cache.GetBalance(ctx, wallet)
		if err == nil {
			return bal, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get error", zap.String("wallet", wallet), zap.Error(err))
		}

		bal, err = s.balanceCB.Execute(func() (decimal.Decimal, error) {
			return s.repo.GetBalance(ctx, wallet)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get balance: %w", err)
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.SetBalance(ctx, wallet, bal); err != nil {
				s.logger.Warn("cache set error", zap.String("wallet", wallet), zap.Error(err))
			}
		}()

		return bal, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

// Transfer moves amount between wallets. repository.ErrInsufficientFunds is
// returned unwrapped by errors.Is when the sender cannot cover it.
func (s *Service) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) (*domain.Transfer, error) {
	t, err := s.transferCB.Execute(func() (*domain.Transfer, error) {
		return s.repo.Transfer(ctx, from, to, amount)
	})
	if err != nil {
		return nil, fmt.Errorf("transfer failed: %w", err)
	}

	s.invalidate(from, to)
	s.logger.Info("transfer completed",
		zap.String("transfer_id", t.ID),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("amount", amount.String()))
	return t, nil
}

// Pay runs a transfer and reduces the result to a payment outcome. Only
// infrastructure failures are returned as errors.
func (s *Service) Pay(ctx context.Context, from, to string, amount decimal.Decimal) (domain.PaymentOutcome, error) {
	t, err := s.Transfer(ctx, from, to, amount)
	switch {
	case err == nil:
		return domain.PaymentSucceeded{TxRef: t.ID}, nil
	case errors.Is(err, repository.ErrInsufficientFunds):
		return domain.PaymentFailed{Reason: InsufficientFundsReason}, nil
	case errors.Is(err, repository.ErrInvalidTransfer):
		return domain.PaymentFailed{Reason: "Invalid transfer"}, nil
	default:
		return nil, err
	}
}

func (s *Service) invalidate(wallets ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, w := range wallets {
		if err := s.cache.DeleteBalance(ctx, w); err != nil {
			s.logger.Warn("cache invalidate error", zap.String("wallet", w), zap.Error(err))
		}
	}
}
