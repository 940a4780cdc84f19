package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fjod/squeeze/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrBusinessNotFound  = errors.New("business not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidTransfer   = errors.New("invalid transfer")
)

// InitialBalance is credited to a wallet the first time the ledger sees it.
var InitialBalance = decimal.NewFromInt(100)

const TransferEventType = "TransferCompleted"

// DirectoryRepository stores business profiles together with their reviews.
// Consumers define this interface, not the MongoDB implementation
type DirectoryRepository interface {
	ListBusinesses(ctx context.Context) ([]domain.BusinessProfile, error)
	GetBusiness(ctx context.Context, id string) (*domain.BusinessProfile, error)
	UpsertBusiness(ctx context.Context, profile *domain.BusinessProfile) error
	AddReview(ctx context.Context, businessID string, review domain.Review) error
	UpdateProducts(ctx context.Context, businessID string, products []domain.Product) error
}

// LedgerRepository keeps wallet balances. Every transfer also writes an
// outbox event in the same transaction.
type LedgerRepository interface {
	GetBalance(ctx context.Context, wallet string) (decimal.Decimal, error)
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) (*domain.Transfer, error)
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
}

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type OutboxEvent struct {
	ID          int
	AggregateId string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

// TransferEvent is the outbox payload of a completed transfer.
type TransferEvent struct {
	TransferID string    `json:"transfer_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Amount     string    `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

func transferPayload(t *domain.Transfer) (json.RawMessage, error) {
	return json.Marshal(TransferEvent{
		TransferID: t.ID,
		From:       t.From,
		To:         t.To,
		Amount:     t.Amount.String(),
		CreatedAt:  t.CreatedAt,
	})
}

func validateTransfer(from, to string, amount decimal.Decimal) error {
	if from == "" || to == "" || from == to || !amount.IsPositive() {
		return ErrInvalidTransfer
	}
	return nil
}
