package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is a completed ledger movement between two wallets.
type Transfer struct {
	ID        string          `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
