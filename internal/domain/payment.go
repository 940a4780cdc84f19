package domain

import "github.com/shopspring/decimal"

// PaymentIntent is the resolved target of an in-progress payment.
type PaymentIntent struct {
	BusinessName     string          `json:"business_name"`
	RecipientAddress string          `json:"recipient_address"`
	Amount           string          `json:"amount,omitempty"`
	BalanceAtEntry   decimal.Decimal `json:"balance_at_entry"`
}

// HasRecipient reports whether both the business name and address are known.
func (p PaymentIntent) HasRecipient() bool {
	return p.BusinessName != "" && p.RecipientAddress != ""
}

// PaymentOutcome is the terminal result of a payment capability call.
// The only implementations are PaymentSucceeded, PaymentFailed and PaymentCancelled.
type PaymentOutcome interface {
	outcome() string
}

type PaymentSucceeded struct {
	TxRef string `json:"tx_ref,omitempty"`
}

type PaymentFailed struct {
	Reason string `json:"reason"`
}

type PaymentCancelled struct{}

func (PaymentSucceeded) outcome() string { return "succeeded" }
func (PaymentFailed) outcome() string    { return "failed" }
func (PaymentCancelled) outcome() string { return "cancelled" }

// OutcomeName returns a stable label for logging and JSON.
func OutcomeName(o PaymentOutcome) string {
	if o == nil {
		return "none"
	}
	return o.outcome()
}
