package payment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount        = errors.New("please enter a valid amount")
	ErrMissingRecipient     = errors.New("recipient address is missing")
	ErrSubmissionInProgress = errors.New("payment submission in progress")
	ErrNotReady             = errors.New("payment recipient not known yet")
	ErrPaymentFailed        = errors.New("payment failed")
)

// InsufficientBalanceError is returned when the amount exceeds the wallet balance.
type InsufficientBalanceError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("Insufficient balance. You have %s USDC available.", e.Available.StringFixed(2))
}

// DecodeError wraps a scan that could not be turned into a recipient.
// ManualEntry tells the client to offer the manual form.
type DecodeError struct {
	Err         error
	ManualEntry bool
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("scan failed: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
