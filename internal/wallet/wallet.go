package wallet

import (
	"context"
	"errors"
)

// ChainBase is the only chain the mini app authenticates against.
const ChainBase = "BASE"

type Status string

const (
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

var ErrNotInsideHost = errors.New("not running inside the host container")

// Result is what the host wallet returns for an authentication request.
type Result struct {
	Status   Status `json:"status"`
	WalletID string `json:"wallet_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Authenticator is the wallet capability of the host app.
type Authenticator interface {
	IsInsideHostContainer(ctx context.Context) bool
	Authenticate(ctx context.Context, chain string) (Result, error)
}

// Demo is used when the mini app is opened outside the host container.
type Demo struct{}

func (Demo) IsInsideHostContainer(context.Context) bool {
	return false
}

func (Demo) Authenticate(context.Context, string) (Result, error) {
	return Result{}, ErrNotInsideHost
}
