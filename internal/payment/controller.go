package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fjod/squeeze/internal/domain"
	"github.com/fjod/squeeze/internal/qrcode"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const UnknownBusiness = "Unknown Business"

// Payer is the external payment capability.
type Payer interface {
	Pay(ctx context.Context, from, to string, amount decimal.Decimal) (domain.PaymentOutcome, error)
}

type BalanceReader interface {
	Balance(ctx context.Context, wallet string) (decimal.Decimal, error)
}

// NameResolver maps a recipient address to a directory display name.
type NameResolver interface {
	ResolveName(ctx context.Context, address string) (string, error)
}

type SubmitRequest struct {
	From      string
	Amount    string
	Recipient string
	Balance   decimal.Decimal
}

// Receipt describes the result of one submission.
type Receipt struct {
	Outcome      domain.PaymentOutcome
	TxRef        string
	BusinessName string
	Amount       decimal.Decimal
	Balance      decimal.Decimal
}

// Snapshot is a read-only copy of the controller state.
type Snapshot struct {
	State       State
	Intent      domain.PaymentIntent
	LastOutcome string
	Message     string
	Receipt     *Receipt
}

type Controller struct {
	codec    *qrcode.Codec
	payer    Payer
	balances BalanceReader
	names    NameResolver
	logger   *zap.Logger

	mu      sync.Mutex
	state   State
	intent  domain.PaymentIntent
	outcome domain.PaymentOutcome
	message string
	receipt *Receipt
}

func NewController(codec *qrcode.Codec, payer Payer, balances BalanceReader, names NameResolver, logger *zap.Logger) *Controller {
	return &Controller{
		codec:    codec,
		payer:    payer,
		balances: balances,
		names:    names,
		logger:   logger,
		state:    StateIdle,
	}
}

// Begin starts a payment. Without a business name and recipient the
// controller waits for a scan or manual entry.
func (c *Controller) Begin(intent domain.PaymentIntent) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSubmitting {
		return c.state, ErrSubmissionInProgress
	}
	c.intent = intent
	c.outcome = nil
	c.message = ""
	c.receipt = nil
	if intent.HasRecipient() {
		c.setState(StateReadyToPay)
	} else {
		c.setState(StateAwaitingRecipient)
	}
	return c.state, nil
}

// ApplyScan fills the recipient from scanned QR text.
func (c *Controller) ApplyScan(raw string) (domain.PaymentIntent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSubmitting {
		return c.intent, ErrSubmissionInProgress
	}
	payload, err := c.codec.Decode(raw)
	if err != nil {
		c.message = scanMessage(err)
		if c.state == StateIdle {
			c.setState(StateAwaitingRecipient)
		}
		return c.intent, &DecodeError{Err: err, ManualEntry: true}
	}

	c.intent.BusinessName = payload.BusinessName
	c.intent.RecipientAddress = payload.Recipient
	if payload.HasAmount() {
		c.intent.Amount = payload.Amount
	}
	c.message = ""
	c.setState(StateReadyToPay)
	return c.intent, nil
}

// EnterRecipient is the manual fallback for a failed or unavailable scan.
func (c *Controller) EnterRecipient(businessName, recipient string) (domain.PaymentIntent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSubmitting {
		return c.intent, ErrSubmissionInProgress
	}
	businessName = strings.TrimSpace(businessName)
	recipient = strings.TrimSpace(recipient)
	if businessName == "" || recipient == "" {
		return c.intent, ErrMissingRecipient
	}
	c.intent.BusinessName = businessName
	c.intent.RecipientAddress = recipient
	c.message = ""
	c.setState(StateReadyToPay)
	return c.intent, nil
}

// SetAmount records what the user typed; it is validated on Submit.
func (c *Controller) SetAmount(amount string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intent.Amount = strings.TrimSpace(amount)
}

// Submit validates the request and calls the payer exactly once.
// Failed and cancelled outcomes return the controller to ReadyToPay.
func (c *Controller) Submit(ctx context.Context, req SubmitRequest) (Receipt, error) {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return Receipt{}, ErrSubmissionInProgress
	}

	if req.Recipient == "" {
		req.Recipient = c.intent.RecipientAddress
	}
	amount, err := validate(req)
	if err != nil {
		c.message = err.Error()
		c.mu.Unlock()
		return Receipt{}, err
	}
	if c.state != StateReadyToPay {
		c.mu.Unlock()
		return Receipt{}, ErrNotReady
	}

	c.intent.Amount = req.Amount
	c.message = ""
	c.setState(StateSubmitting)
	c.mu.Unlock()

	outcome, payErr := c.payer.Pay(ctx, req.From, req.Recipient, amount)
	if payErr != nil {
		c.logger.Warn("payment call failed",
			zap.String("recipient", req.Recipient),
			zap.Error(payErr))
		outcome = domain.PaymentFailed{Reason: payErr.Error()}
	}

	switch o := outcome.(type) {
	case domain.PaymentSucceeded:
		return c.succeed(ctx, req, amount, o), nil
	case domain.PaymentFailed:
		return c.fail(amount, o), fmt.Errorf("%w: %s", ErrPaymentFailed, o.Reason)
	case domain.PaymentCancelled:
		return c.cancelled(amount, o), nil
	default:
		f := domain.PaymentFailed{Reason: fmt.Sprintf("unrecognised payment outcome %T", outcome)}
		return c.fail(amount, f), fmt.Errorf("%w: %s", ErrPaymentFailed, f.Reason)
	}
}

func (c *Controller) succeed(ctx context.Context, req SubmitRequest, amount decimal.Decimal, o domain.PaymentSucceeded) Receipt {
	c.mu.Lock()
	c.outcome = o
	c.setState(StateSucceeded)
	c.mu.Unlock()

	c.logger.Info("payment succeeded",
		zap.String("recipient", req.Recipient),
		zap.String("amount", amount.String()),
		zap.String("tx_ref", o.TxRef))

	// the refresh is only issued once the outcome is known
	balance := req.Balance.Sub(amount)
	if fresh, err := c.balances.Balance(ctx, req.From); err != nil {
		c.logger.Warn("balance refresh failed", zap.String("wallet", req.From), zap.Error(err))
	} else {
		balance = fresh
	}

	name := UnknownBusiness
	if resolved, err := c.names.ResolveName(ctx, req.Recipient); err != nil {
		c.logger.Warn("recipient lookup failed", zap.String("recipient", req.Recipient), zap.Error(err))
	} else if resolved != "" {
		name = resolved
	}

	receipt := Receipt{
		Outcome:      o,
		TxRef:        o.TxRef,
		BusinessName: name,
		Amount:       amount,
		Balance:      balance,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.intent.BusinessName = name
	c.receipt = &receipt
	return receipt
}

func (c *Controller) fail(amount decimal.Decimal, o domain.PaymentFailed) Receipt {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.outcome = o
	c.setState(StateFailed)
	c.message = fmt.Sprintf("Payment failed: %s", o.Reason)
	c.setState(StateReadyToPay)
	return Receipt{Outcome: o, Amount: amount}
}

func (c *Controller) cancelled(amount decimal.Decimal, o domain.PaymentCancelled) Receipt {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.outcome = o
	c.setState(StateCancelled)
	c.message = ""
	c.setState(StateReadyToPay)
	return Receipt{Outcome: o, Amount: amount}
}

// Cancel discards the intent. It is refused while a submission is running.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSubmitting {
		return ErrSubmissionInProgress
	}
	c.reset()
	return nil
}

// Complete discards the intent after a successful payment has been shown.
func (c *Controller) Complete() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSucceeded {
		c.reset()
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:       c.state,
		Intent:      c.intent,
		LastOutcome: domain.OutcomeName(c.outcome),
		Message:     c.message,
	}
	if c.receipt != nil {
		r := *c.receipt
		s.Receipt = &r
	}
	return s
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) reset() {
	c.intent = domain.PaymentIntent{}
	c.outcome = nil
	c.message = ""
	c.receipt = nil
	c.setState(StateIdle)
}

func (c *Controller) setState(next State) {
	if c.state != next && !CanTransitionTo(c.state, next) {
		c.logger.Warn("unexpected payment transition",
			zap.Stringer("from", c.state),
			zap.Stringer("to", next))
	}
	c.state = next
}

func validate(req SubmitRequest) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if amount.GreaterThan(req.Balance) {
		return decimal.Zero, &InsufficientBalanceError{Available: req.Balance, Requested: amount}
	}
	if strings.TrimSpace(req.Recipient) == "" {
		return decimal.Zero, ErrMissingRecipient
	}
	return amount, nil
}

func scanMessage(err error) string {
	switch {
	case errors.Is(err, qrcode.ErrInvalidFormat):
		return "Invalid QR Code format"
	default:
		return "Could not read QR code"
	}
}
