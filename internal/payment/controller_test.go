package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fjod/squeeze/internal/domain"
	"github.com/fjod/squeeze/internal/qrcode"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newController(payer *mockPayer, balances *mockBalances, names *mockNames) *Controller {
	return NewController(qrcode.NewCodec("", ""), payer, balances, names, zap.NewNop())
}

func readyController(t *testing.T, payer *mockPayer, balances *mockBalances, names *mockNames) *Controller {
	c := newController(payer, balances, names)
	state, err := c.Begin(domain.PaymentIntent{BusinessName: "Lemon Coffee", RecipientAddress: "0xR"})
	require.NoError(t, err)
	require.Equal(t, StateReadyToPay, state)
	return c
}

func TestBegin_WithoutRecipientAwaits(t *testing.T) {
	c := newController(&mockPayer{}, &mockBalances{}, &mockNames{})

	state, err := c.Begin(domain.PaymentIntent{BusinessName: "Cafe"})
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingRecipient, state)
}

func TestSubmit_InsufficientBalance_NoPayCall(t *testing.T) {
	payer := &mockPayer{outcome: domain.PaymentSucceeded{}}
	c := readyController(t, payer, &mockBalances{}, &mockNames{})

	_, err := c.Submit(context.Background(), SubmitRequest{
		From:      "0xDEMO_WALLET_1",
		Amount:    "50",
		Recipient: "0xR",
		Balance:   decimal.NewFromInt(30),
	})

	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "Insufficient balance. You have 30.00 USDC available.", err.Error())
	assert.Equal(t, 0, payer.callCount())
	assert.Equal(t, StateReadyToPay, c.State())
}

func TestSubmit_ComparesAsDecimals(t *testing.T) {
	payer := &mockPayer{outcome: domain.PaymentSucceeded{TxRef: "tx"}}
	c := readyController(t, payer, &mockBalances{balance: decimal.NewFromInt(91)}, &mockNames{})

	// "9" > "10" as strings, but not as numbers
	_, err := c.Submit(context.Background(), SubmitRequest{From: "0xA", Amount: "9", Balance: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.Equal(t, 1, payer.callCount())
}

func TestSubmit_InvalidAmount(t *testing.T) {
	for _, amount := range []string{"", "abc", "0", "-5", "1e"} {
		t.Run(amount, func(t *testing.T) {
			payer := &mockPayer{}
			c := readyController(t, payer, &mockBalances{}, &mockNames{})

			_, err := c.Submit(context.Background(), SubmitRequest{Amount: amount, Recipient: "0xR", Balance: decimal.NewFromInt(100)})
			require.ErrorIs(t, err, ErrInvalidAmount)
			assert.Equal(t, 0, payer.callCount())
		})
	}
}

func TestSubmit_MissingRecipient(t *testing.T) {
	payer := &mockPayer{}
	c := newController(payer, &mockBalances{}, &mockNames{})

	_, err := c.Submit(context.Background(), SubmitRequest{Amount: "5", Balance: decimal.NewFromInt(100)})
	require.ErrorIs(t, err, ErrMissingRecipient)
	assert.Equal(t, 0, payer.callCount())
}

func TestSubmit_Success(t *testing.T) {
	payer := &mockPayer{outcome: domain.PaymentSucceeded{TxRef: "tx-1"}}
	balances := &mockBalances{balance: decimal.RequireFromString("87.50")}
	names := &mockNames{names: map[string]string{"0xR": "Lemon Coffee"}}
	c := readyController(t, payer, balances, names)

	receipt, err := c.Submit(context.Background(), SubmitRequest{From: "0xA", Amount: "12.50", Balance: decimal.NewFromInt(100)})
	require.NoError(t, err)

	assert.Equal(t, "tx-1", receipt.TxRef)
	assert.Equal(t, "Lemon Coffee", receipt.BusinessName)
	assert.Equal(t, "87.50", receipt.Balance.StringFixed(2))
	assert.Equal(t, StateSucceeded, c.State())
	assert.Equal(t, 1, balances.calls)

	snap := c.Snapshot()
	assert.Equal(t, "succeeded", snap.LastOutcome)
	require.NotNil(t, snap.Receipt)
	assert.Equal(t, "tx-1", snap.Receipt.TxRef)

	c.Complete()
	assert.Equal(t, StateIdle, c.State())
}

func TestSubmit_SuccessUnknownBusiness(t *testing.T) {
	payer := &mockPayer{outcome: domain.PaymentSucceeded{}}
	c := readyController(t, payer, &mockBalances{err: errors.New("ledger down")}, &mockNames{err: errors.New("directory down")})

	receipt, err := c.Submit(context.Background(), SubmitRequest{From: "0xA", Amount: "10", Balance: decimal.NewFromInt(40)})
	require.NoError(t, err)

	assert.Equal(t, UnknownBusiness, receipt.BusinessName)
	// refresh failed, falls back to the local estimate
	assert.Equal(t, "30.00", receipt.Balance.StringFixed(2))
}

func TestSubmit_FailedReturnsToReady(t *testing.T) {
	payer := &mockPayer{outcome: domain.PaymentFailed{Reason: "Insufficient funds"}}
	balances := &mockBalances{}
	c := readyController(t, payer, balances, &mockNames{})

	receipt, err := c.Submit(context.Background(), SubmitRequest{From: "0xA", Amount: "10", Balance: decimal.NewFromInt(40)})
	require.ErrorIs(t, err, ErrPaymentFailed)
	assert.Contains(t, err.Error(), "Insufficient funds")
	assert.Equal(t, domain.PaymentFailed{Reason: "Insufficient funds"}, receipt.Outcome)
	assert.Equal(t, StateReadyToPay, c.State())
	assert.Equal(t, "Payment failed: Insufficient funds", c.Snapshot().Message)
	assert.Equal(t, 0, balances.calls)
}

func TestSubmit_TransportErrorIsFailure(t *testing.T) {
	payer := &mockPayer{err: errors.New("connection refused")}
	c := readyController(t, payer, &mockBalances{}, &mockNames{})

	receipt, err := c.Submit(context.Background(), SubmitRequest{From: "0xA", Amount: "10", Balance: decimal.NewFromInt(40)})
	require.ErrorIs(t, err, ErrPaymentFailed)
	assert.IsType(t, domain.PaymentFailed{}, receipt.Outcome)
	assert.Equal(t, StateReadyToPay, c.State())
	assert.Equal(t, 1, payer.callCount())
}

func TestSubmit_CancelledReturnsToReady(t *testing.T) {
	payer := &mockPayer{outcome: domain.PaymentCancelled{}}
	c := readyController(t, payer, &mockBalances{}, &mockNames{})

	receipt, err := c.Submit(context.Background(), SubmitRequest{From: "0xA", Amount: "10", Balance: decimal.NewFromInt(40)})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCancelled{}, receipt.Outcome)
	assert.Equal(t, StateReadyToPay, c.State())
	assert.Equal(t, "cancelled", c.Snapshot().LastOutcome)
}

func TestSubmit_NoOutcomeLeavesSubmitting(t *testing.T) {
	outcomes := []domain.PaymentOutcome{
		domain.PaymentSucceeded{TxRef: "x"},
		domain.PaymentFailed{Reason: "no"},
		domain.PaymentCancelled{},
		nil,
	}
	for _, o := range outcomes {
		t.Run(domain.OutcomeName(o), func(t *testing.T) {
			c := readyController(t, &mockPayer{outcome: o}, &mockBalances{}, &mockNames{})
			_, _ = c.Submit(context.Background(), SubmitRequest{From: "0xA", Amount: "1", Balance: decimal.NewFromInt(5)})
			assert.NotEqual(t, StateSubmitting, c.State())
		})
	}
}

func TestSubmit_SecondSubmitWhileSubmitting(t *testing.T) {
	payer := &mockPayer{
		outcome: domain.PaymentSucceeded{},
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	c := readyController(t, payer, &mockBalances{}, &mockNames{})

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), SubmitRequest{From: "0xA", Amount: "1", Balance: decimal.NewFromInt(5)})
		done <- err
	}()

	<-payer.entered
	assert.Equal(t, StateSubmitting, c.State())

	_, err := c.Submit(context.Background(), SubmitRequest{From: "0xA", Amount: "1", Balance: decimal.NewFromInt(5)})
	require.ErrorIs(t, err, ErrSubmissionInProgress)
	require.ErrorIs(t, c.Cancel(), ErrSubmissionInProgress)

	close(payer.block)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("submission did not finish")
	}
	assert.Equal(t, 1, payer.callCount())
	assert.Equal(t, StateSucceeded, c.State())
}

func TestApplyScan(t *testing.T) {
	codec := qrcode.NewCodec("", "")
	c := newController(&mockPayer{}, &mockBalances{}, &mockNames{})
	_, err := c.Begin(domain.PaymentIntent{})
	require.NoError(t, err)

	_, err = c.ApplyScan("not a link")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.True(t, decodeErr.ManualEntry)
	require.ErrorIs(t, err, qrcode.ErrUnparseable)
	assert.Equal(t, StateAwaitingRecipient, c.State())
	assert.Equal(t, "Could not read QR code", c.Snapshot().Message)

	_, err = c.ApplyScan("https://squeeze.app/?businessName=Cafe")
	require.ErrorIs(t, err, qrcode.ErrInvalidFormat)
	assert.Equal(t, "Invalid QR Code format", c.Snapshot().Message)

	intent, err := c.ApplyScan(codec.Encode(qrcode.Payload{BusinessName: "Cafe", Recipient: "0xR", Amount: "10"}))
	require.NoError(t, err)
	assert.Equal(t, "Cafe", intent.BusinessName)
	assert.Equal(t, "0xR", intent.RecipientAddress)
	assert.Equal(t, "10", intent.Amount)
	assert.Equal(t, StateReadyToPay, c.State())
	assert.Empty(t, c.Snapshot().Message)
}

func TestEnterRecipient(t *testing.T) {
	c := newController(&mockPayer{}, &mockBalances{}, &mockNames{})
	_, _ = c.Begin(domain.PaymentIntent{})

	_, err := c.EnterRecipient("Cafe", " ")
	require.ErrorIs(t, err, ErrMissingRecipient)
	assert.Equal(t, StateAwaitingRecipient, c.State())

	intent, err := c.EnterRecipient(" Cafe ", "0xR")
	require.NoError(t, err)
	assert.Equal(t, "Cafe", intent.BusinessName)
	assert.Equal(t, StateReadyToPay, c.State())
}

func TestCancel_DiscardsIntent(t *testing.T) {
	c := readyController(t, &mockPayer{}, &mockBalances{}, &mockNames{})

	require.NoError(t, c.Cancel())
	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, domain.PaymentIntent{}, snap.Intent)
}

func TestCanTransitionTo(t *testing.T) {
	assert.True(t, CanTransitionTo(StateReadyToPay, StateSubmitting))
	assert.True(t, CanTransitionTo(StateSubmitting, StateCancelled))
	assert.False(t, CanTransitionTo(StateIdle, StateSubmitting))
	assert.False(t, CanTransitionTo(StateSubmitting, StateIdle))
	assert.True(t, StateFailed.IsTerminal())
	assert.False(t, StateReadyToPay.IsTerminal())
}
