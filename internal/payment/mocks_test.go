package payment

import (
	"context"
	"sync"

	"github.com/fjod/squeeze/internal/domain"
	"github.com/shopspring/decimal"
)

type mockPayer struct {
	m       sync.Mutex
	outcome domain.PaymentOutcome
	err     error
	calls   int
	block   chan struct{}
	entered chan struct{}
}

func (p *mockPayer) Pay(context.Context, string, string, decimal.Decimal) (domain.PaymentOutcome, error) {
	p.m.Lock()
	p.calls++
	block, entered := p.block, p.entered
	p.m.Unlock()

	if entered != nil {
		close(entered)
	}
	if block != nil {
		<-block
	}
	return p.outcome, p.err
}

func (p *mockPayer) callCount() int {
	p.m.Lock()
	defer p.m.Unlock()
	return p.calls
}

type mockBalances struct {
	m       sync.Mutex
	balance decimal.Decimal
	err     error
	calls   int
}

func (b *mockBalances) Balance(context.Context, string) (decimal.Decimal, error) {
	b.m.Lock()
	defer b.m.Unlock()
	b.calls++
	return b.balance, b.err
}

type mockNames struct {
	names map[string]string
	err   error
}

func (n *mockNames) ResolveName(_ context.Context, address string) (string, error) {
	if n.err != nil {
		return "", n.err
	}
	return n.names[address], nil
}
