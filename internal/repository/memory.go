package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/squeeze/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Memory implements DirectoryRepository and LedgerRepository in process.
// It backs the demo mode and the acceptance tests.
type Memory struct {
	mu         sync.RWMutex
	businesses map[string]*domain.BusinessProfile
	order      []string
	balances   map[string]decimal.Decimal
	transfers  []domain.Transfer
	outbox     []*OutboxEvent
	processed  map[int]bool
	now        func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		businesses: make(map[string]*domain.BusinessProfile),
		balances:   make(map[string]decimal.Decimal),
		processed:  make(map[int]bool),
		now:        time.Now,
	}
}

// NewSeededMemory returns a Memory holding SeedBusinesses.
func NewSeededMemory() *Memory {
	m := NewMemory()
	for _, b := range SeedBusinesses(m.now()) {
		b := b
		m.put(&b)
	}
	return m
}

func (m *Memory) ListBusinesses(_ context.Context) ([]domain.BusinessProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.BusinessProfile, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, clone(m.businesses[id]))
	}
	return out, nil
}

func (m *Memory) GetBusiness(_ context.Context, id string) (*domain.BusinessProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.businesses[id]
	if !ok {
		return nil, ErrBusinessNotFound
	}
	c := clone(b)
	return &c, nil
}

// UpsertBusiness replaces the profile fields but keeps existing reviews.
func (m *Memory) UpsertBusiness(_ context.Context, profile *domain.BusinessProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	p := clone(profile)
	if existing, ok := m.businesses[p.ID]; ok {
		p.Reviews = existing.Reviews
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	if p.Reviews == nil {
		p.Reviews = []domain.Review{}
	}
	p.UpdatedAt = now
	p.AverageRating()
	m.put(&p)
	return nil
}

func (m *Memory) AddReview(_ context.Context, businessID string, review domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.businesses[businessID]
	if !ok {
		return ErrBusinessNotFound
	}
	b.Reviews = append(b.Reviews, review)
	b.AverageRating()
	b.UpdatedAt = m.now()
	return nil
}

func (m *Memory) UpdateProducts(_ context.Context, businessID string, products []domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.businesses[businessID]
	if !ok {
		return ErrBusinessNotFound
	}
	b.Products = append([]domain.Product(nil), products...)
	b.UpdatedAt = m.now()
	return nil
}

func (m *Memory) GetBalance(_ context.Context, wallet string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance(wallet), nil
}

func (m *Memory) Transfer(_ context.Context, from, to string, amount decimal.Decimal) (*domain.Transfer, error) {
	if err := validateTransfer(from, to, amount); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fromBalance := m.balance(from)
	toBalance := m.balance(to)
	if fromBalance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	t := domain.Transfer{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Amount:    amount,
		CreatedAt: m.now(),
	}
	payload, err := transferPayload(&t)
	if err != nil {
		return nil, err
	}

	m.balances[from] = fromBalance.Sub(amount)
	m.balances[to] = toBalance.Add(amount)
	m.transfers = append(m.transfers, t)
	m.outbox = append(m.outbox, &OutboxEvent{
		ID:          len(m.outbox) + 1,
		AggregateId: t.ID,
		EventType:   TransferEventType,
		Payload:     payload,
		CreatedAt:   t.CreatedAt,
	})
	return &t, nil
}

func (m *Memory) GetUnprocessedEvents(_ context.Context, limit int) ([]*OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*OutboxEvent
	for _, e := range m.outbox {
		if m.processed[e.ID] {
			continue
		}
		ev := *e
		out = append(out, &ev)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkEventAsProcessed(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[id] = true
	return nil
}

// Transfers returns completed transfers, newest first.
func (m *Memory) Transfers() []domain.Transfer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := append([]domain.Transfer(nil), m.transfers...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// SetBalance overrides a wallet balance. Used to set up scenarios.
func (m *Memory) SetBalance(wallet string, balance decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[wallet] = balance
}

// balance must be called with the write lock held.
func (m *Memory) balance(wallet string) decimal.Decimal {
	b, ok := m.balances[wallet]
	if !ok {
		b = InitialBalance
		m.balances[wallet] = b
	}
	return b
}

func (m *Memory) put(b *domain.BusinessProfile) {
	if _, ok := m.businesses[b.ID]; !ok {
		m.order = append(m.order, b.ID)
	}
	m.businesses[b.ID] = b
}

func clone(b *domain.BusinessProfile) domain.BusinessProfile {
	c := *b
	c.Reviews = append([]domain.Review(nil), b.Reviews...)
	if c.Reviews == nil {
		c.Reviews = []domain.Review{}
	}
	c.Products = append([]domain.Product(nil), b.Products...)
	if b.Location != nil {
		loc := *b.Location
		c.Location = &loc
	}
	return c
}
