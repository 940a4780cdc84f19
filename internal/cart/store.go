package cart

import (
	"sync"

	"github.com/fjod/squeeze/internal/domain"
)

// Store is the session cart. Every change goes through Update so that rapid
// sequential events always build on the latest cart.
type Store struct {
	mu   sync.Mutex
	cart domain.Cart
}

func NewStore() *Store {
	return &Store{cart: domain.Cart{Items: []domain.CartItem{}}}
}

// Update atomically replaces the cart with fn(current) and returns the result.
func (s *Store) Update(fn func(domain.Cart) domain.Cart) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = fn(s.cart)
	return s.snapshot()
}

// Set is shorthand for Update with the cart reducer.
func (s *Store) Set(product domain.Product, quantity int) domain.Cart {
	return s.Update(func(c domain.Cart) domain.Cart {
		return Update(c, product, quantity)
	})
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = Clear(s.cart)
}

func (s *Store) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() domain.Cart {
	items := make([]domain.CartItem, len(s.cart.Items))
	copy(items, s.cart.Items)
	return domain.Cart{Items: items}
}
