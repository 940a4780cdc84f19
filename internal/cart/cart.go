package cart

import (
	"errors"

	"github.com/fjod/squeeze/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrEmptyCart = errors.New("cart is empty")

// Update applies a quantity change for product and returns the new cart.
// The input cart is never modified.
func Update(c domain.Cart, product domain.Product, quantity int) domain.Cart {
	idx := c.Find(product.ID)

	switch {
	case idx >= 0 && quantity <= 0:
		items := make([]domain.CartItem, 0, len(c.Items)-1)
		items = append(items, c.Items[:idx]...)
		items = append(items, c.Items[idx+1:]...)
		return domain.Cart{Items: items}
	case idx >= 0:
		items := make([]domain.CartItem, len(c.Items))
		copy(items, c.Items)
		items[idx].Quantity = quantity
		return domain.Cart{Items: items}
	case quantity > 0:
		items := make([]domain.CartItem, len(c.Items), len(c.Items)+1)
		copy(items, c.Items)
		items = append(items, domain.CartItem{Product: product, Quantity: quantity})
		return domain.Cart{Items: items}
	default:
		return c
	}
}

func Clear(domain.Cart) domain.Cart {
	return domain.Cart{Items: []domain.CartItem{}}
}

// Total is the sum of price * quantity over all items.
func Total(c domain.Cart) decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// FormatTotal renders Total with two decimals, e.g. "9.50".
func FormatTotal(c domain.Cart) string {
	return Total(c).StringFixed(2)
}

// ItemCount is the number of units in the cart.
func ItemCount(c domain.Cart) int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// RequirePayable returns the cart total, or ErrEmptyCart when there is nothing to charge.
func RequirePayable(c domain.Cart) (decimal.Decimal, error) {
	total := Total(c)
	if !total.IsPositive() {
		return decimal.Zero, ErrEmptyCart
	}
	return total, nil
}
