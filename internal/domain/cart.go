package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Cart holds at most one item per product id.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Find returns the index of the item for productID, or -1.
func (c Cart) Find(productID int64) int {
	for i, item := range c.Items {
		if item.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
