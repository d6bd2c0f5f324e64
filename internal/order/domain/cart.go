package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	MaterialID   MaterialID      `json:"materialId"`
	MaterialName string          `json:"materialName"`
	SupplierID   string          `json:"supplierId"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

type Cart struct {
	UserID      string          `json:"userId"`
	Items       []CartItem      `json:"items"`
	TotalItems  int             `json:"totalItems"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// NewCart builds a cart from its items, sorted by material id, with the cached totals filled in.
func NewCart(userID string, items []CartItem, updatedAt time.Time) Cart {
	sorted := make([]CartItem, 0, len(items))
	for _, it := range items {
		if it.Quantity > 0 {
			sorted = append(sorted, it)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MaterialID < sorted[j].MaterialID })

	c := Cart{UserID: userID, Items: sorted, TotalAmount: decimal.Zero, UpdatedAt: updatedAt}
	for _, it := range sorted {
		c.TotalItems += it.Quantity
		c.TotalAmount = c.TotalAmount.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return c
}

func (c Cart) Item(id MaterialID) (CartItem, bool) {
	for _, it := range c.Items {
		if it.MaterialID == id {
			return it, true
		}
	}
	return CartItem{}, false
}
