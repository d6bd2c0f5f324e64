// Package cart stages the materials a vendor intends to order.
package cart

import (
	"context"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
)

type Store interface {
	LoadCart(ctx context.Context, userID string) (domain.Cart, error)
	// UpdateCart replaces the items with what fn returns, atomically with respect to other updates
	// of the same cart.
	UpdateCart(ctx context.Context, userID string, fn func([]domain.CartItem) ([]domain.CartItem, error)) (domain.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

type MaterialGetter interface {
	GetMaterial(ctx context.Context, id domain.MaterialID) (domain.Material, error)
}

type Service struct {
	store     Store
	materials MaterialGetter
}

func NewService(store Store, materials MaterialGetter) *Service {
	return &Service{store: store, materials: materials}
}

func (s *Service) Get(ctx context.Context, c domain.Caller) (domain.Cart, error) {
	return s.store.LoadCart(ctx, c.ID)
}

// Add puts quantity more of the material in the cart, snapshotting its current price.
func (s *Service) Add(ctx context.Context, c domain.Caller, id domain.MaterialID, quantity int) (domain.Cart, error) {
	if quantity <= 0 {
		return domain.Cart{}, domain.Validation("cart.add", "quantity must be > 0")
	}
	m, err := s.materials.GetMaterial(ctx, id)
	if err != nil {
		return domain.Cart{}, err
	}
	return s.store.UpdateCart(ctx, c.ID, func(items []domain.CartItem) ([]domain.CartItem, error) {
		current := 0
		for _, it := range items {
			if it.MaterialID == id {
				current = it.Quantity
			}
		}
		return put(items, m, current+quantity)
	})
}

// Set overwrites the quantity of one material. Zero removes it.
func (s *Service) Set(ctx context.Context, c domain.Caller, id domain.MaterialID, quantity int) (domain.Cart, error) {
	if quantity < 0 {
		return domain.Cart{}, domain.Validation("cart.set", "quantity must be >= 0")
	}
	if quantity == 0 {
		return s.Remove(ctx, c, id)
	}
	m, err := s.materials.GetMaterial(ctx, id)
	if err != nil {
		return domain.Cart{}, err
	}
	return s.store.UpdateCart(ctx, c.ID, func(items []domain.CartItem) ([]domain.CartItem, error) {
		return put(items, m, quantity)
	})
}

func (s *Service) Remove(ctx context.Context, c domain.Caller, id domain.MaterialID) (domain.Cart, error) {
	return s.store.UpdateCart(ctx, c.ID, func(items []domain.CartItem) ([]domain.CartItem, error) {
		out := items[:0]
		for _, it := range items {
			if it.MaterialID != id {
				out = append(out, it)
			}
		}
		return out, nil
	})
}

func (s *Service) Clear(ctx context.Context, c domain.Caller) error {
	return s.store.ClearCart(ctx, c.ID)
}

func put(items []domain.CartItem, m domain.Material, quantity int) ([]domain.CartItem, error) {
	if quantity > m.Quantity {
		return nil, domain.Validation("cart.put", "Insufficient stock for %s. Available: %d", m.Name, m.Quantity)
	}
	item := domain.CartItem{
		MaterialID:   m.ID,
		MaterialName: m.Name,
		SupplierID:   m.SupplierID,
		Quantity:     quantity,
		Price:        m.Price,
	}
	for i, it := range items {
		if it.MaterialID == m.ID {
			items[i] = item
			return items, nil
		}
	}
	return append(items, item), nil
}
