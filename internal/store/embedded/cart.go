package embedded

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
)

// Carts live next to the catalog when no Redis is configured.

func (s *Store) LoadCart(_ context.Context, userID string) (domain.Cart, error) {
	var c domain.Cart
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, cartKey(userID), &c)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.NewCart(userID, nil, time.Time{}), nil
	}
	if err != nil {
		return domain.Cart{}, err
	}
	return domain.NewCart(userID, c.Items, c.UpdatedAt), nil
}

func (s *Store) UpdateCart(_ context.Context, userID string, fn func([]domain.CartItem) ([]domain.CartItem, error)) (domain.Cart, error) {
	var out domain.Cart
	err := s.update("cart.update", func(txn *badger.Txn) error {
		var c domain.Cart
		if err := getJSON(txn, cartKey(userID), &c); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		items, err := fn(c.Items)
		if err != nil {
			return err
		}
		out = domain.NewCart(userID, items, time.Now().UTC())
		return setJSON(txn, cartKey(userID), out)
	})
	return out, err
}

func (s *Store) ClearCart(_ context.Context, userID string) error {
	return s.update("cart.clear", func(txn *badger.Txn) error {
		return txn.Delete(cartKey(userID))
	})
}
