package embedded

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	"github.com/nazeru/materials-marketplace-go/internal/order/tx"
	"github.com/nazeru/materials-marketplace-go/pkg/contracts"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", "marketplace.orders")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedMaterial(t *testing.T, s *Store, id string, qty int) domain.Material {
	t.Helper()
	m := domain.Material{
		ID:         domain.MaterialID(id),
		Name:       "Material " + id,
		Price:      decimal.NewFromInt(100),
		Quantity:   qty,
		Unit:       "kg",
		SupplierID: "s1",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, s.CreateMaterial(context.Background(), m))
	return m
}

func TestAdjustStockNeverNegative(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	seedMaterial(t, s, "m1", 2)

	err := s.InTx(ctx, func(ctx context.Context, t tx.Tx) error {
		return t.AdjustStock(ctx, "m1", -3)
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, t tx.Tx) error {
		return t.AdjustStock(ctx, "m1", -2)
	}))
	m, err := s.GetMaterial(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Quantity)
	assert.Equal(t, int64(1), m.Version)

	err = s.InTx(ctx, func(ctx context.Context, t tx.Tx) error {
		return t.AdjustStock(ctx, "missing", 1)
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInTxRollsBackOnError(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	seedMaterial(t, s, "m1", 5)

	err := s.InTx(ctx, func(ctx context.Context, t tx.Tx) error {
		if err := t.AdjustStock(ctx, "m1", -1); err != nil {
			return err
		}
		return domain.NotFound("test", "boom")
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	m, err := s.GetMaterial(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 5, m.Quantity)
}

func TestConcurrentWriterSurfacesConflict(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	seedMaterial(t, s, "m1", 5)

	err := s.InTx(ctx, func(ctx context.Context, outer tx.Tx) error {
		if _, err := outer.LockMaterials(ctx, []domain.MaterialID{"m1"}); err != nil {
			return err
		}
		if err := s.InTx(ctx, func(ctx context.Context, inner tx.Tx) error {
			return inner.AdjustStock(ctx, "m1", -1)
		}); err != nil {
			return err
		}
		return outer.AdjustStock(ctx, "m1", -1)
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	m, err := s.GetMaterial(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 4, m.Quantity)
}

func TestIdempotencyKeys(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, t tx.Tx) error {
		got, err := t.LookupIdempotency(ctx, "v1", "k1")
		if err != nil || got != "" {
			return err
		}
		return t.SaveIdempotency(ctx, "v1", "k1", "o1")
	}))

	err := s.InTx(ctx, func(ctx context.Context, t tx.Tx) error {
		return t.SaveIdempotency(ctx, "v1", "k1", "o2")
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	var got domain.OrderID
	require.NoError(t, s.InTx(ctx, func(ctx context.Context, t tx.Tx) error {
		var err error
		got, err = t.LookupIdempotency(ctx, "v1", "k1")
		return err
	}))
	assert.Equal(t, domain.OrderID("o1"), got)

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, t tx.Tx) error {
		var err error
		if got, err = t.LookupIdempotency(ctx, "v2", "k1"); err != nil || got != "" {
			return err
		}
		return t.SaveIdempotency(ctx, "v2", "k1", "o3")
	}))
	assert.Empty(t, got, "another vendor's key must not be visible")
}

func TestListOrdersScopesAndPages(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	orders := []domain.Order{
		{ID: "o1", VendorID: "v1", Status: domain.OrderStatusPending, OrderDate: base, Materials: []domain.LineItem{{SupplierID: "a"}, {SupplierID: "b"}}},
		{ID: "o2", VendorID: "v1", Status: domain.OrderStatusShipped, OrderDate: base.Add(time.Hour), Materials: []domain.LineItem{{SupplierID: "b"}}},
		{ID: "o3", VendorID: "v2", Status: domain.OrderStatusPending, OrderDate: base.Add(2 * time.Hour), Materials: []domain.LineItem{{SupplierID: "a"}}},
	}
	require.NoError(t, s.InTx(ctx, func(ctx context.Context, t tx.Tx) error {
		for _, o := range orders {
			if err := t.InsertOrder(ctx, o); err != nil {
				return err
			}
		}
		return nil
	}))

	got, total, err := s.ListOrders(ctx, domain.OrderQuery{SupplierID: "a", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, domain.OrderID("o3"), got[0].ID)
	assert.Equal(t, domain.OrderID("o1"), got[1].ID)

	got, total, err = s.ListOrders(ctx, domain.OrderQuery{VendorID: "v1", Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 1)
	assert.Equal(t, domain.OrderID("o1"), got[0].ID)

	got, total, err = s.ListOrders(ctx, domain.OrderQuery{VendorID: "v1", Status: domain.OrderStatusShipped, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, domain.OrderID("o2"), got[0].ID)

	got, _, err = s.ListOrders(ctx, domain.OrderQuery{VendorID: "v1", Page: 5, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOutboxPendingInOrderThenSent(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	for _, id := range []string{"o1", "o2", "o3"} {
		evt := contracts.NewEvent(contracts.EventOrderCreated, id, contracts.OrderPayload{VendorID: "v1"})
		require.NoError(t, s.InTx(ctx, func(ctx context.Context, t tx.Tx) error {
			return t.AppendOutbox(ctx, evt)
		}))
	}

	recs, err := s.FetchPending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "o1", recs[0].Key)
	assert.Equal(t, "o2", recs[1].Key)
	assert.Equal(t, "marketplace.orders", recs[0].Topic)
	assert.Less(t, recs[0].ID, recs[1].ID)

	require.NoError(t, s.MarkSent(ctx, recs[0].ID))
	recs, err = s.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "o2", recs[0].Key)
}

func TestCartUpdateAndClear(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	c, err := s.LoadCart(ctx, "v1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	c, err = s.UpdateCart(ctx, "v1", func(items []domain.CartItem) ([]domain.CartItem, error) {
		return append(items, domain.CartItem{MaterialID: "m1", Quantity: 2, Price: decimal.NewFromInt(5)}), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, c.TotalItems)
	assert.True(t, decimal.NewFromInt(10).Equal(c.TotalAmount))

	require.NoError(t, s.ClearCart(ctx, "v1"))
	c, err = s.LoadCart(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 0, c.TotalItems)
}

func TestUsersUniqueByEmail(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	u := domain.User{ID: "u1", Name: "Asha", Email: "asha@example.com", PasswordHash: "hash", Role: domain.RoleVendor}
	require.NoError(t, s.CreateUser(ctx, u))

	err := s.CreateUser(ctx, domain.User{ID: "u2", Name: "Other", Email: "asha@example.com", Role: domain.RoleSupplier})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	got, err := s.GetUserByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = s.GetUser(ctx, "u2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	updated, err := s.UpdateUser(ctx, "u1", func(u *domain.User) error {
		u.Address = "Plot 7, Nashik"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Plot 7, Nashik", updated.Address)
	got, err = s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Plot 7, Nashik", got.Address)
}
