package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	ordertx "github.com/nazeru/materials-marketplace-go/internal/order/tx"
	"github.com/nazeru/materials-marketplace-go/internal/store/embedded"
	"github.com/nazeru/materials-marketplace-go/pkg/contracts"
	"github.com/nazeru/materials-marketplace-go/pkg/logging"
	"github.com/nazeru/materials-marketplace-go/pkg/metrics"
	"github.com/nazeru/materials-marketplace-go/pkg/tx"
)

var (
	vendor    = domain.Caller{ID: "v1", Name: "Vendor One", Role: domain.RoleVendor, Address: "12 Mill Road, Pune"}
	vendor2   = domain.Caller{ID: "v2", Name: "Vendor Two", Role: domain.RoleVendor}
	supplierA = domain.Caller{ID: "A", Name: "Supplier A", Role: domain.RoleSupplier}
	supplierB = domain.Caller{ID: "B", Name: "Supplier B", Role: domain.RoleSupplier}
	supplierC = domain.Caller{ID: "C", Name: "Supplier C", Role: domain.RoleSupplier}
)

type fixture struct {
	store   *embedded.Store
	svc     *Service
	metrics *metrics.OrderMetrics
	cart    *recordingCart
}

type recordingCart struct {
	mu      sync.Mutex
	cleared []string
	err     error
}

func (c *recordingCart) ClearCart(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared = append(c.cleared, userID)
	return c.err
}

func newFixture(t *testing.T, policy domain.StatusPolicy) *fixture {
	t.Helper()
	store, err := embedded.Open("", "marketplace.orders")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return newFixtureOn(t, store, store, policy)
}

func newFixtureOn(t *testing.T, store *embedded.Store, runner ordertx.Store, policy domain.StatusPolicy) *fixture {
	t.Helper()
	m := metrics.NewOrderMetrics(prometheus.NewRegistry(), "test")
	cart := &recordingCart{}
	svc := New(runner, Options{
		Policy:  policy,
		Retry:   tx.RetryPolicy{MaxAttempts: 10, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2},
		Metrics: m,
		Log:     logging.New("order-test"),
		Cart:    cart,
	})
	return &fixture{store: store, svc: svc, metrics: m, cart: cart}
}

func (f *fixture) material(t *testing.T, id string, supplier domain.Caller, price int64, qty int) {
	t.Helper()
	require.NoError(t, f.store.CreateMaterial(context.Background(), domain.Material{
		ID: domain.MaterialID(id), Name: "Material " + id, Price: decimal.NewFromInt(price), Quantity: qty,
		Unit: "kg", SupplierID: supplier.ID, SupplierName: supplier.Name, CreatedAt: time.Now().UTC(),
	}))
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	m, err := f.store.GetMaterial(context.Background(), domain.MaterialID(id))
	require.NoError(t, err)
	return m.Quantity
}

func (f *fixture) place(t *testing.T, c domain.Caller, items ...ordertx.CheckoutItem) domain.Order {
	t.Helper()
	o, replayed, err := f.svc.Create(context.Background(), ordertx.CheckoutInput{Caller: c, Items: items})
	require.NoError(t, err)
	require.False(t, replayed)
	return o
}

func item(id string, qty int) ordertx.CheckoutItem {
	return ordertx.CheckoutItem{MaterialID: domain.MaterialID(id), Quantity: qty}
}

func (f *fixture) orderCount(t *testing.T) int {
	t.Helper()
	_, total, err := f.store.ListOrders(context.Background(), domain.OrderQuery{Page: 1, Limit: 100})
	require.NoError(t, err)
	return total
}

func TestCreateExampleOrder(t *testing.T) {
	f := newFixture(t, domain.StatusPolicyOpen)
	f.material(t, "m1", supplierA, 100, 10)

	o := f.place(t, vendor, item("m1", 3))

	assert.True(t, decimal.NewFromInt(300).Equal(o.TotalAmount))
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, domain.PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, domain.DefaultPaymentMethod, o.PaymentMethod)
	assert.Equal(t, vendor.Address, o.DeliveryAddress)
	assert.Equal(t, "Vendor One", o.VendorName)
	require.Len(t, o.Materials, 1)
	assert.Equal(t, "Supplier A", o.Materials[0].SupplierName)
	assert.True(t, decimal.NewFromInt(300).Equal(o.Materials[0].TotalPrice))
	assert.Equal(t, 7, f.stock(t, "m1"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Placed))

	recs, err := f.store.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, string(o.ID), recs[0].Key)
	assert.Contains(t, string(recs[0].Payload), contracts.EventOrderCreated)
}

func TestCreateTotalUsesCurrentPrices(t *testing.T) {
	f := newFixture(t, domain.StatusPolicyOpen)
	f.material(t, "m1", supplierA, 100, 10)
	f.material(t, "m2", supplierB, 7, 10)

	o := f.place(t, vendor, item("m1", 2), item("m2", 3))
	assert.True(t, decimal.NewFromInt(221).Equal(o.TotalAmount), o.TotalAmount.String())
	assert.True(t, domain.LinesTotal(o.Materials).Equal(o.TotalAmount))
}

func TestCreateRejectsWithoutSideEffects(t *testing.T) {
	cases := []struct {
		name  string
		items []ordertx.CheckoutItem
		kind  error
	}{
		{"empty", nil, domain.ErrValidation},
		{"zero quantity", []ordertx.CheckoutItem{item("m1", 0)}, domain.ErrValidation},
		{"blank material", []ordertx.CheckoutItem{item(" ", 1)}, domain.ErrValidation},
		{"unknown material", []ordertx.CheckoutItem{item("m1", 1), item("nope", 1)}, domain.ErrNotFound},
		{"insufficient on one line", []ordertx.CheckoutItem{item("m1", 1), item("m2", 6)}, domain.ErrValidation},
		{"repeated lines exceed stock", []ordertx.CheckoutItem{item("m2", 3), item("m2", 3)}, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, domain.StatusPolicyOpen)
			f.material(t, "m1", supplierA, 100, 10)
			f.material(t, "m2", supplierB, 10, 5)

			_, _, err := f.svc.Create(context.Background(), ordertx.CheckoutInput{Caller: vendor, Items: tc.items, ClearCart: true})
			assert.ErrorIs(t, err, tc.kind)
			assert.Equal(t, 10, f.stock(t, "m1"))
			assert.Equal(t, 5, f.stock(t, "m2"))
			assert.Equal(t, 0, f.orderCount(t))
			assert.Empty(t, f.cart.cleared)
		})
	}
}

func TestCreateMessages(t *testing.T) {
	f := newFixture(t, domain.StatusPolicyOpen)
	f.material(t, "m1", supplierA, 100, 2)

	_, _, err := f.svc.Create(context.Background(), ordertx.CheckoutInput{Caller: vendor, Items: []ordertx.CheckoutItem{item("m1", 3)}})
	assert.Equal(t, "Insufficient stock for Material m1. Available: 2", domain.Message(err))

	_, _, err = f.svc.Create(context.Background(), ordertx.CheckoutInput{Caller: vendor, Items: []ordertx.CheckoutItem{item("zz", 1)}})
	assert.Equal(t, "Material not found: zz", domain.Message(err))

	_, _, err = f.svc.Create(context.Background(), ordertx.CheckoutInput{Caller: vendor})
	assert.Equal(t, "Order must contain at least one material", domain.Message(err))

	_, _, err = f.svc.Create(context.Background(), ordertx.CheckoutInput{Caller: supplierA, Items: []ordertx.CheckoutItem{item("m1", 1)}})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreateIdempotencyKeyReplays(t *testing.T) {
	f := newFixture(t, domain.StatusPolicyOpen)
	f.material(t, "m1", supplierA, 100, 10)
	in := ordertx.CheckoutInput{Caller: vendor, IdempotencyKey: "checkout-1", Items: []ordertx.CheckoutItem{item("m1", 4)}}

	first, replayed, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 6, f.stock(t, "m1"))
	assert.Equal(t, 1, f.orderCount(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Placed))
}

func TestCreateIdempotencyKeyIsPerVendor(t *testing.T) {
	f := newFixture(t, domain.StatusPolicyOpen)
	f.material(t, "m1", supplierA, 100, 10)
	ctx := context.Background()

	first, _, err := f.svc.Create(ctx, ordertx.CheckoutInput{Caller: vendor, IdempotencyKey: "k-1", Items: []ordertx.CheckoutItem{item("m1", 3)}})
	require.NoError(t, err)

	other, replayed, err := f.svc.Create(ctx, ordertx.CheckoutInput{Caller: vendor2, IdempotencyKey: "k-1", Items: []ordertx.CheckoutItem{item("m1", 1)}})
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, "v2", other.VendorID)
	assert.NotEqual(t, vendor.Address, other.DeliveryAddress)
	assert.Equal(t, 6, f.stock(t, "m1"))
	assert.Equal(t, 2, f.orderCount(t))

	again, replayed, err := f.svc.Create(ctx, ordertx.CheckoutInput{Caller: vendor2, IdempotencyKey: "k-1", Items: []ordertx.CheckoutItem{item("m1", 1)}})
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, other.ID, again.ID)
	assert.Equal(t, 6, f.stock(t, "m1"))
}

func TestCreateClearsCart(t *testing.T) {
	f := newFixture(t, domain.StatusPolicyOpen)
	f.material(t, "m1", supplierA, 100, 10)
	f.cart.err = errors.New("redis down")

	_, _, err := f.svc.Create(context.Background(), ordertx.CheckoutInput{Caller: vendor, Items: []ordertx.CheckoutItem{item("m1", 1)}, ClearCart: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, f.cart.cleared)

	f.place(t, vendor, item("m1", 1))
	assert.Len(t, f.cart.cleared, 1)
}

func TestCancelRestoresStock(t *testing.T) {
	f := newFixture(t, domain.StatusPolicyOpen)
	f.material(t, "m1", supplierA, 100, 10)
	f.material(t, "m2", supplierB, 10, 5)
	o := f.place(t, vendor, item("m1", 3), item("m2", 2), item("m1", 1))
	assert.Equal(t, 6, f.stock(t, "m1"))

	cancelled, err := f.svc.Cancel(context.Background(), vendor, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, f.stock(t, "m1"))
	assert.Equal(t, 5, f.stock(t, "m2"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Cancelled))

	_, err = f.svc.Cancel(context.Background(), vendor, o.ID)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "Order is already cancelled", domain.Message(err))
	assert.Equal(t, 10, f.stock(t, "m1"))
}

func TestCancelAfterShipmentRejected(t *testing.T) {
	for _, status := range []domain.OrderStatus{domain.OrderStatusShipped, domain.OrderStatusDelivered} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t, domain.StatusPolicyOpen)
			f.material(t, "m1", supplierA, 100, 10)
			o := f.place(t, vendor, item("m1", 3))
			_, err := f.svc.UpdateStatus(context.Background(), supplierA, o.ID, StatusUpdate{Status: status})
			require.NoError(t, err)

			_, err = f.svc.Cancel(context.Background(), vendor, o.ID)
			assert.ErrorIs(t, err, domain.ErrValidation)

			got, err := f.svc.Get(context.Background(), vendor, o.ID)
			require.NoError(t, err)
			assert.Equal(t, status, got.Status)
			assert.Equal(t, 7, f.stock(t, "m1"))
		})
	}
}

func TestCancelAuthorization(t *testing.T) {
	f := newFixture(t, domain.StatusPolicyOpen)
	f.material(t, "m1", supplierA, 100, 10)
	o := f.place(t, vendor, item("m1", 1))

	_, err := f.svc.Cancel(context.Background(), vendor2, o.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.Cancel(context.Background(), supplierC, o.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.Cancel(context.Background(), vendor, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Cancel(context.Background(), supplierA, o.ID)
	assert.NoError(t, err)
}

func TestCancelSkipsDeletedMaterials(t *testing.T) {
	f := newFixture(t, domain.StatusPolicyOpen)
	f.material(t, "m1", supplierA, 100, 10)
	f.material(t, "m2", supplierA, 10, 10)
	o := f.place(t, vendor, item("m1", 2), item("m2", 2))

	require.NoError(t, f.store.DeleteMaterial(context.Background(), "m1", func(domain.Material) error { return nil }))
	_, err := f.svc.Cancel(context.Background(), vendor, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, f.stock(t, "m2"))
}

func TestStatusTransitions(t *testing.T) {
	f := newFixture(t, domain.StatusPolicyOpen)
	f.material(t, "m1", supplierA, 100, 10)
	o := f.place(t, vendor, item("m1", 1))
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, vendor, o.ID, StatusUpdate{Status: domain.OrderStatusConfirmed})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.UpdateStatus(ctx, supplierB, o.ID, StatusUpdate{Status: domain.OrderStatusConfirmed})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.UpdateStatus(ctx, supplierA, o.ID, StatusUpdate{Status: "lost"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	tracking := "TRK-42"
	eta := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	for _, st := range []domain.OrderStatus{domain.OrderStatusConfirmed, domain.OrderStatusProcessing, domain.OrderStatusShipped} {
		got, err := f.svc.UpdateStatus(ctx, supplierA, o.ID, StatusUpdate{Status: st, TrackingNumber: &tracking, EstimatedDelivery: &eta})
		require.NoError(t, err)
		assert.Equal(t, st, got.Status)
		assert.Nil(t, got.ActualDelivery, st)
	}

	got, err := f.svc.UpdateStatus(ctx, supplierA, o.ID, StatusUpdate{Status: domain.OrderStatusDelivered})
	require.NoError(t, err)
	require.NotNil(t, got.ActualDelivery)
	assert.Equal(t, "TRK-42", got.TrackingNumber)
	require.NotNil(t, got.EstimatedDelivery)
	assert.True(t, eta.Equal(*got.EstimatedDelivery))

	recs, err := f.store.FetchPending(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, recs, 5)
}

func TestLeavingDeliveredClearsActualDelivery(t *testing.T) {
	f := newFixture(t, domain.StatusPolicyOpen)
	f.material(t, "m1", supplierA, 100, 10)
	o := f.place(t, vendor, item("m1", 1))
	ctx := context.Background()

	got, err := f.svc.UpdateStatus(ctx, supplierA, o.ID, StatusUpdate{Status: domain.OrderStatusDelivered})
	require.NoError(t, err)
	require.NotNil(t, got.ActualDelivery)

	got, err = f.svc.UpdateStatus(ctx, supplierA, o.ID, StatusUpdate{Status: domain.OrderStatusShipped})
	require.NoError(t, err)
	assert.Nil(t, got.ActualDelivery)

	stored, err := f.store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ActualDelivery)
}

func TestTransitionToCancelledRestoresStock(t *testing.T) {
	f := newFixture(t, domain.StatusPolicyOpen)
	f.material(t, "m1", supplierA, 100, 10)
	o := f.place(t, vendor, item("m1", 4))

	got, err := f.svc.UpdateStatus(context.Background(), supplierA, o.ID, StatusUpdate{Status: domain.OrderStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, got.Status)
	assert.Equal(t, 10, f.stock(t, "m1"))

	_, err = f.svc.UpdateStatus(context.Background(), supplierA, o.ID, StatusUpdate{Status: domain.OrderStatusPending})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStrictPolicy(t *testing.T) {
	f := newFixture(t, domain.StatusPolicyStrict)
	f.material(t, "m1", supplierA, 100, 10)
	o := f.place(t, vendor, item("m1", 1))

	_, err := f.svc.UpdateStatus(context.Background(), supplierA, o.ID, StatusUpdate{Status: domain.OrderStatusDelivered})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.UpdateStatus(context.Background(), supplierA, o.ID, StatusUpdate{Status: domain.OrderStatusConfirmed})
	assert.NoError(t, err)
}

func TestListingByRole(t *testing.T) {
	f := newFixture(t, domain.StatusPolicyOpen)
	f.material(t, "M1", supplierA, 10, 100)
	f.material(t, "M2", supplierB, 10, 100)
	ctx := context.Background()

	o1 := f.place(t, vendor, item("M1", 1), item("M2", 1))
	o2 := f.place(t, vendor2, item("M2", 1))

	page, err := f.svc.List(ctx, supplierA, domain.OrderQuery{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, o1.ID, page.Orders[0].ID)
	assert.Len(t, page.Orders[0].Materials, 2)

	page, err = f.svc.SupplierOrders(ctx, supplierB, domain.OrderQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, o2.ID, page.Orders[0].ID)

	page, err = f.svc.VendorOrders(ctx, vendor2, domain.OrderQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	_, err = f.svc.VendorOrders(ctx, supplierA, domain.OrderQuery{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.SupplierOrders(ctx, vendor, domain.OrderQuery{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.List(ctx, domain.Caller{ID: "x", Role: "admin"}, domain.OrderQuery{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Get(ctx, supplierA, o2.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.Get(ctx, vendor2, o1.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	got, err := f.svc.Get(ctx, supplierA, o1.ID)
	require.NoError(t, err)
	assert.Len(t, got.Materials, 2)
}

func TestListPagingAndStatusFilter(t *testing.T) {
	f := newFixture(t, domain.StatusPolicyOpen)
	f.material(t, "m1", supplierA, 1, 100)
	ctx := context.Background()

	var last domain.Order
	for i := 0; i < 12; i++ {
		last = f.place(t, vendor, item("m1", 1))
	}
	_, err := f.svc.UpdateStatus(ctx, supplierA, last.ID, StatusUpdate{Status: domain.OrderStatusConfirmed})
	require.NoError(t, err)

	page, err := f.svc.List(ctx, vendor, domain.OrderQuery{})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Orders, 10)
	assert.Equal(t, last.ID, page.Orders[0].ID)

	page, err = f.svc.List(ctx, vendor, domain.OrderQuery{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 2)

	page, err = f.svc.List(ctx, vendor, domain.OrderQuery{Status: domain.OrderStatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	_, err = f.svc.List(ctx, vendor, domain.OrderQuery{Status: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

// flakyStore fails the first n transactions with a conflict.
type flakyStore struct {
	*embedded.Store
	remaining atomic.Int32
}

func (s *flakyStore) InTx(ctx context.Context, fn func(ctx context.Context, t ordertx.Tx) error) error {
	if s.remaining.Add(-1) >= 0 {
		return domain.Conflict("flaky", errors.New("injected"))
	}
	return s.Store.InTx(ctx, fn)
}

func TestConflictsAreRetried(t *testing.T) {
	store, err := embedded.Open("", "marketplace.orders")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	flaky := &flakyStore{Store: store}
	flaky.remaining.Store(2)
	f := newFixtureOn(t, store, flaky, domain.StatusPolicyOpen)
	f.material(t, "m1", supplierA, 100, 10)

	f.place(t, vendor, item("m1", 1))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Conflicts.WithLabelValues("order.create")))
	assert.Equal(t, 9, f.stock(t, "m1"))

	flaky.remaining.Store(100)
	_, _, err = f.svc.Create(context.Background(), ordertx.CheckoutInput{Caller: vendor, Items: []ordertx.CheckoutItem{item("m1", 1)}})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 9, f.stock(t, "m1"))
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	f := newFixture(t, domain.StatusPolicyOpen)
	const initial, buyers = 15, 40
	f.material(t, "hot", supplierA, 5, initial)

	var (
		wg      sync.WaitGroup
		placed  atomic.Int64
		unknown atomic.Int64
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.svc.Create(context.Background(), ordertx.CheckoutInput{Caller: vendor, Items: []ordertx.CheckoutItem{item("hot", 1)}})
			switch {
			case err == nil:
				placed.Add(1)
			case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrConflict):
			default:
				unknown.Add(1)
			}
		}()
	}
	wg.Wait()

	left := f.stock(t, "hot")
	assert.Zero(t, unknown.Load())
	assert.GreaterOrEqual(t, left, 0)
	assert.Equal(t, initial, int(placed.Load())+left)
	assert.Equal(t, int(placed.Load()), f.orderCount(t))
}
