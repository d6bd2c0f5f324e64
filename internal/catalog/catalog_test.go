package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	"github.com/nazeru/materials-marketplace-go/internal/store/embedded"
	"github.com/nazeru/materials-marketplace-go/pkg/logging"
)

var (
	supplier = domain.Caller{ID: "s1", Name: "Stone & Co", Role: domain.RoleSupplier}
	rival    = domain.Caller{ID: "s2", Name: "Other", Role: domain.RoleSupplier}
	vendor   = domain.Caller{ID: "v1", Name: "Builder", Role: domain.RoleVendor}
)

func newService(t *testing.T) *Service {
	t.Helper()
	store, err := embedded.Open("", "marketplace.orders")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store, logging.New("catalog-test"))
}

func TestCreateStampsOwner(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, vendor, domain.Material{Name: "Sand"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = s.Create(ctx, supplier, domain.Material{Name: "  ", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Create(ctx, supplier, domain.Material{Name: "Sand", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	m, err := s.Create(ctx, supplier, domain.Material{Name: "Sand", Price: decimal.NewFromInt(40), Quantity: 10, SupplierID: "spoofed"})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "s1", m.SupplierID)
	assert.Equal(t, "Stone & Co", m.SupplierName)

	got, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Name, got.Name)
}

func TestUpdateAndDeleteOnlyByOwner(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	m, err := s.Create(ctx, supplier, domain.Material{Name: "Gravel", Price: decimal.NewFromInt(10), Quantity: 5})
	require.NoError(t, err)

	price := decimal.NewFromInt(12)
	_, err = s.Update(ctx, rival, m.ID, domain.MaterialPatch{Price: &price})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := s.Update(ctx, supplier, m.ID, domain.MaterialPatch{Price: &price})
	require.NoError(t, err)
	assert.True(t, price.Equal(updated.Price))
	assert.Equal(t, int64(1), updated.Version)

	neg := -2
	_, err = s.Update(ctx, supplier, m.ID, domain.MaterialPatch{Quantity: &neg})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.ErrorIs(t, s.Delete(ctx, rival, m.ID), domain.ErrForbidden)
	require.NoError(t, s.Delete(ctx, supplier, m.ID))
	_, err = s.Get(ctx, m.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, supplier, m.ID), domain.ErrNotFound)
}

func TestListFiltersAndPages(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	for _, name := range []string{"Red brick", "White brick", "Cement"} {
		_, err := s.Create(ctx, supplier, domain.Material{Name: name, Price: decimal.NewFromInt(1), Category: "building"})
		require.NoError(t, err)
	}
	_, err := s.Create(ctx, rival, domain.Material{Name: "Pine plank", Price: decimal.NewFromInt(1), Category: "wood"})
	require.NoError(t, err)

	page, err := s.List(ctx, ListQuery{Filter: domain.MaterialFilter{Query: "BRICK"}})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Materials, 2)
	assert.Equal(t, 10, page.Limit)

	page, err = s.List(ctx, ListQuery{Filter: domain.MaterialFilter{Category: "building"}, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Materials, 1)

	page, err = s.List(ctx, ListQuery{Filter: domain.MaterialFilter{SupplierID: "s2"}})
	require.NoError(t, err)
	require.Len(t, page.Materials, 1)
	assert.Equal(t, "Pine plank", page.Materials[0].Name)
}

func TestListNearbySortsByDistance(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	mumbai := domain.GeoPoint{Latitude: 19.0760, Longitude: 72.8777}

	far := &domain.GeoPoint{Latitude: 19.2183, Longitude: 72.9781}
	near := &domain.GeoPoint{Latitude: 19.0790, Longitude: 72.8800}
	pune := &domain.GeoPoint{Latitude: 18.5204, Longitude: 73.8567}

	for name, loc := range map[string]*domain.GeoPoint{"far": far, "near": near, "pune": pune, "nowhere": nil} {
		_, err := s.Create(ctx, supplier, domain.Material{Name: name, Price: decimal.NewFromInt(1), Location: loc})
		require.NoError(t, err)
	}

	page, err := s.List(ctx, ListQuery{Near: &mumbai, RadiusKm: 50})
	require.NoError(t, err)
	assert.Nil(t, page.Materials)
	require.Len(t, page.Nearby, 2)
	assert.Equal(t, "near", page.Nearby[0].Name)
	assert.Equal(t, "far", page.Nearby[1].Name)
	assert.Equal(t, "Same day", page.Nearby[0].DeliveryTime)
	assert.Equal(t, 0, page.Nearby[0].DeliveryFee)
	assert.True(t, page.Nearby[0].CanDeliver)
}
