// Package catalog manages the materials suppliers list for sale.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nazeru/materials-marketplace-go/internal/location"
	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	"github.com/nazeru/materials-marketplace-go/pkg/logging"
)

type Store interface {
	ListMaterials(ctx context.Context, f domain.MaterialFilter) ([]domain.Material, error)
	GetMaterial(ctx context.Context, id domain.MaterialID) (domain.Material, error)
	CreateMaterial(ctx context.Context, m domain.Material) error
	// UpdateMaterial applies fn to the current material and stores the result atomically.
	UpdateMaterial(ctx context.Context, id domain.MaterialID, fn func(*domain.Material) error) (domain.Material, error)
	// DeleteMaterial removes the material when check accepts it.
	DeleteMaterial(ctx context.Context, id domain.MaterialID, check func(domain.Material) error) error
}

type Service struct {
	store Store
	log   logging.Logger
	now   func() time.Time
}

func NewService(store Store, log logging.Logger) *Service {
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

type ListQuery struct {
	Filter   domain.MaterialFilter
	Near     *domain.GeoPoint
	RadiusKm float64
	Page     int
	Limit    int
}

// Page holds one page of materials. Nearby is filled instead of Materials when the query
// carried a location.
type Page struct {
	Materials []domain.Material
	Nearby    []location.Nearby
	Total     int
	Page      int
	Limit     int
}

func (s *Service) List(ctx context.Context, q ListQuery) (Page, error) {
	page, limit := domain.NormalizePage(q.Page, q.Limit)
	all, err := s.store.ListMaterials(ctx, q.Filter)
	if err != nil {
		return Page{}, err
	}
	out := Page{Page: page, Limit: limit}
	offset := (page - 1) * limit
	if q.Near != nil {
		near := location.WithinRadius(all, *q.Near, q.RadiusKm)
		out.Total = len(near)
		out.Nearby = slice(near, offset, limit)
		return out, nil
	}
	out.Total = len(all)
	out.Materials = slice(all, offset, limit)
	return out, nil
}

func slice[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

func (s *Service) Get(ctx context.Context, id domain.MaterialID) (domain.Material, error) {
	return s.store.GetMaterial(ctx, id)
}

// Create lists a new material owned by the calling supplier.
func (s *Service) Create(ctx context.Context, c domain.Caller, m domain.Material) (domain.Material, error) {
	if !c.IsSupplier() {
		return domain.Material{}, domain.Forbidden("material.create", "Only suppliers can list materials")
	}
	now := s.now()
	m.ID = domain.MaterialID(uuid.NewString())
	m.Name = strings.TrimSpace(m.Name)
	m.SupplierID = c.ID
	m.SupplierName = c.Name
	m.Version = 0
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := m.Validate(); err != nil {
		return domain.Material{}, err
	}
	if err := s.store.CreateMaterial(ctx, m); err != nil {
		return domain.Material{}, err
	}
	s.log.Log(logging.Fields{MaterialID: string(m.ID), CallerID: c.ID, Step: "material_create", Status: "ok"})
	return m, nil
}

func (s *Service) Update(ctx context.Context, c domain.Caller, id domain.MaterialID, p domain.MaterialPatch) (domain.Material, error) {
	m, err := s.store.UpdateMaterial(ctx, id, func(m *domain.Material) error {
		if !domain.CanManageMaterial(c, *m) {
			return domain.Forbidden("material.update", "Not authorized to update this material")
		}
		p.Apply(m)
		m.Name = strings.TrimSpace(m.Name)
		if err := m.Validate(); err != nil {
			return err
		}
		m.Version++
		m.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return domain.Material{}, err
	}
	s.log.Log(logging.Fields{MaterialID: string(id), CallerID: c.ID, Step: "material_update", Status: "ok"})
	return m, nil
}

func (s *Service) Delete(ctx context.Context, c domain.Caller, id domain.MaterialID) error {
	err := s.store.DeleteMaterial(ctx, id, func(m domain.Material) error {
		if !domain.CanManageMaterial(c, m) {
			return domain.Forbidden("material.delete", "Not authorized to delete this material")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Log(logging.Fields{MaterialID: string(id), CallerID: c.ID, Step: "material_delete", Status: "ok"})
	return nil
}
