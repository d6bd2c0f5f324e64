package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Material struct {
	ID               MaterialID      `json:"id"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	Quantity         int             `json:"quantity"`
	Unit             string          `json:"unit"`
	SupplierID       string          `json:"supplierId"`
	SupplierName     string          `json:"supplierName"`
	Category         string          `json:"category"`
	Description      string          `json:"description,omitempty"`
	Rating           float64         `json:"rating"`
	Location         *GeoPoint       `json:"location,omitempty"`
	DeliveryRadiusKm float64         `json:"deliveryRadiusKm,omitempty"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// MaterialPatch carries the fields a supplier may change. Nil fields are left as is.
type MaterialPatch struct {
	Name             *string          `json:"name"`
	Price            *decimal.Decimal `json:"price"`
	Quantity         *int             `json:"quantity"`
	Unit             *string          `json:"unit"`
	Category         *string          `json:"category"`
	Description      *string          `json:"description"`
	Location         *GeoPoint        `json:"location"`
	DeliveryRadiusKm *float64         `json:"deliveryRadiusKm"`
}

func (p MaterialPatch) Apply(m *Material) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Price != nil {
		m.Price = *p.Price
	}
	if p.Quantity != nil {
		m.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		m.Unit = *p.Unit
	}
	if p.Category != nil {
		m.Category = *p.Category
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Location != nil {
		loc := *p.Location
		m.Location = &loc
	}
	if p.DeliveryRadiusKm != nil {
		m.DeliveryRadiusKm = *p.DeliveryRadiusKm
	}
}

// Validate rejects a material that may not be stored.
func (m Material) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return Validation("material.validate", "name is required")
	}
	if m.Price.IsNegative() {
		return Validation("material.validate", "price must be >= 0")
	}
	if m.Quantity < 0 {
		return Validation("material.validate", "quantity must be >= 0")
	}
	if m.DeliveryRadiusKm < 0 {
		return Validation("material.validate", "deliveryRadiusKm must be >= 0")
	}
	return nil
}

type MaterialFilter struct {
	Category   string
	SupplierID string
	Query      string
}

func (f MaterialFilter) Match(m Material) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, m.Category) {
		return false
	}
	if f.SupplierID != "" && f.SupplierID != m.SupplierID {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(m.Name), strings.ToLower(f.Query)) {
		return false
	}
	return true
}
