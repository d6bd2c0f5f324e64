package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderID string
type MaterialID string

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ValidStatuses is the full status enumeration in lifecycle order.
var ValidStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order in status s may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	switch s {
	case OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return false
	}
	return true
}

const (
	PaymentStatusPending = "pending"
	DefaultPaymentMethod = "cash"
)

// LineItem is immutable once the order exists. Name, price, unit and supplier
// are copied from the material at order time.
type LineItem struct {
	MaterialID   MaterialID      `json:"materialId"`
	MaterialName string          `json:"materialName"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Unit         string          `json:"unit"`
	SupplierID   string          `json:"supplierId"`
	SupplierName string          `json:"supplierName"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
}

type Order struct {
	ID                OrderID         `json:"id"`
	VendorID          string          `json:"vendorId"`
	VendorName        string          `json:"vendorName"`
	Materials         []LineItem      `json:"materials"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	Status            OrderStatus     `json:"status"`
	OrderDate         time.Time       `json:"orderDate"`
	DeliveryAddress   string          `json:"deliveryAddress"`
	PaymentStatus     string          `json:"paymentStatus"`
	PaymentMethod     string          `json:"paymentMethod"`
	Notes             string          `json:"notes,omitempty"`
	TrackingNumber    string          `json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty"`
	ActualDelivery    *time.Time      `json:"actualDelivery,omitempty"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// HasSupplier reports whether at least one line of the order is supplied by supplierID.
func (o Order) HasSupplier(supplierID string) bool {
	for _, li := range o.Materials {
		if li.SupplierID == supplierID {
			return true
		}
	}
	return false
}

// SupplierIDs returns the distinct suppliers of the order in line order.
func (o Order) SupplierIDs() []string {
	seen := make(map[string]struct{}, len(o.Materials))
	out := make([]string, 0, len(o.Materials))
	for _, li := range o.Materials {
		if _, ok := seen[li.SupplierID]; ok {
			continue
		}
		seen[li.SupplierID] = struct{}{}
		out = append(out, li.SupplierID)
	}
	return out
}

// LinesTotal sums the line totals.
func LinesTotal(lines []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range lines {
		total = total.Add(li.TotalPrice)
	}
	return total
}

// OrderQuery selects a page of orders. Exactly one of VendorID and SupplierID is set
// by the workflow; an empty Status matches every status.
type OrderQuery struct {
	VendorID   string
	SupplierID string
	Status     OrderStatus
	Page       int
	Limit      int
}

func (q OrderQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}
