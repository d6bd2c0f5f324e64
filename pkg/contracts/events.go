package contracts

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	EventID   string       `json:"event_id"`
	OrderID   string       `json:"order_id"`
	CreatedAt time.Time    `json:"created_at"`
	Type      string       `json:"type"`
	Payload   OrderPayload `json:"payload"`
}

type OrderPayload struct {
	VendorID       string   `json:"vendor_id"`
	SupplierIDs    []string `json:"supplier_ids"`
	Status         string   `json:"status"`
	PreviousStatus string   `json:"previous_status,omitempty"`
	TotalAmount    string   `json:"total_amount"`
	TrackingNumber string   `json:"tracking_number,omitempty"`
}

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
)

func NewEvent(eventType, orderID string, payload OrderPayload) Event {
	return Event{
		EventID:   uuid.NewString(),
		OrderID:   orderID,
		CreatedAt: time.Now().UTC(),
		Type:      eventType,
		Payload:   payload,
	}
}
