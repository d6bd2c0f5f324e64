// Package notify turns order events into per-recipient notifications.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nazeru/materials-marketplace-go/pkg/contracts"
	"github.com/nazeru/materials-marketplace-go/pkg/logging"
)

type Notification struct {
	ID          int64     `json:"id"`
	EventID     string    `json:"eventId"`
	RecipientID string    `json:"recipientId"`
	OrderID     string    `json:"orderId"`
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Route decides who hears about evt: suppliers learn about new orders, the vendor about status
// changes, and both sides about cancellations. Unknown event types route nowhere.
func Route(evt contracts.Event) []Notification {
	var (
		recipients []string
		message    string
	)
	switch evt.Type {
	case contracts.EventOrderCreated:
		recipients = evt.Payload.SupplierIDs
		message = fmt.Sprintf("New order %s includes your materials", evt.OrderID)
	case contracts.EventOrderStatusChanged:
		recipients = []string{evt.Payload.VendorID}
		message = fmt.Sprintf("Order %s is now %s", evt.OrderID, evt.Payload.Status)
		if evt.Payload.TrackingNumber != "" {
			message += fmt.Sprintf(" (tracking %s)", evt.Payload.TrackingNumber)
		}
	case contracts.EventOrderCancelled:
		recipients = append([]string{evt.Payload.VendorID}, evt.Payload.SupplierIDs...)
		message = fmt.Sprintf("Order %s was cancelled", evt.OrderID)
	default:
		return nil
	}

	seen := make(map[string]struct{}, len(recipients))
	out := make([]Notification, 0, len(recipients))
	for _, r := range recipients {
		if _, ok := seen[r]; ok || r == "" {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, Notification{
			EventID:     evt.EventID,
			RecipientID: r,
			OrderID:     evt.OrderID,
			Type:        evt.Type,
			Message:     message,
			CreatedAt:   evt.CreatedAt,
		})
	}
	return out
}

// Store persists the notifications of one event at most once.
type Store interface {
	// SaveNotifications records eventID in the inbox and stores ns. It reports false when the
	// event was already processed.
	SaveNotifications(ctx context.Context, eventID string, ns []Notification) (bool, error)
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]Notification, error)
}

// Reader is the subset of *kafka.Reader the consumer needs. Offsets are committed explicitly.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Consumer struct {
	Reader  Reader
	Store   Store
	Log     logging.Logger
	Backoff time.Duration
}

// Run consumes until ctx is done. A message is committed only after Handle stored it, and a
// failing message is retried in place so later offsets never commit past it.
func (c *Consumer) Run(ctx context.Context) {
	for {
		msg, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.Log.Error("kafka_read", err, logging.Fields{})
			if !c.wait(ctx) {
				return
			}
			continue
		}
		for {
			err := c.Handle(ctx, msg.Value)
			if err == nil {
				break
			}
			c.Log.Error("notification_save", err, logging.Fields{})
			if !c.wait(ctx) {
				return
			}
		}
		if err := c.Reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.Log.Error("kafka_commit", err, logging.Fields{})
		}
	}
}

// wait sleeps one backoff period and reports false when ctx ended first.
func (c *Consumer) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.Backoff):
		return true
	}
}

// Handle processes one encoded event. Malformed events are logged and dropped.
func (c *Consumer) Handle(ctx context.Context, value []byte) error {
	var evt contracts.Event
	if err := json.Unmarshal(value, &evt); err != nil {
		c.Log.Error("event_decode", err, logging.Fields{})
		return nil
	}
	if evt.EventID == "" {
		return nil
	}
	fresh, err := c.Store.SaveNotifications(ctx, evt.EventID, Route(evt))
	if err != nil {
		return err
	}
	status := "emitted"
	if !fresh {
		status = "duplicate"
	}
	c.Log.Log(logging.Fields{OrderID: evt.OrderID, EventID: evt.EventID, Step: evt.Type, Status: status})
	return nil
}
