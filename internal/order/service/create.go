package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	ordertx "github.com/nazeru/materials-marketplace-go/internal/order/tx"
	"github.com/nazeru/materials-marketplace-go/pkg/contracts"
	"github.com/nazeru/materials-marketplace-go/pkg/idempotency"
	"github.com/nazeru/materials-marketplace-go/pkg/logging"
)

// Create places an order for in.Caller. The stock check, the order insert, every stock
// decrement, the idempotency key and the order.created event commit together or not at all.
// The second result reports an idempotent replay of an earlier request.
func (s *Service) Create(ctx context.Context, in ordertx.CheckoutInput) (order domain.Order, replayed bool, err error) {
	ctx, span := s.startSpan(ctx, "order.create", in.Caller)
	start := time.Now()
	defer func() {
		span.SetAttributes(attribute.String("order.id", string(order.ID)), attribute.Bool("order.replayed", replayed))
		endSpan(span, err)
		s.logStep("order_create", in.Caller, order.ID, start, err)
	}()

	want, err := validateCheckout(in)
	if err != nil {
		return domain.Order{}, false, err
	}

	place := func(ctx context.Context, t ordertx.Tx) error {
		order, replayed = domain.Order{}, false
		if in.IdempotencyKey != "" {
			existing, err := t.LookupIdempotency(ctx, in.Caller.ID, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != "" {
				o, err := t.LockOrder(ctx, existing)
				if err != nil {
					return err
				}
				order, replayed = o, true
				return nil
			}
		}

		ids := want.ids()
		materials, err := t.LockMaterials(ctx, ids)
		if err != nil {
			return err
		}
		o, err := s.buildOrder(in, materials)
		if err != nil {
			return err
		}
		if err := t.InsertOrder(ctx, o); err != nil {
			return err
		}
		for _, id := range ids {
			if err := t.AdjustStock(ctx, id, -want[id]); err != nil {
				return err
			}
		}
		if in.IdempotencyKey != "" {
			if err := t.SaveIdempotency(ctx, in.Caller.ID, in.IdempotencyKey, o.ID); err != nil {
				return err
			}
		}
		if err := t.AppendOutbox(ctx, event(contracts.EventOrderCreated, o, "")); err != nil {
			return err
		}
		order = o
		return nil
	}

	err = s.runTx(ctx, "order.create", place)
	if errors.Is(err, domain.ErrDuplicate) && in.IdempotencyKey != "" {
		// A concurrent request with the same key won; the retry finds its order.
		err = s.runTx(ctx, "order.create", place)
	}
	if err != nil {
		return domain.Order{}, false, err
	}
	if replayed {
		return order, true, nil
	}

	if s.m != nil {
		s.m.Placed.Inc()
	}
	if in.ClearCart && s.cart != nil {
		if cerr := s.cart.ClearCart(ctx, in.Caller.ID); cerr != nil {
			s.log.Error("cart_clear", cerr, logging.Fields{OrderID: string(order.ID), CallerID: in.Caller.ID})
		}
	}
	return order, false, nil
}

// demand is the total quantity requested per material.
type demand map[domain.MaterialID]int

// ids returns the materials in ascending order, the order locks and updates are taken in.
func (d demand) ids() []domain.MaterialID {
	out := make([]domain.MaterialID, 0, len(d))
	for id := range d {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func validateCheckout(in ordertx.CheckoutInput) (demand, error) {
	if !in.Caller.IsVendor() {
		return nil, domain.Forbidden("order.create", "Only vendors can place orders")
	}
	if len(in.Items) == 0 {
		return nil, domain.Validation("order.create", "Order must contain at least one material")
	}
	if !idempotency.Valid(in.IdempotencyKey) {
		return nil, domain.Validation("order.create", "Idempotency-Key must be at most %d characters", idempotency.MaxKeyLength)
	}
	d := make(demand, len(in.Items))
	for _, it := range in.Items {
		if strings.TrimSpace(string(it.MaterialID)) == "" {
			return nil, domain.Validation("order.create", "Each item needs a materialId")
		}
		if it.Quantity <= 0 {
			return nil, domain.Validation("order.create", "Quantity for %s must be a positive integer", it.MaterialID)
		}
		d[it.MaterialID] += it.Quantity
	}
	return d, nil
}

// buildOrder checks every line against the locked stock and snapshots the current prices.
// Lines repeating a material draw on the same stock.
func (s *Service) buildOrder(in ordertx.CheckoutInput, materials map[domain.MaterialID]domain.Material) (domain.Order, error) {
	used := make(map[domain.MaterialID]int, len(materials))
	lines := make([]domain.LineItem, 0, len(in.Items))
	for _, it := range in.Items {
		m, ok := materials[it.MaterialID]
		if !ok {
			return domain.Order{}, domain.NotFound("order.create", "Material not found: %s", it.MaterialID)
		}
		used[m.ID] += it.Quantity
		if used[m.ID] > m.Quantity {
			return domain.Order{}, domain.Validation("order.create", "Insufficient stock for %s. Available: %d", m.Name, m.Quantity)
		}
		lines = append(lines, domain.LineItem{
			MaterialID:   m.ID,
			MaterialName: m.Name,
			Quantity:     it.Quantity,
			Price:        m.Price,
			Unit:         m.Unit,
			SupplierID:   m.SupplierID,
			SupplierName: m.SupplierName,
			TotalPrice:   m.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}

	now := s.now()
	address := strings.TrimSpace(in.DeliveryAddress)
	if address == "" {
		address = in.Caller.Address
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = domain.DefaultPaymentMethod
	}
	return domain.Order{
		ID:              domain.OrderID(uuid.NewString()),
		VendorID:        in.Caller.ID,
		VendorName:      in.Caller.Name,
		Materials:       lines,
		TotalAmount:     domain.LinesTotal(lines),
		Status:          domain.OrderStatusPending,
		OrderDate:       now,
		DeliveryAddress: address,
		PaymentStatus:   domain.PaymentStatusPending,
		PaymentMethod:   method,
		Notes:           in.Notes,
		UpdatedAt:       now,
	}, nil
}

func event(eventType string, o domain.Order, previous domain.OrderStatus) contracts.Event {
	return contracts.NewEvent(eventType, string(o.ID), contracts.OrderPayload{
		VendorID:       o.VendorID,
		SupplierIDs:    o.SupplierIDs(),
		Status:         string(o.Status),
		PreviousStatus: string(previous),
		TotalAmount:    o.TotalAmount.String(),
		TrackingNumber: o.TrackingNumber,
	})
}
