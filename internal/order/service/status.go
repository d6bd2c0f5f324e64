package service

import (
	"context"
	"time"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	ordertx "github.com/nazeru/materials-marketplace-go/internal/order/tx"
	"github.com/nazeru/materials-marketplace-go/pkg/contracts"
)

// StatusUpdate is a supplier's status change. Nil optional fields keep their value.
type StatusUpdate struct {
	Status            domain.OrderStatus
	EstimatedDelivery *time.Time
	TrackingNumber    *string
	Notes             *string
}

// UpdateStatus moves the order to u.Status. A move to cancelled runs the cancellation so the
// stock comes back.
func (s *Service) UpdateStatus(ctx context.Context, c domain.Caller, id domain.OrderID, u StatusUpdate) (order domain.Order, err error) {
	ctx, span := s.startSpan(ctx, "order.update_status", c)
	start := time.Now()
	defer func() {
		endSpan(span, err)
		s.logStep("order_status", c, id, start, err)
	}()

	if !c.IsSupplier() {
		return domain.Order{}, domain.Forbidden("order.update_status", "Only suppliers can update order status")
	}
	if !u.Status.Valid() {
		return domain.Order{}, &domain.Error{Op: "order.update_status", Kind: domain.ErrValidation, Message: "Invalid status", Err: domain.ErrInvalidStatus}
	}
	if u.Status == domain.OrderStatusCancelled {
		return s.cancel(ctx, c, id, domain.CanTransition, &u)
	}

	err = s.runTx(ctx, "order.update_status", func(ctx context.Context, t ordertx.Tx) error {
		o, err := t.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if !domain.CanTransition(c, o) {
			return domain.Forbidden("order.update_status", "Not authorized to update this order")
		}
		if err := s.policy.CheckTransition(o.Status, u.Status); err != nil {
			return err
		}
		previous := o.Status
		now := s.now()
		o.Status = u.Status
		if u.Status == domain.OrderStatusDelivered {
			o.ActualDelivery = &now
		} else {
			// Only a delivered order carries a delivery stamp.
			o.ActualDelivery = nil
		}
		applyUpdate(&o, &u)
		o.UpdatedAt = now
		if err := t.UpdateOrder(ctx, o); err != nil {
			return err
		}
		if err := t.AppendOutbox(ctx, event(contracts.EventOrderStatusChanged, o, previous)); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// Cancel cancels the order before shipment and puts every line's quantity back in stock.
func (s *Service) Cancel(ctx context.Context, c domain.Caller, id domain.OrderID) (order domain.Order, err error) {
	ctx, span := s.startSpan(ctx, "order.cancel", c)
	start := time.Now()
	defer func() {
		endSpan(span, err)
		s.logStep("order_cancel", c, id, start, err)
	}()
	return s.cancel(ctx, c, id, domain.CanCancel, nil)
}

func (s *Service) cancel(ctx context.Context, c domain.Caller, id domain.OrderID, allowed func(domain.Caller, domain.Order) bool, u *StatusUpdate) (domain.Order, error) {
	var order domain.Order
	err := s.runTx(ctx, "order.cancel", func(ctx context.Context, t ordertx.Tx) error {
		o, err := t.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if !allowed(c, o) {
			return domain.Forbidden("order.cancel", "Not authorized to cancel this order")
		}
		switch {
		case o.Status == domain.OrderStatusCancelled:
			return domain.Validation("order.cancel", "Order is already cancelled")
		case !o.Status.Cancellable():
			return domain.Validation("order.cancel", "Cannot cancel order that has been shipped or delivered")
		}

		restock := make(demand, len(o.Materials))
		for _, li := range o.Materials {
			restock[li.MaterialID] += li.Quantity
		}
		ids := restock.ids()
		present, err := t.LockMaterials(ctx, ids)
		if err != nil {
			return err
		}
		for _, mid := range ids {
			if _, ok := present[mid]; !ok {
				continue
			}
			if err := t.AdjustStock(ctx, mid, restock[mid]); err != nil {
				return err
			}
		}

		previous := o.Status
		o.Status = domain.OrderStatusCancelled
		if u != nil {
			applyUpdate(&o, u)
		}
		o.UpdatedAt = s.now()
		if err := t.UpdateOrder(ctx, o); err != nil {
			return err
		}
		if err := t.AppendOutbox(ctx, event(contracts.EventOrderCancelled, o, previous)); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	if s.m != nil {
		s.m.Cancelled.Inc()
	}
	return order, nil
}

func applyUpdate(o *domain.Order, u *StatusUpdate) {
	if u.EstimatedDelivery != nil {
		est := *u.EstimatedDelivery
		o.EstimatedDelivery = &est
	}
	if u.TrackingNumber != nil {
		o.TrackingNumber = *u.TrackingNumber
	}
	if u.Notes != nil {
		o.Notes = *u.Notes
	}
}
