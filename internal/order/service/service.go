// Package service is the order workflow: placement, listing, status transitions and
// cancellation, each multi-record step committed in one store transaction.
package service

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	ordertx "github.com/nazeru/materials-marketplace-go/internal/order/tx"
	"github.com/nazeru/materials-marketplace-go/pkg/logging"
	"github.com/nazeru/materials-marketplace-go/pkg/metrics"
	"github.com/nazeru/materials-marketplace-go/pkg/tx"
)

// CartClearer empties a vendor's cart after a successful checkout.
type CartClearer interface {
	ClearCart(ctx context.Context, userID string) error
}

type Options struct {
	Policy  domain.StatusPolicy
	Retry   tx.RetryPolicy
	Metrics *metrics.OrderMetrics
	Log     logging.Logger
	Cart    CartClearer
	Now     func() time.Time
}

type Service struct {
	store  ordertx.Store
	policy domain.StatusPolicy
	retry  tx.RetryPolicy
	m      *metrics.OrderMetrics
	log    logging.Logger
	cart   CartClearer
	now    func() time.Time
	tracer trace.Tracer
}

func New(store ordertx.Store, opts Options) *Service {
	s := &Service{
		store:  store,
		policy: opts.Policy,
		retry:  opts.Retry,
		m:      opts.Metrics,
		log:    opts.Log,
		cart:   opts.Cart,
		now:    opts.Now,
		tracer: otel.Tracer("github.com/nazeru/materials-marketplace-go/internal/order/service"),
	}
	if !s.policy.Valid() {
		s.policy = domain.StatusPolicyOpen
	}
	if s.retry.MaxAttempts <= 0 {
		s.retry = tx.DefaultRetryPolicy()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// runTx runs fn in a store transaction, retrying it from scratch while the store reports a
// conflicting concurrent commit.
func (s *Service) runTx(ctx context.Context, op string, fn func(ctx context.Context, t ordertx.Tx) error) error {
	return tx.Retry(ctx, s.retry, tx.Is(domain.ErrConflict),
		func(attempt int, err error) {
			if s.m != nil {
				s.m.Conflicts.WithLabelValues(op).Inc()
			}
			s.log.Log(logging.Fields{Step: op, Status: "retry", Message: "attempt " + strconv.Itoa(attempt), Error: err.Error()})
		},
		func() error { return s.store.InTx(ctx, fn) },
	)
}

func (s *Service) startSpan(ctx context.Context, name string, c domain.Caller) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("caller.id", c.ID),
		attribute.String("caller.role", string(c.Role)),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// logStep records the outcome of one workflow mutation.
func (s *Service) logStep(step string, c domain.Caller, id domain.OrderID, start time.Time, err error) {
	f := logging.Fields{
		OrderID:    string(id),
		CallerID:   c.ID,
		Step:       step,
		Status:     "ok",
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		f.Status = "error"
		f.Error = err.Error()
	}
	s.log.Log(f)
}

// Get returns the order when c may see it.
func (s *Service) Get(ctx context.Context, c domain.Caller, id domain.OrderID) (domain.Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !domain.CanView(c, o) {
		return domain.Order{}, domain.Forbidden("order.get", "Not authorized to view this order")
	}
	return o, nil
}

type Page struct {
	Orders []domain.Order
	Total  int
	Page   int
	Pages  int
}

// List returns the orders visible to c: as buyer for vendors, as a line supplier for suppliers.
func (s *Service) List(ctx context.Context, c domain.Caller, q domain.OrderQuery) (Page, error) {
	scoped, ok := domain.Scope(c, q)
	if !ok {
		return Page{}, domain.Forbidden("order.list", "Not authorized to list orders")
	}
	if scoped.Status != "" && !scoped.Status.Valid() {
		return Page{}, &domain.Error{Op: "order.list", Kind: domain.ErrValidation, Message: "Invalid status", Err: domain.ErrInvalidStatus}
	}
	scoped.Page, scoped.Limit = domain.NormalizePage(scoped.Page, scoped.Limit)
	orders, total, err := s.store.ListOrders(ctx, scoped)
	if err != nil {
		return Page{}, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return Page{Orders: orders, Total: total, Page: scoped.Page, Pages: domain.PageCount(total, scoped.Limit)}, nil
}

func (s *Service) VendorOrders(ctx context.Context, c domain.Caller, q domain.OrderQuery) (Page, error) {
	if !c.IsVendor() {
		return Page{}, domain.Forbidden("order.vendor_orders", "Only vendors can view their orders")
	}
	return s.List(ctx, c, q)
}

func (s *Service) SupplierOrders(ctx context.Context, c domain.Caller, q domain.OrderQuery) (Page, error) {
	if !c.IsSupplier() {
		return Page{}, domain.Forbidden("order.supplier_orders", "Only suppliers can view their orders")
	}
	return s.List(ctx, c, q)
}
