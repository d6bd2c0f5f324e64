package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	"github.com/nazeru/materials-marketplace-go/internal/order/service"
	ordertx "github.com/nazeru/materials-marketplace-go/internal/order/tx"
	"github.com/nazeru/materials-marketplace-go/pkg/idempotency"
)

// OrderService is satisfied by *service.Service.
type OrderService interface {
	Create(ctx context.Context, in ordertx.CheckoutInput) (domain.Order, bool, error)
	List(ctx context.Context, c domain.Caller, q domain.OrderQuery) (service.Page, error)
	VendorOrders(ctx context.Context, c domain.Caller, q domain.OrderQuery) (service.Page, error)
	SupplierOrders(ctx context.Context, c domain.Caller, q domain.OrderQuery) (service.Page, error)
	Get(ctx context.Context, c domain.Caller, id domain.OrderID) (domain.Order, error)
	UpdateStatus(ctx context.Context, c domain.Caller, id domain.OrderID, u service.StatusUpdate) (domain.Order, error)
	Cancel(ctx context.Context, c domain.Caller, id domain.OrderID) (domain.Order, error)
}

type orderHandler struct {
	svc OrderService
}

func (h *orderHandler) routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list(OrderService.List, "Failed to get orders"))
	r.Get("/vendor/my-orders", h.list(OrderService.VendorOrders, "Failed to get vendor orders"))
	r.Get("/supplier/my-orders", h.list(OrderService.SupplierOrders, "Failed to get supplier orders"))
	r.Get("/{id}", h.get)
	r.Put("/{id}/status", h.updateStatus)
	r.Put("/{id}/cancel", h.cancel)
}

type createOrderRequest struct {
	Materials       []ordertx.CheckoutItem `json:"materials"`
	DeliveryAddress string                 `json:"deliveryAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	Notes           string                 `json:"notes"`
	ClearCart       bool                   `json:"clearCart"`
}

type orderListResponse struct {
	Success bool           `json:"success"`
	Count   int            `json:"count"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	Pages   int            `json:"pages"`
	Orders  []domain.Order `json:"orders"`
}

type orderResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Order   domain.Order `json:"order"`
}

func (h *orderHandler) create(w http.ResponseWriter, r *http.Request) {
	c, _ := CallerFrom(r.Context())
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	o, replayed, err := h.svc.Create(r.Context(), ordertx.CheckoutInput{
		Caller:          c,
		IdempotencyKey:  idempotency.Key(r),
		Items:           req.Materials,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		ClearCart:       req.ClearCart,
	})
	if err != nil {
		writeError(w, err, "Failed to create order")
		return
	}
	if replayed {
		writeJSON(w, http.StatusOK, orderResponse{Success: true, Message: "Order already created", Order: o})
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse{Success: true, Message: "Order created successfully", Order: o})
}

type listFunc func(OrderService, context.Context, domain.Caller, domain.OrderQuery) (service.Page, error)

func (h *orderHandler) list(fn listFunc, failure string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, _ := CallerFrom(r.Context())
		q := domain.OrderQuery{
			Status: domain.OrderStatus(r.URL.Query().Get("status")),
			Page:   queryInt(r, "page"),
			Limit:  queryInt(r, "limit"),
		}
		page, err := fn(h.svc, r.Context(), c, q)
		if err != nil {
			writeError(w, err, failure)
			return
		}
		writeJSON(w, http.StatusOK, orderListResponse{
			Success: true,
			Count:   len(page.Orders),
			Total:   page.Total,
			Page:    page.Page,
			Pages:   page.Pages,
			Orders:  page.Orders,
		})
	}
}

func (h *orderHandler) get(w http.ResponseWriter, r *http.Request) {
	c, _ := CallerFrom(r.Context())
	o, err := h.svc.Get(r.Context(), c, domain.OrderID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err, "Failed to get order")
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: o})
}

type statusRequest struct {
	Status            domain.OrderStatus `json:"status"`
	EstimatedDelivery *time.Time         `json:"estimatedDelivery"`
	TrackingNumber    *string            `json:"trackingNumber"`
	Notes             *string            `json:"notes"`
}

func (h *orderHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	c, _ := CallerFrom(r.Context())
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	o, err := h.svc.UpdateStatus(r.Context(), c, domain.OrderID(chi.URLParam(r, "id")), service.StatusUpdate{
		Status:            req.Status,
		EstimatedDelivery: req.EstimatedDelivery,
		TrackingNumber:    req.TrackingNumber,
		Notes:             req.Notes,
	})
	if err != nil {
		writeError(w, err, "Failed to update order status")
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Message: "Order status updated successfully", Order: o})
}

func (h *orderHandler) cancel(w http.ResponseWriter, r *http.Request) {
	c, _ := CallerFrom(r.Context())
	o, err := h.svc.Cancel(r.Context(), c, domain.OrderID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err, "Failed to cancel order")
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Message: "Order cancelled successfully", Order: o})
}
