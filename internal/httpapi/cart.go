package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
)

// CartService is satisfied by *cart.Service.
type CartService interface {
	Get(ctx context.Context, c domain.Caller) (domain.Cart, error)
	Add(ctx context.Context, c domain.Caller, id domain.MaterialID, quantity int) (domain.Cart, error)
	Set(ctx context.Context, c domain.Caller, id domain.MaterialID, quantity int) (domain.Cart, error)
	Remove(ctx context.Context, c domain.Caller, id domain.MaterialID) (domain.Cart, error)
	Clear(ctx context.Context, c domain.Caller) error
}

type cartHandler struct {
	svc CartService
}

func (h *cartHandler) routes(r chi.Router) {
	r.Get("/", h.get)
	r.Delete("/", h.clear)
	r.Post("/items", h.add)
	r.Put("/items/{materialId}", h.set)
	r.Delete("/items/{materialId}", h.remove)
}

type cartItemRequest struct {
	MaterialID domain.MaterialID `json:"materialId"`
	Quantity   int               `json:"quantity"`
}

func writeCart(w http.ResponseWriter, c domain.Cart, err error) {
	if err != nil {
		writeError(w, err, "Failed to update cart")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "cart": c})
}

func (h *cartHandler) get(w http.ResponseWriter, r *http.Request) {
	c, _ := CallerFrom(r.Context())
	cart, err := h.svc.Get(r.Context(), c)
	writeCart(w, cart, err)
}

func (h *cartHandler) add(w http.ResponseWriter, r *http.Request) {
	c, _ := CallerFrom(r.Context())
	var req cartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, err := h.svc.Add(r.Context(), c, req.MaterialID, req.Quantity)
	writeCart(w, cart, err)
}

func (h *cartHandler) set(w http.ResponseWriter, r *http.Request) {
	c, _ := CallerFrom(r.Context())
	var req cartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, err := h.svc.Set(r.Context(), c, domain.MaterialID(chi.URLParam(r, "materialId")), req.Quantity)
	writeCart(w, cart, err)
}

func (h *cartHandler) remove(w http.ResponseWriter, r *http.Request) {
	c, _ := CallerFrom(r.Context())
	cart, err := h.svc.Remove(r.Context(), c, domain.MaterialID(chi.URLParam(r, "materialId")))
	writeCart(w, cart, err)
}

func (h *cartHandler) clear(w http.ResponseWriter, r *http.Request) {
	c, _ := CallerFrom(r.Context())
	if err := h.svc.Clear(r.Context(), c); err != nil {
		writeError(w, err, "Failed to clear cart")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Cart cleared"})
}
