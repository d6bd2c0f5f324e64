package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nazeru/materials-marketplace-go/internal/catalog"
	"github.com/nazeru/materials-marketplace-go/internal/location"
	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
)

// CatalogService is satisfied by *catalog.Service.
type CatalogService interface {
	List(ctx context.Context, q catalog.ListQuery) (catalog.Page, error)
	Get(ctx context.Context, id domain.MaterialID) (domain.Material, error)
	Create(ctx context.Context, c domain.Caller, m domain.Material) (domain.Material, error)
	Update(ctx context.Context, c domain.Caller, id domain.MaterialID, p domain.MaterialPatch) (domain.Material, error)
	Delete(ctx context.Context, c domain.Caller, id domain.MaterialID) error
}

type materialHandler struct {
	svc CatalogService
}

func (h *materialHandler) routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type materialListResponse struct {
	Success   bool `json:"success"`
	Count     int  `json:"count"`
	Total     int  `json:"total"`
	Page      int  `json:"page"`
	Pages     int  `json:"pages"`
	Materials any  `json:"materials"`
}

type materialResponse struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message,omitempty"`
	Material domain.Material `json:"material"`
}

type materialRequest struct {
	Name             string           `json:"name"`
	Price            decimal.Decimal  `json:"price"`
	Quantity         int              `json:"quantity"`
	Unit             string           `json:"unit"`
	Category         string           `json:"category"`
	Description      string           `json:"description"`
	Location         *domain.GeoPoint `json:"location"`
	DeliveryRadiusKm float64          `json:"deliveryRadiusKm"`
}

func (h *materialHandler) list(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := catalog.ListQuery{
		Filter: domain.MaterialFilter{
			Category:   qs.Get("category"),
			SupplierID: qs.Get("supplierId"),
			Query:      qs.Get("q"),
		},
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	}
	if qs.Get("lat") != "" || qs.Get("lng") != "" {
		lat, errLat := strconv.ParseFloat(qs.Get("lat"), 64)
		lng, errLng := strconv.ParseFloat(qs.Get("lng"), 64)
		if errLat != nil || errLng != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "lat and lng must both be numbers"})
			return
		}
		q.Near = &domain.GeoPoint{Latitude: lat, Longitude: lng}
		q.RadiusKm = location.DefaultRadiusKm
		if raw := qs.Get("radius"); raw != "" {
			radius, err := strconv.ParseFloat(raw, 64)
			if err != nil || radius <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "radius must be a positive number"})
				return
			}
			q.RadiusKm = radius
		}
	}

	page, err := h.svc.List(r.Context(), q)
	if err != nil {
		writeError(w, err, "Failed to get materials")
		return
	}
	resp := materialListResponse{Success: true, Total: page.Total, Page: page.Page, Pages: domain.PageCount(page.Total, page.Limit)}
	if q.Near != nil {
		resp.Count, resp.Materials = len(page.Nearby), page.Nearby
	} else {
		resp.Count, resp.Materials = len(page.Materials), page.Materials
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *materialHandler) get(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Get(r.Context(), domain.MaterialID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err, "Failed to get material")
		return
	}
	writeJSON(w, http.StatusOK, materialResponse{Success: true, Material: m})
}

func (h *materialHandler) create(w http.ResponseWriter, r *http.Request) {
	c, _ := CallerFrom(r.Context())
	var req materialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.Create(r.Context(), c, domain.Material{
		Name:             req.Name,
		Price:            req.Price,
		Quantity:         req.Quantity,
		Unit:             req.Unit,
		Category:         req.Category,
		Description:      req.Description,
		Location:         req.Location,
		DeliveryRadiusKm: req.DeliveryRadiusKm,
	})
	if err != nil {
		writeError(w, err, "Failed to create material")
		return
	}
	writeJSON(w, http.StatusCreated, materialResponse{Success: true, Message: "Material created successfully", Material: m})
}

func (h *materialHandler) update(w http.ResponseWriter, r *http.Request) {
	c, _ := CallerFrom(r.Context())
	var patch domain.MaterialPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	m, err := h.svc.Update(r.Context(), c, domain.MaterialID(chi.URLParam(r, "id")), patch)
	if err != nil {
		writeError(w, err, "Failed to update material")
		return
	}
	writeJSON(w, http.StatusOK, materialResponse{Success: true, Message: "Material updated successfully", Material: m})
}

func (h *materialHandler) delete(w http.ResponseWriter, r *http.Request) {
	c, _ := CallerFrom(r.Context())
	if err := h.svc.Delete(r.Context(), c, domain.MaterialID(chi.URLParam(r, "id"))); err != nil {
		writeError(w, err, "Failed to delete material")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Material deleted successfully"})
}
