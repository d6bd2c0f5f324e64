package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
)

const maxBodyBytes = 1 << 20

func init() {
	// Money goes out as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind onto its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError answers with the error's own message, or with failure and the cause for an
// unexpected error.
func writeError(w http.ResponseWriter, err error, failure string) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		writeJSON(w, code, map[string]any{"error": failure, "message": err.Error()})
		return
	}
	body := map[string]any{"error": domain.Message(err)}
	if errors.Is(err, domain.ErrInvalidStatus) {
		body["validStatuses"] = domain.ValidStatuses
	}
	writeJSON(w, code, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json", "message": err.Error()})
		return false
	}
	return true
}

// queryInt parses a query parameter; absent or malformed values read as 0.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
