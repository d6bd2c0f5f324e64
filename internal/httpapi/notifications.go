package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nazeru/materials-marketplace-go/internal/notify"
	"github.com/nazeru/materials-marketplace-go/pkg/logging"
	"github.com/nazeru/materials-marketplace-go/pkg/metrics"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

type NotificationLister interface {
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]notify.Notification, error)
}

type NotifierConfig struct {
	Store    NotificationLister
	Ping     func(ctx context.Context) error
	Metrics  *metrics.ServerMetrics
	Gatherer http.Handler
	Log      logging.Logger
}

// NewNotificationRouter serves the notification-service: health, metrics and the
// per-recipient notification feed.
func NewNotificationRouter(cfg NotifierConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observe(cfg.Metrics, cfg.Log))

	r.Get("/health", health(cfg.Ping))
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Gatherer)
	}
	r.Get("/notifications", listNotifications(cfg.Store))
	return r
}

func listNotifications(store NotificationLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipient := r.URL.Query().Get("recipient")
		if recipient == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "recipient is required"})
			return
		}
		limit := queryInt(r, "limit")
		if limit <= 0 {
			limit = defaultNotificationLimit
		}
		if limit > maxNotificationLimit {
			limit = maxNotificationLimit
		}
		ns, err := store.ListNotifications(r.Context(), recipient, limit)
		if err != nil {
			writeError(w, err, "Failed to get notifications")
			return
		}
		if ns == nil {
			ns = []notify.Notification{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "notifications": ns})
	}
}
