// Package httpapi exposes the marketplace over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nazeru/materials-marketplace-go/pkg/logging"
	"github.com/nazeru/materials-marketplace-go/pkg/metrics"
)

type Config struct {
	Orders   OrderService
	Catalog  CatalogService
	Cart     CartService
	Users    UserService
	Ping     func(ctx context.Context) error
	Metrics  *metrics.ServerMetrics
	Gatherer http.Handler
	Log      logging.Logger
	Secret   []byte
	TokenTTL time.Duration
	Timeout  time.Duration
}

// NewRouter wires every route. Requests carry an id, are recovered from panics, logged,
// measured and traced.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observe(cfg.Metrics, cfg.Log))
	if cfg.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Timeout))
	}

	r.Get("/health", health(cfg.Ping))
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Gatherer)
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	accounts := &accountHandler{svc: cfg.Users, secret: cfg.Secret, ttl: ttl}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Users != nil {
			r.Post("/auth/register", accounts.register)
			r.Post("/auth/login", accounts.login)
		}
		r.Group(func(r chi.Router) {
			r.Use(authenticate(cfg.Secret))
			if cfg.Users != nil {
				r.Get("/auth/profile", accounts.profile)
				r.Put("/auth/profile", accounts.updateProfile)
			}
			r.Route("/orders", (&orderHandler{svc: cfg.Orders}).routes)
			r.Route("/materials", (&materialHandler{svc: cfg.Catalog}).routes)
			r.Route("/cart", (&cartHandler{svc: cfg.Cart}).routes)
		})
	})

	return otelhttp.NewHandler(r, "marketplace-api", otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
		return r.Method + " " + r.URL.Path
	}))
}

func health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "db_error", "message": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}

// observe counts, times and logs every request under its route pattern.
func observe(m *metrics.ServerMetrics, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			pattern := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				pattern = rc.RoutePattern()
			}
			handler := r.Method + " " + pattern
			if m != nil {
				m.Observe(handler, status, start)
			}
			log.Log(logging.Fields{
				RequestID:  middleware.GetReqID(r.Context()),
				Step:       handler,
				Status:     strconv.Itoa(status),
				DurationMS: time.Since(start).Milliseconds(),
			})
		})
	}
}
