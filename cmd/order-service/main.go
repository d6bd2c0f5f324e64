package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nazeru/materials-marketplace-go/internal/cart"
	"github.com/nazeru/materials-marketplace-go/internal/catalog"
	"github.com/nazeru/materials-marketplace-go/internal/config"
	"github.com/nazeru/materials-marketplace-go/internal/httpapi"
	"github.com/nazeru/materials-marketplace-go/internal/order/service"
	ordertx "github.com/nazeru/materials-marketplace-go/internal/order/tx"
	"github.com/nazeru/materials-marketplace-go/internal/store/embedded"
	"github.com/nazeru/materials-marketplace-go/internal/store/postgres"
	"github.com/nazeru/materials-marketplace-go/internal/user"
	"github.com/nazeru/materials-marketplace-go/pkg/kafka"
	"github.com/nazeru/materials-marketplace-go/pkg/logging"
	"github.com/nazeru/materials-marketplace-go/pkg/metrics"
	"github.com/nazeru/materials-marketplace-go/pkg/outbox"
	"github.com/nazeru/materials-marketplace-go/pkg/tracing"
	"github.com/nazeru/materials-marketplace-go/pkg/tx"
)

const cartTTL = 7 * 24 * time.Hour

// backend is what both store drivers provide.
type backend interface {
	ordertx.Store
	catalog.Store
	user.Store
	outbox.Source
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	shutdownTracing, err := tracing.Setup(cfg.TraceExporter)
	if err != nil {
		log.Fatalf("tracing error: %v", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger := logging.New("order-service")

	store, carts, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer closeStores()

	reg := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(reg, "order_service")

	retry := tx.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.TxMaxAttempts
	orders := service.New(store, service.Options{
		Policy:  cfg.StatusPolicy,
		Retry:   retry,
		Metrics: orderMetrics,
		Log:     logger,
		Cart:    carts,
	})

	kafkaClient := kafka.NewClient(cfg.KafkaBrokers)
	if kafkaClient.Enabled() {
		publisher := &kafka.Publisher{Writer: kafkaClient.NewWriter()}
		defer publisher.Close()
		relay := &outbox.Relay{
			Source:    store,
			Publisher: publisher,
			Interval:  cfg.OutboxInterval,
			Batch:     cfg.OutboxBatch,
			Metrics:   orderMetrics,
			Log:       logger,
		}
		go relay.Run(ctx)
	} else {
		logger.Info("kafka_disabled", "KAFKA_BROKERS is empty, outbox stays pending")
	}

	handler := httpapi.NewRouter(httpapi.Config{
		Orders:   orders,
		Catalog:  catalog.NewService(store, logger),
		Cart:     cart.NewService(carts, store),
		Users:    user.NewService(store, logger),
		Ping:     store.Ping,
		Metrics:  metrics.NewServerMetrics(reg, "order_service"),
		Gatherer: metrics.Handler(reg),
		Log:      logger,
		Secret:   []byte(cfg.JWTSecret),
		TokenTTL: cfg.TokenTTL,
		Timeout:  cfg.RequestTimeout,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Printf("order-service listening on :%s (store=%s)", cfg.Port, cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// openStores connects the order store and the cart store. With the embedded driver and no
// REDIS_URL the badger store keeps carts too.
func openStores(ctx context.Context, cfg config.Config) (backend, cart.Store, func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var (
		store   backend
		carts   cart.Store
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(connectCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		closers = append(closers, pool.Close)
		if err := postgres.Migrate(connectCtx, pool); err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		store = postgres.New(pool, cfg.KafkaTopic)
	default:
		db, err := embedded.Open(cfg.DataDir, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		store, carts = db, db
	}

	if cfg.RedisURL != "" {
		client, err := cart.Connect(connectCtx, cfg.RedisURL)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		carts = cart.NewRedisStore(client, cartTTL)
	}
	return store, carts, closeAll, nil
}
