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

	"github.com/nazeru/materials-marketplace-go/internal/config"
	"github.com/nazeru/materials-marketplace-go/internal/httpapi"
	"github.com/nazeru/materials-marketplace-go/internal/notify"
	"github.com/nazeru/materials-marketplace-go/internal/store/postgres"
	"github.com/nazeru/materials-marketplace-go/pkg/kafka"
	"github.com/nazeru/materials-marketplace-go/pkg/logging"
	"github.com/nazeru/materials-marketplace-go/pkg/metrics"
)

func main() {
	cfg, err := config.LoadNotifier()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := postgres.Connect(connectCtx, cfg.DatabaseURL)
	if err == nil {
		err = postgres.Migrate(connectCtx, pool)
	}
	cancel()
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer pool.Close()
	store := postgres.New(pool, cfg.KafkaTopic)
	logger := logging.New("notification-service")

	kafkaClient := kafka.NewClient(cfg.KafkaBrokers)
	if kafkaClient.Enabled() {
		reader := kafkaClient.NewReader(cfg.KafkaTopic, cfg.GroupID)
		defer reader.Close()
		consumer := &notify.Consumer{Reader: reader, Store: store, Log: logger, Backoff: 2 * time.Second}
		go consumer.Run(ctx)
	} else {
		logger.Info("kafka_disabled", "KAFKA_BROKERS is empty, not consuming")
	}

	reg := prometheus.NewRegistry()
	handler := httpapi.NewNotificationRouter(httpapi.NotifierConfig{
		Store:    store,
		Ping:     store.Ping,
		Metrics:  metrics.NewServerMetrics(reg, "notification_service"),
		Gatherer: metrics.Handler(reg),
		Log:      logger,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Printf("notification-service listening on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
