// Package config reads the service configuration from the environment and an optional file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	"github.com/nazeru/materials-marketplace-go/pkg/tracing"
)

const (
	DriverPostgres = "postgres"
	DriverEmbedded = "embedded"
)

type Config struct {
	Port           string
	StoreDriver    string
	DatabaseURL    string
	DataDir        string
	RedisURL       string
	KafkaBrokers   string
	KafkaTopic     string
	JWTSecret      string
	TokenTTL       time.Duration
	RequestTimeout time.Duration
	StatusPolicy   domain.StatusPolicy
	TxMaxAttempts  int
	OutboxInterval time.Duration
	OutboxBatch    int
	TraceExporter  string
}

func defaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("store_driver", DriverPostgres)
	v.SetDefault("kafka_topic", "marketplace.orders")
	v.SetDefault("jwt_expire_hours", 7*24)
	v.SetDefault("request_timeout_ms", 5000)
	v.SetDefault("order_status_policy", string(domain.StatusPolicyOpen))
	v.SetDefault("tx_max_attempts", 5)
	v.SetDefault("outbox_interval_ms", 1000)
	v.SetDefault("outbox_batch", 100)
	v.SetDefault("trace_exporter", tracing.ExporterNone)
}

// Load reads CONFIG_FILE when set, then lets environment variables override every key.
func Load() (Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := strings.TrimSpace(v.GetString("config_file")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := Config{
		Port:           strings.TrimSpace(v.GetString("port")),
		StoreDriver:    strings.ToLower(strings.TrimSpace(v.GetString("store_driver"))),
		DatabaseURL:    strings.TrimSpace(v.GetString("database_url")),
		DataDir:        strings.TrimSpace(v.GetString("data_dir")),
		RedisURL:       strings.TrimSpace(v.GetString("redis_url")),
		KafkaBrokers:   strings.TrimSpace(v.GetString("kafka_brokers")),
		KafkaTopic:     strings.TrimSpace(v.GetString("kafka_topic")),
		JWTSecret:      v.GetString("jwt_secret"),
		TokenTTL:       time.Duration(v.GetInt("jwt_expire_hours")) * time.Hour,
		RequestTimeout: time.Duration(v.GetInt("request_timeout_ms")) * time.Millisecond,
		StatusPolicy:   domain.StatusPolicy(strings.ToLower(v.GetString("order_status_policy"))),
		TxMaxAttempts:  v.GetInt("tx_max_attempts"),
		OutboxInterval: time.Duration(v.GetInt("outbox_interval_ms")) * time.Millisecond,
		OutboxBatch:    v.GetInt("outbox_batch"),
		TraceExporter:  strings.ToLower(strings.TrimSpace(v.GetString("trace_exporter"))),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required with the postgres store")
		}
	case DriverEmbedded:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("JWT_EXPIRE_HOURS must be > 0")
	}
	if !c.StatusPolicy.Valid() {
		return fmt.Errorf("unknown ORDER_STATUS_POLICY %q", c.StatusPolicy)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT_MS must be > 0")
	}
	if c.TxMaxAttempts <= 0 {
		return errors.New("TX_MAX_ATTEMPTS must be > 0")
	}
	if c.OutboxInterval <= 0 {
		return errors.New("OUTBOX_INTERVAL_MS must be > 0")
	}
	switch c.TraceExporter {
	case tracing.ExporterNone, tracing.ExporterStdout:
	default:
		return fmt.Errorf("unknown TRACE_EXPORTER %q", c.TraceExporter)
	}
	return nil
}

// Notifier configures the notification-service.
type Notifier struct {
	Port         string
	DatabaseURL  string
	KafkaBrokers string
	KafkaTopic   string
	GroupID      string
}

func LoadNotifier() (Notifier, error) {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("kafka_topic", "marketplace.orders")
	v.SetDefault("kafka_group_id", "notification-service")
	v.AutomaticEnv()
	n := Notifier{
		Port:         strings.TrimSpace(v.GetString("port")),
		DatabaseURL:  strings.TrimSpace(v.GetString("database_url")),
		KafkaBrokers: strings.TrimSpace(v.GetString("kafka_brokers")),
		KafkaTopic:   strings.TrimSpace(v.GetString("kafka_topic")),
		GroupID:      strings.TrimSpace(v.GetString("kafka_group_id")),
	}
	if n.DatabaseURL == "" {
		return Notifier{}, errors.New("DATABASE_URL is required")
	}
	return n, nil
}
