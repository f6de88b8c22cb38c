// Package config loads process configuration from environment
// variables. Optional backends (Postgres, Redis, Kafka, Mongo, the
// billing API) are switched on by setting their address; when unset
// the process falls back to in-memory implementations.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string `env:"POS_HTTP_ADDR" envDefault:":8080"`

	// Postgres order store; empty host keeps orders in memory.
	DBHost            string `env:"POS_DB_HOST"`
	DBPort            int    `env:"POS_DB_PORT" envDefault:"5432"`
	DBUser            string `env:"POS_DB_USER" envDefault:"postgres"`
	DBPassword        string `env:"POS_DB_PASSWORD"`
	DBName            string `env:"POS_DB_NAME" envDefault:"fulfillment"`
	MigrationsDirPath string `env:"POS_DB_MIGRATIONS" envDefault:"internal/order/migrations"`

	// Redis payment idempotency store; empty address keeps it in memory.
	RedisAddr      string        `env:"POS_REDIS_ADDR"`
	IdempotencyTTL time.Duration `env:"POS_IDEMPOTENCY_TTL" envDefault:"24h"`

	// Kafka notification sink; no brokers means notifications are dropped.
	KafkaBrokers []string `env:"POS_KAFKA_BROKERS"`
	KafkaTopic   string   `env:"POS_KAFKA_TOPIC" envDefault:"fulfillment-events"`

	// Mongo archive for purged session carts; empty URI disables archiving.
	MongoURI        string `env:"POS_MONGO_URI"`
	MongoDatabase   string `env:"POS_MONGO_DB" envDefault:"fulfillment"`
	MongoCollection string `env:"POS_MONGO_COLLECTION" envDefault:"abandoned_carts"`

	// Billing API the invoice relay submits to; empty URL disables the relay.
	InvoiceBaseURL   string        `env:"POS_INVOICE_BASE_URL"`
	InvoiceToken     string        `env:"POS_INVOICE_TOKEN"`
	InvoiceRetryTick time.Duration `env:"POS_INVOICE_RETRY_TICK" envDefault:"1m"`

	SessionTTL    time.Duration `env:"POS_SESSION_TTL" envDefault:"24h"`
	SweepInterval time.Duration `env:"POS_SWEEP_INTERVAL" envDefault:"1h"`

	PaymentTimeout     time.Duration `env:"POS_PAYMENT_TIMEOUT" envDefault:"10s"`
	HighValueThreshold string        `env:"POS_HIGH_VALUE_THRESHOLD" envDefault:"1000"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
