package config

import (
	"time"

	"github.com/joho/godotenv"
)

// Config holds the core runtime configuration for a gateway instance.
// It supports environment-based initialization, with sensible defaults.
type Config struct {
	ServiceName string // e.g. "otc-gateway"
	Env         string // e.g. "dev", "uat", "prod"
	LogLevel    string // "debug", "info", etc.
	Port        int    // HTTP API + metrics port

	NATSURL         string // e.g. nats://localhost:4222
	OutboundSubject string // NATS subject for quote events

	AMQPURL           string // RabbitMQ URL for desk quote requests; empty disables the consumer
	QuoteRequestQueue string

	RedisAddr   string // e.g. localhost:6379
	RedisDB     int
	RedisPass   string
	DatabaseURL string // Postgres quote history; empty disables it

	PriceAPIBaseURL      string
	PriceRefreshInterval time.Duration // snapshot TTL before a re-fetch
	PriceFetchTimeout    time.Duration // bound on a single upstream call

	QuoteTTL time.Duration // how long an issued quote stays retrievable
}

// Load loads configuration from environment variables and .env file if present.
func Load() *Config {
	// load .env silently (no error if missing)
	_ = godotenv.Load()

	return &Config{
		ServiceName:          GetEnv("SERVICE_NAME", "otc-gateway"),
		Env:                  GetEnv("ENV", "dev"),
		LogLevel:             GetEnv("LOG_LEVEL", "info"),
		Port:                 GetEnvInt("GATEWAY_PORT", 9030),
		NATSURL:              GetEnv("NATS_URL", "nats://localhost:4222"),
		OutboundSubject:      GetEnv("OUTBOUND_SUBJECT", "evt.otc.quote.issued.v1"),
		AMQPURL:              GetEnv("AMQP_URL", ""),
		QuoteRequestQueue:    GetEnv("QUOTE_REQUEST_QUEUE", "outbound.quotes.requested.CIRX"),
		RedisAddr:            GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              GetEnvInt("REDIS_DB", 0),
		RedisPass:            GetEnv("REDIS_PASS", ""),
		DatabaseURL:          GetEnv("DATABASE_URL", ""),
		PriceAPIBaseURL:      GetEnv("PRICE_API_BASE_URL", "https://api.coingecko.com/api/v3"),
		PriceRefreshInterval: GetEnvDuration("PRICE_REFRESH_INTERVAL", 30*time.Second),
		PriceFetchTimeout:    GetEnvDuration("PRICE_FETCH_TIMEOUT", 5*time.Second),
		QuoteTTL:             GetEnvDuration("QUOTE_TTL", 15*time.Minute),
	}
}
