package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/circular-protocol/otc-gateway/pkg/model"
)

// Store defines the contract for caching and persisting issued quotes.
type Store interface {
	SaveQuote(ctx context.Context, rec model.QuoteRecord) error
	GetQuote(ctx context.Context, id string) (*model.QuoteRecord, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// HybridStore is a Redis-first store with an optional Postgres quote
// history. Redis holds the retrievable quote under its TTL; Postgres, when
// configured, keeps an immutable audit row per issued quote.
type HybridStore struct {
	redis    *redis.Client
	PG       *pgxpool.Pool
	logger   *zap.Logger
	quoteTTL time.Duration
}

// NewHybrid creates a Redis-backed store; pgURL may be empty to disable
// the history table.
func NewHybrid(redisAddr string, redisDB int, redisPass, pgURL string, quoteTTL time.Duration, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		DB:       redisDB,
		Password: redisPass,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		var err error
		pgPool, err = pgxpool.New(ctx, pgURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	return &HybridStore{redis: rdb, PG: pgPool, logger: logger, quoteTTL: quoteTTL}, nil
}

func quoteKey(id string) string {
	return "quote:" + id
}

// SaveQuote caches the quote under its TTL and appends the history row.
func (s *HybridStore) SaveQuote(ctx context.Context, rec model.QuoteRecord) error {
	if err := s.SetJSON(ctx, quoteKey(rec.ID), rec, s.quoteTTL); err != nil {
		return err
	}
	return s.recordQuoteEvent(ctx, rec)
}

// GetQuote returns a cached quote, or nil when it is unknown or expired.
func (s *HybridStore) GetQuote(ctx context.Context, id string) (*model.QuoteRecord, error) {
	var rec model.QuoteRecord
	err := s.GetJSON(ctx, quoteKey(id), &rec)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// recordQuoteEvent inserts an immutable row into otc.quote_event.
func (s *HybridStore) recordQuoteEvent(ctx context.Context, rec model.QuoteRecord) error {
	if s.PG == nil {
		return nil
	}
	_, err := s.PG.Exec(ctx, `
		INSERT INTO otc.quote_event (
			quote_id, client_id, input_token, mode,
			input_amount, input_usd_value, discount_percent, output_amount,
			status, created_at, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rec.ID, rec.ClientID, rec.Quote.InputToken, rec.Quote.Mode,
		rec.Quote.InputAmount, rec.Quote.InputUsdValue, rec.Quote.DiscountPercent, rec.Quote.OutputAmount,
		rec.Status, rec.CreatedAt, rec.ExpiresAt)
	if err != nil {
		s.logger.Error("store.pg.insert_quote_event_failed",
			zap.String("quote_id", rec.ID),
			zap.Error(err))
	}
	return err
}

// SetJSON marshals value and stores it under key with a TTL.
func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

// GetJSON loads key and unmarshals it into dest. Missing keys surface
// redis.Nil.
func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// HealthCheck pings Redis and, if configured, Postgres.
func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	return nil
}

// Close releases both connections.
func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	return s.redis.Close()
}
