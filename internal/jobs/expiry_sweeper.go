package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/circular-protocol/otc-gateway/internal/publisher"
)

// ExpirySweeper periodically marks quote history rows whose TTL has lapsed
// as EXPIRED and emits a NATS event with the sweep result. Redis expires the
// retrievable copy on its own; this keeps the Postgres history honest.
type ExpirySweeper struct {
	logger    *zap.Logger
	db        DBExecutor // small interface wrapper over pgxpool.Pool
	publisher *publisher.Publisher
	interval  time.Duration
	stopCh    chan struct{}
}

// DBExecutor defines minimal subset of pgxpool.Pool needed for execution.
type DBExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// NewExpirySweeper constructs a background job that runs periodically.
func NewExpirySweeper(logger *zap.Logger, db DBExecutor, pub *publisher.Publisher, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{
		logger:    logger,
		db:        db,
		publisher: pub,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start runs the sweep loop.
func (s *ExpirySweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiry_sweeper.started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.stopCh:
			s.logger.Info("expiry_sweeper.stopped (manual stop)")
			return
		case <-ctx.Done():
			s.logger.Info("expiry_sweeper.stopped (context canceled)")
			return
		}
	}
}

// Stop gracefully halts the sweeper.
func (s *ExpirySweeper) Stop() {
	close(s.stopCh)
}

// runOnce executes one sweep cycle.
func (s *ExpirySweeper) runOnce(ctx context.Context) {
	start := time.Now()

	tag, err := s.db.Exec(ctx, `
		UPDATE otc.quote_event
		SET status = 'EXPIRED'
		WHERE status = 'ISSUED' AND expires_at < now()
	`)
	if err != nil {
		s.logger.Error("expiry_sweeper.sweep_failed", zap.Error(err))
		return
	}

	expired := tag.RowsAffected()
	if expired == 0 {
		return
	}

	// Emit event for downstream desk tooling
	event := map[string]any{
		"event":       "evt.otc.quotes.expired.v1",
		"expired":     expired,
		"timestamp":   time.Now().UTC(),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, "evt.otc.quotes.expired.v1", event); err != nil {
			s.logger.Warn("expiry_sweeper.nats_publish_failed", zap.Error(err))
		}
	}

	s.logger.Info("expiry_sweeper.success",
		zap.Int64("expired", expired),
		zap.Duration("duration", time.Since(start)))
}
