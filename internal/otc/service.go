package otc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/circular-protocol/otc-gateway/internal/metrics"
	"github.com/circular-protocol/otc-gateway/internal/pricing"
	"github.com/circular-protocol/otc-gateway/internal/store"
	"github.com/circular-protocol/otc-gateway/pkg/model"
)

// QuotePublisher is the event surface the service emits to.
type QuotePublisher interface {
	PublishQuoteIssued(ctx context.Context, rec model.QuoteRecord) error
	PublishQuoteRejected(ctx context.Context, requestID, clientID, reason string) error
}

// Service orchestrates quoting: it prices requests through the engine,
// persists issued quotes, and emits the canonical events.
type Service struct {
	engine    *pricing.Engine
	store     store.Store
	publisher QuotePublisher
	quoteTTL  time.Duration
	logger    *zap.Logger
}

func NewService(engine *pricing.Engine, st store.Store, pub QuotePublisher, quoteTTL time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine:    engine,
		store:     st,
		publisher: pub,
		quoteTTL:  quoteTTL,
		logger:    logger,
	}
}

// CreateQuote prices a swap and issues a retrievable quote record. The
// record is cached under its TTL and announced on the bus; persistence or
// publish failures are logged but do not void the quote.
func (s *Service) CreateQuote(ctx context.Context, amountText string, token model.Token, mode model.TradeMode, clientID string) (*model.QuoteRecord, error) {
	quote, err := s.engine.CalculateQuote(ctx, amountText, token, mode)
	if err != nil {
		metrics.IncQuote(string(mode), "forward", "rejected")
		return nil, err
	}

	now := time.Now().UTC()
	rec := model.QuoteRecord{
		ID:        uuid.New().String(),
		ClientID:  clientID,
		Quote:     *quote,
		Status:    "ISSUED",
		CreatedAt: now,
		ExpiresAt: now.Add(s.quoteTTL),
	}

	if s.store != nil {
		if err := s.store.SaveQuote(ctx, rec); err != nil {
			s.logger.Error("otc.save_quote_failed",
				zap.String("quote_id", rec.ID),
				zap.Error(err))
			metrics.IncError("otc", "save_quote_failed")
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishQuoteIssued(ctx, rec); err != nil {
			s.logger.Error("otc.publish_quote_failed",
				zap.String("quote_id", rec.ID),
				zap.Error(err))
		}
	}

	metrics.IncQuote(string(mode), "forward", "issued")
	s.logger.Info("otc.quote_issued",
		zap.String("quote_id", rec.ID),
		zap.String("token", string(token)),
		zap.String("mode", string(mode)),
		zap.String("output", quote.OutputAmount))

	return &rec, nil
}

// ReverseQuote answers "how much do I need to spend for this much CIRX".
// Reverse quotes are advisory and are not persisted.
func (s *Service) ReverseQuote(ctx context.Context, desiredOutputText string, token model.Token, mode model.TradeMode) (*model.ReverseQuote, error) {
	rq, err := s.engine.CalculateReverseQuote(ctx, desiredOutputText, token, mode)
	if err != nil {
		metrics.IncQuote(string(mode), "reverse", "rejected")
		return nil, err
	}
	metrics.IncQuote(string(mode), "reverse", "issued")
	return rq, nil
}

// GetQuote returns a previously issued quote, or nil when it is unknown or
// has expired out of the cache.
func (s *Service) GetQuote(ctx context.Context, id string) (*model.QuoteRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.GetQuote(ctx, id)
}

// ValidateSwap runs the pre-trade checks without issuing a quote.
func (s *Service) ValidateSwap(ctx context.Context, amountText, tokenSymbol, recipientAddress string, walletConnected bool) model.SwapValidation {
	return s.engine.ValidateSwap(ctx, amountText, tokenSymbol, recipientAddress, walletConnected)
}

// QuoteCommand handles a quote request arriving over the message bus. A
// request the engine cannot price is answered with a quote.rejected event
// rather than an error, so the delivery is not requeued.
func (s *Service) QuoteCommand(ctx context.Context, cmd *model.QuoteRequestCommand) error {
	token, err := model.ParseToken(cmd.Token)
	if err != nil {
		return s.reject(ctx, cmd, "unsupported token")
	}

	mode := cmd.Mode
	if mode == "" {
		mode = model.ModeLiquid
	}

	rec, err := s.CreateQuote(ctx, cmd.Amount, token, mode, cmd.ClientID)
	if err != nil {
		if pricing.IsNoQuote(err) {
			return s.reject(ctx, cmd, "no quote")
		}
		return err
	}

	s.logger.Info("otc.quote_command_fulfilled",
		zap.String("request_id", cmd.RequestID),
		zap.String("quote_id", rec.ID))
	return nil
}

func (s *Service) reject(ctx context.Context, cmd *model.QuoteRequestCommand, reason string) error {
	s.logger.Warn("otc.quote_command_rejected",
		zap.String("request_id", cmd.RequestID),
		zap.String("client_id", cmd.ClientID),
		zap.String("reason", reason))
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishQuoteRejected(ctx, cmd.RequestID, cmd.ClientID, reason); err != nil {
		s.logger.Error("otc.publish_rejection_failed",
			zap.String("request_id", cmd.RequestID),
			zap.Error(err))
	}
	return nil
}
