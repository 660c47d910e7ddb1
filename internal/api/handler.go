package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/circular-protocol/otc-gateway/internal/pricing"
	"github.com/circular-protocol/otc-gateway/pkg/model"
)

// QuoteService defines the quoting operations needed by the handler.
type QuoteService interface {
	CreateQuote(ctx context.Context, amountText string, token model.Token, mode model.TradeMode, clientID string) (*model.QuoteRecord, error)
	ReverseQuote(ctx context.Context, desiredOutputText string, token model.Token, mode model.TradeMode) (*model.ReverseQuote, error)
	GetQuote(ctx context.Context, id string) (*model.QuoteRecord, error)
	ValidateSwap(ctx context.Context, amountText, tokenSymbol, recipientAddress string, walletConnected bool) model.SwapValidation
}

// PriceCache exposes the cached spot prices to the price endpoints.
type PriceCache interface {
	GetPrices(ctx context.Context) model.PriceSnapshot
	ForceRefresh(ctx context.Context) model.PriceSnapshot
	Info() model.CacheInfo
}

// QuoteHandler handles HTTP API requests for quoting and prices.
type QuoteHandler struct {
	logger  *zap.Logger
	service QuoteService
	prices  PriceCache
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(logger *zap.Logger, service QuoteService, prices PriceCache) *QuoteHandler {
	return &QuoteHandler{
		logger:  logger,
		service: service,
		prices:  prices,
	}
}

// noQuote is the single answer for every request the engine cannot price.
// The response does not distinguish why.
func noQuote(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "no quote"})
}

// CreateQuoteHandler handles forward quote requests.
func (h *QuoteHandler) CreateQuoteHandler(c *fiber.Ctx) error {
	var req QuoteCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	token, err := model.ParseToken(req.Token)
	if err != nil {
		return noQuote(c)
	}
	mode, _ := parseMode(req.Mode)

	rec, err := h.service.CreateQuote(c.Context(), req.Amount, token, mode, req.ClientID)
	if err != nil {
		if pricing.IsNoQuote(err) {
			return noQuote(c)
		}
		h.logger.Error("api.create_quote.failed",
			zap.String("token", req.Token),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusCreated).JSON(rec)
}

// ReverseQuoteHandler handles reverse quote requests.
func (h *QuoteHandler) ReverseQuoteHandler(c *fiber.Ctx) error {
	var req ReverseQuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	token, err := model.ParseToken(req.Token)
	if err != nil {
		return noQuote(c)
	}
	mode, _ := parseMode(req.Mode)

	rq, err := h.service.ReverseQuote(c.Context(), req.DesiredOutput, token, mode)
	if err != nil {
		if pricing.IsNoQuote(err) {
			return noQuote(c)
		}
		h.logger.Error("api.reverse_quote.failed",
			zap.String("token", req.Token),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusOK).JSON(rq)
}

// GetQuoteHandler returns a previously issued quote by ID.
func (h *QuoteHandler) GetQuoteHandler(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "quote id is required"})
	}

	rec, err := h.service.GetQuote(c.Context(), id)
	if err != nil {
		h.logger.Error("api.get_quote.failed",
			zap.String("quote_id", id),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	if rec == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "quote not found"})
	}

	return c.Status(fiber.StatusOK).JSON(rec)
}

// ValidateSwapHandler runs the pre-trade checks and always answers 200.
func (h *QuoteHandler) ValidateSwapHandler(c *fiber.Ctx) error {
	var req SwapValidateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result := h.service.ValidateSwap(c.Context(), req.Amount, req.Token, req.RecipientAddress, req.WalletConnected)
	return c.Status(fiber.StatusOK).JSON(result)
}

// GetPricesHandler returns the current cached price snapshot.
func (h *QuoteHandler) GetPricesHandler(c *fiber.Ctx) error {
	snap := h.prices.GetPrices(c.Context())
	info := h.prices.Info()

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"prices":     snap.Prices,
		"source":     snap.Source,
		"fetched_at": snap.FetchedAt,
		"cache":      info,
	})
}

// RefreshPricesHandler forces a cache refresh and returns the new snapshot.
func (h *QuoteHandler) RefreshPricesHandler(c *fiber.Ctx) error {
	snap := h.prices.ForceRefresh(c.Context())

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"prices":     snap.Prices,
		"source":     snap.Source,
		"fetched_at": snap.FetchedAt,
	})
}

// GetTokensHandler lists the tokens available on a chain.
func (h *QuoteHandler) GetTokensHandler(c *fiber.Ctx) error {
	chain := c.Query("chain", "ethereum")
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"chain":  chain,
		"tokens": model.AvailableTokens(chain),
	})
}
