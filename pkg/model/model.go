package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeMode selects the pricing schedule for a swap.
type TradeMode string

const (
	ModeLiquid TradeMode = "liquid" // instant swap, standard fee
	ModeOTC    TradeMode = "otc"    // discounted swap, vested payout
)

// PriceOrigin tags where the current price snapshot came from.
type PriceOrigin string

const (
	SourceLoading  PriceOrigin = "loading"  // no fetch has completed yet
	SourceLive     PriceOrigin = "live"     // last fetch from the price API succeeded
	SourceFallback PriceOrigin = "fallback" // last fetch failed, static defaults in use
)

// PriceSnapshot is the cached mapping of token symbol to USD price.
// Snapshots are replaced wholesale on refresh and never mutated in place;
// a symbol absent from Prices (or priced at zero) is unpriced, not an error.
type PriceSnapshot struct {
	Prices    map[Token]decimal.Decimal `json:"prices"`
	Source    PriceOrigin               `json:"source"`
	FetchedAt time.Time                 `json:"fetched_at"`
}

// CacheInfo is a diagnostic view of the price cache state.
type CacheInfo struct {
	HasCache bool          `json:"has_cache"`
	Age      time.Duration `json:"age_ms"`
	Source   PriceOrigin   `json:"source"`
	IsStale  bool          `json:"is_stale"`
}

// Quote is the fully-populated result of a forward swap calculation.
// It is either complete and internally consistent or it does not exist;
// there is no partially-filled quote.
type Quote struct {
	InputAmount     decimal.Decimal `json:"input_amount"`
	InputToken      Token           `json:"input_token"`
	InputUsdValue   decimal.Decimal `json:"input_usd_value"`
	TokenPrice      decimal.Decimal `json:"token_price"`
	FeeRate         decimal.Decimal `json:"fee_rate"`   // percent
	FeeAmount       decimal.Decimal `json:"fee_amount"` // in input-token units
	FeeUsd          decimal.Decimal `json:"fee_usd"`
	DiscountPercent int64           `json:"discount_percent"`
	OutputAmount    string          `json:"output_amount"` // CIRX, fixed 6 decimals
	OutputFormatted string          `json:"output_formatted"`
	ExchangeRate    string          `json:"exchange_rate"`
	MinimumReceived string          `json:"minimum_received"` // fixed 6 decimals
	Mode            TradeMode       `json:"mode"`
	VestingPeriod   string          `json:"vesting_period,omitempty"`
}

// ReverseQuote derives the approximate input amount needed to receive a
// desired CIRX amount. Forward carries a recomputed forward quote from the
// derived input, used to cross-check consistency.
type ReverseQuote struct {
	InputAmount     decimal.Decimal `json:"input_amount"`
	InputToken      Token           `json:"input_token"`
	OutputAmount    decimal.Decimal `json:"output_amount"` // desired CIRX
	TokenPrice      decimal.Decimal `json:"token_price"`
	FeeRate         decimal.Decimal `json:"fee_rate"`
	DiscountPercent int64           `json:"discount_percent"`
	Mode            TradeMode       `json:"mode"`
	Forward         *Quote          `json:"forward_quote,omitempty"`
}

// SwapValidation collects every violated rule for a proposed swap, not
// just the first one.
type SwapValidation struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// QuoteRecord is an issued quote as persisted and published.
type QuoteRecord struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id,omitempty"`
	Quote     Quote     `json:"quote"`
	Status    string    `json:"status"` // ISSUED | EXPIRED
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// QuoteRequestCommand is an inbound quote request from the OTC desk queue.
type QuoteRequestCommand struct {
	RequestID string    `json:"request_id"`
	ClientID  string    `json:"client_id,omitempty"`
	Amount    string    `json:"amount"`
	Token     string    `json:"token"`
	Mode      TradeMode `json:"mode,omitempty"`
}

// Envelope is the canonical event envelope. All messages published to
// NATS follow this format.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	ClientID      string          `json:"client_id,omitempty"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}
