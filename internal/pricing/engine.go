package pricing

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/circular-protocol/otc-gateway/internal/metrics"
	"github.com/circular-protocol/otc-gateway/pkg/model"
)

// Quote failure taxonomy. All four collapse to the same "no quote" signal
// at the API boundary; the distinction exists for logs and metrics.
var (
	ErrInvalidInput     = errors.New("invalid input amount")
	ErrUnsupportedToken = errors.New("unsupported token")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrOutOfRange       = errors.New("calculation out of range")
)

// IsNoQuote reports whether err belongs to the quote failure taxonomy,
// i.e. the caller should render a neutral "no quote" state.
func IsNoQuote(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnsupportedToken) ||
		errors.Is(err, ErrPriceUnavailable) ||
		errors.Is(err, ErrOutOfRange)
}

var (
	liquidFeePercent = decimal.NewFromFloat(0.3)
	otcFeePercent    = decimal.NewFromFloat(0.15)

	// minimumReceived = output * (1 - 0.005), fixed 0.5% slippage tolerance
	slippageFactor = decimal.NewFromFloat(0.995)

	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)

	minSwapUsd    = decimal.NewFromInt(10)
	otcMinimumUsd = decimal.NewFromInt(1000)
)

// discountTiers is the OTC discount step function, highest threshold first.
// The first tier whose threshold is met wins; no interpolation.
var discountTiers = []struct {
	minUsd  decimal.Decimal
	percent int64
}{
	{decimal.NewFromInt(50000), 12},
	{decimal.NewFromInt(10000), 8},
	{decimal.NewFromInt(1000), 5},
}

const vestingPeriodOTC = "6 months"

var recipientAddressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// CalculateDiscount returns the OTC discount percent for a pre-fee USD
// value. Pure; returns 0 below the lowest tier.
func CalculateDiscount(usdAmount decimal.Decimal) int64 {
	for _, tier := range discountTiers {
		if usdAmount.GreaterThanOrEqual(tier.minUsd) {
			return tier.percent
		}
	}
	return 0
}

// FeeRatePercent returns the fee schedule rate for a trading mode,
// expressed in percent.
func FeeRatePercent(mode model.TradeMode) decimal.Decimal {
	if mode == model.ModeOTC {
		return otcFeePercent
	}
	return liquidFeePercent
}

// PriceProvider supplies the current price snapshot. The engine never
// fetches prices itself; refresh policy belongs to the cache.
type PriceProvider interface {
	GetPrices(ctx context.Context) model.PriceSnapshot
}

// Engine converts between input-token amounts and CIRX amounts under the
// liquid and OTC pricing schedules. All operations are deterministic
// arithmetic over the provider's current snapshot.
type Engine struct {
	prices PriceProvider
	logger *zap.Logger
}

// NewEngine creates a quote engine backed by the given price provider.
func NewEngine(prices PriceProvider, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{prices: prices, logger: logger}
}

// TokenPrice resolves the USD price for a token from the current snapshot,
// applying symbol normalization. Unpriced or non-positive entries are an
// ErrPriceUnavailable.
func (e *Engine) TokenPrice(ctx context.Context, token model.Token) (decimal.Decimal, error) {
	if _, err := model.ParseToken(string(token)); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedToken, token)
	}
	snap := e.prices.GetPrices(ctx)
	price, ok := snap.Prices[token.Normalize()]
	if !ok || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrPriceUnavailable, token)
	}
	return price, nil
}

// CalculateQuote computes a forward quote: input amount of token to CIRX
// received. amountText must parse to a finite decimal > 0.
//
// The fee is taken in the input asset before conversion; the OTC discount
// tier is chosen on the pre-fee USD value and applied as a multiplicative
// bonus to the post-fee CIRX amount. That ordering is a business rule,
// not an implementation detail.
func (e *Engine) CalculateQuote(ctx context.Context, amountText string, token model.Token, mode model.TradeMode) (*model.Quote, error) {
	inputValue, err := parseAmount(amountText)
	if err != nil {
		return nil, err
	}

	tokenPrice, err := e.TokenPrice(ctx, token)
	if err != nil {
		return nil, err
	}

	totalUsdValue := inputValue.Mul(tokenPrice)

	feeRate := FeeRatePercent(mode)
	feeAmount := inputValue.Mul(feeRate).Div(hundred)
	amountAfterFee := inputValue.Sub(feeAmount)
	usdAfterFee := amountAfterFee.Mul(tokenPrice)

	// Base conversion is 1:1 USD to CIRX.
	outputAmount := usdAfterFee
	var discount int64
	if mode == model.ModeOTC {
		discount = CalculateDiscount(totalUsdValue)
		bonus := one.Add(decimal.NewFromInt(discount).Div(hundred))
		outputAmount = usdAfterFee.Mul(bonus)
	}

	if outputAmount.IsNegative() {
		e.logger.Error("pricing.quote_out_of_range",
			zap.String("token", string(token)),
			zap.String("output", outputAmount.String()))
		metrics.IncError("pricing", "out_of_range")
		return nil, ErrOutOfRange
	}

	minimumReceived := outputAmount.Mul(slippageFactor)

	q := &model.Quote{
		InputAmount:     inputValue,
		InputToken:      token,
		InputUsdValue:   totalUsdValue,
		TokenPrice:      tokenPrice,
		FeeRate:         feeRate,
		FeeAmount:       feeAmount,
		FeeUsd:          feeAmount.Mul(tokenPrice),
		DiscountPercent: discount,
		OutputAmount:    outputAmount.StringFixed(6),
		OutputFormatted: FormatAmount(outputAmount),
		ExchangeRate:    fmt.Sprintf("1 %s = %s CIRX", token, groupThousands(tokenPrice)),
		MinimumReceived: minimumReceived.StringFixed(6),
		Mode:            mode,
	}
	if mode == model.ModeOTC {
		q.VestingPeriod = vestingPeriodOTC
	}
	return q, nil
}

// CalculateReverseQuote derives the input amount needed to receive a
// desired CIRX amount, by inverting the forward formula.
//
// The discount tier is estimated from the desired output value because
// the true pre-fee USD value is unknown until the input is solved. Near
// tier boundaries this is approximate; the embedded forward quote lets
// callers judge the residual.
func (e *Engine) CalculateReverseQuote(ctx context.Context, desiredOutputText string, token model.Token, mode model.TradeMode) (*model.ReverseQuote, error) {
	outputValue, err := parseAmount(desiredOutputText)
	if err != nil {
		return nil, err
	}

	tokenPrice, err := e.TokenPrice(ctx, token)
	if err != nil {
		return nil, err
	}

	usdAfterFee := outputValue
	var discount int64
	if mode == model.ModeOTC {
		discount = CalculateDiscount(outputValue)
		bonus := one.Add(decimal.NewFromInt(discount).Div(hundred))
		usdAfterFee = outputValue.Div(bonus)
	}

	feeRate := FeeRatePercent(mode)
	amountAfterFee := usdAfterFee.Div(tokenPrice)
	inputValue := amountAfterFee.Div(one.Sub(feeRate.Div(hundred)))

	if inputValue.IsNegative() {
		metrics.IncError("pricing", "out_of_range")
		return nil, ErrOutOfRange
	}

	rq := &model.ReverseQuote{
		InputAmount:     inputValue,
		InputToken:      token,
		OutputAmount:    outputValue,
		TokenPrice:      tokenPrice,
		FeeRate:         feeRate,
		DiscountPercent: discount,
		Mode:            mode,
	}

	// Recompute the forward quote from the derived input for verification
	// and to surface consistent derived fields.
	if forward, err := e.CalculateQuote(ctx, inputValue.String(), token, mode); err == nil {
		rq.Forward = forward
	}
	return rq, nil
}

// ValidateSwap checks a proposed swap and returns every violated rule.
// A recipient address is only mandatory when no wallet is connected.
func (e *Engine) ValidateSwap(ctx context.Context, amountText, tokenSymbol, recipientAddress string, walletConnected bool) model.SwapValidation {
	var errs []string

	amount, amountErr := parseAmount(amountText)
	if amountErr != nil {
		errs = append(errs, "Invalid amount")
	}

	var price decimal.Decimal
	priced := false
	if token, err := model.ParseToken(tokenSymbol); err != nil {
		errs = append(errs, "Unsupported token")
	} else if price, err = e.TokenPrice(ctx, token); err != nil {
		errs = append(errs, "Unsupported token")
	} else {
		priced = true
	}

	if !walletConnected && strings.TrimSpace(recipientAddress) == "" {
		errs = append(errs, "Recipient address required")
	}
	if recipientAddress != "" && !recipientAddressRe.MatchString(recipientAddress) {
		errs = append(errs, "Invalid recipient address")
	}

	if amountErr == nil && priced {
		if amount.Mul(price).LessThan(minSwapUsd) {
			errs = append(errs, "Minimum swap amount is $10")
		}
	}

	return model.SwapValidation{IsValid: len(errs) == 0, Errors: errs}
}

// QualifiesForOTC reports whether the swap's USD value reaches the lowest
// OTC discount tier.
func (e *Engine) QualifiesForOTC(ctx context.Context, amountText string, token model.Token) bool {
	amount, err := parseAmount(amountText)
	if err != nil {
		return false
	}
	price, err := e.TokenPrice(ctx, token)
	if err != nil {
		return false
	}
	return amount.Mul(price).GreaterThanOrEqual(otcMinimumUsd)
}

// gas reserve held back from full-balance spends of native tokens
var nativeGasReserve = decimal.NewFromFloat(0.001)

// MaxSpendableAmount returns the largest spendable amount for a balance,
// holding back a small gas reserve for native tokens. Unparseable or
// non-positive balances yield "0".
func MaxSpendableAmount(balanceText string, token model.Token) string {
	balance, err := decimal.NewFromString(strings.TrimSpace(balanceText))
	if err != nil || !balance.IsPositive() {
		return "0"
	}
	if token.IsNative() {
		balance = balance.Sub(nativeGasReserve)
		if balance.IsNegative() {
			return "0"
		}
	}
	return balance.String()
}

// EstimatedSettlement describes the expected completion time for a swap.
func EstimatedSettlement(mode model.TradeMode, chain string) string {
	if mode == model.ModeOTC {
		return "Immediate (with 6-month vesting)"
	}
	switch strings.ToLower(chain) {
	case "ethereum":
		return "~15 seconds"
	case "solana":
		return "~1 second"
	default:
		return "~1 minute"
	}
}

func parseAmount(text string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrInvalidInput)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidInput, text)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q must be > 0", ErrInvalidInput, text)
	}
	return d, nil
}
