package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circular-protocol/otc-gateway/pkg/model"
)

// staticProvider serves a fixed snapshot, no fetching involved.
type staticProvider struct {
	snap model.PriceSnapshot
}

func (p *staticProvider) GetPrices(ctx context.Context) model.PriceSnapshot {
	return p.snap
}

func testEngine() *Engine {
	return NewEngine(&staticProvider{snap: model.PriceSnapshot{
		Prices: map[model.Token]decimal.Decimal{
			model.TokenETH:  decimal.NewFromInt(2500),
			model.TokenSOL:  decimal.NewFromInt(100),
			model.TokenUSDC: decimal.NewFromInt(1),
			model.TokenUSDT: decimal.NewFromInt(1),
			model.TokenCIRX: decimal.NewFromInt(1),
		},
		Source:    model.SourceLive,
		FetchedAt: time.Unix(1700000000, 0),
	}}, nil)
}

func TestCalculateDiscount_TierBoundaries(t *testing.T) {
	tests := []struct {
		usd  string
		want int64
	}{
		{"0", 0},
		{"999.99", 0},
		{"1000", 5},
		{"1000.00", 5},
		{"1000.01", 5},
		{"9999.99", 5},
		{"10000", 8},
		{"49999.99", 8},
		{"50000", 12},
		{"50000.01", 12},
		{"1000000", 12},
	}
	for _, tt := range tests {
		t.Run(tt.usd, func(t *testing.T) {
			usd, err := decimal.NewFromString(tt.usd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, CalculateDiscount(usd))
		})
	}
}

func TestCalculateQuote_RejectsMalformedAmounts(t *testing.T) {
	e := testEngine()
	for _, input := range []string{"", "0", "-5", "abc", "NaN", "Infinity", "-Infinity", "  ", "1.2.3"} {
		t.Run("input="+input, func(t *testing.T) {
			q, err := e.CalculateQuote(context.Background(), input, model.TokenETH, model.ModeLiquid)
			assert.Nil(t, q)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.True(t, IsNoQuote(err))
		})
	}
}

func TestCalculateQuote_RejectsUnknownToken(t *testing.T) {
	e := testEngine()
	q, err := e.CalculateQuote(context.Background(), "1", model.Token("DOGE"), model.ModeLiquid)
	assert.Nil(t, q)
	assert.ErrorIs(t, err, ErrUnsupportedToken)
}

func TestCalculateQuote_RejectsUnpricedToken(t *testing.T) {
	e := NewEngine(&staticProvider{snap: model.PriceSnapshot{
		Prices: map[model.Token]decimal.Decimal{
			model.TokenETH: decimal.NewFromInt(2500),
			model.TokenSOL: decimal.Zero, // unpriced
		},
		Source: model.SourceLive,
	}}, nil)

	q, err := e.CalculateQuote(context.Background(), "1", model.TokenSOL, model.ModeLiquid)
	assert.Nil(t, q)
	assert.ErrorIs(t, err, ErrPriceUnavailable)

	// USDC absent from the snapshot entirely
	q, err = e.CalculateQuote(context.Background(), "1", model.TokenUSDC, model.ModeLiquid)
	assert.Nil(t, q)
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

// 4 ETH at $2500, liquid: 0.3% fee taken in ETH before conversion.
func TestCalculateQuote_LiquidScenario(t *testing.T) {
	e := testEngine()

	q, err := e.CalculateQuote(context.Background(), "4", model.TokenETH, model.ModeLiquid)
	require.NoError(t, err)
	require.NotNil(t, q)

	assert.True(t, q.InputUsdValue.Equal(decimal.NewFromInt(10000)), "inputUsdValue=%s", q.InputUsdValue)
	assert.True(t, q.FeeAmount.Equal(decimal.NewFromFloat(0.012)), "feeAmount=%s", q.FeeAmount)
	assert.True(t, q.FeeUsd.Equal(decimal.NewFromInt(30)), "feeUsd=%s", q.FeeUsd)
	assert.EqualValues(t, 0, q.DiscountPercent)
	assert.Equal(t, "9970.000000", q.OutputAmount)
	assert.Equal(t, "9920.150000", q.MinimumReceived) // 0.5% slippage
	assert.Equal(t, "1 ETH = 2,500 CIRX", q.ExchangeRate)
	assert.Equal(t, model.ModeLiquid, q.Mode)
	assert.Empty(t, q.VestingPeriod)
}

// 4 ETH at $2500, OTC: 0.15% fee, tier picked on the pre-fee $10,000,
// 8% bonus applied to the post-fee CIRX amount.
func TestCalculateQuote_OTCScenario(t *testing.T) {
	e := testEngine()

	q, err := e.CalculateQuote(context.Background(), "4", model.TokenETH, model.ModeOTC)
	require.NoError(t, err)
	require.NotNil(t, q)

	assert.True(t, q.FeeAmount.Equal(decimal.NewFromFloat(0.006)), "feeAmount=%s", q.FeeAmount)
	assert.EqualValues(t, 8, q.DiscountPercent)
	// (4 - 0.006) * 2500 = 9985; 9985 * 1.08 = 10783.8
	assert.Equal(t, "10783.800000", q.OutputAmount)
	assert.Equal(t, "6 months", q.VestingPeriod)
	assert.Equal(t, model.ModeOTC, q.Mode)
}

func TestCalculateQuote_DiscountTierUsesPreFeeUSD(t *testing.T) {
	e := testEngine()

	// 0.4 ETH = $1000 pre-fee, exactly on the 5% tier. Post-fee USD is
	// $999.4, but the tier must be chosen on the pre-fee value.
	q, err := e.CalculateQuote(context.Background(), "0.4", model.TokenETH, model.ModeOTC)
	require.NoError(t, err)
	assert.EqualValues(t, 5, q.DiscountPercent)
}

func TestCalculateQuote_Idempotent(t *testing.T) {
	e := testEngine()

	a, err := e.CalculateQuote(context.Background(), "1.5", model.TokenETH, model.ModeOTC)
	require.NoError(t, err)
	b, err := e.CalculateQuote(context.Background(), "1.5", model.TokenETH, model.ModeOTC)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCalculateQuote_OTCNeverWorseThanLiquid(t *testing.T) {
	e := testEngine()

	for _, amount := range []string{"0.001", "0.1", "0.39", "0.4", "1", "4", "20", "100"} {
		liquid, err := e.CalculateQuote(context.Background(), amount, model.TokenETH, model.ModeLiquid)
		require.NoError(t, err, "amount=%s", amount)
		otc, err := e.CalculateQuote(context.Background(), amount, model.TokenETH, model.ModeOTC)
		require.NoError(t, err, "amount=%s", amount)

		liquidOut, _ := decimal.NewFromString(liquid.OutputAmount)
		otcOut, _ := decimal.NewFromString(otc.OutputAmount)
		assert.True(t, otcOut.GreaterThanOrEqual(liquidOut),
			"amount=%s: otc %s < liquid %s", amount, otcOut, liquidOut)

		// Strictly better once the USD value reaches the first tier.
		if liquid.InputUsdValue.GreaterThanOrEqual(decimal.NewFromInt(1000)) {
			assert.True(t, otcOut.GreaterThan(liquidOut),
				"amount=%s: expected strict improvement", amount)
		}
	}
}

func TestCalculateQuote_SolanaWrappedStablecoinNormalization(t *testing.T) {
	e := testEngine()

	wrapped, err := e.CalculateQuote(context.Background(), "100", model.TokenUSDCSol, model.ModeLiquid)
	require.NoError(t, err)
	mainnet, err := e.CalculateQuote(context.Background(), "100", model.TokenUSDC, model.ModeLiquid)
	require.NoError(t, err)

	assert.True(t, wrapped.TokenPrice.Equal(mainnet.TokenPrice))
	assert.Equal(t, mainnet.OutputAmount, wrapped.OutputAmount)
	// Display keeps the caller's symbol
	assert.Equal(t, model.TokenUSDCSol, wrapped.InputToken)
}

func TestTokenPrice_Normalization(t *testing.T) {
	e := testEngine()

	p, err := e.TokenPrice(context.Background(), model.TokenUSDTSol)
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.NewFromInt(1)))
}

func TestCalculateReverseQuote_LiquidRoundTrip(t *testing.T) {
	e := testEngine()

	// Forward of 4 ETH liquid yields 9970 CIRX; the inverse must recover 4 ETH.
	rq, err := e.CalculateReverseQuote(context.Background(), "9970", model.TokenETH, model.ModeLiquid)
	require.NoError(t, err)
	require.NotNil(t, rq)

	assert.True(t, rq.InputAmount.Equal(decimal.NewFromInt(4)), "inputAmount=%s", rq.InputAmount)
	require.NotNil(t, rq.Forward)
	assert.Equal(t, "9970.000000", rq.Forward.OutputAmount)
}

func TestCalculateReverseQuote_OTCRoundTrip(t *testing.T) {
	e := testEngine()

	rq, err := e.CalculateReverseQuote(context.Background(), "10783.8", model.TokenETH, model.ModeOTC)
	require.NoError(t, err)
	require.NotNil(t, rq)

	assert.EqualValues(t, 8, rq.DiscountPercent)
	assert.True(t, rq.InputAmount.Equal(decimal.NewFromInt(4)), "inputAmount=%s", rq.InputAmount)

	// The embedded forward quote must agree with the desired output.
	require.NotNil(t, rq.Forward)
	forwardOut, err := decimal.NewFromString(rq.Forward.OutputAmount)
	require.NoError(t, err)
	diff := forwardOut.Sub(rq.OutputAmount).Abs()
	assert.True(t, diff.LessThan(decimal.NewFromFloat(0.000001)),
		"forward %s vs desired %s", forwardOut, rq.OutputAmount)
}

func TestCalculateReverseQuote_RejectsMalformed(t *testing.T) {
	e := testEngine()
	for _, input := range []string{"", "0", "-1", "junk"} {
		rq, err := e.CalculateReverseQuote(context.Background(), input, model.TokenETH, model.ModeOTC)
		assert.Nil(t, rq, "input=%s", input)
		assert.ErrorIs(t, err, ErrInvalidInput, "input=%s", input)
	}
}

func TestValidateSwap_AllRulesCollected(t *testing.T) {
	e := testEngine()

	v := e.ValidateSwap(context.Background(), "-1", "DOGE", "nonsense", false)
	assert.False(t, v.IsValid)
	assert.ElementsMatch(t, []string{
		"Invalid amount",
		"Unsupported token",
		"Invalid recipient address",
	}, v.Errors)
}

func TestValidateSwap_Cases(t *testing.T) {
	e := testEngine()
	goodAddr := "0x1234567890abcdef1234567890abcdef12345678"

	tests := []struct {
		name      string
		amount    string
		token     string
		recipient string
		connected bool
		wantErrs  []string
	}{
		{
			name:   "valid connected swap",
			amount: "1", token: "ETH", connected: true,
		},
		{
			name:   "valid disconnected swap with recipient",
			amount: "1", token: "ETH", recipient: goodAddr,
		},
		{
			name:   "recipient required when disconnected",
			amount: "1", token: "ETH",
			wantErrs: []string{"Recipient address required"},
		},
		{
			name:   "bad recipient format",
			amount: "1", token: "ETH", recipient: "0x123", connected: true,
			wantErrs: []string{"Invalid recipient address"},
		},
		{
			name:   "below ten dollar minimum",
			amount: "5", token: "USDC", connected: true,
			wantErrs: []string{"Minimum swap amount is $10"},
		},
		{
			name:   "exactly ten dollars passes",
			amount: "10", token: "USDC", connected: true,
		},
		{
			name:   "unknown token",
			amount: "1", token: "SHIB", connected: true,
			wantErrs: []string{"Unsupported token"},
		},
		{
			name:   "zero amount",
			amount: "0", token: "ETH", connected: true,
			wantErrs: []string{"Invalid amount"},
		},
		{
			name:   "lowercase token accepted",
			amount: "1", token: "eth", connected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := e.ValidateSwap(context.Background(), tt.amount, tt.token, tt.recipient, tt.connected)
			if len(tt.wantErrs) == 0 {
				assert.True(t, v.IsValid, "errors: %v", v.Errors)
				assert.Empty(t, v.Errors)
				return
			}
			assert.False(t, v.IsValid)
			assert.ElementsMatch(t, tt.wantErrs, v.Errors)
		})
	}
}

func TestQualifiesForOTC(t *testing.T) {
	e := testEngine()
	ctx := context.Background()

	assert.False(t, e.QualifiesForOTC(ctx, "0.39", model.TokenETH)) // $975
	assert.True(t, e.QualifiesForOTC(ctx, "0.4", model.TokenETH))   // $1000 exactly
	assert.True(t, e.QualifiesForOTC(ctx, "1000", model.TokenUSDC))
	assert.False(t, e.QualifiesForOTC(ctx, "junk", model.TokenETH))
}

func TestMaxSpendableAmount(t *testing.T) {
	assert.Equal(t, "0", MaxSpendableAmount("", model.TokenETH))
	assert.Equal(t, "0", MaxSpendableAmount("junk", model.TokenETH))
	assert.Equal(t, "0", MaxSpendableAmount("-5", model.TokenETH))
	assert.Equal(t, "0", MaxSpendableAmount("0.0005", model.TokenETH)) // below gas reserve
	assert.Equal(t, "0.999", MaxSpendableAmount("1", model.TokenETH))
	assert.Equal(t, "2.499", MaxSpendableAmount("2.5", model.TokenSOL))
	assert.Equal(t, "100", MaxSpendableAmount("100", model.TokenUSDC)) // no reserve for non-native
}

func TestEstimatedSettlement(t *testing.T) {
	assert.Equal(t, "Immediate (with 6-month vesting)", EstimatedSettlement(model.ModeOTC, "ethereum"))
	assert.Equal(t, "~15 seconds", EstimatedSettlement(model.ModeLiquid, "ethereum"))
	assert.Equal(t, "~1 second", EstimatedSettlement(model.ModeLiquid, "solana"))
	assert.Equal(t, "~1 minute", EstimatedSettlement(model.ModeLiquid, "unknown"))
}

func TestIsNoQuote(t *testing.T) {
	for _, err := range []error{ErrInvalidInput, ErrUnsupportedToken, ErrPriceUnavailable, ErrOutOfRange} {
		assert.True(t, IsNoQuote(err))
	}
	assert.False(t, IsNoQuote(errors.New("redis down")))
	assert.False(t, IsNoQuote(nil))
}
