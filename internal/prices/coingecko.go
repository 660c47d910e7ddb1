package prices

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/circular-protocol/otc-gateway/internal/httpclient"
	"github.com/circular-protocol/otc-gateway/internal/rate"
	"github.com/circular-protocol/otc-gateway/pkg/model"
)

// DefaultCoinGeckoBaseURL is the public simple-price API root.
const DefaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// coinIDs maps token symbols to CoinGecko coin ids.
var coinIDs = map[model.Token]string{
	model.TokenETH:  "ethereum",
	model.TokenSOL:  "solana",
	model.TokenUSDC: "usd-coin",
	model.TokenUSDT: "tether",
}

// CoinGecko fetches USD spot prices from the CoinGecko simple/price
// endpoint (free tier: 50 calls/minute).
type CoinGecko struct {
	logger  *zap.Logger
	baseURL string
	exec    *httpclient.Executor
}

// NewCoinGecko constructs a CoinGecko spot source. baseURL falls back to
// the public API when empty.
func NewCoinGecko(logger *zap.Logger, baseURL string, rateMgr *rate.Manager) *CoinGecko {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseURL == "" {
		baseURL = DefaultCoinGeckoBaseURL
	}
	httpClient := &http.Client{Timeout: 10 * time.Second}
	return &CoinGecko{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		exec:    httpclient.New(logger, rateMgr, httpClient, 2, "coingecko"),
	}
}

func (c *CoinGecko) Name() string { return "coingecko" }

// FetchSpotPrices fetches USD prices for the given symbols. Symbols with
// no CoinGecko id are skipped; symbols the API omits are simply absent
// from the result.
func (c *CoinGecko) FetchSpotPrices(ctx context.Context, symbols []model.Token) (map[model.Token]decimal.Decimal, error) {
	ids := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if id, ok := coinIDs[symbol]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no fetchable symbols in %v", symbols)
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.baseURL, url.QueryEscape(strings.Join(ids, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	var body map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := c.exec.DoJSON(ctx, req, &body); err != nil {
		return nil, fmt.Errorf("coingecko fetch: %w", err)
	}

	out := make(map[model.Token]decimal.Decimal, len(symbols))
	for _, symbol := range symbols {
		id, ok := coinIDs[symbol]
		if !ok {
			continue
		}
		if entry, ok := body[id]; ok && entry.USD > 0 {
			out[symbol] = decimal.NewFromFloat(entry.USD)
		}
	}
	return out, nil
}
