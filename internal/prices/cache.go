package prices

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/circular-protocol/otc-gateway/internal/metrics"
	"github.com/circular-protocol/otc-gateway/pkg/eventbus"
	"github.com/circular-protocol/otc-gateway/pkg/model"
)

// SpotSource fetches USD spot prices for a set of token symbols. Any
// transport is acceptable; a failed or partial fetch is an error.
type SpotSource interface {
	Name() string
	FetchSpotPrices(ctx context.Context, symbols []model.Token) (map[model.Token]decimal.Decimal, error)
}

// fetchSymbols is the fixed set priced by the upstream source. CIRX is
// the platform's own token being sold; it is a constant, never
// market-priced.
var fetchSymbols = []model.Token{model.TokenETH, model.TokenSOL, model.TokenUSDC, model.TokenUSDT}

var cirxPrice = decimal.NewFromInt(1)

// fallbackPrices are the conservative defaults used whenever the upstream
// source fails. A failed refresh degrades, it never propagates.
var fallbackPrices = map[model.Token]decimal.Decimal{
	model.TokenETH:  decimal.NewFromInt(2500),
	model.TokenSOL:  decimal.NewFromInt(100),
	model.TokenUSDC: decimal.NewFromInt(1),
	model.TokenUSDT: decimal.NewFromInt(1),
	model.TokenCIRX: decimal.NewFromInt(1),
}

// Config tunes the cache refresh policy.
type Config struct {
	RefreshInterval time.Duration // snapshot TTL; default 30s
	FetchTimeout    time.Duration // bound on one upstream call; default 5s
	Clock           func() time.Time
}

// Cache owns the single process-wide price snapshot. Reads within the
// refresh interval are served as-is; stale reads trigger a refresh, with
// concurrent refreshes collapsed into one in-flight fetch. Snapshots are
// replaced wholesale, never merged per key.
type Cache struct {
	logger          *zap.Logger
	source          SpotSource
	bus             *eventbus.Bus
	refreshInterval time.Duration
	fetchTimeout    time.Duration
	now             func() time.Time

	mu        sync.RWMutex
	snap      model.PriceSnapshot
	lastFetch time.Time

	group singleflight.Group
}

// New creates a price cache around the given source. bus may be nil.
func New(logger *zap.Logger, source SpotSource, bus *eventbus.Bus, cfg Config) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Cache{
		logger:          logger,
		source:          source,
		bus:             bus,
		refreshInterval: cfg.RefreshInterval,
		fetchTimeout:    cfg.FetchTimeout,
		now:             cfg.Clock,
		snap:            model.PriceSnapshot{Source: model.SourceLoading},
	}
}

// GetPrices returns the current snapshot, refreshing it first when it is
// older than the refresh interval. It never returns an error: a failed
// fetch yields the fallback snapshot.
func (c *Cache) GetPrices(ctx context.Context) model.PriceSnapshot {
	c.mu.RLock()
	if c.snap.Source != model.SourceLoading && c.now().Sub(c.lastFetch) < c.refreshInterval {
		snap := c.snap
		c.mu.RUnlock()
		metrics.PriceCacheAccess.WithLabelValues("hit").Inc()
		return snap
	}
	c.mu.RUnlock()

	metrics.PriceCacheAccess.WithLabelValues("refresh").Inc()
	v, _, _ := c.group.Do("refresh", func() (any, error) {
		return c.refresh(), nil
	})
	return v.(model.PriceSnapshot)
}

// ForceRefresh refreshes regardless of snapshot age.
func (c *Cache) ForceRefresh(ctx context.Context) model.PriceSnapshot {
	c.mu.Lock()
	c.lastFetch = time.Time{}
	c.mu.Unlock()
	return c.GetPrices(ctx)
}

// Info returns a diagnostic view of the cache state.
func (c *Cache) Info() model.CacheInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := model.CacheInfo{
		HasCache: c.snap.Source != model.SourceLoading,
		Source:   c.snap.Source,
	}
	if !c.lastFetch.IsZero() {
		info.Age = c.now().Sub(c.lastFetch)
	}
	info.IsStale = !info.HasCache || info.Age > c.refreshInterval
	return info
}

// refresh fetches upstream and installs a new snapshot. The fetch runs on
// its own deadline, detached from any single caller's context, because
// the result is shared by every caller collapsed into this flight.
func (c *Cache) refresh() model.PriceSnapshot {
	fetchCtx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancel()

	start := time.Now()
	fetched, err := c.source.FetchSpotPrices(fetchCtx, fetchSymbols)
	metrics.PriceFetchDuration.Observe(time.Since(start).Seconds())

	now := c.now()
	snap := model.PriceSnapshot{FetchedAt: now}

	if err != nil {
		c.logger.Warn("prices.fetch_failed_using_fallback",
			zap.String("source", c.source.Name()),
			zap.Error(err))
		metrics.PriceFetchTotal.WithLabelValues("fallback").Inc()
		metrics.IncError("prices", "fetch_failed")

		snap.Source = model.SourceFallback
		snap.Prices = make(map[model.Token]decimal.Decimal, len(fallbackPrices))
		for token, price := range fallbackPrices {
			snap.Prices[token] = price
		}
	} else {
		metrics.PriceFetchTotal.WithLabelValues("live").Inc()

		snap.Source = model.SourceLive
		snap.Prices = make(map[model.Token]decimal.Decimal, len(fetchSymbols)+1)
		for _, token := range fetchSymbols {
			price, ok := fetched[token]
			if !ok {
				price = missingDefault(token)
			}
			snap.Prices[token] = price
		}
		snap.Prices[model.TokenCIRX] = cirxPrice

		c.logger.Info("prices.snapshot_updated",
			zap.String("source", c.source.Name()),
			zap.Int("symbols", len(snap.Prices)))
	}

	c.mu.Lock()
	c.snap = snap
	c.lastFetch = now
	c.mu.Unlock()

	metrics.LastPriceRefresh.Set(float64(now.Unix()))

	if c.bus != nil {
		c.bus.Publish(eventbus.TopicPricesUpdated, snap)
	}
	return snap
}

// missingDefault is the safe constant for a symbol the source did not
// return: stablecoins assume parity, everything else stays unpriced.
func missingDefault(token model.Token) decimal.Decimal {
	switch token {
	case model.TokenUSDC, model.TokenUSDT:
		return decimal.NewFromInt(1)
	default:
		return decimal.Zero
	}
}
