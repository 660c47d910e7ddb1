package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/circular-protocol/otc-gateway/internal/api"
	"github.com/circular-protocol/otc-gateway/internal/consumer"
	"github.com/circular-protocol/otc-gateway/internal/jobs"
	"github.com/circular-protocol/otc-gateway/internal/otc"
	"github.com/circular-protocol/otc-gateway/internal/prices"
	"github.com/circular-protocol/otc-gateway/internal/pricing"
	"github.com/circular-protocol/otc-gateway/internal/publisher"
	"github.com/circular-protocol/otc-gateway/internal/rate"
	"github.com/circular-protocol/otc-gateway/internal/store"
	"github.com/circular-protocol/otc-gateway/pkg/config"
	"github.com/circular-protocol/otc-gateway/pkg/eventbus"
	"github.com/circular-protocol/otc-gateway/pkg/logger"
	"github.com/circular-protocol/otc-gateway/pkg/model"
	"github.com/circular-protocol/otc-gateway/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	logg := logger.S()
	logg.Info("starting [otc-gateway]...")
	if cfg.DatabaseURL != "" {
		logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))
	}

	// --- Connect to NATS ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logg.Fatalw("failed to connect to NATS", "error", err)
	}

	// --- Publisher ---
	pub, err := publisher.New(nc, cfg.OutboundSubject, cfg.ServiceName)
	if err != nil {
		logg.Fatalw("failed to init publisher", "error", err)
	}

	// --- Store (Redis + optional Postgres history) ---
	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisDB, cfg.RedisPass, cfg.DatabaseURL, cfg.QuoteTTL, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- Quote history expiry sweeper (needs Postgres) ---
	var sweeper *jobs.ExpirySweeper
	if pg := st.(*store.HybridStore).PG; pg != nil {
		sweeper = jobs.NewExpirySweeper(logg.Desugar(), pg, pub, time.Minute)
		go sweeper.Start(ctx)
	}

	// --- Rate limiter for upstream price calls ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: 5, // CoinGecko free tier is tight
		Burst:             10,
	})

	// --- Price cache ---
	bus := eventbus.New()
	source := prices.NewCoinGecko(logg.Desugar(), cfg.PriceAPIBaseURL, rateMgr)
	priceCache := prices.New(logg.Desugar(), source, bus, prices.Config{
		RefreshInterval: cfg.PriceRefreshInterval,
		FetchTimeout:    cfg.PriceFetchTimeout,
	})

	// Forward refreshed snapshots to the bus subscribers on NATS
	bus.Subscribe(eventbus.TopicPricesUpdated, func(event any) {
		snap, ok := event.(model.PriceSnapshot)
		if !ok {
			return
		}
		if err := pub.PublishPricesUpdated(context.Background(), snap); err != nil {
			logg.Warnw("failed to publish price snapshot", "error", err)
		}
	})

	// --- Quote engine and service ---
	engine := pricing.NewEngine(priceCache, logg.Desugar())
	svc := otc.NewService(engine, st, pub, cfg.QuoteTTL, logg.Desugar())

	// --- RabbitMQ consumer for desk quote requests (optional) ---
	var cons *consumer.Consumer
	if cfg.AMQPURL != "" {
		cons, err = consumer.NewConsumer(cfg.AMQPURL, cfg.QuoteRequestQueue, svc, logg.Desugar())
		if err != nil {
			logg.Fatalw("failed to init RabbitMQ consumer", "error", err)
		}
		if err := cons.Start(ctx); err != nil {
			logg.Fatalw("failed to start RabbitMQ consumer", "error", err)
		}
	} else {
		logg.Warn("AMQP_URL not configured; desk quote request consumer disabled")
	}

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	handler := api.NewQuoteHandler(logg.Desugar(), svc, priceCache)
	api.RegisterRoutes(app, nc, st, handler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	// Warm the price cache so the first quote does not pay the fetch
	go priceCache.GetPrices(ctx)

	// --- Main process stays alive until interrupted ---
	logg.Infow("[otc-gateway] running",
		"nats", cfg.NATSURL,
		"env", cfg.Env,
		"price_refresh", cfg.PriceRefreshInterval,
		"quote_ttl", cfg.QuoteTTL)

	<-ctx.Done()
	logg.Info("shutting down [otc-gateway]...")

	if cons != nil {
		if err := cons.Close(); err != nil {
			logg.Warnw("consumer.close_failed", "error", err)
		}
	}
	if sweeper != nil {
		sweeper.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logg.Warnw("nats.drain_failed", "error", err)
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
	logger.Sync()
}
