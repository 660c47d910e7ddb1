package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks quote calculations by mode and outcome.
	QuoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otc_quote_requests_total",
			Help: "Total number of quote calculations (by mode, direction and result).",
		},
		[]string{"mode", "direction", "result"}, // result = "issued" | "rejected"
	)

	// Tracks outbound price API fetches.
	PriceFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otc_price_fetch_total",
			Help: "Total number of spot price fetch attempts (by result).",
		},
		[]string{"result"}, // result = "live" | "fallback"
	)

	// Measures duration of spot price fetches.
	PriceFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "otc_price_fetch_duration_seconds",
			Help:    "Duration of spot price fetches in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
	)

	// Tracks price cache reads that were served without a refresh.
	PriceCacheAccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otc_price_cache_access_total",
			Help: "Number of price cache reads by result.",
		},
		[]string{"result"}, // hit | refresh
	)

	// Tracks NATS messages published by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages published.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nats_message_latency_seconds",
			Help:    "Time taken to publish NATS messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_errors_total",
			Help: "Count of gateway-level errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Gauges the last successful price refresh (seconds since epoch).
	LastPriceRefresh = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "otc_last_price_refresh_timestamp",
			Help: "Timestamp (unix seconds) of the last completed price refresh.",
		},
	)
)

// IncQuote records a quote calculation outcome.
func IncQuote(mode, direction, result string) {
	QuoteRequestsTotal.WithLabelValues(mode, direction, result).Inc()
}

// IncError records a component-level error.
func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

// IncNATSMessage records a publish attempt result for a subject.
func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

// ObserveDuration records elapsed time since start on a subject histogram.
func ObserveDuration(h *prometheus.HistogramVec, start time.Time, subject string) {
	h.WithLabelValues(subject).Observe(time.Since(start).Seconds())
}
