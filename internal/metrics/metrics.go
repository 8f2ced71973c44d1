package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricefeed_fetches_total",
			Help: "Total number of provider fetches per provider and scope",
		},
		[]string{"provider", "scope"},
	)

	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricefeed_fetch_errors_total",
			Help: "Total number of failed provider fetches per provider and scope",
		},
		[]string{"provider", "scope"},
	)

	FetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricefeed_fetch_duration_seconds",
			Help:    "Provider fetch duration in seconds per provider and scope",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "scope"},
	)

	PriceAppliesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricefeed_price_applies_total",
			Help: "Total number of cache-apply passes over the current selection",
		},
	)

	PriceFaultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricefeed_price_faults_total",
			Help: "Total number of faults reported to the subscriber per reason",
		},
		[]string{"reason"},
	)

	LastPrice = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pricefeed_last_price",
			Help: "Latest cached quote per currency and quote type",
		},
		[]string{"currency", "quote"},
	)

	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricefeed_cache_size",
			Help: "Number of currencies with a cached price snapshot",
		},
	)
)

// ObserveFetch records duration and outcome of a single provider fetch.
func ObserveFetch(provider, scope string, startedAt time.Time, err error) {
	FetchesTotal.WithLabelValues(provider, scope).Inc()
	FetchDurationSeconds.WithLabelValues(provider, scope).Observe(time.Since(startedAt).Seconds())
	if err != nil {
		FetchErrorsTotal.WithLabelValues(provider, scope).Inc()
	}
}

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricefeed_requests_total",
			Help: "Total number of HTTP requests per path",
		},
		[]string{"path"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricefeed_request_duration_seconds",
			Help:    "HTTP request duration in seconds per path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricefeed_request_errors_total",
			Help: "Total number of HTTP error responses per path and code",
		},
		[]string{"path", "code"},
	)
)
