package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bher20/pricefeed/internal/api/swagger"
	"github.com/bher20/pricefeed/internal/auth"
	"github.com/bher20/pricefeed/internal/feed"
	"github.com/bher20/pricefeed/internal/market"
	"github.com/bher20/pricefeed/internal/metrics"
)

// NewMux constructs the HTTP mux, wiring in the feed, auth, metrics, docs and
// health endpoints.
func NewMux(f *feed.Feed, authSvc *auth.Service) http.Handler {
	mux := http.NewServeMux()

	// Metrics endpoint.
	mux.Handle("/metrics", promhttp.Handler())

	// Health / readiness / liveness. Ready once at least one snapshot is
	// cached, so consumers don't read an empty feed.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if f.CacheLen() == 0 {
			http.Error(w, "no prices cached yet", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// Price cache pass-through.
	mux.Handle("/prices/", authSvc.RequirePermission("prices", "read", handlePrices(f)))

	// Selection state and mutation.
	mux.Handle("/selection", authSvc.RequirePermission("selection", "read", handleGetSelection(f)))
	mux.Handle("/selection/currency", authSvc.RequirePermission("selection", "write", handleSetCurrency(f)))
	mux.Handle("/selection/type", authSvc.RequirePermission("selection", "write", handleSetPriceType(f)))

	// Out-of-band refresh for operators and cron jobs.
	mux.Handle("/refresh", authSvc.RequirePermission("prices", "refresh", handleRefresh(f)))

	// API docs.
	mux.Handle("/docs/", http.StripPrefix("/docs", swagger.Handler()))

	return withRequestID(authSvc.Middleware(mux))
}

// handlePrices serves GET /prices/{CODE} straight from the cache.
func handlePrices(f *feed.Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		labelsPath := "/prices"
		defer func() {
			metrics.RequestDurationSeconds.WithLabelValues(labelsPath).Observe(time.Since(start).Seconds())
		}()
		metrics.RequestsTotal.WithLabelValues(labelsPath).Inc()

		if r.Method != http.MethodGet {
			metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "405").Inc()
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		code := strings.TrimPrefix(r.URL.Path, "/prices/")
		if code == "" || strings.Contains(code, "/") {
			metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "404").Inc()
			http.NotFound(w, r)
			return
		}

		price, ok := f.GetPrice(code)
		if !ok {
			metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "404").Inc()
			http.Error(w, "no price for currency", http.StatusNotFound)
			return
		}

		writeJSON(w, labelsPath, price)
	}
}

// selectionResponse mirrors the feed's observable selection state.
type selectionResponse struct {
	CurrencyCode string `json:"currencyCode"`
	PriceType    string `json:"priceType"`
	UpdateCount  int64  `json:"updateCount"`
}

func handleGetSelection(f *feed.Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		labelsPath := "/selection"
		metrics.RequestsTotal.WithLabelValues(labelsPath).Inc()

		if r.Method != http.MethodGet {
			metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "405").Inc()
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		writeJSON(w, labelsPath, selectionResponse{
			CurrencyCode: f.CurrencyCode(),
			PriceType:    f.PriceType().String(),
			UpdateCount:  f.UpdateCount(),
		})
	}
}

func handleSetCurrency(f *feed.Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		labelsPath := "/selection/currency"
		metrics.RequestsTotal.WithLabelValues(labelsPath).Inc()

		if r.Method != http.MethodPut && r.Method != http.MethodPost {
			metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "405").Inc()
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var body struct {
			CurrencyCode string `json:"currencyCode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.CurrencyCode) == "" {
			metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "400").Inc()
			http.Error(w, "invalid body, want {\"currencyCode\": \"...\"}", http.StatusBadRequest)
			return
		}

		f.SetCurrencyCode(body.CurrencyCode)

		writeJSON(w, labelsPath, selectionResponse{
			CurrencyCode: f.CurrencyCode(),
			PriceType:    f.PriceType().String(),
			UpdateCount:  f.UpdateCount(),
		})
	}
}

func handleSetPriceType(f *feed.Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		labelsPath := "/selection/type"
		metrics.RequestsTotal.WithLabelValues(labelsPath).Inc()

		if r.Method != http.MethodPut && r.Method != http.MethodPost {
			metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "405").Inc()
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var body struct {
			PriceType string `json:"priceType"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "400").Inc()
			http.Error(w, "invalid body, want {\"priceType\": \"ask|bid|last\"}", http.StatusBadRequest)
			return
		}

		t, err := market.ParsePriceType(body.PriceType)
		if err != nil {
			metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "400").Inc()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.SetPriceType(t)

		writeJSON(w, labelsPath, selectionResponse{
			CurrencyCode: f.CurrencyCode(),
			PriceType:    f.PriceType().String(),
			UpdateCount:  f.UpdateCount(),
		})
	}
}

func writeJSON(w http.ResponseWriter, labelsPath string, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response failed: %v", err)
		metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "500").Inc()
	}
}
