package api

import (
	"net/http"

	"github.com/bher20/pricefeed/internal/feed"
	"github.com/bher20/pricefeed/internal/metrics"
)

// handleRefresh triggers an immediate bulk refresh for both market classes.
// The fetches run asynchronously; the endpoint acknowledges and returns.
func handleRefresh(f *feed.Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		labelsPath := "/refresh"
		metrics.RequestsTotal.WithLabelValues(labelsPath).Inc()

		if r.Method != http.MethodPost {
			metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "405").Inc()
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		f.Refresh()

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("refresh scheduled"))
	}
}
