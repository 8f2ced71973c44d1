package api

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// withRequestID assigns every request an X-Request-ID (honoring one supplied
// by the client) and logs method, path, id and duration.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s request_id=%s duration=%s", r.Method, r.URL.Path, id, time.Since(start))
	})
}
