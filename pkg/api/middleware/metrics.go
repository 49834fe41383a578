package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/metrics"
)

// Metrics records request counts, durations and in-flight gauge for
// every route. A nil HTTPMetrics disables collection with no overhead.
func Metrics(m metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.RecordRequestStart()
			defer m.RecordRequestEnd()

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			// The route pattern is only known after routing, so the
			// label stays bounded even under path scanning.
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.RecordRequest(r.Method, route, ww.Status(), time.Since(start))
		})
	}
}
