package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/metrics"
)

// Handler returns the /metrics scrape handler for the global registry.
// When metrics are disabled the handler answers 404.
func Handler() http.Handler {
	reg := metrics.GetRegistry()
	if reg == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics disabled", http.StatusNotFound)
		})
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
