package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/metrics"
)

// shareMetrics is the Prometheus implementation of metrics.ShareMetrics.
type shareMetrics struct {
	created  prometheus.Counter
	resolved *prometheus.CounterVec
}

// NewShareMetrics creates a Prometheus-backed ShareMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewShareMetrics() metrics.ShareMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &shareMetrics{
		created: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "cloud40_share_links_created_total",
				Help: "Total number of share links created",
			},
		),
		resolved: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloud40_share_resolutions_total",
				Help: "Public share link accesses by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *shareMetrics) RecordShareCreated() {
	m.created.Inc()
}

func (m *shareMetrics) RecordShareResolved(outcome string) {
	m.resolved.WithLabelValues(outcome).Inc()
}
