package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/metrics"
)

// transferMetrics is the Prometheus implementation of
// metrics.TransferMetrics.
type transferMetrics struct {
	uploads          *prometheus.CounterVec
	uploadBytes      prometheus.Counter
	uploadDuration   prometheus.Histogram
	downloads        *prometheus.CounterVec
	downloadBytes    *prometheus.CounterVec
	downloadDuration *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
}

var transferDurationBuckets = []float64{
	0.01, // 10ms - small blobs
	0.05, // 50ms
	0.1,  // 100ms
	0.5,  // 500ms
	1,    // 1s
	5,    // 5s
	30,   // 30s
	120,  // 2m - storage timeout ceiling
}

// NewTransferMetrics creates a Prometheus-backed TransferMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewTransferMetrics() metrics.TransferMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &transferMetrics{
		uploads: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloud40_uploads_total",
				Help: "Total number of uploads by dedup outcome",
			},
			[]string{"deduplicated"},
		),
		uploadBytes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "cloud40_upload_bytes_total",
				Help: "Total logical bytes accepted through uploads",
			},
		),
		uploadDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cloud40_upload_duration_seconds",
				Help:    "Upload duration in seconds",
				Buckets: transferDurationBuckets,
			},
		),
		downloads: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloud40_downloads_total",
				Help: "Total number of downloads by kind",
			},
			[]string{"kind"},
		),
		downloadBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloud40_download_bytes_total",
				Help: "Total bytes served through downloads by kind",
			},
			[]string{"kind"},
		),
		downloadDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cloud40_download_duration_seconds",
				Help:    "Download duration in seconds",
				Buckets: transferDurationBuckets,
			},
			[]string{"kind"},
		),
		cacheLookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloud40_preview_cache_lookups_total",
				Help: "Preview cache lookups by outcome",
			},
			[]string{"status"},
		),
	}
}

func (m *transferMetrics) RecordUpload(bytes int64, deduplicated bool, duration time.Duration) {
	label := "false"
	if deduplicated {
		label = "true"
	}
	m.uploads.WithLabelValues(label).Inc()
	m.uploadBytes.Add(float64(bytes))
	m.uploadDuration.Observe(duration.Seconds())
}

func (m *transferMetrics) RecordDownload(kind string, bytes int64, duration time.Duration) {
	m.downloads.WithLabelValues(kind).Inc()
	m.downloadBytes.WithLabelValues(kind).Add(float64(bytes))
	m.downloadDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *transferMetrics) RecordCacheLookup(hit bool) {
	status := "miss"
	if hit {
		status = "hit"
	}
	m.cacheLookups.WithLabelValues(status).Inc()
}
