package metrics

import "time"

// HTTPMetrics provides observability for the REST API.
//
// This interface is optional. Pass nil to disable metrics collection
// with zero overhead.
type HTTPMetrics interface {
	// RecordRequest records a completed HTTP request with its method,
	// matched route pattern, status code and duration.
	RecordRequest(method, route string, status int, duration time.Duration)

	// RecordRequestStart increments the in-flight request gauge.
	RecordRequestStart()

	// RecordRequestEnd decrements the in-flight request gauge.
	RecordRequestEnd()
}

// Download kinds accepted by TransferMetrics.RecordDownload.
const (
	DownloadFile    = "file"
	DownloadPreview = "preview"
	DownloadArchive = "archive"
	DownloadShared  = "shared"
)

// Share resolution outcomes accepted by ShareMetrics.RecordShareResolved.
const (
	ShareOutcomeOK        = "ok"
	ShareOutcomeExpired   = "expired"
	ShareOutcomeExhausted = "exhausted"
	ShareOutcomeNotFound  = "not_found"
)

// TransferMetrics provides observability for blob uploads and downloads.
//
// This interface is optional. Pass nil to disable metrics collection
// with zero overhead.
type TransferMetrics interface {
	// RecordUpload records a completed upload. Deduplicated uploads
	// matched an existing blob and wrote no new bytes.
	RecordUpload(bytes int64, deduplicated bool, duration time.Duration)

	// RecordDownload records a completed download. kind is "file",
	// "preview", "archive" or "shared".
	RecordDownload(kind string, bytes int64, duration time.Duration)

	// RecordCacheLookup records a preview cache lookup outcome.
	RecordCacheLookup(hit bool)
}

// ShareMetrics provides observability for public share links.
//
// This interface is optional. Pass nil to disable metrics collection
// with zero overhead.
type ShareMetrics interface {
	// RecordShareCreated increments the created share links counter.
	RecordShareCreated()

	// RecordShareResolved records a public share access. outcome is
	// "ok", "expired", "exhausted" or "not_found".
	RecordShareResolved(outcome string)
}
