package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. HTTP keys follow OpenTelemetry semantic conventions;
// catalog and storage keys use "vfs." and "blob." prefixes.
const (
	AttrClientIP   = "client.ip"
	AttrHTTPMethod = "http.request.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.response.status_code"

	AttrOwnerID   = "vfs.owner_id"
	AttrEntryID   = "vfs.entry_id"
	AttrPath      = "vfs.path"
	AttrOperation = "vfs.operation"

	AttrBlobHash     = "blob.hash"
	AttrBlobSize     = "blob.size"
	AttrDeduplicated = "blob.deduplicated"
)

// ClientIP returns an attribute for the client IP address.
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// OwnerID returns an attribute for the entry owner.
func OwnerID(id string) attribute.KeyValue {
	return attribute.String(AttrOwnerID, id)
}

// EntryID returns an attribute for a catalog entry id.
func EntryID(id string) attribute.KeyValue {
	return attribute.String(AttrEntryID, id)
}

// Path returns an attribute for a virtual path.
func Path(p string) attribute.KeyValue {
	return attribute.String(AttrPath, p)
}

// BlobHash returns an attribute for a content hash.
func BlobHash(hash string) attribute.KeyValue {
	return attribute.String(AttrBlobHash, hash)
}

// BlobSize returns an attribute for a blob size in bytes.
func BlobSize(size int64) attribute.KeyValue {
	return attribute.Int64(AttrBlobSize, size)
}

// Deduplicated returns an attribute marking an upload that matched an
// existing blob.
func Deduplicated(dedup bool) attribute.KeyValue {
	return attribute.Bool(AttrDeduplicated, dedup)
}

// StartLifecycleSpan starts a span for a file lifecycle operation.
func StartLifecycleSpan(ctx context.Context, operation, ownerID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		attribute.String(AttrOperation, operation),
		OwnerID(ownerID),
	}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, "lifecycle."+operation, trace.WithAttributes(allAttrs...))
}

// StartBlobSpan starts a span for a blob store operation.
func StartBlobSpan(ctx context.Context, operation, hash string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{BlobHash(hash)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, "blob."+operation, trace.WithAttributes(allAttrs...))
}
