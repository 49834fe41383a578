package logger

// Standard field keys for structured logging. Use these consistently so
// lines aggregate cleanly across the API, lifecycle and store layers.
const (
	// Request correlation
	KeyRequestID = "request_id" // chi request id
	KeyTraceID   = "trace_id"   // OpenTelemetry trace id

	// Catalog operations
	KeyOperation = "op"       // operation name: upload, rename, trash, ...
	KeyPath      = "path"     // virtual path
	KeyNewPath   = "new_path" // destination path for move
	KeyName      = "name"     // entry display name
	KeyEntryID   = "entry_id" // file entry id
	KeyHash      = "hash"     // blob content hash
	KeySize      = "size"     // byte size
	KeyMime      = "mime"     // mime type

	// Identity
	KeyOwner    = "owner"     // owner/user id
	KeyUsername = "username"  // login name
	KeyClientIP = "client_ip" // client address

	// Shares
	KeyToken = "token" // share token (log prefixes only, never full tokens)

	// Outcome
	KeyError      = "error"
	KeyStatus     = "status"
	KeyDurationMs = "duration_ms"
)
