package models

import "errors"

// Domain errors for catalog, content and share operations. API handlers
// map these onto problem responses; everything else wraps them with
// context via fmt.Errorf("%w").
var (
	// Entry errors
	ErrEntryNotFound        = errors.New("entry not found")
	ErrDuplicateEntry       = errors.New("an entry with this name already exists")
	ErrRestoreConflict      = errors.New("an active entry with this name exists at the original path")
	ErrNotTrashed           = errors.New("entry is not in the trash")
	ErrUnsupportedOperation = errors.New("operation not supported for directories")

	// Blob errors
	ErrBlobNotFound       = errors.New("blob not found")
	ErrCorruptedReference = errors.New("catalog references a missing blob")
	ErrIntegrity          = errors.New("content hash mismatch")

	// Share errors
	ErrShareNotFound  = errors.New("share link not found")
	ErrShareExists    = errors.New("share token already in use")
	ErrShareExpired   = errors.New("share link has expired")
	ErrShareExhausted = errors.New("share link download limit reached")

	// Concurrency and resource errors
	ErrConcurrentModification = errors.New("folder changed during operation")
	ErrTimeout                = errors.New("storage operation timed out")
	ErrQuotaExceeded          = errors.New("storage quota exceeded")
	ErrEntryTooLarge          = errors.New("file exceeds the maximum upload size")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("authentication required")
)
