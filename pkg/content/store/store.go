// Package store defines the physical blob store contract shared by the
// filesystem and S3 backends.
//
// Blobs are addressed by the lowercase hex SHA-256 of their bytes. The
// store is dumb on purpose: it moves bytes for a key and knows nothing
// about reference counts, ownership or the virtual hierarchy.
package store

import (
	"context"
	"errors"
	"io"
)

// ErrStoreClosed is returned for operations on a closed store.
var ErrStoreClosed = errors.New("blob store is closed")

// ErrNotFound is returned when no blob exists for a key.
var ErrNotFound = errors.New("blob not present in store")

// BlobStore moves physical bytes for content-addressed keys.
type BlobStore interface {
	// Write streams a blob into the store. Writing a key that already
	// exists is a no-op success: identical content has identical bytes.
	Write(ctx context.Context, hash string, r io.Reader) (int64, error)

	// Open returns a reader over a blob. The caller closes it.
	Open(ctx context.Context, hash string) (io.ReadCloser, error)

	// Exists reports whether a blob is present.
	Exists(ctx context.Context, hash string) (bool, error)

	// Remove deletes a blob's bytes. Removing an absent key is a no-op.
	Remove(ctx context.Context, hash string) error

	// Close releases backend resources.
	Close() error
}

// BlobKey shards a content hash into the two-level fan-out layout
// ("ab/cd/abcd...") used by both backends, keeping any single directory
// or key prefix from growing unbounded.
func BlobKey(hash string) string {
	if len(hash) < 4 {
		return hash
	}
	return hash[0:2] + "/" + hash[2:4] + "/" + hash
}
