// Package fs provides a filesystem-backed blob store implementation.
package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/content/store"
)

// Config holds configuration for the filesystem blob store.
type Config struct {
	// BasePath is the root directory for blob storage. Blob keys are
	// stored as sharded paths relative to this directory.
	BasePath string

	// DirMode is the permission mode for created directories.
	// Default: 0755
	DirMode os.FileMode

	// FileMode is the permission mode for created files.
	// Default: 0644
	FileMode os.FileMode
}

// Store is a filesystem-backed implementation of store.BlobStore.
type Store struct {
	mu       sync.RWMutex
	basePath string
	dirMode  os.FileMode
	fileMode os.FileMode
	closed   bool
}

// New creates a filesystem blob store rooted at cfg.BasePath, creating
// the directory if needed.
func New(cfg Config) (*Store, error) {
	if cfg.BasePath == "" {
		return nil, errors.New("base path is required")
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0644
	}

	if err := os.MkdirAll(cfg.BasePath, cfg.DirMode); err != nil {
		return nil, err
	}
	info, err := os.Stat(cfg.BasePath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("base path is not a directory")
	}

	return &Store{
		basePath: cfg.BasePath,
		dirMode:  cfg.DirMode,
		fileMode: cfg.FileMode,
	}, nil
}

// BasePath returns the root directory of the store. Physical disk stats
// are sampled against it.
func (s *Store) BasePath() string {
	return s.basePath
}

// blobPath returns the full filesystem path for a hash.
func (s *Store) blobPath(hash string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(store.BlobKey(hash)))
}

// Write streams a blob to disk. The bytes land in a temporary file first
// and are renamed into place, so readers never observe a partial blob.
func (s *Store) Write(ctx context.Context, hash string, r io.Reader) (int64, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return 0, store.ErrStoreClosed
	}
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	path := s.blobPath(hash)
	if info, err := os.Stat(path); err == nil {
		// Content-addressed: an existing blob already holds these bytes.
		return info.Size(), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), s.dirMode); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}
	if err := os.Chmod(tmpPath, s.fileMode); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}

	return n, nil
}

// Open returns a reader over a blob.
func (s *Store) Open(ctx context.Context, hash string) (io.ReadCloser, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, store.ErrStoreClosed
	}
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.blobPath(hash))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Exists reports whether a blob is present on disk.
func (s *Store) Exists(ctx context.Context, hash string) (bool, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return false, store.ErrStoreClosed
	}
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(s.blobPath(hash))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Remove deletes a blob's bytes and prunes emptied shard directories.
func (s *Store) Remove(ctx context.Context, hash string) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return store.ErrStoreClosed
	}
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	path := s.blobPath(hash)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	// Shard directories are cheap to recreate; removal failures here
	// only mean the directory is not empty.
	dir := filepath.Dir(path)
	for i := 0; i < 2 && dir != s.basePath; i++ {
		if err := os.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

// Close marks the store closed. Subsequent operations fail with
// store.ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
