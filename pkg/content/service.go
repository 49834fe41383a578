// Package content implements the content-addressed storage layer: bytes
// go in, a SHA-256 address comes out, identical bytes are stored once.
//
// The service spools incoming streams to a temporary file while hashing,
// then hands the spool to the configured backend (filesystem or S3) under
// the content address. Reference counting lives in the catalog; this
// layer only moves and inspects bytes.
package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
	"github.com/Dreamer0iQ/0x40-cloud/internal/telemetry"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/content/store"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
)

// Service fronts a blob store with hashing, integrity verification and
// mime sniffing.
type Service struct {
	blobs    store.BlobStore
	spoolDir string
	maxSize  int64
}

// Option configures a Service.
type Option func(*Service)

// WithSpoolDir sets the directory for upload spool files. Defaults to
// the system temporary directory.
func WithSpoolDir(dir string) Option {
	return func(s *Service) { s.spoolDir = dir }
}

// WithMaxSize caps the accepted upload size in bytes. Zero means no cap.
func WithMaxSize(max int64) Option {
	return func(s *Service) { s.maxSize = max }
}

// NewService creates a content service over a blob store.
func NewService(blobs store.BlobStore, opts ...Option) *Service {
	s := &Service{blobs: blobs}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutResult describes stored content.
type PutResult struct {
	Hash     string
	Size     int64
	MimeType string

	// Deduplicated is true when the bytes were already present and no
	// new physical storage was consumed.
	Deduplicated bool
}

// Staged is spooled content that has been hashed but not yet committed
// to the blob store. The spool outlives Stage so a caller can commit
// under its own synchronization and retry if the bytes vanish in a race.
type Staged struct {
	Hash     string
	Size     int64
	MimeType string

	svc       *Service
	spoolPath string
}

// Stage spools a byte stream, computes its SHA-256 address, verifies it
// against expectedHash when one is supplied and sniffs the mime type.
// No blob store interaction happens until Commit. The caller must call
// Discard when done.
func (s *Service) Stage(ctx context.Context, r io.Reader, expectedHash string) (*Staged, error) {
	spool, err := os.CreateTemp(s.spoolDir, "ingest-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create spool file: %w", err)
	}
	spoolPath := spool.Name()
	defer spool.Close()

	hasher := sha256.New()
	limited := r
	if s.maxSize > 0 {
		limited = io.LimitReader(r, s.maxSize+1)
	}

	size, err := io.Copy(io.MultiWriter(spool, hasher), limited)
	if err != nil {
		os.Remove(spoolPath)
		return nil, fmt.Errorf("failed to spool upload: %w", err)
	}
	if s.maxSize > 0 && size > s.maxSize {
		os.Remove(spoolPath)
		return nil, models.ErrEntryTooLarge
	}

	hash := hex.EncodeToString(hasher.Sum(nil))
	if expectedHash != "" && !strings.EqualFold(expectedHash, hash) {
		os.Remove(spoolPath)
		logger.WarnCtx(ctx, "upload hash mismatch",
			logger.KeyHash, hash, "expected", strings.ToLower(expectedHash))
		return nil, models.ErrIntegrity
	}

	mime, err := mimetype.DetectFile(spoolPath)
	if err != nil {
		os.Remove(spoolPath)
		return nil, fmt.Errorf("failed to detect content type: %w", err)
	}

	return &Staged{
		Hash:      hash,
		Size:      size,
		MimeType:  mime.String(),
		svc:       s,
		spoolPath: spoolPath,
	}, nil
}

// Commit ensures the staged bytes are physically present under their
// address, writing from the spool when they are not. Commit may be
// called again after a concurrent removal; the spool stays valid until
// Discard.
func (st *Staged) Commit(ctx context.Context) (deduplicated bool, err error) {
	ctx, span := telemetry.StartBlobSpan(ctx, "put", st.Hash, telemetry.BlobSize(st.Size))
	defer span.End()

	exists, err := st.svc.blobs.Exists(ctx, st.Hash)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}

	spool, err := os.Open(st.spoolPath)
	if err != nil {
		return false, fmt.Errorf("failed to reopen spool file: %w", err)
	}
	defer spool.Close()

	if _, err := st.svc.blobs.Write(ctx, st.Hash, spool); err != nil {
		return false, err
	}
	return false, nil
}

// Discard removes the spool file.
func (st *Staged) Discard() {
	os.Remove(st.spoolPath)
}

// Put ingests a byte stream in one shot: stage then commit. Callers that
// need the commit inside their own critical section use Stage directly.
func (s *Service) Put(ctx context.Context, r io.Reader, expectedHash string) (*PutResult, error) {
	staged, err := s.Stage(ctx, r, expectedHash)
	if err != nil {
		return nil, err
	}
	defer staged.Discard()

	dedup, err := staged.Commit(ctx)
	if err != nil {
		return nil, err
	}
	return &PutResult{Hash: staged.Hash, Size: staged.Size, MimeType: staged.MimeType, Deduplicated: dedup}, nil
}

// Open returns a reader over stored content.
func (s *Service) Open(ctx context.Context, hash string) (io.ReadCloser, error) {
	ctx, span := telemetry.StartBlobSpan(ctx, "get", hash)
	defer span.End()

	rc, err := s.blobs.Open(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.ErrBlobNotFound
		}
		return nil, err
	}
	return rc, nil
}

// Exists reports whether content is physically present.
func (s *Service) Exists(ctx context.Context, hash string) (bool, error) {
	return s.blobs.Exists(ctx, hash)
}

// Remove deletes the physical bytes for a hash. Callers only do this
// after the catalog confirms the last reference is gone.
func (s *Service) Remove(ctx context.Context, hash string) error {
	if err := s.blobs.Remove(ctx, hash); err != nil {
		logger.ErrorCtx(ctx, "failed to remove blob", logger.KeyHash, hash, logger.KeyError, err)
		return err
	}
	return nil
}

// Close releases the underlying blob store.
func (s *Service) Close() error {
	return s.blobs.Close()
}
