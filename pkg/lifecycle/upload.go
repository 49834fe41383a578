package lifecycle

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
	"github.com/Dreamer0iQ/0x40-cloud/internal/telemetry"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
	vfspath "github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/path"
)

// UploadRequest describes one incoming file.
type UploadRequest struct {
	// Name is the client-supplied file name. Any path components are
	// stripped; folder uploads pass the directory part via Path.
	Name string

	// Path is the target virtual directory.
	Path string

	// Content is the byte stream. The caller keeps ownership.
	Content io.Reader

	// ExpectedHash optionally carries a client-side SHA-256. The server
	// recomputes and rejects mismatches.
	ExpectedHash string
}

// validateName rejects names the catalog cannot hold.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > 255 {
		return fmt.Errorf("name exceeds 255 characters")
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("name must not contain path separators")
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("name contains control characters")
		}
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid name")
	}
	return nil
}

// Upload ingests one file: the stream is spooled and hashed first, then
// the physical commit and the catalog row commit run under the per-hash
// lock, so a concurrent release of the same hash can never strand a
// committed row. When the catalog commit fails the staged blob is
// removed again if nothing references it, so failed uploads never leak
// storage.
func (s *Service) Upload(ctx context.Context, user *models.User, req UploadRequest) (*models.FileEntry, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	dirPath := vfspath.Normalize(req.Path)
	started := time.Now()

	ctx, span := telemetry.StartLifecycleSpan(ctx, "upload", user.ID, telemetry.Path(dirPath))
	defer span.End()

	putCtx, cancel := s.storageCtx(ctx)
	defer cancel()
	staged, err := s.content.Stage(putCtx, req.Content, req.ExpectedHash)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, mapTimeout(err)
	}
	defer staged.Discard()

	if err := s.quota.CheckUpload(ctx, user, staged.Size); err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	entry := &models.FileEntry{
		OwnerID:      user.ID,
		OriginalName: req.Name,
		VirtualPath:  dirPath,
		MimeType:     staged.MimeType,
		Size:         staged.Size,
		ContentHash:  &staged.Hash,
	}

	unlockBlob := s.blobLocks.Lock(staged.Hash)
	deduplicated, err := staged.Commit(putCtx)
	if err != nil {
		unlockBlob()
		telemetry.RecordError(ctx, err)
		return nil, mapTimeout(err)
	}

	unlockDir := s.dirLocks.Lock(dirKey(user.ID, dirPath))
	err = s.catalog.CreateEntry(ctx, entry)
	unlockDir()
	if err != nil {
		s.removeIfUnreferenced(ctx, staged.Hash)
		unlockBlob()
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	unlockBlob()

	span.SetAttributes(
		telemetry.BlobHash(staged.Hash),
		telemetry.BlobSize(staged.Size),
		telemetry.Deduplicated(deduplicated),
	)

	s.activity.Touch(ctx, user.ID, entry.ID)
	if s.metrics != nil {
		s.metrics.RecordUpload(staged.Size, deduplicated, time.Since(started))
	}
	logger.InfoCtx(ctx, "file uploaded",
		logger.KeyEntryID, entry.ID,
		logger.KeyName, entry.OriginalName,
		logger.KeyPath, dirPath,
		logger.KeySize, entry.Size,
		logger.KeyHash, staged.Hash,
		"deduplicated", deduplicated)
	return entry, nil
}

// releaseStaged removes committed bytes that ended up unreferenced,
// serialized against uploads of the same hash.
func (s *Service) releaseStaged(ctx context.Context, hash string) {
	unlock := s.blobLocks.Lock(hash)
	defer unlock()
	s.removeIfUnreferenced(ctx, hash)
}

// removeIfUnreferenced deletes the physical bytes when the ledger holds
// no reference. Caller must hold the blob lock for the hash, so the
// ledger check and the removal act as one step.
func (s *Service) removeIfUnreferenced(ctx context.Context, hash string) {
	refs, err := s.catalog.BlobRefCount(ctx, hash)
	if err != nil || refs > 0 {
		return
	}
	rmCtx, cancel := s.storageCtx(ctx)
	defer cancel()
	if err := s.content.Remove(rmCtx, hash); err != nil {
		logger.WarnCtx(ctx, "failed to release staged blob", logger.KeyHash, hash, logger.KeyError, err)
	}
}

// UploadResult is the outcome of one item in a batch upload.
type UploadResult struct {
	Name  string
	Entry *models.FileEntry
	Err   error
}

// UploadBatch ingests multiple files, isolating failures: one bad file
// never rolls back its siblings. Results come back in request order.
func (s *Service) UploadBatch(ctx context.Context, user *models.User, reqs []UploadRequest) []UploadResult {
	results := make([]UploadResult, 0, len(reqs))
	for _, req := range reqs {
		entry, err := s.Upload(ctx, user, req)
		results = append(results, UploadResult{Name: req.Name, Entry: entry, Err: err})
	}
	return results
}

// CreateFolder inserts a directory marker. The folder must not already
// exist, whether as a marker row or inferred from nested files.
func (s *Service) CreateFolder(ctx context.Context, ownerID, parentPath, name string) (*models.FileEntry, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	parentPath = vfspath.Normalize(parentPath)

	entry := &models.FileEntry{
		OwnerID:      ownerID,
		OriginalName: name,
		VirtualPath:  parentPath,
		MimeType:     models.MimeDirectory,
	}

	unlock := s.dirLocks.Lock(dirKey(ownerID, parentPath))
	defer unlock()
	if err := s.catalog.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "folder created", logger.KeyName, name, logger.KeyPath, parentPath)
	return entry, nil
}
