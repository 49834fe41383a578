package lifecycle

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
	"github.com/Dreamer0iQ/0x40-cloud/internal/telemetry"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/metrics"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
	vfspath "github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/path"
)

// Download opens an owned file for reading. Preview downloads of small
// blobs are served from and fed into the preview cache when one is
// attached.
func (s *Service) Download(ctx context.Context, ownerID, id string, preview bool) (io.ReadCloser, *models.FileEntry, error) {
	ctx, span := telemetry.StartLifecycleSpan(ctx, "download", ownerID, telemetry.EntryID(id))
	defer span.End()

	entry, err := s.catalog.GetEntry(ctx, ownerID, id)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, nil, err
	}
	if entry.State != models.StateActive {
		return nil, nil, models.ErrEntryNotFound
	}
	if entry.IsDir() || entry.ContentHash == nil {
		return nil, nil, models.ErrUnsupportedOperation
	}

	if !preview {
		s.activity.Touch(ctx, ownerID, entry.ID)
	}

	started := time.Now()
	rc, err := s.openContent(ctx, entry, preview)
	if err != nil {
		return nil, nil, err
	}
	if s.metrics != nil {
		kind := metrics.DownloadFile
		if preview {
			kind = metrics.DownloadPreview
		}
		s.metrics.RecordDownload(kind, entry.Size, time.Since(started))
	}
	return rc, entry, nil
}

// openContent opens a blob referenced by a catalog row. A missing blob
// here is catalog/store desync and surfaces as ErrCorruptedReference.
func (s *Service) openContent(ctx context.Context, entry *models.FileEntry, preview bool) (io.ReadCloser, error) {
	hash := *entry.ContentHash

	if preview && s.previews != nil {
		data, ok := s.previews.Get(hash)
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(ok)
		}
		if ok {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}

	openCtx, cancel := s.storageCtx(ctx)
	rc, err := s.content.Open(openCtx, hash)
	if err != nil {
		cancel()
		if errors.Is(err, models.ErrBlobNotFound) {
			logger.ErrorCtx(ctx, "catalog references missing blob",
				logger.KeyEntryID, entry.ID, logger.KeyHash, hash)
			return nil, models.ErrCorruptedReference
		}
		return nil, mapTimeout(err)
	}

	if preview && s.previews != nil {
		// Buffer small previews through the cache; oversized ones are
		// skipped by the cache itself.
		data, err := io.ReadAll(rc)
		rc.Close()
		cancel()
		if err != nil {
			return nil, mapTimeout(err)
		}
		s.previews.Set(hash, data)
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	return &cancelingReadCloser{rc: rc, cancel: cancel}, nil
}

// OpenShared opens the file behind a resolved share link for streaming.
func (s *Service) OpenShared(ctx context.Context, link *models.ShareLink) (io.ReadCloser, error) {
	entry := link.File
	if entry.ContentHash == nil || entry.State != models.StateActive {
		return nil, models.ErrEntryNotFound
	}
	started := time.Now()
	rc, err := s.openContent(ctx, &entry, false)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordDownload(metrics.DownloadShared, entry.Size, time.Since(started))
	}
	return rc, nil
}

// cancelingReadCloser ties a storage context to the life of the reader.
type cancelingReadCloser struct {
	rc     io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelingReadCloser) Read(p []byte) (int, error) {
	return c.rc.Read(p)
}

func (c *cancelingReadCloser) Close() error {
	err := c.rc.Close()
	c.cancel()
	return err
}

// ArchiveFolder streams a zip of every active file at or under a
// directory. The subtree generation is sampled before and after the
// archive is written; any concurrent mutation of the folder fails the
// archive with ErrConcurrentModification instead of silently producing
// an inconsistent zip. No locks are held while streaming.
func (s *Service) ArchiveFolder(ctx context.Context, ownerID, dirPath string, w io.Writer) error {
	dirPath = vfspath.Normalize(dirPath)
	ctx, span := telemetry.StartLifecycleSpan(ctx, "archive", ownerID, telemetry.Path(dirPath))
	defer span.End()

	exists, err := s.catalog.FolderExists(ctx, ownerID, dirPath)
	if err != nil {
		return err
	}
	if !exists {
		return models.ErrEntryNotFound
	}

	before, err := s.catalog.SubtreeVersion(ctx, ownerID, dirPath)
	if err != nil {
		return err
	}

	entries, err := s.catalog.SnapshotFolder(ctx, ownerID, dirPath)
	if err != nil {
		return err
	}

	started := time.Now()
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	for _, entry := range entries {
		if err := s.writeArchiveEntry(ctx, zw, dirPath, entry); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	after, err := s.catalog.SubtreeVersion(ctx, ownerID, dirPath)
	if err != nil {
		return err
	}
	if after != before {
		return models.ErrConcurrentModification
	}

	if s.metrics != nil {
		s.metrics.RecordDownload(metrics.DownloadArchive, cw.n, time.Since(started))
	}
	logger.InfoCtx(ctx, "folder archived", logger.KeyPath, dirPath, "entries", len(entries))
	return nil
}

// countingWriter tracks bytes written to the archive stream.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (s *Service) writeArchiveEntry(ctx context.Context, zw *zip.Writer, dirPath string, entry *models.FileEntry) error {
	if entry.ContentHash == nil {
		return nil
	}

	rel := strings.TrimPrefix(entry.VirtualPath, dirPath) + entry.OriginalName

	header := &zip.FileHeader{
		Name:     rel,
		Method:   zip.Deflate,
		Modified: entry.UpdatedAt,
	}
	header.SetMode(0644)

	fw, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	rc, err := s.openContent(ctx, entry, false)
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, rc)
	rc.Close()
	if err != nil {
		return mapTimeout(err)
	}
	return nil
}
