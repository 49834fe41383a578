// Package quota computes per-user storage statistics and enforces the
// upload quota.
//
// Usage is logical: every catalog reference counts at its full size even
// when deduplication stores the bytes once. Physical figures come from
// the filesystem hosting the blob store and are absent for remote
// backends.
package quota

import (
	"context"

	"golang.org/x/sys/unix"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

// StorageStats is the per-user stats payload.
type StorageStats struct {
	TotalUsed int64 `json:"total_used"`
	ImageSize int64 `json:"image_size"`
	VideoSize int64 `json:"video_size"`
	DocSize   int64 `json:"doc_size"`
	OtherSize int64 `json:"other_size"`
	TrashSize int64 `json:"trash_size"`
	Limit     int64 `json:"limit"`

	// PhysicalTotal and PhysicalFree describe the filesystem hosting the
	// blob store. Zero when the content backend is remote.
	PhysicalTotal int64 `json:"physical_total"`
	PhysicalFree  int64 `json:"physical_free"`
}

// Service aggregates usage from the catalog and disk stats from the blob
// store's filesystem.
type Service struct {
	catalog *store.GORMStore

	// diskPath is the blob store root to sample physical stats from.
	// Empty for remote backends.
	diskPath string

	// defaultLimit is the per-user quota in bytes applied when the user
	// record carries no override.
	defaultLimit int64
}

// NewService creates a quota service. diskPath may be empty when the
// content backend has no local filesystem.
func NewService(catalog *store.GORMStore, diskPath string, defaultLimit int64) *Service {
	return &Service{
		catalog:      catalog,
		diskPath:     diskPath,
		defaultLimit: defaultLimit,
	}
}

// LimitFor resolves the quota for a user: the per-user override when set,
// the server default otherwise.
func (s *Service) LimitFor(user *models.User) int64 {
	if user != nil && user.QuotaBytes > 0 {
		return user.QuotaBytes
	}
	return s.defaultLimit
}

// Stats computes the owner's storage statistics.
func (s *Service) Stats(ctx context.Context, user *models.User) (*StorageStats, error) {
	totals, err := s.catalog.ComputeUsage(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	stats := &StorageStats{
		TotalUsed: totals.Total,
		ImageSize: totals.Image,
		VideoSize: totals.Video,
		DocSize:   totals.Doc,
		OtherSize: totals.Other,
		TrashSize: totals.Trash,
		Limit:     s.LimitFor(user),
	}

	if s.diskPath != "" {
		total, free, err := diskUsage(s.diskPath)
		if err == nil {
			stats.PhysicalTotal = total
			stats.PhysicalFree = free
		}
	}

	return stats, nil
}

// CheckUpload verifies that an upload of the given size fits the user's
// quota. A zero limit disables the check.
func (s *Service) CheckUpload(ctx context.Context, user *models.User, size int64) error {
	limit := s.LimitFor(user)
	if limit <= 0 {
		return nil
	}

	totals, err := s.catalog.ComputeUsage(ctx, user.ID)
	if err != nil {
		return err
	}
	if totals.Total+size > limit {
		return models.ErrQuotaExceeded
	}
	return nil
}

// diskUsage samples total and free bytes of the filesystem holding path.
func diskUsage(path string) (total, free int64, err error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return 0, 0, err
	}
	bsize := int64(fs.Bsize)
	return int64(fs.Blocks) * bsize, int64(fs.Bavail) * bsize, nil
}
