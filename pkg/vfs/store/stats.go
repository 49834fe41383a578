package store

import (
	"context"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
)

// UsageTotals is the per-user logical usage broken down by mime category.
// Sizes are logical bytes: two entries sharing one deduplicated blob count
// twice here, because quota charges references, not physical storage.
type UsageTotals struct {
	Total int64
	Image int64
	Video int64
	Doc   int64
	Other int64
	Trash int64
}

// ComputeUsage aggregates the owner's usage. Active files are grouped by
// mime type in SQL and bucketed here so the category mapping lives in one
// place; trashed files are summed separately and count toward Total.
func (s *GORMStore) ComputeUsage(ctx context.Context, ownerID string) (*UsageTotals, error) {
	type mimeSum struct {
		MimeType string
		Bytes    int64
	}

	var rows []mimeSum
	err := s.db.WithContext(ctx).
		Model(&models.FileEntry{}).
		Select("mime_type, COALESCE(SUM(size), 0) AS bytes").
		Where("owner_id = ? AND state = ? AND mime_type <> ?",
			ownerID, models.StateActive, models.MimeDirectory).
		Group("mime_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := &UsageTotals{}
	for _, row := range rows {
		totals.Total += row.Bytes
		switch models.CategoryOf(row.MimeType) {
		case models.CategoryImage:
			totals.Image += row.Bytes
		case models.CategoryVideo:
			totals.Video += row.Bytes
		case models.CategoryDoc:
			totals.Doc += row.Bytes
		default:
			totals.Other += row.Bytes
		}
	}

	var trash int64
	err = s.db.WithContext(ctx).
		Model(&models.FileEntry{}).
		Select("COALESCE(SUM(size), 0)").
		Where("owner_id = ? AND state = ? AND mime_type <> ?",
			ownerID, models.StateTrashed, models.MimeDirectory).
		Scan(&trash).Error
	if err != nil {
		return nil, err
	}
	totals.Trash = trash
	totals.Total += trash

	return totals, nil
}

// PhysicalUsage returns the summed size of all referenced blobs, i.e. the
// deduplicated byte count actually stored.
func (s *GORMStore) PhysicalUsage(ctx context.Context) (int64, error) {
	var sum int64
	err := s.db.WithContext(ctx).
		Model(&models.Blob{}).
		Select("COALESCE(SUM(size), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}
