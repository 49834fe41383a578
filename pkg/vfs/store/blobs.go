package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
)

// incrementBlobRef adds one reference to a blob, creating the ledger row
// on first reference. Single upsert statement, safe under concurrent
// uploads of identical content.
func incrementBlobRef(tx *gorm.DB, hash string, size int64) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "hash"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"ref_count": gorm.Expr("blobs.ref_count + 1"),
		}),
	}).Create(&models.Blob{
		Hash:     hash,
		RefCount: 1,
		Size:     size,
	}).Error
}

// decrementBlobRef drops one reference and reports whether the physical
// bytes are now unreferenced. The ledger row is deleted when the count
// reaches zero.
func decrementBlobRef(tx *gorm.DB, hash string) (removePhysical bool, err error) {
	result := tx.Model(&models.Blob{}).
		Where("hash = ? AND ref_count > 0", hash).
		Update("ref_count", gorm.Expr("ref_count - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, models.ErrBlobNotFound
	}

	del := tx.Where("hash = ? AND ref_count = 0", hash).Delete(&models.Blob{})
	if del.Error != nil {
		return false, del.Error
	}
	return del.RowsAffected > 0, nil
}

// GetBlob retrieves one ledger row by content hash.
func (s *GORMStore) GetBlob(ctx context.Context, hash string) (*models.Blob, error) {
	return getByField[models.Blob](ctx, s.db, "hash", hash, models.ErrBlobNotFound)
}

// BlobRefCount returns the live reference count for a hash; unknown hashes
// count as zero.
func (s *GORMStore) BlobRefCount(ctx context.Context, hash string) (int64, error) {
	blob, err := s.GetBlob(ctx, hash)
	if err != nil {
		if err == models.ErrBlobNotFound {
			return 0, nil
		}
		return 0, err
	}
	return blob.RefCount, nil
}

// FindEntryByHash returns any file entry of the owner referencing the
// hash, in any state. Used by upload dedup to reuse known content.
func (s *GORMStore) FindEntryByHash(ctx context.Context, hash string) (*models.FileEntry, error) {
	var entry models.FileEntry
	err := s.db.WithContext(ctx).
		Where("content_hash = ?", hash).
		First(&entry).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrEntryNotFound)
	}
	return &entry, nil
}
