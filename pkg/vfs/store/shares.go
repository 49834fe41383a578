package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
)

// CreateShare persists a new share link. The token must already be set;
// a colliding token surfaces as ErrShareExists.
func (s *GORMStore) CreateShare(ctx context.Context, share *models.ShareLink) error {
	return create(ctx, s.db, share, models.ErrShareExists)
}

// GetShare retrieves a share link by token with its file entry preloaded.
func (s *GORMStore) GetShare(ctx context.Context, token string) (*models.ShareLink, error) {
	var share models.ShareLink
	err := s.db.WithContext(ctx).
		Preload("File").
		Where("token = ?", token).
		First(&share).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrShareNotFound)
	}
	return &share, nil
}

// ListShares returns the owner's share links, newest first, with file
// entries preloaded.
func (s *GORMStore) ListShares(ctx context.Context, ownerID string) ([]*models.ShareLink, error) {
	var shares []*models.ShareLink
	err := s.db.WithContext(ctx).
		Preload("File").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&shares).Error
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// DeleteShare revokes one share link owned by the caller.
func (s *GORMStore) DeleteShare(ctx context.Context, ownerID, token string) error {
	result := s.db.WithContext(ctx).
		Where("token = ? AND owner_id = ?", token, ownerID).
		Delete(&models.ShareLink{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrShareNotFound
	}
	return nil
}

// deleteSharesForFile revokes every share link pointing at a file,
// inside the caller's transaction.
func deleteSharesForFile(tx *gorm.DB, fileID string) error {
	return tx.Where("file_id = ?", fileID).Delete(&models.ShareLink{}).Error
}

// RecordDownload advances a share link's download counter if and only if
// the link is still valid. The gate and the increment are one conditional
// UPDATE, so a link with limit N hands out exactly N downloads no matter
// how many requests race. When the increment does not apply, the link is
// re-read to report the precise reason.
func (s *GORMStore) RecordDownload(ctx context.Context, token string, now time.Time) (*models.ShareLink, error) {
	result := s.db.WithContext(ctx).
		Model(&models.ShareLink{}).
		Where("token = ?", token).
		Where("download_limit IS NULL OR downloads < download_limit").
		Where("expires_at IS NULL OR expires_at > ?", now).
		Update("downloads", gorm.Expr("downloads + 1"))
	if result.Error != nil {
		return nil, result.Error
	}

	share, err := s.GetShare(ctx, token)
	if err != nil {
		return nil, err
	}

	if result.RowsAffected == 0 {
		if share.Expired(now) {
			return nil, models.ErrShareExpired
		}
		return nil, models.ErrShareExhausted
	}
	return share, nil
}
