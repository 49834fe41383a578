package lifecycle

import (
	"context"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
	vfspath "github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/path"
)

// Get returns one owned entry in any state.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*models.FileEntry, error) {
	return s.catalog.GetEntry(ctx, ownerID, id)
}

// Rename changes an entry's display name within its directory.
func (s *Service) Rename(ctx context.Context, ownerID, id, newName string) (*models.FileEntry, error) {
	if err := validateName(newName); err != nil {
		return nil, err
	}

	entry, err := s.catalog.GetEntry(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	unlock := s.dirLocks.Lock(dirKey(ownerID, entry.VirtualPath))
	renamed, err := s.catalog.RenameEntry(ctx, ownerID, id, newName)
	unlock()
	if err != nil {
		return nil, err
	}

	s.activity.Touch(ctx, ownerID, renamed.ID)
	logger.InfoCtx(ctx, "entry renamed",
		logger.KeyEntryID, id, logger.KeyName, newName, logger.KeyPath, renamed.VirtualPath)
	return renamed, nil
}

// Move relocates a file into another directory. Directories cannot be
// moved.
func (s *Service) Move(ctx context.Context, ownerID, id, newPath string) (*models.FileEntry, error) {
	newPath = vfspath.Normalize(newPath)

	unlock := s.dirLocks.Lock(dirKey(ownerID, newPath))
	moved, err := s.catalog.MoveEntry(ctx, ownerID, id, newPath)
	unlock()
	if err != nil {
		return nil, err
	}

	s.activity.Touch(ctx, ownerID, moved.ID)
	logger.InfoCtx(ctx, "entry moved",
		logger.KeyEntryID, id, logger.KeyNewPath, newPath)
	return moved, nil
}

// Trash soft-deletes an entry.
func (s *Service) Trash(ctx context.Context, ownerID, id string) (*models.FileEntry, error) {
	entry, err := s.catalog.TrashEntry(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "entry trashed", logger.KeyEntryID, id, logger.KeyPath, entry.VirtualPath)
	return entry, nil
}

// Restore returns a trashed entry to its original path. A same-named
// active entry at that path fails the restore and leaves both intact.
func (s *Service) Restore(ctx context.Context, ownerID, id string) (*models.FileEntry, error) {
	entry, err := s.catalog.GetEntry(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	unlock := s.dirLocks.Lock(dirKey(ownerID, entry.VirtualPath))
	restored, err := s.catalog.RestoreEntry(ctx, ownerID, id)
	unlock()
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "entry restored", logger.KeyEntryID, id, logger.KeyPath, restored.VirtualPath)
	return restored, nil
}

// PermanentDelete destroys a trashed entry: the catalog row, its share
// links and, once the last reference is gone, the physical bytes.
func (s *Service) PermanentDelete(ctx context.Context, ownerID, id string) error {
	info, err := s.catalog.PermanentlyDelete(ctx, ownerID, id)
	if err != nil {
		return err
	}

	s.activity.Forget(ctx, ownerID, id)

	if info != nil && info.RemovePhysical {
		if s.previews != nil {
			s.previews.Invalidate(info.Hash)
		}
		// Under the blob lock the ledger is re-read: an upload of the
		// same hash may have committed since the deletion transaction,
		// in which case the bytes must stay.
		s.releaseStaged(ctx, info.Hash)
	}

	logger.InfoCtx(ctx, "entry permanently deleted", logger.KeyEntryID, id)
	return nil
}

// DeleteFolder trashes every file at or under a directory and removes the
// directory itself. Atomic: a concurrent change aborts the whole
// operation with ErrConcurrentModification.
func (s *Service) DeleteFolder(ctx context.Context, ownerID, dirPath string) (int64, error) {
	dirPath = vfspath.Normalize(dirPath)

	unlock := s.dirLocks.Lock(dirKey(ownerID, dirPath))
	trashed, err := s.catalog.DeleteFolderRecursive(ctx, ownerID, dirPath)
	unlock()
	if err != nil {
		return 0, err
	}

	logger.InfoCtx(ctx, "folder deleted", logger.KeyPath, dirPath, "trashed", trashed)
	return trashed, nil
}

// ToggleStar flips the star flag of a file or folder entry by id.
func (s *Service) ToggleStar(ctx context.Context, ownerID, id string) (bool, error) {
	starred, err := s.catalog.ToggleStarEntry(ctx, ownerID, id)
	if err != nil {
		return false, err
	}
	s.activity.Touch(ctx, ownerID, id)
	return starred, nil
}

// ToggleStarFolder flips the star flag of a directory identified by path,
// covering folders that exist only as path prefixes of their files.
func (s *Service) ToggleStarFolder(ctx context.Context, ownerID, dirPath string) (bool, error) {
	return s.catalog.ToggleStarFolder(ctx, ownerID, dirPath)
}
