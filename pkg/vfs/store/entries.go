package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
	vfspath "github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/path"
)

// likeEscaper protects user-controlled fragments used in LIKE patterns.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// prefixPattern matches a directory path and everything nested under it.
func prefixPattern(dirPath string) string {
	return escapeLike(dirPath) + "%"
}

// bumpDirVersion advances the generation counter of a directory. The
// counter row is created on first touch.
func bumpDirVersion(tx *gorm.DB, ownerID, dirPath string) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}, {Name: "path"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"version": gorm.Expr("directory_versions.version + 1"),
		}),
	}).Create(&models.DirectoryVersion{
		OwnerID: ownerID,
		Path:    dirPath,
		Version: 1,
	}).Error
}

// SubtreeVersion returns the summed generation counters of a directory and
// everything nested under it. Long-running folder operations snapshot this
// value first and compare afterwards to detect concurrent modification.
func (s *GORMStore) SubtreeVersion(ctx context.Context, ownerID, dirPath string) (int64, error) {
	dirPath = vfspath.Normalize(dirPath)

	var sum int64
	err := s.db.WithContext(ctx).
		Model(&models.DirectoryVersion{}).
		Where(`owner_id = ? AND path LIKE ? ESCAPE '\'`, ownerID, prefixPattern(dirPath)).
		Select("COALESCE(SUM(version), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}

// conflictExists reports whether an active entry with the same name and
// kind already lives in the directory. excludeID skips the entry being
// renamed or moved.
func conflictExists(tx *gorm.DB, ownerID, dirPath, name string, isDir bool, excludeID string) (bool, error) {
	q := tx.Model(&models.FileEntry{}).
		Where("owner_id = ? AND virtual_path = ? AND original_name = ? AND state = ?",
			ownerID, dirPath, name, models.StateActive)
	if isDir {
		q = q.Where("mime_type = ?", models.MimeDirectory)
	} else {
		q = q.Where("mime_type <> ?", models.MimeDirectory)
	}
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// folderExistsTx reports whether a directory exists, either as a marker
// row or inferred from active entries nested under its path.
func folderExistsTx(tx *gorm.DB, ownerID, fullPath string) (bool, error) {
	if fullPath == vfspath.Root {
		return true, nil
	}

	var count int64
	err := tx.Model(&models.FileEntry{}).
		Where(`owner_id = ? AND state = ? AND virtual_path LIKE ? ESCAPE '\'`,
			ownerID, models.StateActive, prefixPattern(fullPath)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	return conflictExists(tx, ownerID, vfspath.Parent(fullPath), vfspath.Base(fullPath), true, "")
}

// FolderExists reports whether a directory exists for the owner, as a
// marker row or inferred from nested entries.
func (s *GORMStore) FolderExists(ctx context.Context, ownerID, fullPath string) (bool, error) {
	return folderExistsTx(s.db.WithContext(ctx), ownerID, vfspath.Normalize(fullPath))
}

// CreateEntry inserts a new active entry, enforcing the per-directory
// naming invariant and, for file entries, advancing the blob reference
// count in the same transaction.
func (s *GORMStore) CreateEntry(ctx context.Context, entry *models.FileEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.VirtualPath = vfspath.Normalize(entry.VirtualPath)
	entry.State = models.StateActive

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if entry.IsDir() {
			exists, err := folderExistsTx(tx, entry.OwnerID, entry.FullPath())
			if err != nil {
				return err
			}
			if exists {
				return models.ErrDuplicateEntry
			}
		} else {
			exists, err := conflictExists(tx, entry.OwnerID, entry.VirtualPath, entry.OriginalName, false, "")
			if err != nil {
				return err
			}
			if exists {
				return models.ErrDuplicateEntry
			}
		}

		if err := tx.Create(entry).Error; err != nil {
			if isUniqueConstraintError(err) {
				return models.ErrDuplicateEntry
			}
			return err
		}

		if entry.ContentHash != nil {
			if err := incrementBlobRef(tx, *entry.ContentHash, entry.Size); err != nil {
				return err
			}
		}

		return bumpDirVersion(tx, entry.OwnerID, entry.VirtualPath)
	})
}

// GetEntry retrieves one entry by id, scoped to the owner. Trashed entries
// are returned too; callers filter on State where it matters.
func (s *GORMStore) GetEntry(ctx context.Context, ownerID, id string) (*models.FileEntry, error) {
	var entry models.FileEntry
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&entry).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrEntryNotFound)
	}
	return &entry, nil
}

// ListByIDs retrieves the owner's entries matching the given ids, active
// only, in no particular order. Unknown ids are skipped.
func (s *GORMStore) ListByIDs(ctx context.Context, ownerID string, ids []string) ([]*models.FileEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var entries []*models.FileEntry
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND state = ? AND id IN ?", ownerID, models.StateActive, ids).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListByPath returns the direct children of a directory: active file rows
// at the path, plus one logical directory per distinct child name. A
// directory appears either as its marker row or, when files exist beneath
// a path no marker covers, as a synthesized row. Duplicate directory names
// collapse to one. Star state for directories is projected from the
// starred-folder table. Directories sort before files, names
// case-insensitively within each group.
func (s *GORMStore) ListByPath(ctx context.Context, ownerID, dirPath string) ([]*models.FileEntry, error) {
	dirPath = vfspath.Normalize(dirPath)
	db := s.db.WithContext(ctx)

	var direct []*models.FileEntry
	err := db.
		Where("owner_id = ? AND virtual_path = ? AND state = ?", ownerID, dirPath, models.StateActive).
		Find(&direct).Error
	if err != nil {
		return nil, err
	}

	files := make([]*models.FileEntry, 0, len(direct))
	dirsByName := make(map[string]*models.FileEntry)
	for _, e := range direct {
		if e.IsDir() {
			if _, ok := dirsByName[e.OriginalName]; !ok {
				dirsByName[e.OriginalName] = e
			}
			continue
		}
		files = append(files, e)
	}

	// Directories inferred from paths of entries nested below dirPath.
	var nestedPaths []string
	err = db.Model(&models.FileEntry{}).
		Where(`owner_id = ? AND state = ? AND virtual_path LIKE ? ESCAPE '\' AND virtual_path <> ?`,
			ownerID, models.StateActive, prefixPattern(dirPath), dirPath).
		Distinct().
		Pluck("virtual_path", &nestedPaths).Error
	if err != nil {
		return nil, err
	}
	for _, p := range nestedPaths {
		name := firstSegmentAfter(dirPath, p)
		if name == "" {
			continue
		}
		if _, ok := dirsByName[name]; !ok {
			dirsByName[name] = &models.FileEntry{
				OwnerID:      ownerID,
				OriginalName: name,
				VirtualPath:  dirPath,
				MimeType:     models.MimeDirectory,
				State:        models.StateActive,
			}
		}
	}

	dirs := make([]*models.FileEntry, 0, len(dirsByName))
	for _, d := range dirsByName {
		dirs = append(dirs, d)
	}
	if err := s.projectFolderStars(ctx, ownerID, dirs); err != nil {
		return nil, err
	}

	sort.Slice(dirs, func(i, j int) bool {
		return strings.ToLower(dirs[i].OriginalName) < strings.ToLower(dirs[j].OriginalName)
	})
	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i].OriginalName) < strings.ToLower(files[j].OriginalName)
	})

	return append(dirs, files...), nil
}

// firstSegmentAfter extracts the first path segment of child below dirPath.
func firstSegmentAfter(dirPath, child string) string {
	rest := strings.TrimPrefix(child, dirPath)
	if rest == child {
		return ""
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// projectFolderStars sets IsStarred on directory entries from the
// starred-folder table, keeping any star already carried by a marker row.
func (s *GORMStore) projectFolderStars(ctx context.Context, ownerID string, dirs []*models.FileEntry) error {
	if len(dirs) == 0 {
		return nil
	}

	paths := make([]string, 0, len(dirs))
	for _, d := range dirs {
		paths = append(paths, d.FullPath())
	}

	var starred []string
	err := s.db.WithContext(ctx).
		Model(&models.StarredFolder{}).
		Where("owner_id = ? AND path IN ?", ownerID, paths).
		Pluck("path", &starred).Error
	if err != nil {
		return err
	}

	starredSet := make(map[string]bool, len(starred))
	for _, p := range starred {
		starredSet[p] = true
	}
	for _, d := range dirs {
		if starredSet[d.FullPath()] {
			d.IsStarred = true
		}
	}
	return nil
}

// ListStarred returns the owner's starred files and folders. Folders come
// from the starred-folder table and are synthesized the same way directory
// listings synthesize them.
func (s *GORMStore) ListStarred(ctx context.Context, ownerID string) ([]*models.FileEntry, error) {
	var folders []*models.StarredFolder
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("path ASC").
		Find(&folders).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*models.FileEntry, 0, len(folders))
	for _, f := range folders {
		entries = append(entries, &models.FileEntry{
			OwnerID:      ownerID,
			OriginalName: vfspath.Base(f.Path),
			VirtualPath:  vfspath.Parent(f.Path),
			MimeType:     models.MimeDirectory,
			IsStarred:    true,
			State:        models.StateActive,
			CreatedAt:    f.CreatedAt,
		})
	}

	var files []*models.FileEntry
	err = s.db.WithContext(ctx).
		Where("owner_id = ? AND state = ? AND is_starred = ? AND mime_type <> ?",
			ownerID, models.StateActive, true, models.MimeDirectory).
		Order("original_name ASC").
		Find(&files).Error
	if err != nil {
		return nil, err
	}

	return append(entries, files...), nil
}

// ListTrashed returns the owner's trashed entries, most recently trashed
// first.
func (s *GORMStore) ListTrashed(ctx context.Context, ownerID string) ([]*models.FileEntry, error) {
	var entries []*models.FileEntry
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND state = ?", ownerID, models.StateTrashed).
		Order("trashed_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListRecent returns the owner's most recently created files. Directory
// markers are excluded; recency is a file-centric view.
func (s *GORMStore) ListRecent(ctx context.Context, ownerID string, limit int) ([]*models.FileEntry, error) {
	var entries []*models.FileEntry
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND state = ? AND mime_type <> ?",
			ownerID, models.StateActive, models.MimeDirectory).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListImages returns the owner's most recent image files.
func (s *GORMStore) ListImages(ctx context.Context, ownerID string, limit int) ([]*models.FileEntry, error) {
	var entries []*models.FileEntry
	err := s.db.WithContext(ctx).
		Where(`owner_id = ? AND state = ? AND mime_type LIKE 'image/%'`,
			ownerID, models.StateActive).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Search matches active entries whose name contains the query,
// case-insensitively.
func (s *GORMStore) Search(ctx context.Context, ownerID, query string, limit int) ([]*models.FileEntry, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	var entries []*models.FileEntry
	err := s.db.WithContext(ctx).
		Where(`owner_id = ? AND state = ? AND LOWER(original_name) LIKE ? ESCAPE '\'`,
			ownerID, models.StateActive, pattern).
		Order("original_name ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// getOwnedForUpdate fetches an entry inside a transaction, scoped to the
// owner.
func getOwnedForUpdate(tx *gorm.DB, ownerID, id string) (*models.FileEntry, error) {
	var entry models.FileEntry
	err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&entry).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrEntryNotFound)
	}
	return &entry, nil
}

// RenameEntry changes an entry's display name. Renaming to the current
// name is a no-op success. Directory renames rewrite the virtual paths of
// everything nested under the old path in the same transaction.
func (s *GORMStore) RenameEntry(ctx context.Context, ownerID, id, newName string) (*models.FileEntry, error) {
	var renamed *models.FileEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := getOwnedForUpdate(tx, ownerID, id)
		if err != nil {
			return err
		}
		if entry.State != models.StateActive {
			return models.ErrEntryNotFound
		}
		if entry.OriginalName == newName {
			renamed = entry
			return nil
		}

		// Directories also exist as inferred path prefixes, so the
		// collision check must cover both representations or the rename
		// would silently merge two folders.
		var exists bool
		if entry.IsDir() {
			exists, err = folderExistsTx(tx, ownerID, vfspath.Join(entry.VirtualPath, newName))
		} else {
			exists, err = conflictExists(tx, ownerID, entry.VirtualPath, newName, false, entry.ID)
		}
		if err != nil {
			return err
		}
		if exists {
			return models.ErrDuplicateEntry
		}

		if entry.IsDir() {
			oldPath := entry.FullPath()
			newPath := vfspath.Join(entry.VirtualPath, newName)
			if err := rewriteSubtreePaths(tx, ownerID, oldPath, newPath); err != nil {
				return err
			}
			if err := bumpDirVersion(tx, ownerID, oldPath); err != nil {
				return err
			}
		}

		entry.OriginalName = newName
		entry.UpdatedAt = time.Now()
		if err := tx.Model(entry).Updates(map[string]interface{}{
			"original_name": entry.OriginalName,
			"updated_at":    entry.UpdatedAt,
		}).Error; err != nil {
			return err
		}

		renamed = entry
		return bumpDirVersion(tx, ownerID, entry.VirtualPath)
	})
	if err != nil {
		return nil, err
	}
	return renamed, nil
}

// rewriteSubtreePaths repoints every active entry and starred-folder row
// under oldPath to the corresponding path under newPath. Rewriting happens
// row by row in Go so multibyte names survive intact.
func rewriteSubtreePaths(tx *gorm.DB, ownerID, oldPath, newPath string) error {
	var nested []*models.FileEntry
	err := tx.
		Where(`owner_id = ? AND virtual_path LIKE ? ESCAPE '\'`, ownerID, prefixPattern(oldPath)).
		Find(&nested).Error
	if err != nil {
		return err
	}
	for _, e := range nested {
		rewritten := newPath + strings.TrimPrefix(e.VirtualPath, oldPath)
		if err := tx.Model(e).Update("virtual_path", rewritten).Error; err != nil {
			return err
		}
	}

	var starred []*models.StarredFolder
	err = tx.
		Where(`owner_id = ? AND path LIKE ? ESCAPE '\'`, ownerID, prefixPattern(oldPath)).
		Find(&starred).Error
	if err != nil {
		return err
	}
	for _, f := range starred {
		rewritten := newPath + strings.TrimPrefix(f.Path, oldPath)
		if err := tx.Model(f).Update("path", rewritten).Error; err != nil {
			return err
		}
	}
	return nil
}

// MoveEntry relocates a file to another directory. Moving to the current
// directory is a no-op success. Directories cannot be moved.
func (s *GORMStore) MoveEntry(ctx context.Context, ownerID, id, newPath string) (*models.FileEntry, error) {
	newPath = vfspath.Normalize(newPath)

	var moved *models.FileEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := getOwnedForUpdate(tx, ownerID, id)
		if err != nil {
			return err
		}
		if entry.State != models.StateActive {
			return models.ErrEntryNotFound
		}
		if entry.IsDir() {
			return models.ErrUnsupportedOperation
		}
		if entry.VirtualPath == newPath {
			moved = entry
			return nil
		}

		exists, err := conflictExists(tx, ownerID, newPath, entry.OriginalName, false, entry.ID)
		if err != nil {
			return err
		}
		if exists {
			return models.ErrDuplicateEntry
		}

		oldPath := entry.VirtualPath
		entry.VirtualPath = newPath
		entry.UpdatedAt = time.Now()
		if err := tx.Model(entry).Updates(map[string]interface{}{
			"virtual_path": entry.VirtualPath,
			"updated_at":   entry.UpdatedAt,
		}).Error; err != nil {
			return err
		}

		if err := bumpDirVersion(tx, ownerID, oldPath); err != nil {
			return err
		}
		moved = entry
		return bumpDirVersion(tx, ownerID, newPath)
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// TrashEntry soft-deletes an active entry. Folder markers with active
// entries nested under them are rejected: trashing only the marker would
// leave the folder alive as an inferred prefix while a phantom copy sits
// in the trash. Callers empty folders through DeleteFolderRecursive.
func (s *GORMStore) TrashEntry(ctx context.Context, ownerID, id string) (*models.FileEntry, error) {
	var trashed *models.FileEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := getOwnedForUpdate(tx, ownerID, id)
		if err != nil {
			return err
		}
		if entry.State != models.StateActive {
			return models.ErrEntryNotFound
		}

		if entry.IsDir() {
			var nested int64
			err := tx.Model(&models.FileEntry{}).
				Where(`owner_id = ? AND state = ? AND virtual_path LIKE ? ESCAPE '\'`,
					ownerID, models.StateActive, prefixPattern(entry.FullPath())).
				Count(&nested).Error
			if err != nil {
				return err
			}
			if nested > 0 {
				return models.ErrUnsupportedOperation
			}
		}

		now := time.Now()
		entry.State = models.StateTrashed
		entry.TrashedAt = &now
		if err := tx.Model(entry).Updates(map[string]interface{}{
			"state":      entry.State,
			"trashed_at": entry.TrashedAt,
		}).Error; err != nil {
			return err
		}

		trashed = entry
		return bumpDirVersion(tx, ownerID, entry.VirtualPath)
	})
	if err != nil {
		return nil, err
	}
	return trashed, nil
}

// RestoreEntry returns a trashed entry to the active state. Restore fails
// when a same-named active entry now occupies the original path; both
// entries are left intact.
func (s *GORMStore) RestoreEntry(ctx context.Context, ownerID, id string) (*models.FileEntry, error) {
	var restored *models.FileEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := getOwnedForUpdate(tx, ownerID, id)
		if err != nil {
			return err
		}
		if entry.State != models.StateTrashed {
			return models.ErrNotTrashed
		}

		var exists bool
		if entry.IsDir() {
			// A folder that reappeared as an inferred prefix also blocks
			// restoring the trashed marker.
			exists, err = folderExistsTx(tx, ownerID, entry.FullPath())
		} else {
			exists, err = conflictExists(tx, ownerID, entry.VirtualPath, entry.OriginalName, false, entry.ID)
		}
		if err != nil {
			return err
		}
		if exists {
			return models.ErrRestoreConflict
		}

		entry.State = models.StateActive
		entry.TrashedAt = nil
		if err := tx.Model(entry).Updates(map[string]interface{}{
			"state":      entry.State,
			"trashed_at": nil,
		}).Error; err != nil {
			return err
		}

		restored = entry
		return bumpDirVersion(tx, ownerID, entry.VirtualPath)
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// ToggleStarEntry flips the star flag of a file entry and returns the new
// state.
func (s *GORMStore) ToggleStarEntry(ctx context.Context, ownerID, id string) (bool, error) {
	var starred bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := getOwnedForUpdate(tx, ownerID, id)
		if err != nil {
			return err
		}
		if entry.State != models.StateActive {
			return models.ErrEntryNotFound
		}
		if entry.IsDir() {
			return toggleFolderStarTx(tx, ownerID, entry.FullPath(), &starred)
		}

		starred = !entry.IsStarred
		return tx.Model(entry).Update("is_starred", starred).Error
	})
	if err != nil {
		return false, err
	}
	return starred, nil
}

// ToggleStarFolder flips the star flag of a directory identified by its
// full virtual path and returns the new state.
func (s *GORMStore) ToggleStarFolder(ctx context.Context, ownerID, fullPath string) (bool, error) {
	fullPath = vfspath.Normalize(fullPath)

	var starred bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := folderExistsTx(tx, ownerID, fullPath)
		if err != nil {
			return err
		}
		if !exists {
			return models.ErrEntryNotFound
		}
		return toggleFolderStarTx(tx, ownerID, fullPath, &starred)
	})
	if err != nil {
		return false, err
	}
	return starred, nil
}

// toggleFolderStarTx flips the starred-folder row and mirrors the new
// state onto any marker rows for the same directory.
func toggleFolderStarTx(tx *gorm.DB, ownerID, fullPath string, starred *bool) error {
	result := tx.
		Where("owner_id = ? AND path = ?", ownerID, fullPath).
		Delete(&models.StarredFolder{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if err := tx.Create(&models.StarredFolder{OwnerID: ownerID, Path: fullPath}).Error; err != nil {
			if !isUniqueConstraintError(err) {
				return err
			}
		}
		*starred = true
	} else {
		*starred = false
	}

	return tx.Model(&models.FileEntry{}).
		Where("owner_id = ? AND virtual_path = ? AND original_name = ? AND mime_type = ?",
			ownerID, vfspath.Parent(fullPath), vfspath.Base(fullPath), models.MimeDirectory).
		Update("is_starred", *starred).Error
}

// DeletedBlobInfo reports the outcome of a permanent deletion for the
// content store: which hash lost a reference and whether its physical
// bytes are now unreferenced.
type DeletedBlobInfo struct {
	Hash           string
	RemovePhysical bool
}

// PermanentlyDelete hard-deletes a trashed entry, revokes its share links
// and decrements its blob reference, all in one transaction. The returned
// info is nil for directory markers and entries without content.
func (s *GORMStore) PermanentlyDelete(ctx context.Context, ownerID, id string) (*DeletedBlobInfo, error) {
	var info *DeletedBlobInfo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := getOwnedForUpdate(tx, ownerID, id)
		if err != nil {
			return err
		}
		if entry.State != models.StateTrashed {
			return models.ErrNotTrashed
		}

		if err := deleteSharesForFile(tx, entry.ID); err != nil {
			return err
		}
		if err := tx.Delete(entry).Error; err != nil {
			return err
		}

		if entry.ContentHash != nil {
			removePhysical, err := decrementBlobRef(tx, *entry.ContentHash)
			if err != nil {
				return err
			}
			info = &DeletedBlobInfo{Hash: *entry.ContentHash, RemovePhysical: removePhysical}
		}

		return bumpDirVersion(tx, ownerID, entry.VirtualPath)
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// DeleteFolderRecursive soft-deletes every active entry at or under a
// directory path, removes the directory's marker rows and clears star
// rows for the subtree. The whole operation runs in one transaction; if
// the subtree changed between snapshot and update, nothing is committed
// and ErrConcurrentModification is returned.
func (s *GORMStore) DeleteFolderRecursive(ctx context.Context, ownerID, dirPath string) (int64, error) {
	dirPath = vfspath.Normalize(dirPath)
	if dirPath == vfspath.Root {
		return 0, models.ErrUnsupportedOperation
	}

	var trashedCount int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := folderExistsTx(tx, ownerID, dirPath)
		if err != nil {
			return err
		}
		if !exists {
			return models.ErrEntryNotFound
		}

		// Snapshot ids first, then trash exactly that set. A mismatch in
		// affected rows means the subtree changed underneath us.
		var fileIDs []string
		err = tx.Model(&models.FileEntry{}).
			Where(`owner_id = ? AND state = ? AND mime_type <> ? AND virtual_path LIKE ? ESCAPE '\'`,
				ownerID, models.StateActive, models.MimeDirectory, prefixPattern(dirPath)).
			Pluck("id", &fileIDs).Error
		if err != nil {
			return err
		}

		if len(fileIDs) > 0 {
			now := time.Now()
			result := tx.Model(&models.FileEntry{}).
				Where("id IN ? AND state = ?", fileIDs, models.StateActive).
				Updates(map[string]interface{}{
					"state":      models.StateTrashed,
					"trashed_at": now,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected != int64(len(fileIDs)) {
				return models.ErrConcurrentModification
			}
			trashedCount = result.RowsAffected
		}

		// Marker rows for the directory itself and nested directories are
		// removed outright; restored files re-infer their folders.
		err = tx.
			Where(`owner_id = ? AND mime_type = ? AND (virtual_path LIKE ? ESCAPE '\' OR (virtual_path = ? AND original_name = ?))`,
				ownerID, models.MimeDirectory, prefixPattern(dirPath),
				vfspath.Parent(dirPath), vfspath.Base(dirPath)).
			Delete(&models.FileEntry{}).Error
		if err != nil {
			return err
		}

		err = tx.
			Where(`owner_id = ? AND path LIKE ? ESCAPE '\'`, ownerID, prefixPattern(dirPath)).
			Delete(&models.StarredFolder{}).Error
		if err != nil {
			return err
		}

		if err := bumpDirVersion(tx, ownerID, dirPath); err != nil {
			return err
		}
		return bumpDirVersion(tx, ownerID, vfspath.Parent(dirPath))
	})
	if err != nil {
		return 0, err
	}
	return trashedCount, nil
}

// SnapshotFolder returns the active file entries at or under a directory,
// ordered by path then name. Used to build folder archives.
func (s *GORMStore) SnapshotFolder(ctx context.Context, ownerID, dirPath string) ([]*models.FileEntry, error) {
	dirPath = vfspath.Normalize(dirPath)

	var entries []*models.FileEntry
	err := s.db.WithContext(ctx).
		Where(`owner_id = ? AND state = ? AND mime_type <> ? AND virtual_path LIKE ? ESCAPE '\'`,
			ownerID, models.StateActive, models.MimeDirectory, prefixPattern(dirPath)).
		Order("virtual_path ASC, original_name ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
