package lifecycle

import (
	"context"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
	vfspath "github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/path"
)

// Listing is a directory view with breadcrumbs.
type Listing struct {
	Path        string              `json:"path"`
	Breadcrumbs []vfspath.Part      `json:"breadcrumbs"`
	Entries     []*models.FileEntry `json:"entries"`
}

// List returns the direct children of a directory with breadcrumbs.
func (s *Service) List(ctx context.Context, ownerID, dirPath string) (*Listing, error) {
	dirPath = vfspath.Normalize(dirPath)

	entries, err := s.catalog.ListByPath(ctx, ownerID, dirPath)
	if err != nil {
		return nil, err
	}
	return &Listing{
		Path:        dirPath,
		Breadcrumbs: vfspath.Parts(dirPath),
		Entries:     entries,
	}, nil
}

// Starred returns starred files and folders.
func (s *Service) Starred(ctx context.Context, ownerID string) ([]*models.FileEntry, error) {
	return s.catalog.ListStarred(ctx, ownerID)
}

// Trashed returns the trash listing.
func (s *Service) Trashed(ctx context.Context, ownerID string) ([]*models.FileEntry, error) {
	return s.catalog.ListTrashed(ctx, ownerID)
}

// Recent returns the most recently added files.
func (s *Service) Recent(ctx context.Context, ownerID string, limit int) ([]*models.FileEntry, error) {
	return s.catalog.ListRecent(ctx, ownerID, limit)
}

// Images returns the most recently added image files.
func (s *Service) Images(ctx context.Context, ownerID string, limit int) ([]*models.FileEntry, error) {
	return s.catalog.ListImages(ctx, ownerID, limit)
}

// Search matches active entries by name substring.
func (s *Service) Search(ctx context.Context, ownerID, query string, limit int) ([]*models.FileEntry, error) {
	return s.catalog.Search(ctx, ownerID, query, limit)
}

// Suggested returns files ranked by recorded activity, topped up with
// recent files when the activity history is short or tracking is
// disabled.
func (s *Service) Suggested(ctx context.Context, ownerID string, limit int) ([]*models.FileEntry, error) {
	ids, err := s.activity.Ranked(ctx, ownerID, limit)
	if err != nil {
		// Ranking is an optimization; degrade to recency.
		ids = nil
	}

	var ranked []*models.FileEntry
	if len(ids) > 0 {
		entries, err := s.catalog.ListByIDs(ctx, ownerID, ids)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]*models.FileEntry, len(entries))
		for _, e := range entries {
			byID[e.ID] = e
		}
		for _, id := range ids {
			if e, ok := byID[id]; ok && !e.IsDir() {
				ranked = append(ranked, e)
			}
		}
	}

	if len(ranked) < limit {
		recent, err := s.catalog.ListRecent(ctx, ownerID, limit)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(ranked))
		for _, e := range ranked {
			seen[e.ID] = true
		}
		for _, e := range recent {
			if len(ranked) >= limit {
				break
			}
			if !seen[e.ID] {
				ranked = append(ranked, e)
			}
		}
	}

	return ranked, nil
}
