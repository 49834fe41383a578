package models

import (
	"strings"
	"time"
)

// EntryState is the lifecycle flag of a catalog entry.
type EntryState string

const (
	// StateActive marks a live entry visible in normal listings.
	StateActive EntryState = "active"
	// StateTrashed marks a soft-deleted entry awaiting restore or
	// permanent deletion.
	StateTrashed EntryState = "trashed"
)

// IsValid checks if the state is a valid EntryState.
func (s EntryState) IsValid() bool {
	return s == StateActive || s == StateTrashed
}

// MimeDirectory is the sentinel mime type marking a directory entry.
const MimeDirectory = "inode/directory"

// FileEntry is a virtual node of the catalog: a file or a directory marker.
//
// Entries live inside a virtual directory (VirtualPath, always normalized
// and "/"-terminated) under a display name. File entries reference a Blob
// by content hash; directory entries carry the MimeDirectory sentinel, a
// zero size and no hash. Within one directory no two active entries may
// share the same (OriginalName, kind) pair.
type FileEntry struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	OwnerID      string     `gorm:"not null;size:36;index:idx_owner_path" json:"owner_id"`
	OriginalName string     `gorm:"not null;size:255" json:"original_name"`
	VirtualPath  string     `gorm:"not null;index:idx_owner_path" json:"virtual_path"`
	MimeType     string     `gorm:"size:255" json:"mime_type"`
	Size         int64      `gorm:"not null;default:0" json:"size"`
	ContentHash  *string    `gorm:"size:64;index" json:"content_hash,omitempty"`
	IsStarred    bool       `gorm:"default:false" json:"is_starred"`
	State        EntryState `gorm:"not null;default:active;size:16;index" json:"state"`
	TrashedAt    *time.Time `json:"trashed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for FileEntry.
func (FileEntry) TableName() string {
	return "file_entries"
}

// IsDir reports whether the entry is a directory marker.
func (e *FileEntry) IsDir() bool {
	return e.MimeType == MimeDirectory
}

// FullPath returns the complete virtual path for a directory entry, i.e.
// its parent path joined with its own name, "/"-terminated. For files the
// notion is meaningless and FullPath returns the parent path unchanged.
func (e *FileEntry) FullPath() string {
	if !e.IsDir() {
		return e.VirtualPath
	}
	if e.VirtualPath == "/" {
		return "/" + e.OriginalName + "/"
	}
	return e.VirtualPath + e.OriginalName + "/"
}

// MimeCategory buckets a mime type for quota accounting.
type MimeCategory string

const (
	CategoryImage MimeCategory = "image"
	CategoryVideo MimeCategory = "video"
	CategoryDoc   MimeCategory = "doc"
	CategoryOther MimeCategory = "other"
)

// docMimes are the non-text mime types counted as documents.
var docMimes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.ms-excel":      true,
	"application/vnd.ms-powerpoint": true,
	"application/rtf":               true,
}

// CategoryOf buckets a mime type into the quota accounting categories.
func CategoryOf(mime string) MimeCategory {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return CategoryImage
	case strings.HasPrefix(mime, "video/"):
		return CategoryVideo
	case strings.HasPrefix(mime, "text/"),
		docMimes[mime],
		strings.HasPrefix(mime, "application/vnd.openxmlformats-officedocument"),
		strings.HasPrefix(mime, "application/vnd.oasis.opendocument"):
		return CategoryDoc
	default:
		return CategoryOther
	}
}

// DirectoryVersion is a per-directory generation counter. Every catalog
// mutation bumps the counter of the directory it touches; long-running
// folder operations (recursive delete, archive streaming) compare subtree
// generations before and after to detect concurrent modification.
type DirectoryVersion struct {
	ID      uint   `gorm:"primaryKey" json:"-"`
	OwnerID string `gorm:"not null;size:36;uniqueIndex:idx_dirver_owner_path" json:"owner_id"`
	Path    string `gorm:"not null;uniqueIndex:idx_dirver_owner_path" json:"path"`
	Version int64  `gorm:"not null;default:0" json:"version"`
}

// TableName returns the table name for DirectoryVersion.
func (DirectoryVersion) TableName() string {
	return "directory_versions"
}
