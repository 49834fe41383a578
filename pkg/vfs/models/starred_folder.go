package models

import "time"

// StarredFolder marks a virtual directory as starred for one owner.
//
// Folder star state cannot live on FileEntry rows alone: a "folder" in a
// listing is sometimes a marker row and sometimes synthesized from the
// virtual paths of the files beneath it. Folder identity is therefore the
// (owner, full path) tuple, and star state is kept here and projected onto
// whichever representation a listing produces.
type StarredFolder struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	OwnerID   string    `gorm:"not null;size:36;uniqueIndex:idx_starred_owner_path" json:"owner_id"`
	Path      string    `gorm:"not null;uniqueIndex:idx_starred_owner_path" json:"path"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for StarredFolder.
func (StarredFolder) TableName() string {
	return "starred_folders"
}
