package models

import "time"

// Blob is the reference-count ledger row for one physical content unit.
//
// The bytes themselves live in the content store, addressed by the SHA-256
// of their plain content; this row tracks how many live FileEntry records
// reference that hash. A blob whose RefCount reaches zero is eligible for
// physical deletion. RefCount updates always go through single-statement
// transactional increments — never read-then-write.
type Blob struct {
	Hash      string    `gorm:"primaryKey;size:64" json:"hash"`
	RefCount  int64     `gorm:"not null;default:0" json:"ref_count"`
	Size      int64     `gorm:"not null" json:"size"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Blob.
func (Blob) TableName() string {
	return "blobs"
}
