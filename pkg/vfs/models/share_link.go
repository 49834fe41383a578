package models

import "time"

// ShareLink grants token-gated public access to one file.
//
// The token is the client-facing identifier and must be unguessable.
// Limit and ExpiresAt are optional gates: nil means unlimited downloads
// and no expiry respectively. Downloads is only advanced through the
// store's conditional increment so the limit stays exact under
// concurrent downloads.
type ShareLink struct {
	Token     string     `gorm:"primaryKey;size:64" json:"token"`
	FileID    string     `gorm:"not null;size:36;index" json:"file_id"`
	OwnerID   string     `gorm:"not null;size:36;index" json:"owner_id"`
	Downloads int64      `gorm:"not null;default:0" json:"downloads"`
	Limit     *int64     `gorm:"column:download_limit" json:"limit,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`

	File FileEntry `gorm:"foreignKey:FileID" json:"file,omitempty"`
}

// TableName returns the table name for ShareLink.
func (ShareLink) TableName() string {
	return "share_links"
}

// Expired reports whether the link has passed its expiry at the given time.
func (s *ShareLink) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// Exhausted reports whether the download limit has been reached.
func (s *ShareLink) Exhausted() bool {
	return s.Limit != nil && s.Downloads >= *s.Limit
}

// Remaining returns the number of downloads left, or nil when unlimited.
func (s *ShareLink) Remaining() *int64 {
	if s.Limit == nil {
		return nil
	}
	left := *s.Limit - s.Downloads
	if left < 0 {
		left = 0
	}
	return &left
}
