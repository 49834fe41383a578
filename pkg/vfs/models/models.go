// Package models defines the catalog entities and domain errors shared by
// the store, lifecycle and API layers.
package models

// AllModels returns all GORM models for auto-migration.
func AllModels() []any {
	return []any{
		&User{},
		&FileEntry{},
		&Blob{},
		&ShareLink{},
		&StarredFolder{},
		&DirectoryVersion{},
	}
}
