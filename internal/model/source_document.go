package model

import "time"

// SourceDocument records what was last ingested for a document id so an
// unchanged document can be recognised without embedding it again.
type SourceDocument struct {
	ID         string    `gorm:"primaryKey;size:1024" json:"id"`
	FilePath   string    `gorm:"size:1024;not null;index" json:"file_path"`
	Hash       string    `gorm:"size:64;not null" json:"hash"`
	ChunkCount int       `gorm:"not null" json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
