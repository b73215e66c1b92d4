package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// DefaultChunkTable is the table chunks live in unless configured otherwise.
const DefaultChunkTable = "support_docs"

// Chunk is a retrievable slice of a SourceDocument. ID is derived from the
// document id and Position so re-ingesting the same document overwrites rows
// instead of adding new ones.
type Chunk struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	DocumentID string          `gorm:"size:1024;not null;index" json:"document_id"`
	FilePath   string          `gorm:"size:1024;not null;index" json:"file_path"`
	Position   int             `gorm:"not null" json:"position"`
	Content    string          `gorm:"type:text;not null" json:"content"`
	Embedding  pgvector.Vector `gorm:"type:vector" json:"-"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("supportlens/chunks"))

// ChunkID returns the stable id of the chunk at position within a document.
func ChunkID(documentID string, position int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s#%d", documentID, position))).String()
}

func (Chunk) TableName() string {
	return DefaultChunkTable
}

// CleanContent returns the chunk text without carriage returns.
func (c *Chunk) CleanContent() string {
	return strings.ReplaceAll(c.Content, "\r", "")
}

// ScoredChunk is a chunk returned by a ranked retrieval.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}
