package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"supportlens/internal/model"
)

type SourceDocumentRepository struct {
	db *gorm.DB
}

func NewSourceDocumentRepository(db *gorm.DB) *SourceDocumentRepository {
	return &SourceDocumentRepository{db: db}
}

// Get returns nil, nil when the document has never been ingested.
func (r *SourceDocumentRepository) Get(ctx context.Context, id string) (*model.SourceDocument, error) {
	var doc model.SourceDocument
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get source document failed: %w", err)
	}
	return &doc, nil
}

func (r *SourceDocumentRepository) Save(ctx context.Context, doc *model.SourceDocument) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_path", "hash", "chunk_count", "updated_at"}),
	}).Create(doc).Error
	if err != nil {
		return fmt.Errorf("save source document failed: %w", err)
	}
	return nil
}
