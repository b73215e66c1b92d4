package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"supportlens/internal/model"
)

type CitedDocumentRepository struct {
	db *gorm.DB
}

func NewCitedDocumentRepository(db *gorm.DB) *CitedDocumentRepository {
	return &CitedDocumentRepository{db: db}
}

func (r *CitedDocumentRepository) CreateBatch(ctx context.Context, docs []model.CitedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Omit("QueryLog").Create(&docs).Error; err != nil {
		return fmt.Errorf("create cited documents failed: %w", err)
	}
	return nil
}

// Persist stamps every row with queryLogID and writes them synchronously.
func (r *CitedDocumentRepository) Persist(ctx context.Context, queryLogID uint, docs []model.CitedDocument) error {
	rows := make([]model.CitedDocument, len(docs))
	for i := range docs {
		rows[i] = docs[i]
		rows[i].ID = 0
		rows[i].QueryLogID = queryLogID
	}
	return r.CreateBatch(ctx, rows)
}

func (r *CitedDocumentRepository) ListByQueryLogIDs(ctx context.Context, ids []uint) (map[uint][]model.CitedDocument, error) {
	out := make(map[uint][]model.CitedDocument)
	if len(ids) == 0 {
		return out, nil
	}
	var docs []model.CitedDocument
	if err := r.db.WithContext(ctx).Where("query_log_id IN ?", ids).Order("id ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list cited documents failed: %w", err)
	}
	for _, d := range docs {
		out[d.QueryLogID] = append(out[d.QueryLogID], d)
	}
	return out, nil
}

type FileCitationCount struct {
	FilePath string `gorm:"column:file_path" json:"file_path"`
	Count    int64  `gorm:"column:cite_count" json:"count"`
}

// TopFilePaths ranks file paths by how often they were cited by logs in
// [start, end). limit <= 0 returns every file.
func (r *CitedDocumentRepository) TopFilePaths(ctx context.Context, start, end time.Time, limit int) ([]FileCitationCount, error) {
	q := r.db.WithContext(ctx).
		Table("cited_documents").
		Select("cited_documents.file_path AS file_path, COUNT(cited_documents.file_path) AS cite_count").
		Joins("JOIN query_logs ON cited_documents.query_log_id = query_logs.id").
		Where("query_logs.timestamp >= ? AND query_logs.timestamp < ?", start, end).
		Group("cited_documents.file_path").
		Order("cite_count DESC, file_path ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []FileCitationCount
	if err := q.Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("top cited file paths failed: %w", err)
	}
	return out, nil
}
