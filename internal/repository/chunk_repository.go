package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"supportlens/internal/model"
)

// ChunkRepository is the chunk store and the two halves of the hybrid index:
// a pgvector cosine ranking and a Postgres full-text ranking.
type ChunkRepository struct {
	db    *gorm.DB
	table string
}

func NewChunkRepository(db *gorm.DB, table string) *ChunkRepository {
	table = strings.TrimSpace(table)
	if table == "" {
		table = model.DefaultChunkTable
	}
	return &ChunkRepository{db: db, table: table}
}

// Migrate creates the chunk table. On Postgres it also pins the vector
// dimension and builds the HNSW and full-text indexes.
func (r *ChunkRepository) Migrate(dim int) error {
	isPostgres := r.db.Dialector.Name() == "postgres"
	if isPostgres {
		if err := r.db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`).Error; err != nil {
			return fmt.Errorf("enable pgvector extension failed: %w", err)
		}
	}
	if err := r.db.Table(r.table).AutoMigrate(&model.Chunk{}); err != nil {
		return fmt.Errorf("auto migrate chunk table failed: %w", err)
	}
	if !isPostgres {
		return nil
	}

	stmts := []string{
		fmt.Sprintf(`ALTER TABLE %s ALTER COLUMN embedding TYPE vector(%d)`, r.table, dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_hnsw_idx ON %s USING hnsw (embedding vector_cosine_ops) WITH (m = 16, ef_construction = 64)`, r.table, r.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_content_fts_idx ON %s USING gin (to_tsvector('english', content))`, r.table, r.table),
	}
	for _, stmt := range stmts {
		if err := r.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migrate chunk indexes failed: %w", err)
		}
	}
	return nil
}

// Upsert inserts chunks or overwrites existing rows with the same id.
func (r *ChunkRepository) Upsert(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Table(r.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"document_id", "file_path", "position", "content", "embedding", "updated_at"}),
	}).Create(&chunks).Error
	if err != nil {
		return fmt.Errorf("upsert chunks failed: %w", err)
	}
	return nil
}

// FetchByIDs returns the chunks that exist among ids, in no particular order.
func (r *ChunkRepository) FetchByIDs(ctx context.Context, ids []string) ([]model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var chunks []model.Chunk
	if err := r.db.WithContext(ctx).Table(r.table).Where("id IN ?", ids).Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("fetch chunks by ids failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) ListIDsByFilePath(ctx context.Context, filePath string) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Table(r.table).Where("file_path = ?", filePath).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list chunk ids by file path failed: %w", err)
	}
	return ids, nil
}

func (r *ChunkRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Table(r.table).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count chunks failed: %w", err)
	}
	return n, nil
}

type scoredChunkRow struct {
	ID         string
	DocumentID string
	FilePath   string
	Position   int
	Content    string
	Score      float64
}

func (row scoredChunkRow) toModel() model.ScoredChunk {
	return model.ScoredChunk{
		Chunk: model.Chunk{
			ID:         row.ID,
			DocumentID: row.DocumentID,
			FilePath:   row.FilePath,
			Position:   row.Position,
			Content:    row.Content,
		},
		Score: row.Score,
	}
}

// DenseSearch ranks chunks by cosine similarity to vec (score = 1 - distance).
func (r *ChunkRepository) DenseSearch(ctx context.Context, vec []float32, k int) ([]model.ScoredChunk, error) {
	if k <= 0 || len(vec) == 0 {
		return nil, nil
	}
	v := pgvector.NewVector(vec)
	query := fmt.Sprintf(`SELECT id, document_id, file_path, position, content, 1 - (embedding <=> ?) AS score
FROM %s ORDER BY embedding <=> ? LIMIT ?`, r.table)

	var rows []scoredChunkRow
	if err := r.db.WithContext(ctx).Raw(query, v, v, k).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("dense search failed: %w", err)
	}
	return toScored(rows), nil
}

// LexicalSearch ranks chunks matching text by ts_rank.
func (r *ChunkRepository) LexicalSearch(ctx context.Context, text string, k int) ([]model.ScoredChunk, error) {
	text = strings.TrimSpace(text)
	if k <= 0 || text == "" {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT id, document_id, file_path, position, content,
ts_rank(to_tsvector('english', content), plainto_tsquery('english', ?)) AS score
FROM %s WHERE to_tsvector('english', content) @@ plainto_tsquery('english', ?)
ORDER BY score DESC LIMIT ?`, r.table)

	var rows []scoredChunkRow
	if err := r.db.WithContext(ctx).Raw(query, text, text, k).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}
	return toScored(rows), nil
}

func toScored(rows []scoredChunkRow) []model.ScoredChunk {
	out := make([]model.ScoredChunk, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out
}
