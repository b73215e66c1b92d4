package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"

	"supportlens/internal/model"
)

type QueryLogRepository struct {
	db *gorm.DB
}

func NewQueryLogRepository(db *gorm.DB) *QueryLogRepository {
	return &QueryLogRepository{db: db}
}

// Create inserts the log and fills in its generated id.
func (r *QueryLogRepository) Create(ctx context.Context, log *model.QueryLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("create query log failed: %w", err)
	}
	return nil
}

// CountBetween counts logs with start <= timestamp < end. A nil success
// counts both outcomes.
func (r *QueryLogRepository) CountBetween(ctx context.Context, start, end time.Time, success *bool) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.QueryLog{}).
		Where("query_logs.timestamp >= ? AND query_logs.timestamp < ?", start, end)
	if success != nil {
		q = q.Where("success = ?", *success)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count query logs failed: %w", err)
	}
	return n, nil
}

// AverageLatency returns false when no log falls in the window.
func (r *QueryLogRepository) AverageLatency(ctx context.Context, start, end time.Time) (float64, bool, error) {
	var avg sql.NullFloat64
	err := r.db.WithContext(ctx).Model(&model.QueryLog{}).
		Where("query_logs.timestamp >= ? AND query_logs.timestamp < ?", start, end).
		Select("AVG(latency)").
		Row().Scan(&avg)
	if err != nil {
		return 0, false, fmt.Errorf("average query latency failed: %w", err)
	}
	if !avg.Valid {
		return 0, false, nil
	}
	return avg.Float64, true, nil
}

// List returns logs in the window ordered by id; limit <= 0 means no limit.
func (r *QueryLogRepository) List(ctx context.Context, start, end time.Time, limit int, includeErrors bool) ([]model.QueryLog, error) {
	q := r.db.WithContext(ctx).
		Where("query_logs.timestamp >= ? AND query_logs.timestamp < ?", start, end).
		Order("id ASC")
	if !includeErrors {
		q = q.Where("success = ?", true)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var logs []model.QueryLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list query logs failed: %w", err)
	}
	return logs, nil
}
