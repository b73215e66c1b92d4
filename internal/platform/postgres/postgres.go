package postgres

import (
	"context"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"supportlens/internal/platform/gormdb"
	"supportlens/internal/platform/logger"
)

// New opens the Postgres database that holds the chunk index (pgvector) and,
// by default, the query log store.
func New(ctx context.Context, dsn string, log *logger.Logger) (*gorm.DB, error) {
	return gormdb.Open(ctx, "postgres", postgres.Open(dsn), log)
}
