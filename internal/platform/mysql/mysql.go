package mysql

import (
	"context"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"supportlens/internal/platform/gormdb"
	"supportlens/internal/platform/logger"
)

// New opens a MySQL database for the query log and citation tables.
func New(ctx context.Context, dsn string, log *logger.Logger) (*gorm.DB, error) {
	return gormdb.Open(ctx, "mysql", mysql.Open(dsn), log)
}
