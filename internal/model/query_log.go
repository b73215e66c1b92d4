package model

import (
	"time"

	"gorm.io/gorm"
)

// QueryLog is one search or answer attempt. Rows are append-only.
type QueryLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Query     string    `gorm:"type:text;not null" json:"query"`
	Response  *string   `gorm:"type:text" json:"response"`
	Latency   float64   `gorm:"not null" json:"latency"`
	Success   bool      `gorm:"not null;index:query_logs_success_idx" json:"success"`
	Error     *string   `gorm:"type:text" json:"error,omitempty"`
	Timestamp time.Time `gorm:"not null;index:query_logs_timestamp_idx" json:"timestamp"`
}

func (QueryLog) TableName() string {
	return "query_logs"
}

func (l *QueryLog) BeforeCreate(_ *gorm.DB) error {
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	if l.Latency < 0 {
		l.Latency = 0
	}
	return nil
}
