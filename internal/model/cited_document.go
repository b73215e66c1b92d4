package model

// CitedDocument links a successful QueryLog to a chunk that contributed to it.
type CitedDocument struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FilePath   string    `gorm:"size:1024;not null;index" json:"file_path"`
	NodeID     string    `gorm:"size:36;not null" json:"node_id"`
	Score      float64   `json:"score"`
	QueryLogID uint      `gorm:"not null;index" json:"query_log_id"`
	QueryLog   *QueryLog `gorm:"foreignKey:QueryLogID" json:"-"`
}

func (CitedDocument) TableName() string {
	return "cited_documents"
}
