package models

import (
	"time"

	"github.com/lib/pq"
)

// Topic is a keyword category. Rows are seeded from the lexicon on migrate.
type Topic struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"topic_name" gorm:"column:topic_name;uniqueIndex;not null"`
	Description string         `json:"description"`
	Keywords    pq.StringArray `json:"keywords" gorm:"type:text[]"`
	Color       string         `json:"color" gorm:"type:varchar(7);default:'#007bff'"`
	IsActive    bool           `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
}
