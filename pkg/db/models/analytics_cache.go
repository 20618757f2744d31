package models

import "time"

type AnalyticsCache struct {
	Key       string    `gorm:"column:cache_key;primaryKey;type:varchar(255)"`
	Payload   []byte    `gorm:"column:cache_data;type:bytea;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

func (AnalyticsCache) TableName() string {
	return "analytics_cache"
}
