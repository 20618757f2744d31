package models

import (
	"time"

	"gorm.io/datatypes"
)

// ConversationSummary caches the rollup of one conversation. It is always
// recomputed from messages and never edited directly.
type ConversationSummary struct {
	ID                    uint           `json:"id" gorm:"primaryKey"`
	ConversationID        string         `json:"conversation_id" gorm:"uniqueIndex;not null"`
	UserID                string         `json:"user_id" gorm:"not null;index"`
	StartTime             time.Time      `json:"start_time"`
	EndTime               time.Time      `json:"end_time"`
	TotalMessages         int            `json:"total_messages"`
	CustomerMessages      int            `json:"customer_messages"`
	AdminMessages         int            `json:"admin_messages"`
	SystemMessages        int            `json:"system_messages"`
	AvgResponseTime       float64        `json:"avg_response_time"`
	SatisfactionScore     float64        `json:"satisfaction_score" gorm:"type:numeric(3,2)"`
	SentimentDistribution datatypes.JSON `json:"sentiment_distribution"`
	Tags                  datatypes.JSON `json:"tags"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

func (ConversationSummary) TableName() string {
	return "conversation_summaries"
}
