package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgtype"

	apitype "github.com/chatlens/chatlens/pkg/apis/api"
)

// Message is one turn of a conversation. Sentiment and SentimentScore are
// written together by the message pipeline, which also sets ProcessedAt before
// any embedding is stored.
type Message struct {
	ID             uint                `json:"id" gorm:"primaryKey"`
	ConversationID string              `json:"conversation_id" gorm:"not null;index:idx_messages_conversation_ts,priority:1"`
	UserID         string              `json:"user_id" gorm:"not null;index"`
	SenderRole     apitype.SenderRole  `json:"sender_type" gorm:"column:sender_type;type:varchar(16);not null;index"`
	Body           string              `json:"message" gorm:"column:message;type:text;not null"`
	MessageKind    apitype.MessageKind `json:"message_type" gorm:"column:message_type;type:varchar(16);not null;default:text"`
	Timestamp      time.Time           `json:"timestamp" gorm:"not null;index;index:idx_messages_conversation_ts,priority:2"`

	// ResponseTime is the number of seconds since the previous message of the
	// other party in the same conversation.
	ResponseTime *float64 `json:"response_time,omitempty"`

	Sentiment       *apitype.SentimentLabel `json:"sentiment,omitempty" gorm:"type:varchar(16);index"`
	SentimentScore  *float64                `json:"sentiment_score,omitempty" gorm:"type:numeric(3,2)"`
	EmbeddingVector pgtype.JSONB            `json:"-" gorm:"type:jsonb"`
	Metadata        pgtype.JSONB            `json:"metadata,omitempty" gorm:"type:jsonb"`
	ProcessedAt     *time.Time              `json:"processed_at,omitempty" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

// Processed reports whether the pipeline has already classified this message.
func (m *Message) Processed() bool {
	return m.ProcessedAt != nil
}

// HasEmbedding is true when a vector has been stored.
func (m *Message) HasEmbedding() bool {
	return m.EmbeddingVector.Status == pgtype.Present && len(m.EmbeddingVector.Bytes) > 0
}

// Embedding decodes the stored vector.
func (m *Message) Embedding() ([]float64, error) {
	if !m.HasEmbedding() {
		return nil, fmt.Errorf("message %d has no embedding", m.ID)
	}
	var vec []float64
	if err := json.Unmarshal(m.EmbeddingVector.Bytes, &vec); err != nil {
		return nil, fmt.Errorf("message %d has a malformed embedding: %w", m.ID, err)
	}
	return vec, nil
}

// EncodeEmbedding converts a vector into its stored JSON form.
func EncodeEmbedding(vec []float64) (pgtype.JSONB, error) {
	b, err := json.Marshal(vec)
	if err != nil {
		return pgtype.JSONB{}, err
	}
	return pgtype.JSONB{Bytes: b, Status: pgtype.Present}, nil
}

// SentimentLabel returns the label or the empty string when unset.
func (m *Message) SentimentLabel() apitype.SentimentLabel {
	if m.Sentiment == nil {
		return ""
	}
	return *m.Sentiment
}
