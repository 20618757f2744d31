package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/db"
	"github.com/chatlens/chatlens/pkg/db/models"
)

// ErrNotFound is returned when a single requested row does not exist.
var ErrNotFound = errors.New("not found")

const previewLength = 100

func GetMessage(ctx context.Context, dbc *db.DB, id uint) (*models.Message, error) {
	var msg models.Message
	err := dbc.DB.WithContext(ctx).First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// PreviousOppositeMessage returns the latest message in the conversation sent
// before ts by a different role than role. It returns nil when there is none.
func PreviousOppositeMessage(ctx context.Context, dbc *db.DB, conversationID string, role apitype.SenderRole, ts time.Time) (*models.Message, error) {
	var msg models.Message
	res := dbc.DB.WithContext(ctx).
		Where("conversation_id = ? AND sender_type <> ? AND timestamp <= ?", conversationID, role, ts).
		Order("timestamp DESC, id DESC").
		Limit(1).
		Find(&msg)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &msg, nil
}

func CreateMessage(ctx context.Context, dbc *db.DB, msg *models.Message) error {
	return dbc.DB.WithContext(ctx).Create(msg).Error
}

// SaveSentiment stores the label and score together and marks the message processed.
func SaveSentiment(ctx context.Context, dbc *db.DB, id uint, label apitype.SentimentLabel, score float64, processedAt time.Time) error {
	res := dbc.DB.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sentiment":       label,
			"sentiment_score": score,
			"processed_at":    processedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	return nil
}

func SaveEmbedding(ctx context.Context, dbc *db.DB, id uint, vector []float64) error {
	encoded, err := models.EncodeEmbedding(vector)
	if err != nil {
		return err
	}
	return dbc.DB.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND processed_at IS NOT NULL", id).
		Update("embedding_vector", encoded).Error
}

// UnprocessedCustomerMessages returns customer messages that have not been
// classified yet, newest first.
func UnprocessedCustomerMessages(ctx context.Context, dbc *db.DB, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := dbc.DB.WithContext(ctx).
		Where("sender_type = ? AND processed_at IS NULL", apitype.SenderCustomer).
		Order("timestamp DESC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

// EmbeddedCustomerMessages returns the most recent customer messages that
// carry an embedding.
func EmbeddedCustomerMessages(ctx context.Context, dbc *db.DB, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := dbc.DB.WithContext(ctx).
		Where("sender_type = ? AND embedding_vector IS NOT NULL", apitype.SenderCustomer).
		Order("timestamp DESC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

func ConversationMessages(ctx context.Context, dbc *db.DB, conversationID string) ([]models.Message, error) {
	var msgs []models.Message
	err := dbc.DB.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// RecentCustomerMessageBodies returns the text of the latest customer messages.
func RecentCustomerMessageBodies(ctx context.Context, dbc *db.DB, limit int) ([]string, error) {
	var bodies []string
	err := dbc.DB.WithContext(ctx).Model(&models.Message{}).
		Where("sender_type = ?", apitype.SenderCustomer).
		Order("timestamp DESC").
		Limit(limit).
		Pluck("message", &bodies).Error
	return bodies, err
}

// ConversationFilter narrows the conversation log. Zero fields are ignored.
type ConversationFilter struct {
	UserID string
	Day    time.Time
	Limit  int
}

// Conversations returns message rows matching the filter, newest first.
func Conversations(ctx context.Context, dbc *db.DB, f ConversationFilter) ([]apitype.ConversationRow, error) {
	q := dbc.DB.WithContext(ctx).Model(&models.Message{}).
		Select("id, conversation_id, user_id, message, sender_type AS sender_role, message_type AS message_kind, timestamp, COALESCE(sentiment, '') AS sentiment")
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if !f.Day.IsZero() {
		q = q.Where("DATE(timestamp) = ?", f.Day.Format(dateLayout))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	rows := []apitype.ConversationRow{}
	err := q.Order("timestamp DESC").Limit(limit).Scan(&rows).Error
	return rows, err
}

// RecentConversations returns the latest messages with the body cut to a preview.
func RecentConversations(ctx context.Context, dbc *db.DB, limit int) ([]apitype.ConversationRow, error) {
	rows, err := Conversations(ctx, dbc, ConversationFilter{Limit: limit})
	for i := range rows {
		rows[i].Message = truncateRunes(rows[i].Message, previewLength)
	}
	return rows, err
}

func TotalConversations(ctx context.Context, dbc *db.DB) (int64, error) {
	var total int64
	err := dbc.DB.WithContext(ctx).Model(&models.Message{}).
		Distinct("conversation_id").
		Count(&total).Error
	return total, err
}

func TodayConversations(ctx context.Context, dbc *db.DB, now time.Time) (int64, error) {
	var total int64
	err := dbc.DB.WithContext(ctx).Model(&models.Message{}).
		Where("DATE(timestamp) = ?", now.Format(dateLayout)).
		Distinct("conversation_id").
		Count(&total).Error
	return total, err
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
