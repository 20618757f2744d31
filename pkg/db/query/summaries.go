package query

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/chatlens/chatlens/pkg/db"
	"github.com/chatlens/chatlens/pkg/db/models"
)

// UpsertConversationSummary replaces the stored rollup for the conversation.
func UpsertConversationSummary(ctx context.Context, dbc *db.DB, summary *models.ConversationSummary) error {
	return dbc.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "start_time", "end_time", "total_messages", "customer_messages",
			"admin_messages", "system_messages", "avg_response_time", "satisfaction_score",
			"sentiment_distribution", "tags", "updated_at",
		}),
	}).Create(summary).Error
}

func ActiveTopics(ctx context.Context, dbc *db.DB) ([]models.Topic, error) {
	var topics []models.Topic
	err := dbc.DB.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&topics).Error
	return topics, err
}
