package pipeline

import (
	"context"
	"time"

	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/db"
	"github.com/chatlens/chatlens/pkg/db/models"
	"github.com/chatlens/chatlens/pkg/db/query"
)

// Store is the part of the conversation store the pipeline writes to.
type Store interface {
	GetMessage(ctx context.Context, id uint) (*models.Message, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	PreviousOppositeMessage(ctx context.Context, conversationID string, role apitype.SenderRole, ts time.Time) (*models.Message, error)
	SaveSentiment(ctx context.Context, id uint, label apitype.SentimentLabel, score float64, processedAt time.Time) error
	SaveEmbedding(ctx context.Context, id uint, vector []float64) error
	UnprocessedCustomerMessages(ctx context.Context, limit int) ([]models.Message, error)
	ConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error)
}

type DBStore struct {
	dbc *db.DB
}

func NewDBStore(dbc *db.DB) *DBStore {
	return &DBStore{dbc: dbc}
}

func (s *DBStore) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	return query.GetMessage(ctx, s.dbc, id)
}

func (s *DBStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	return query.CreateMessage(ctx, s.dbc, msg)
}

func (s *DBStore) PreviousOppositeMessage(ctx context.Context, conversationID string, role apitype.SenderRole, ts time.Time) (*models.Message, error) {
	return query.PreviousOppositeMessage(ctx, s.dbc, conversationID, role, ts)
}

func (s *DBStore) SaveSentiment(ctx context.Context, id uint, label apitype.SentimentLabel, score float64, processedAt time.Time) error {
	return query.SaveSentiment(ctx, s.dbc, id, label, score, processedAt)
}

func (s *DBStore) SaveEmbedding(ctx context.Context, id uint, vector []float64) error {
	return query.SaveEmbedding(ctx, s.dbc, id, vector)
}

func (s *DBStore) UnprocessedCustomerMessages(ctx context.Context, limit int) ([]models.Message, error) {
	return query.UnprocessedCustomerMessages(ctx, s.dbc, limit)
}

func (s *DBStore) ConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	return query.ConversationMessages(ctx, s.dbc, conversationID)
}
