package assistant

import (
	"context"

	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/db"
	"github.com/chatlens/chatlens/pkg/db/models"
	"github.com/chatlens/chatlens/pkg/db/query"
)

type DBSource struct {
	dbc *db.DB
}

func NewDBSource(dbc *db.DB) *DBSource {
	return &DBSource{dbc: dbc}
}

func (s *DBSource) ContextRows(ctx context.Context, limit int) ([]apitype.ConversationRow, error) {
	return query.ContextRows(ctx, s.dbc, limit)
}

func (s *DBSource) ConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	return query.ConversationMessages(ctx, s.dbc, conversationID)
}
