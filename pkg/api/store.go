package api

import (
	"context"
	"time"

	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/db"
	"github.com/chatlens/chatlens/pkg/db/models"
	"github.com/chatlens/chatlens/pkg/db/query"
)

// Store is the read side of the conversation store that reports are built from.
type Store interface {
	SentimentDistribution(ctx context.Context, r apitype.DateRange) ([]apitype.SentimentCount, error)
	SentimentTrend(ctx context.Context, r apitype.DateRange) ([]apitype.SentimentTrendPoint, error)
	HourlyResponseTimes(ctx context.Context, r apitype.DateRange) ([]apitype.HourlyResponseTime, error)
	ResponseTimes(ctx context.Context, r apitype.DateRange) ([]float64, error)
	DailySentimentCounts(ctx context.Context, r apitype.DateRange) ([]query.DailySentimentCount, error)
	DailyCounts(ctx context.Context, r apitype.DateRange) ([]apitype.DailyCount, error)
	MessageKindDistribution(ctx context.Context, r apitype.DateRange) ([]apitype.KindCount, error)
	Totals(ctx context.Context, r apitype.DateRange) (query.PeriodTotals, error)
	TotalConversations(ctx context.Context) (int64, error)
	TodayConversations(ctx context.Context, now time.Time) (int64, error)
	RecentConversations(ctx context.Context, limit int) ([]apitype.ConversationRow, error)
	Conversations(ctx context.Context, f query.ConversationFilter) ([]apitype.ConversationRow, error)
	RecentCustomerMessageBodies(ctx context.Context, limit int) ([]string, error)
	EmbeddedCustomerMessages(ctx context.Context, limit int) ([]models.Message, error)
	ConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	UpsertConversationSummary(ctx context.Context, summary *models.ConversationSummary) error
}

// DBStore implements Store with the query package.
type DBStore struct {
	dbc *db.DB
}

func NewDBStore(dbc *db.DB) *DBStore {
	return &DBStore{dbc: dbc}
}

func (s *DBStore) SentimentDistribution(ctx context.Context, r apitype.DateRange) ([]apitype.SentimentCount, error) {
	return query.SentimentDistribution(ctx, s.dbc, r)
}

func (s *DBStore) SentimentTrend(ctx context.Context, r apitype.DateRange) ([]apitype.SentimentTrendPoint, error) {
	return query.SentimentTrend(ctx, s.dbc, r)
}

func (s *DBStore) HourlyResponseTimes(ctx context.Context, r apitype.DateRange) ([]apitype.HourlyResponseTime, error) {
	return query.HourlyResponseTimes(ctx, s.dbc, r)
}

func (s *DBStore) ResponseTimes(ctx context.Context, r apitype.DateRange) ([]float64, error) {
	return query.ResponseTimes(ctx, s.dbc, r)
}

func (s *DBStore) DailySentimentCounts(ctx context.Context, r apitype.DateRange) ([]query.DailySentimentCount, error) {
	return query.DailySentimentCounts(ctx, s.dbc, r)
}

func (s *DBStore) DailyCounts(ctx context.Context, r apitype.DateRange) ([]apitype.DailyCount, error) {
	return query.DailyCounts(ctx, s.dbc, r)
}

func (s *DBStore) MessageKindDistribution(ctx context.Context, r apitype.DateRange) ([]apitype.KindCount, error) {
	return query.MessageKindDistribution(ctx, s.dbc, r)
}

func (s *DBStore) Totals(ctx context.Context, r apitype.DateRange) (query.PeriodTotals, error) {
	return query.Totals(ctx, s.dbc, r)
}

func (s *DBStore) TotalConversations(ctx context.Context) (int64, error) {
	return query.TotalConversations(ctx, s.dbc)
}

func (s *DBStore) TodayConversations(ctx context.Context, now time.Time) (int64, error) {
	return query.TodayConversations(ctx, s.dbc, now)
}

func (s *DBStore) RecentConversations(ctx context.Context, limit int) ([]apitype.ConversationRow, error) {
	return query.RecentConversations(ctx, s.dbc, limit)
}

func (s *DBStore) Conversations(ctx context.Context, f query.ConversationFilter) ([]apitype.ConversationRow, error) {
	return query.Conversations(ctx, s.dbc, f)
}

func (s *DBStore) RecentCustomerMessageBodies(ctx context.Context, limit int) ([]string, error) {
	return query.RecentCustomerMessageBodies(ctx, s.dbc, limit)
}

func (s *DBStore) EmbeddedCustomerMessages(ctx context.Context, limit int) ([]models.Message, error) {
	return query.EmbeddedCustomerMessages(ctx, s.dbc, limit)
}

func (s *DBStore) ConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	return query.ConversationMessages(ctx, s.dbc, conversationID)
}

func (s *DBStore) UpsertConversationSummary(ctx context.Context, summary *models.ConversationSummary) error {
	return query.UpsertConversationSummary(ctx, s.dbc, summary)
}
