// Package apitest provides an in-memory api.Store for tests of packages built
// on top of the reports.
package apitest

import (
	"context"
	"time"

	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/db/models"
	"github.com/chatlens/chatlens/pkg/db/query"
)

// Store returns its fields verbatim, ignoring ranges and limits, and fails
// every call with Err when it is set.
type Store struct {
	Err error

	Sentiments        []apitype.SentimentCount
	Trend             []apitype.SentimentTrendPoint
	Hourly            []apitype.HourlyResponseTime
	ResponseTimeData  []float64
	DailySentiments   []query.DailySentimentCount
	Daily             []apitype.DailyCount
	Kinds             []apitype.KindCount
	PeriodTotals      query.PeriodTotals
	Total             int64
	Today             int64
	Rows              []apitype.ConversationRow
	Bodies            []string
	Embedded          []models.Message
	Messages          map[string][]models.Message
	UpsertedSummaries []*models.ConversationSummary
}

func (s *Store) SentimentDistribution(context.Context, apitype.DateRange) ([]apitype.SentimentCount, error) {
	return s.Sentiments, s.Err
}

func (s *Store) SentimentTrend(context.Context, apitype.DateRange) ([]apitype.SentimentTrendPoint, error) {
	return s.Trend, s.Err
}

func (s *Store) HourlyResponseTimes(context.Context, apitype.DateRange) ([]apitype.HourlyResponseTime, error) {
	return s.Hourly, s.Err
}

func (s *Store) ResponseTimes(context.Context, apitype.DateRange) ([]float64, error) {
	return s.ResponseTimeData, s.Err
}

func (s *Store) DailySentimentCounts(context.Context, apitype.DateRange) ([]query.DailySentimentCount, error) {
	return s.DailySentiments, s.Err
}

func (s *Store) DailyCounts(context.Context, apitype.DateRange) ([]apitype.DailyCount, error) {
	return s.Daily, s.Err
}

func (s *Store) MessageKindDistribution(context.Context, apitype.DateRange) ([]apitype.KindCount, error) {
	return s.Kinds, s.Err
}

func (s *Store) Totals(context.Context, apitype.DateRange) (query.PeriodTotals, error) {
	return s.PeriodTotals, s.Err
}

func (s *Store) TotalConversations(context.Context) (int64, error) {
	return s.Total, s.Err
}

func (s *Store) TodayConversations(context.Context, time.Time) (int64, error) {
	return s.Today, s.Err
}

func (s *Store) RecentConversations(_ context.Context, limit int) ([]apitype.ConversationRow, error) {
	rows := s.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, s.Err
}

func (s *Store) Conversations(_ context.Context, f query.ConversationFilter) ([]apitype.ConversationRow, error) {
	rows := []apitype.ConversationRow{}
	for _, r := range s.Rows {
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		rows = append(rows, r)
	}
	return rows, s.Err
}

func (s *Store) RecentCustomerMessageBodies(context.Context, int) ([]string, error) {
	return s.Bodies, s.Err
}

func (s *Store) EmbeddedCustomerMessages(context.Context, int) ([]models.Message, error) {
	return s.Embedded, s.Err
}

func (s *Store) ConversationMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	return s.Messages[conversationID], s.Err
}

func (s *Store) UpsertConversationSummary(_ context.Context, summary *models.ConversationSummary) error {
	s.UpsertedSummaries = append(s.UpsertedSummaries, summary)
	return s.Err
}
