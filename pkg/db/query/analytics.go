package query

import (
	"context"
	"time"

	"gorm.io/gorm"

	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/db"
	"github.com/chatlens/chatlens/pkg/db/models"
)

const (
	dateLayout = "2006-01-02"

	// MaxResponseSeconds caps individual latencies in the response-time distribution.
	MaxResponseSeconds = 3600
)

// inRange limits q to messages whose calendar day falls inside r. Either end
// may be open.
func inRange(q *gorm.DB, r apitype.DateRange) *gorm.DB {
	if !r.Start.IsZero() {
		q = q.Where("DATE(timestamp) >= ?", r.Start.Format(dateLayout))
	}
	if !r.End.IsZero() {
		q = q.Where("DATE(timestamp) <= ?", r.End.Format(dateLayout))
	}
	return q
}

func messages(ctx context.Context, dbc *db.DB) *gorm.DB {
	return dbc.DB.WithContext(ctx).Model(&models.Message{})
}

// SentimentDistribution counts labeled messages per sentiment.
func SentimentDistribution(ctx context.Context, dbc *db.DB, r apitype.DateRange) ([]apitype.SentimentCount, error) {
	counts := []apitype.SentimentCount{}
	err := inRange(messages(ctx, dbc), r).
		Select("sentiment, COUNT(*) AS count").
		Where("sentiment IS NOT NULL").
		Group("sentiment").
		Order("count DESC").
		Scan(&counts).Error
	return counts, err
}

// SentimentTrend returns the average score and message count per day.
func SentimentTrend(ctx context.Context, dbc *db.DB, r apitype.DateRange) ([]apitype.SentimentTrendPoint, error) {
	points := []apitype.SentimentTrendPoint{}
	err := inRange(messages(ctx, dbc), r).
		Select("DATE(timestamp) AS date, AVG(sentiment_score) AS sentiment_score, COUNT(*) AS message_count").
		Where("sentiment_score IS NOT NULL").
		Group("DATE(timestamp)").
		Order("date").
		Scan(&points).Error
	return points, err
}

// HourlyResponseTimes averages response latency by hour of day.
func HourlyResponseTimes(ctx context.Context, dbc *db.DB, r apitype.DateRange) ([]apitype.HourlyResponseTime, error) {
	hours := []apitype.HourlyResponseTime{}
	err := inRange(messages(ctx, dbc), r).
		Select("EXTRACT(HOUR FROM timestamp)::int AS hour, AVG(response_time) AS avg_response_time, COUNT(*) AS response_count").
		Where("response_time IS NOT NULL AND response_time > 0").
		Group("hour").
		Order("hour").
		Scan(&hours).Error
	for i := range hours {
		hours[i].AvgResponseTimeMins = hours[i].AvgResponseTime / 60
	}
	return hours, err
}

// ResponseTimes returns individual latencies no larger than MaxResponseSeconds.
func ResponseTimes(ctx context.Context, dbc *db.DB, r apitype.DateRange) ([]float64, error) {
	values := []float64{}
	err := inRange(messages(ctx, dbc), r).
		Where("response_time IS NOT NULL AND response_time > 0 AND response_time <= ?", MaxResponseSeconds).
		Order("timestamp").
		Pluck("response_time", &values).Error
	return values, err
}

// DailySentimentCount is the number of customer messages of one label on one day.
// Unlabeled messages have an empty Sentiment.
type DailySentimentCount struct {
	Date      time.Time
	Sentiment apitype.SentimentLabel
	Count     int64
}

func DailySentimentCounts(ctx context.Context, dbc *db.DB, r apitype.DateRange) ([]DailySentimentCount, error) {
	rows := []DailySentimentCount{}
	err := inRange(messages(ctx, dbc), r).
		Select("DATE(timestamp) AS date, COALESCE(sentiment, '') AS sentiment, COUNT(*) AS count").
		Where("sender_type = ?", apitype.SenderCustomer).
		Group("DATE(timestamp), COALESCE(sentiment, '')").
		Order("date").
		Scan(&rows).Error
	return rows, err
}

func DailyCounts(ctx context.Context, dbc *db.DB, r apitype.DateRange) ([]apitype.DailyCount, error) {
	days := []apitype.DailyCount{}
	err := inRange(messages(ctx, dbc), r).
		Select("DATE(timestamp) AS date, COUNT(DISTINCT conversation_id) AS conversations, COUNT(*) AS messages").
		Group("DATE(timestamp)").
		Order("date").
		Scan(&days).Error
	return days, err
}

func MessageKindDistribution(ctx context.Context, dbc *db.DB, r apitype.DateRange) ([]apitype.KindCount, error) {
	kinds := []apitype.KindCount{}
	err := inRange(messages(ctx, dbc), r).
		Select("message_type AS message_kind, COUNT(*) AS count").
		Group("message_type").
		Order("count DESC").
		Scan(&kinds).Error
	return kinds, err
}

// PeriodTotals are the headline numbers for one date range.
type PeriodTotals struct {
	Conversations      int64
	Messages           int64
	UniqueCustomers    int64
	AvgResponseMinutes float64
}

func Totals(ctx context.Context, dbc *db.DB, r apitype.DateRange) (PeriodTotals, error) {
	var totals PeriodTotals
	err := inRange(messages(ctx, dbc), r).
		Select(`COUNT(DISTINCT conversation_id) AS conversations,
			COUNT(*) AS messages,
			COUNT(DISTINCT user_id) AS unique_customers,
			COALESCE(AVG(response_time), 0) / 60 AS avg_response_minutes`).
		Scan(&totals).Error
	return totals, err
}

// ContextRows returns the newest messages with their sentiment, for prompting.
func ContextRows(ctx context.Context, dbc *db.DB, limit int) ([]apitype.ConversationRow, error) {
	return Conversations(ctx, dbc, ConversationFilter{Limit: limit})
}
