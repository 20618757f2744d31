package api

import (
	"context"
	"math"
	"time"

	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/pkg/ai"
	"github.com/chatlens/chatlens/pkg/analysis"
	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/apis/cache"
	"github.com/chatlens/chatlens/pkg/db/query"
)

const (
	// DefaultTrendDays is the trailing window used when no range is given.
	DefaultTrendDays = 30
	// InsightWindowDays is the trailing window insights are computed over.
	InsightWindowDays = 7

	TopicSampleSize      = 100
	SimilarityCorpusSize = 100
	DefaultRecentLimit   = 10
	DefaultSimilarLimit  = 5
)

// Reports builds the dashboard reports from a Store, caching the expensive
// ones.
type Reports struct {
	store    Store
	cache    cache.Cache
	lexicon  *analysis.Lexicon
	embedder ai.Embedder
	now      func() time.Time
}

// NewReports wires a report generator. c and embedder may be nil; without a
// cache every report is generated and without an embedder similarity search
// fails as unavailable.
func NewReports(store Store, c cache.Cache, lexicon *analysis.Lexicon, embedder ai.Embedder) *Reports {
	if lexicon == nil {
		lexicon = analysis.DefaultLexicon()
	}
	return &Reports{store: store, cache: c, lexicon: lexicon, embedder: embedder, now: time.Now}
}

type reportCacheKey struct {
	Report string
	Start  string
	End    string
}

func newReportCacheKey(report string, r apitype.DateRange) reportCacheKey {
	key := reportCacheKey{Report: report}
	if !r.Start.IsZero() {
		key.Start = r.Start.Format("2006-01-02")
	}
	if !r.End.IsZero() {
		key.End = r.End.Format("2006-01-02")
	}
	return key
}

// Trailing returns the last days calendar days ending today.
func (r *Reports) Trailing(days int) apitype.DateRange {
	now := r.now()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return apitype.DateRange{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

func (r *Reports) orTrailing(rng apitype.DateRange, days int) apitype.DateRange {
	if rng.IsSet() {
		return rng
	}
	return r.Trailing(days)
}

func queryFailed(report string, err error) []error {
	log.WithError(err).WithField("report", report).Error("error querying conversation store")
	return []error{err}
}

// SentimentDistribution counts labeled messages per sentiment in the range.
func (r *Reports) SentimentDistribution(ctx context.Context, rng apitype.DateRange, opts cache.RequestOptions) ([]apitype.SentimentCount, []error) {
	return getReportFromCacheOrGenerate(ctx, r.cache, opts, newReportCacheKey("sentiment_analysis", rng),
		func() ([]apitype.SentimentCount, []error) {
			counts, err := r.store.SentimentDistribution(ctx, rng)
			if err != nil {
				return []apitype.SentimentCount{}, queryFailed("sentiment_analysis", err)
			}
			return counts, nil
		}, []apitype.SentimentCount{})
}

// SentimentTrend returns the daily average sentiment score, by default over
// the last DefaultTrendDays days.
func (r *Reports) SentimentTrend(ctx context.Context, rng apitype.DateRange, opts cache.RequestOptions) ([]apitype.SentimentTrendPoint, []error) {
	rng = r.orTrailing(rng, DefaultTrendDays)
	return getReportFromCacheOrGenerate(ctx, r.cache, opts, newReportCacheKey("sentiment_trend", rng),
		func() ([]apitype.SentimentTrendPoint, []error) {
			points, err := r.store.SentimentTrend(ctx, rng)
			if err != nil {
				return []apitype.SentimentTrendPoint{}, queryFailed("sentiment_trend", err)
			}
			for i := range points {
				points[i].SentimentScore = round2(points[i].SentimentScore)
			}
			return points, nil
		}, []apitype.SentimentTrendPoint{})
}

// ResponseTimes reports latency by hour of day together with the capped
// individual latencies and their summary statistics.
func (r *Reports) ResponseTimes(ctx context.Context, rng apitype.DateRange) (apitype.ResponseTimeReport, []error) {
	report := apitype.ResponseTimeReport{
		Hourly:       []apitype.HourlyResponseTime{},
		Distribution: []float64{},
	}
	var errs []error

	hourly, err := r.store.HourlyResponseTimes(ctx, rng)
	if err != nil {
		errs = append(errs, queryFailed("hourly_response_time", err)...)
	} else {
		report.Hourly = hourly
	}

	values, err := r.store.ResponseTimes(ctx, rng)
	if err != nil {
		errs = append(errs, queryFailed("response_time_distribution", err)...)
	} else {
		report.Distribution = values
		report.Summary = summarizeResponseTimes(values)
	}
	return report, errs
}

func summarizeResponseTimes(values []float64) apitype.ResponseTimeSummary {
	if len(values) == 0 {
		return apitype.ResponseTimeSummary{}
	}
	data := stats.LoadRawData(values)
	mean, _ := stats.Mean(data)
	median, _ := stats.Median(data)
	maxValue, _ := stats.Max(data)
	p95, err := stats.Percentile(data, 95)
	if err != nil {
		p95 = maxValue
	}
	return apitype.ResponseTimeSummary{
		Count:  len(values),
		Mean:   round2(mean),
		Median: round2(median),
		P95:    round2(p95),
		Max:    round2(maxValue),
	}
}

// Satisfaction scores customer messages by sentiment, by default over the
// last DefaultTrendDays days.
func (r *Reports) Satisfaction(ctx context.Context, rng apitype.DateRange) (apitype.SatisfactionReport, []error) {
	rng = r.orTrailing(rng, DefaultTrendDays)
	rows, err := r.store.DailySentimentCounts(ctx, rng)
	if err != nil {
		return apitype.SatisfactionReport{Trend: []apitype.SatisfactionPoint{}}, queryFailed("satisfaction", err)
	}
	return satisfaction(rows), nil
}

func satisfaction(rows []query.DailySentimentCount) apitype.SatisfactionReport {
	report := apitype.SatisfactionReport{Trend: []apitype.SatisfactionPoint{}}
	var total float64
	var day *apitype.SatisfactionPoint
	var dayTotal float64

	flush := func() {
		if day != nil && day.MessageCount > 0 {
			day.Satisfaction = round2(dayTotal / float64(day.MessageCount))
			report.Trend = append(report.Trend, *day)
		}
	}
	for _, row := range rows {
		if day == nil || !row.Date.Equal(day.Date) {
			flush()
			day = &apitype.SatisfactionPoint{Date: row.Date}
			dayTotal = 0
		}
		score := analysis.SatisfactionScore(row.Sentiment) * float64(row.Count)
		day.MessageCount += row.Count
		dayTotal += score
		report.MessageCount += row.Count
		total += score
	}
	flush()

	if report.MessageCount > 0 {
		report.AverageSatisfaction = round2(total / float64(report.MessageCount))
	}
	return report
}

// Overview returns the headline totals. When the range is set, the changes
// are measured against the window of equal length right before it.
func (r *Reports) Overview(ctx context.Context, rng apitype.DateRange) (apitype.Overview, []error) {
	current, err := r.store.Totals(ctx, rng)
	if err != nil {
		return apitype.Overview{}, queryFailed("overview", err)
	}
	overview := apitype.Overview{
		TotalConversations: current.Conversations,
		TotalMessages:      current.Messages,
		UniqueCustomers:    current.UniqueCustomers,
		AvgResponseMinutes: round2(current.AvgResponseMinutes),
	}
	if !rng.IsSet() {
		return overview, nil
	}

	previous, err := r.store.Totals(ctx, rng.Previous())
	if err != nil {
		return overview, queryFailed("overview_previous", err)
	}
	overview.ConversationChange = current.Conversations - previous.Conversations
	overview.MessageChange = current.Messages - previous.Messages
	overview.CustomerChange = current.UniqueCustomers - previous.UniqueCustomers
	return overview, nil
}

func (r *Reports) DailyCounts(ctx context.Context, rng apitype.DateRange) ([]apitype.DailyCount, []error) {
	days, err := r.store.DailyCounts(ctx, r.orTrailing(rng, DefaultTrendDays))
	if err != nil {
		return []apitype.DailyCount{}, queryFailed("daily", err)
	}
	return days, nil
}

func (r *Reports) MessageKinds(ctx context.Context, rng apitype.DateRange) ([]apitype.KindCount, []error) {
	kinds, err := r.store.MessageKindDistribution(ctx, rng)
	if err != nil {
		return []apitype.KindCount{}, queryFailed("message_types", err)
	}
	return kinds, nil
}

func (r *Reports) RecentConversations(ctx context.Context, limit int) ([]apitype.ConversationRow, []error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := r.store.RecentConversations(ctx, limit)
	if err != nil {
		return []apitype.ConversationRow{}, queryFailed("recent_conversations", err)
	}
	return rows, nil
}

func (r *Reports) Conversations(ctx context.Context, f query.ConversationFilter) ([]apitype.ConversationRow, []error) {
	rows, err := r.store.Conversations(ctx, f)
	if err != nil {
		return []apitype.ConversationRow{}, queryFailed("conversations", err)
	}
	return rows, nil
}

// ConversationCounts is the number of distinct conversations overall and today.
type ConversationCounts struct {
	Total int64 `json:"total"`
	Today int64 `json:"today"`
}

func (r *Reports) ConversationCounts(ctx context.Context) (ConversationCounts, []error) {
	var counts ConversationCounts
	var errs []error
	total, err := r.store.TotalConversations(ctx)
	if err != nil {
		errs = append(errs, queryFailed("total_conversations", err)...)
	}
	counts.Total = total
	today, err := r.store.TodayConversations(ctx, r.now())
	if err != nil {
		errs = append(errs, queryFailed("today_conversations", err)...)
	}
	counts.Today = today
	return counts, errs
}

// Topics counts lexicon topics over the most recent customer messages.
func (r *Reports) Topics(ctx context.Context) ([]apitype.TopicFrequency, []error) {
	bodies, err := r.store.RecentCustomerMessageBodies(ctx, TopicSampleSize)
	if err != nil {
		return []apitype.TopicFrequency{}, queryFailed("topics", err)
	}
	return r.lexicon.TopicFrequencies(bodies), nil
}

// Insights thresholds the last InsightWindowDays days of activity.
func (r *Reports) Insights(ctx context.Context, opts cache.RequestOptions) ([]apitype.Insight, []error) {
	rng := r.Trailing(InsightWindowDays)
	var errs []error

	totals, err := r.store.Totals(ctx, rng)
	if err != nil {
		errs = append(errs, queryFailed("insights_totals", err)...)
	}
	sentiments, sentimentErrs := r.SentimentDistribution(ctx, rng, opts)
	errs = append(errs, sentimentErrs...)
	topics, topicErrs := r.Topics(ctx)
	errs = append(errs, topicErrs...)

	insights := analysis.GenerateInsights(analysis.InsightInput{
		AvgResponseMinutes: totals.AvgResponseMinutes,
		Sentiments:         sentiments,
		Topics:             topics,
	})
	return insights, errs
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
