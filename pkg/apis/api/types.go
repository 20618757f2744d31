// Package api contains the types returned by the chatlens JSON API and shared
// between the analysis, query and server packages.
package api

import (
	"time"
)

type Sort string

const (
	SortAscending  Sort = "asc"
	SortDescending Sort = "desc"
)

// SentimentLabel is the coarse polarity assigned to a message.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// SenderRole identifies who wrote a message.
type SenderRole string

const (
	SenderCustomer SenderRole = "customer"
	SenderAdmin    SenderRole = "admin"
	SenderSystem   SenderRole = "system"
)

// Valid reports whether r is one of the known sender roles.
func (r SenderRole) Valid() bool {
	switch r {
	case SenderCustomer, SenderAdmin, SenderSystem:
		return true
	}
	return false
}

// MessageKind is the content type of a message as delivered by the messaging platform.
type MessageKind string

const (
	MessageKindText     MessageKind = "text"
	MessageKindImage    MessageKind = "image"
	MessageKindVideo    MessageKind = "video"
	MessageKindAudio    MessageKind = "audio"
	MessageKindFile     MessageKind = "file"
	MessageKindSticker  MessageKind = "sticker"
	MessageKindLocation MessageKind = "location"
)

func (k MessageKind) Valid() bool {
	switch k {
	case MessageKindText, MessageKindImage, MessageKindVideo, MessageKindAudio,
		MessageKindFile, MessageKindSticker, MessageKindLocation:
		return true
	}
	return false
}

// DateRange is an inclusive calendar-day window. A zero Start or End means the
// range is open on that side.
type DateRange struct {
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// IsSet is true when both ends of the range are given.
func (r DateRange) IsSet() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

// Days returns the number of calendar days covered by the range, inclusive.
func (r DateRange) Days() int {
	if !r.IsSet() {
		return 0
	}
	start := truncateDay(r.Start)
	end := truncateDay(r.End)
	return int(end.Sub(start).Hours()/24) + 1
}

// Previous returns the window of the same length immediately before r.
func (r DateRange) Previous() DateRange {
	days := r.Days()
	if days == 0 {
		return DateRange{}
	}
	end := truncateDay(r.Start).AddDate(0, 0, -1)
	return DateRange{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

type SentimentCount struct {
	Sentiment SentimentLabel `json:"sentiment"`
	Count     int64          `json:"count"`
}

type SentimentTrendPoint struct {
	Date           time.Time `json:"date"`
	SentimentScore float64   `json:"sentiment_score"`
	MessageCount   int64     `json:"message_count"`
}

type HourlyResponseTime struct {
	Hour                int     `json:"hour"`
	AvgResponseTime     float64 `json:"avg_response_time"`
	ResponseCount       int64   `json:"response_count"`
	AvgResponseTimeMins float64 `json:"avg_response_time_minutes"`
}

type ResponseTimeSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

type ResponseTimeReport struct {
	Hourly       []HourlyResponseTime `json:"hourly"`
	Distribution []float64            `json:"distribution"`
	Summary      ResponseTimeSummary  `json:"summary"`
}

type SatisfactionPoint struct {
	Date         time.Time `json:"date"`
	Satisfaction float64   `json:"satisfaction"`
	MessageCount int64     `json:"message_count"`
}

type SatisfactionReport struct {
	AverageSatisfaction float64             `json:"average_satisfaction"`
	MessageCount        int64               `json:"message_count"`
	Trend               []SatisfactionPoint `json:"trend"`
}

type DailyCount struct {
	Date          time.Time `json:"date"`
	Conversations int64     `json:"conversations"`
	Messages      int64     `json:"messages"`
}

type KindCount struct {
	MessageKind MessageKind `json:"message_type"`
	Count       int64       `json:"count"`
}

type ConversationRow struct {
	ID             uint           `json:"id"`
	ConversationID string         `json:"conversation_id"`
	UserID         string         `json:"user_id"`
	Message        string         `json:"message"`
	SenderRole     SenderRole     `json:"sender_type"`
	MessageKind    MessageKind    `json:"message_type"`
	Timestamp      time.Time      `json:"timestamp"`
	Sentiment      SentimentLabel `json:"sentiment,omitempty"`
}

// Overview is the headline block of the dashboard.
type Overview struct {
	TotalConversations int64   `json:"total_conversations"`
	TotalMessages      int64   `json:"total_messages"`
	UniqueCustomers    int64   `json:"unique_customers"`
	AvgResponseMinutes float64 `json:"avg_response_time"`
	ConversationChange int64   `json:"conversation_change"`
	MessageChange      int64   `json:"message_change"`
	CustomerChange     int64   `json:"customer_change"`
}

type TopicFrequency struct {
	Topic         string  `json:"topic"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

type InsightType string

const (
	InsightWarning InsightType = "warning"
	InsightAlert   InsightType = "alert"
	InsightInfo    InsightType = "info"
)

type Insight struct {
	Type        InsightType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Priority    string      `json:"priority"`
}

type SimilarMessage struct {
	ID             uint      `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
	Similarity     float64   `json:"similarity"`
}

// ConversationSummary is derived from the messages of one conversation and is
// recomputed on demand.
type ConversationSummary struct {
	ConversationID        string                 `json:"conversation_id"`
	UserID                string                 `json:"user_id"`
	StartTime             time.Time              `json:"start_time"`
	EndTime               time.Time              `json:"end_time"`
	DurationSeconds       float64                `json:"duration_seconds"`
	TotalMessages         int                    `json:"total_messages"`
	CustomerMessages      int                    `json:"customer_messages"`
	AdminMessages         int                    `json:"admin_messages"`
	SystemMessages        int                    `json:"system_messages"`
	AvgResponseTime       float64                `json:"avg_response_time"`
	SatisfactionScore     float64                `json:"satisfaction_score"`
	SentimentDistribution map[SentimentLabel]int `json:"sentiment_distribution"`
	TopTopics             []TopicFrequency       `json:"top_topics"`
}

type ServiceStatus struct {
	Name      string        `json:"name"`
	Available bool          `json:"available"`
	Status    string        `json:"status"`
	Model     string        `json:"model,omitempty"`
	Error     string        `json:"error,omitempty"`
	Latency   time.Duration `json:"latency_ns,omitempty"`
}

// Widget wraps one dashboard block. Errors are reported inline so the other
// blocks of the same page still render.
type Widget[T any] struct {
	Data   T        `json:"data"`
	Errors []string `json:"errors,omitempty"`
}

func NewWidget[T any](data T, errs []error) Widget[T] {
	w := Widget[T]{Data: data}
	for _, err := range errs {
		if err != nil {
			w.Errors = append(w.Errors, err.Error())
		}
	}
	return w
}
