package api

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/pkg/analysis"
	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/db/models"
	"github.com/chatlens/chatlens/pkg/db/query"
)

const summaryTopTopics = 3

// ConversationSummary recomputes the rollup of one conversation from its
// messages and stores it. A failure to store is logged, the computed summary
// is still returned.
func (r *Reports) ConversationSummary(ctx context.Context, conversationID string) (apitype.ConversationSummary, error) {
	msgs, err := r.store.ConversationMessages(ctx, conversationID)
	if err != nil {
		queryFailed("conversation_summary", err)
		return apitype.ConversationSummary{}, err
	}
	if len(msgs) == 0 {
		return apitype.ConversationSummary{}, fmt.Errorf("conversation %q: %w", conversationID, query.ErrNotFound)
	}

	summary := summarizeConversation(r.lexicon, msgs)
	if err := r.store.UpsertConversationSummary(ctx, summaryModel(summary)); err != nil {
		log.WithError(err).WithField("conversation", conversationID).Warning("could not store conversation summary")
	}
	return summary, nil
}

// summarizeConversation expects msgs in timestamp order.
func summarizeConversation(lexicon *analysis.Lexicon, msgs []models.Message) apitype.ConversationSummary {
	first, last := msgs[0], msgs[len(msgs)-1]
	s := apitype.ConversationSummary{
		ConversationID:        first.ConversationID,
		StartTime:             first.Timestamp,
		EndTime:               last.Timestamp,
		DurationSeconds:       last.Timestamp.Sub(first.Timestamp).Seconds(),
		TotalMessages:         len(msgs),
		SentimentDistribution: map[apitype.SentimentLabel]int{},
		TopTopics:             []apitype.TopicFrequency{},
	}

	var satisfaction, responseTotal float64
	var responses int
	var customerBodies []string
	for i := range msgs {
		m := &msgs[i]
		switch m.SenderRole {
		case apitype.SenderCustomer:
			s.CustomerMessages++
			if s.UserID == "" {
				s.UserID = m.UserID
			}
			satisfaction += analysis.SatisfactionScore(m.SentimentLabel())
			customerBodies = append(customerBodies, m.Body)
		case apitype.SenderAdmin:
			s.AdminMessages++
		case apitype.SenderSystem:
			s.SystemMessages++
		}
		if label := m.SentimentLabel(); label != "" {
			s.SentimentDistribution[label]++
		}
		if m.ResponseTime != nil && *m.ResponseTime > 0 {
			responseTotal += *m.ResponseTime
			responses++
		}
	}
	if s.UserID == "" {
		s.UserID = first.UserID
	}
	if s.CustomerMessages > 0 {
		s.SatisfactionScore = round2(satisfaction / float64(s.CustomerMessages))
	}
	if responses > 0 {
		s.AvgResponseTime = round2(responseTotal / float64(responses))
	}

	topics := lexicon.TopicFrequencies(customerBodies)
	if len(topics) > summaryTopTopics {
		topics = topics[:summaryTopTopics]
	}
	s.TopTopics = topics
	return s
}

func summaryModel(s apitype.ConversationSummary) *models.ConversationSummary {
	distribution, _ := json.Marshal(s.SentimentDistribution)
	tags := make([]string, 0, len(s.TopTopics))
	for _, t := range s.TopTopics {
		tags = append(tags, t.Topic)
	}
	encodedTags, _ := json.Marshal(tags)

	return &models.ConversationSummary{
		ConversationID:        s.ConversationID,
		UserID:                s.UserID,
		StartTime:             s.StartTime,
		EndTime:               s.EndTime,
		TotalMessages:         s.TotalMessages,
		CustomerMessages:      s.CustomerMessages,
		AdminMessages:         s.AdminMessages,
		SystemMessages:        s.SystemMessages,
		AvgResponseTime:       s.AvgResponseTime,
		SatisfactionScore:     s.SatisfactionScore,
		SentimentDistribution: distribution,
		Tags:                  encodedTags,
	}
}
