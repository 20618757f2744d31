package analysis

import (
	"fmt"

	apitype "github.com/chatlens/chatlens/pkg/apis/api"
)

const (
	// SlowResponseMinutes is the average response time above which a warning is raised.
	SlowResponseMinutes = 10.0
	// NegativeShareAlert is the negative-sentiment share above which an alert is raised.
	NegativeShareAlert = 0.3
)

// InsightInput carries the aggregates the insight rules look at. Any part may
// be empty; rules without data produce nothing.
type InsightInput struct {
	AvgResponseMinutes float64
	Sentiments         []apitype.SentimentCount
	Topics             []apitype.TopicFrequency
}

// GenerateInsights applies the fixed threshold rules in order: slow responses,
// negative sentiment share, then the most frequent topic.
func GenerateInsights(in InsightInput) []apitype.Insight {
	insights := []apitype.Insight{}

	if in.AvgResponseMinutes > SlowResponseMinutes {
		insights = append(insights, apitype.Insight{
			Type:        apitype.InsightWarning,
			Title:       "เวลาตอบกลับช้า",
			Description: fmt.Sprintf("เวลาตอบกลับเฉลี่ย %.1f นาที เกินเป้าหมาย %.0f นาที", in.AvgResponseMinutes, SlowResponseMinutes),
			Priority:    "high",
		})
	}

	if share, total := NegativeShare(in.Sentiments); total > 0 && share > NegativeShareAlert {
		insights = append(insights, apitype.Insight{
			Type:        apitype.InsightAlert,
			Title:       "ความรู้สึกเชิงลบสูง",
			Description: fmt.Sprintf("ข้อความเชิงลบคิดเป็น %.1f%% จาก %d ข้อความ", share*100, total),
			Priority:    "high",
		})
	}

	if top, ok := mostFrequentTopic(in.Topics); ok {
		insights = append(insights, apitype.Insight{
			Type:        apitype.InsightInfo,
			Title:       "หัวข้อที่พบบ่อยที่สุด",
			Description: fmt.Sprintf("ลูกค้าพูดถึง \"%s\" มากที่สุด (%d ข้อความ)", top.Topic, top.Count),
			Priority:    "medium",
		})
	}

	return insights
}

// NegativeShare returns the fraction of negative messages and the total count.
// Messages without a label are not counted.
func NegativeShare(counts []apitype.SentimentCount) (float64, int64) {
	var total, negative int64
	for _, c := range counts {
		switch c.Sentiment {
		case apitype.SentimentPositive, apitype.SentimentNeutral:
			total += c.Count
		case apitype.SentimentNegative:
			total += c.Count
			negative += c.Count
		}
	}
	if total == 0 {
		return 0, 0
	}
	return float64(negative) / float64(total), total
}

func mostFrequentTopic(topics []apitype.TopicFrequency) (apitype.TopicFrequency, bool) {
	var top apitype.TopicFrequency
	found := false
	for _, t := range topics {
		if t.Count > 0 && (!found || t.Count > top.Count) {
			top = t
			found = true
		}
	}
	return top, found
}

// SatisfactionScore maps a sentiment label onto the 1-5 satisfaction scale.
// Unlabeled messages score as neutral.
func SatisfactionScore(label apitype.SentimentLabel) float64 {
	switch label {
	case apitype.SentimentPositive:
		return 4.5
	case apitype.SentimentNegative:
		return 2.0
	default:
		return 3.0
	}
}

// TopicFrequencies runs the topic classifier over every message and counts how
// often each topic appears, keeping configuration order for equal counts.
func (l *Lexicon) TopicFrequencies(messages []string) []apitype.TopicFrequency {
	counts := map[string]int{}
	confidence := map[string]float64{}
	for _, m := range messages {
		for _, match := range l.ClassifyTopics(m) {
			counts[match.Topic]++
			confidence[match.Topic] += match.Confidence
		}
	}

	freqs := []apitype.TopicFrequency{}
	for _, name := range l.TopicNames() {
		if counts[name] == 0 {
			continue
		}
		freqs = append(freqs, apitype.TopicFrequency{
			Topic:         name,
			Count:         counts[name],
			AvgConfidence: roundTo(confidence[name]/float64(counts[name]), 3),
		})
	}
	sortTopicFrequencies(freqs)
	return freqs
}
