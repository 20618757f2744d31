package assistant

import (
	"sort"
	"strings"
)

const (
	IntentGeneral = "general"
	maxIntents    = 3
)

type intentRule struct {
	name     string
	keywords []string
}

var intentRules = []intentRule{
	{name: "analytics", keywords: []string{"สถิติ", "วิเคราะห์", "จำนวน", "กราฟ", "ข้อมูล", "รายงาน"}},
	{name: "sentiment", keywords: []string{"ความรู้สึก", "พอใจ", "ไม่พอใจ", "โกรธ", "ดีใจ", "sentiment"}},
	{name: "topics", keywords: []string{"หัวข้อ", "เรื่อง", "ปัญหา", "topic", "ร้องเรียน"}},
	{name: "performance", keywords: []string{"ประสิทธิภาพ", "เร็ว", "ช้า", "ตอบกลับ", "response time"}},
	{name: "suggestions", keywords: []string{"แนะนำ", "ปรับปรุง", "พัฒนา", "ช่วย", "ควร"}},
}

type Intent struct {
	Intent        string  `json:"intent"`
	Confidence    float64 `json:"confidence"`
	KeywordsFound int     `json:"keywords_found"`
}

type IntentAnalysis struct {
	Question      string   `json:"question"`
	Intents       []Intent `json:"intents"`
	PrimaryIntent string   `json:"primary_intent"`
}

// AnalyzeIntent guesses what a question is about from keyword hits. At most
// three intents are returned, the most confident first.
func AnalyzeIntent(question string) IntentAnalysis {
	lower := strings.ToLower(question)
	intents := []Intent{}
	for _, rule := range intentRules {
		hits := 0
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > 0 {
			intents = append(intents, Intent{
				Intent:        rule.name,
				Confidence:    float64(hits) / float64(len(rule.keywords)),
				KeywordsFound: hits,
			})
		}
	}
	sort.SliceStable(intents, func(i, j int) bool {
		return intents[i].Confidence > intents[j].Confidence
	})
	if len(intents) > maxIntents {
		intents = intents[:maxIntents]
	}

	analysis := IntentAnalysis{Question: question, Intents: intents, PrimaryIntent: IntentGeneral}
	if len(intents) > 0 {
		analysis.PrimaryIntent = intents[0].Intent
	}
	return analysis
}
