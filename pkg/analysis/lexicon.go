// Package analysis holds the keyword heuristics, similarity search, reply
// suggestions and insight rules used by chatlens. Everything in this package is
// a pure function of its input; persistence and network calls live elsewhere.
package analysis

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	apitype "github.com/chatlens/chatlens/pkg/apis/api"
)

const (
	maxSentimentScore = 0.8
	baseSentiment     = 0.5
	sentimentStep     = 0.1

	// MaxTopicsPerMessage bounds the number of topics ClassifyTopics returns.
	MaxTopicsPerMessage = 3
)

// Topic is a named category with a fixed keyword set.
type Topic struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Lexicon holds the static keyword tables. Topics are kept in configuration
// order, which is also the tie-break order for equal confidences.
type Lexicon struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
	Topics   []Topic  `yaml:"topics"`
}

type Sentiment struct {
	Label      apitype.SentimentLabel `json:"sentiment"`
	Score      float64                `json:"score"`
	Confidence float64                `json:"confidence"`
}

type TopicMatch struct {
	Topic         string  `json:"topic"`
	Confidence    float64 `json:"confidence"`
	KeywordsFound int     `json:"keywords_found"`
}

// DefaultLexicon returns the built-in Thai/English keyword tables.
//
// The negative list contains the negation particle "ไม่", so negated positive
// phrases ("ไม่ดี") are counted as negative. This is a known limitation of the
// heuristic and other reports rely on it.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Positive: []string{
			"ดี", "เยี่ยม", "สุดยอด", "ชอบ", "พอใจ", "ประทับใจ", "ขอบคุณ", "สวย", "เก่ง",
			"ใช่", "โอเค", "ตกลง", "ยอดเยี่ยม", "เจ๋ง", "เลิศ", "perfect", "good", "great",
			"excellent", "amazing", "wonderful", "fantastic", "awesome", "love", "like",
		},
		Negative: []string{
			"แย่", "ไม่ดี", "เสีย", "ชัง", "เกลียด", "โกรธ", "ผิดหวัง", "น่าเบื่อ", "แปลก",
			"ไม่", "อย่า", "หยุด", "ปัญหา", "ข้อผิดพลาด", "เสียใจ", "bad", "terrible",
			"awful", "hate", "angry", "disappointed", "problem", "error", "wrong",
		},
		Topics: []Topic{
			{Name: "การสั่งซื้อ", Keywords: []string{"สั่ง", "ซื้อ", "order", "buy", "purchase", "เก็บเงิน", "จ่าย", "ชำระ"}},
			{Name: "การจัดส่ง", Keywords: []string{"จัดส่ง", "ส่ง", "delivery", "ship", "ขนส่ง", "รับ", "ได้รับ"}},
			{Name: "สินค้า", Keywords: []string{"สินค้า", "ของ", "product", "item", "คุณภาพ", "เสียหาย", "ใหม่"}},
			{Name: "ราคา", Keywords: []string{"ราคา", "เงิน", "price", "cost", "แพง", "ถูก", "ค่า", "บาท"}},
			{Name: "การคืนสินค้า", Keywords: []string{"คืน", "เปลี่ยน", "return", "refund", "exchange", "แลก"}},
			{Name: "บริการ", Keywords: []string{"บริการ", "service", "ช่วย", "help", "สอบถาม", "แนะนำ"}},
			{Name: "โปรโมชั่น", Keywords: []string{"โปร", "ลด", "promotion", "discount", "sale", "แถม"}},
			{Name: "การร้องเรียน", Keywords: []string{"ร้องเรียน", "complaint", "แจ้ง", "ปัญหา", "เรื่อง"}},
		},
	}
}

// LoadLexicon reads a YAML keyword file. Lists that are missing from the file
// fall back to the defaults.
func LoadLexicon(path string) (*Lexicon, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon %s: %w", path, err)
	}
	lex := &Lexicon{}
	if err := yaml.Unmarshal(b, lex); err != nil {
		return nil, fmt.Errorf("parsing lexicon %s: %w", path, err)
	}

	defaults := DefaultLexicon()
	if len(lex.Positive) == 0 {
		lex.Positive = defaults.Positive
	}
	if len(lex.Negative) == 0 {
		lex.Negative = defaults.Negative
	}
	if len(lex.Topics) == 0 {
		lex.Topics = defaults.Topics
	}
	if err := lex.Validate(); err != nil {
		return nil, fmt.Errorf("invalid lexicon %s: %w", path, err)
	}
	return lex, nil
}

// Validate checks that every topic has a unique name and at least one keyword.
func (l *Lexicon) Validate() error {
	seen := map[string]bool{}
	for _, t := range l.Topics {
		if t.Name == "" {
			return fmt.Errorf("topic with empty name")
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate topic %q", t.Name)
		}
		seen[t.Name] = true
		if len(t.Keywords) == 0 {
			return fmt.Errorf("topic %q has no keywords", t.Name)
		}
		for _, k := range t.Keywords {
			if strings.TrimSpace(k) == "" {
				return fmt.Errorf("topic %q has an empty keyword", t.Name)
			}
		}
	}
	return nil
}

// ClassifySentiment counts how many positive and negative keywords occur in the
// text (substring match, no tokenization) and maps the difference to a score in
// [-0.8, 0.8].
func (l *Lexicon) ClassifySentiment(text string) Sentiment {
	lower := strings.ToLower(text)
	positive := countHits(lower, l.Positive)
	negative := countHits(lower, l.Negative)

	var s Sentiment
	switch {
	case positive > negative:
		s.Label = apitype.SentimentPositive
		s.Score = minFloat(maxSentimentScore, baseSentiment+sentimentStep*float64(positive-negative))
	case negative > positive:
		s.Label = apitype.SentimentNegative
		s.Score = maxFloat(-maxSentimentScore, -baseSentiment-sentimentStep*float64(negative-positive))
	default:
		s.Label = apitype.SentimentNeutral
		s.Score = 0
	}
	s.Score = roundTo(s.Score, 2)
	if s.Score < 0 {
		s.Confidence = -s.Score
	} else {
		s.Confidence = s.Score
	}
	return s
}

// ClassifyTopics returns up to MaxTopicsPerMessage topics found in the text,
// ordered by confidence.
func (l *Lexicon) ClassifyTopics(text string) []TopicMatch {
	lower := strings.ToLower(text)
	matches := make([]TopicMatch, 0, MaxTopicsPerMessage)
	for _, t := range l.Topics {
		hits := countHits(lower, t.Keywords)
		if hits == 0 {
			continue
		}
		matches = append(matches, TopicMatch{
			Topic:         t.Name,
			Confidence:    minFloat(1.0, float64(hits)/float64(len(t.Keywords))*2),
			KeywordsFound: hits,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	if len(matches) > MaxTopicsPerMessage {
		matches = matches[:MaxTopicsPerMessage]
	}
	return matches
}

// TopicNames lists the configured topics in order.
func (l *Lexicon) TopicNames() []string {
	names := make([]string, 0, len(l.Topics))
	for _, t := range l.Topics {
		names = append(names, t.Name)
	}
	return names
}

func countHits(lower string, keywords []string) int {
	hits := 0
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			hits++
		}
	}
	return hits
}
