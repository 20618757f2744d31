package analysis

import (
	"sort"
	"strings"
)

const (
	// DefaultAutoReplyThreshold is the minimum top-candidate confidence for an
	// automatic reply.
	DefaultAutoReplyThreshold = 0.8

	maxReplyCandidates = 3
	fallbackConfidence = 0.6
)

type ReplyCategory string

const (
	ReplyGreeting  ReplyCategory = "greeting"
	ReplyPrice     ReplyCategory = "price_inquiry"
	ReplyShipping  ReplyCategory = "shipping"
	ReplyComplaint ReplyCategory = "complaint"
	ReplyThanks    ReplyCategory = "thanks"
	ReplyFallback  ReplyCategory = "general"
)

type Reply struct {
	Text       string        `json:"response"`
	Confidence float64       `json:"confidence"`
	Category   ReplyCategory `json:"type"`
}

type replyRule struct {
	category ReplyCategory
	keywords []string
	replies  []Reply
}

// replyRules are checked in order and the first matching category wins.
var replyRules = []replyRule{
	{
		category: ReplyGreeting,
		keywords: []string{"สวัสดี", "ว", "hello", "hi"},
		replies: []Reply{
			{Text: "สวัสดีค่ะ ยินดีให้บริการ 🙏 มีอะไรให้ช่วยเหลือไหมคะ?", Confidence: 0.9},
		},
	},
	{
		category: ReplyPrice,
		keywords: []string{"ราคา", "เท่าไหร่", "price", "cost"},
		replies: []Reply{
			{Text: "สำหรับราคาสินค้าค่ะ ขอให้ส่งรูปหรือชื่อสินค้ามาให้หน่อยค่ะ จะได้เช็คราคาให้ถูกต้อง 💰", Confidence: 0.85},
			{Text: "ราคาสินค้าจะแตกต่างกันไปตามแต่ละรุ่นค่ะ ขอรบกวนส่งรายละเอียดสินค้าที่สนใจมาด้วยนะคะ", Confidence: 0.8},
		},
	},
	{
		category: ReplyShipping,
		keywords: []string{"จัดส่ง", "ส่ง", "delivery", "ship"},
		replies: []Reply{
			{Text: "การจัดส่งใช้เวลา 2-3 วันทำการค่ะ หากต้องการเร่งด่วนสามารถเลือก EMS ได้ 🚚", Confidence: 0.9},
			{Text: "สำหรับค่าจัดส่งค่ะ ภายในกรุงเทพ 50 บาท ต่างจังหวัด 80 บาท (Kerry) และ 120 บาท (EMS)", Confidence: 0.85},
		},
	},
	{
		category: ReplyComplaint,
		keywords: []string{"ร้องเรียน", "ปัญหา", "เสีย", "แย่", "ไม่ดี"},
		replies: []Reply{
			{Text: "ขออภัยในความไม่สะดวกค่ะ 🙏 ขอรบกวนส่งรูปภาพหรือรายละเอียดปัญหามาให้ดูหน่อยค่ะ จะได้ช่วยแก้ไขให้", Confidence: 0.9},
			{Text: "เสียใจด้วยนะคะที่มีปัญหา 😔 ขอดูรายละเอียดปัญหาหน่อยค่ะ เราจะรีบแก้ไขให้เร็วที่สุด", Confidence: 0.85},
		},
	},
	{
		category: ReplyThanks,
		keywords: []string{"ขอบคุณ", "thank", "ขอบใจ"},
		replies: []Reply{
			{Text: "ยินดีค่ะ หากมีอะไรอีกสามารถสอบถามมาได้เสมอนะคะ 😊", Confidence: 0.95},
			{Text: "ไม่เป็นไรค่ะ ขอบคุณที่ใช้บริการด้วยค่ะ 🙏", Confidence: 0.9},
		},
	},
}

var fallbackReply = Reply{
	Text:       "สวัสดีค่ะ ขอดูรายละเอียดหน่อยนะคะ จะได้ตอบคำถามให้ถูกต้องค่ะ 🤗",
	Confidence: fallbackConfidence,
	Category:   ReplyFallback,
}

// SuggestReplies returns canned reply candidates for a customer message,
// highest confidence first. It always returns at least one candidate.
//
// The greeting rule includes the single character "ว", so most Thai text is
// treated as a greeting.
func SuggestReplies(message string) []Reply {
	lower := strings.ToLower(message)
	var candidates []Reply
	for _, rule := range replyRules {
		if countHits(lower, rule.keywords) == 0 {
			continue
		}
		for _, r := range rule.replies {
			r.Category = rule.category
			candidates = append(candidates, r)
		}
		break
	}
	if len(candidates) == 0 {
		return []Reply{fallbackReply}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > maxReplyCandidates {
		candidates = candidates[:maxReplyCandidates]
	}
	return candidates
}

// AutoReply returns the top candidate when its confidence meets the threshold.
// ok is false when the message should be handed to a human agent.
func AutoReply(candidates []Reply, threshold float64) (Reply, bool) {
	if len(candidates) == 0 {
		return Reply{}, false
	}
	top := candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > top.Confidence {
			top = c
		}
	}
	if top.Confidence < threshold {
		return Reply{}, false
	}
	return top, true
}
