// Package assistant answers free-form questions from dashboard users with the
// text-generation service, using the latest conversations as context. Every
// failure is turned into a message the user can read; nothing here returns an
// error for a failed AI call.
package assistant

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/pkg/ai"
	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/db/models"
)

const (
	ContextSize        = 10
	contextMessageLen  = 100
	maxAnswerRunes     = 2000
	truncatedAnswerLen = 1950

	systemPrompt = `คุณคือ AI Assistant สำหรับระบบวิเคราะห์การสนทนา LINE OA 

คุณมีความสามารถในการ:
1. วิเคราะห์ข้อมูลการสนทนา
2. สรุปสถิติและแนวโน้ม
3. ให้คำแนะนำในการปรับปรุงบริการ
4. ตอบคำถามเกี่ยวกับข้อมูล

กรุณาตอบเป็นภาษาไทยที่เป็นมิตร สุภาพ และให้ข้อมูลที่เป็นประโยชน์
หากไม่มีข้อมูลเพียงพอ ให้แจ้งชัดเจน และแนะนำทางเลือกอื่น`

	msgNoAnswer      = "ขออภัย ไม่สามารถสร้างคำตอบได้ในขณะนี้"
	msgHTTPError     = "เกิดข้อผิดพลาดในการเชื่อมต่อ AI (Status: %d)"
	msgTimeout       = "การเชื่อมต่อ AI หมดเวลา กรุณาลองใหม่อีกครั้ง"
	msgConnection    = "ไม่สามารถเชื่อมต่อกับ AI ได้ กรุณาตรวจสอบการตั้งค่า"
	msgUnexpected    = "เกิดข้อผิดพลาดไม่คาดคิด: %v"
	truncationNotice = "...\n\n(คำตอบถูกตัดทอนเนื่องจากยาวเกินไป)"
)

var chatOptions = ai.GenerateOptions{Temperature: ai.Float(0.7), TopP: ai.Float(0.9), MaxTokens: 1000, Timeout: 60 * time.Second}

var (
	answerLabel = regexp.MustCompile(`(?m)^\s*คำตอบ:\s*`)
	replyLabel  = regexp.MustCompile(`(?m)^\s*ตอบ:\s*`)
	politeStart = []string{"สวัสดี", "ขอบคุณ", "ตาม"}
)

// ContextSource supplies the conversation data used in prompts.
type ContextSource interface {
	ContextRows(ctx context.Context, limit int) ([]apitype.ConversationRow, error)
	ConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error)
}

type Assistant struct {
	generator ai.Generator
	prober    ai.Prober
	source    ContextSource
}

// New returns an assistant. prober may be nil, in which case the service is
// reported as not configured.
func New(generator ai.Generator, prober ai.Prober, source ContextSource) *Assistant {
	return &Assistant{generator: generator, prober: prober, source: source}
}

// Answer is the assistant's reply to one question.
type Answer struct {
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Intent   IntentAnalysis `json:"intent"`
}

// Ask answers question with the latest conversations as context. If the
// context cannot be loaded the question is asked without it.
func (a *Assistant) Ask(ctx context.Context, question string) Answer {
	var rows []apitype.ConversationRow
	if a.source != nil {
		var err error
		rows, err = a.source.ContextRows(ctx, ContextSize)
		if err != nil {
			log.WithError(err).Warning("could not load assistant context")
		}
	}
	return Answer{
		Question: question,
		Answer:   a.Respond(ctx, question, rows),
		Intent:   AnalyzeIntent(question),
	}
}

// Respond builds the prompt from question and rows and post-processes the
// generated text.
func (a *Assistant) Respond(ctx context.Context, question string, rows []apitype.ConversationRow) string {
	if a.generator == nil {
		return msgConnection
	}
	prompt := fmt.Sprintf("%s\n\nContext ข้อมูลการสนทนา (10 รายการล่าสุด):\n%s\n\nคำถามจาก Admin: %s\n\nคำตอบ:",
		systemPrompt, formatContext(rows), question)

	out, err := a.generator.Generate(ctx, prompt, chatOptions)
	if err != nil {
		log.WithError(err).Warning("assistant generation failed")
		return userMessage(err)
	}
	if out == "" {
		return msgNoAnswer
	}
	return postProcess(out)
}

func formatContext(rows []apitype.ConversationRow) string {
	if len(rows) > ContextSize {
		rows = rows[:ContextSize]
	}
	lines := make([]string, 0, len(rows))
	for i, r := range rows {
		sentiment := string(r.Sentiment)
		if sentiment == "" {
			sentiment = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("%d. [%s] %s (%s): %s [ความรู้สึก: %s]",
			i+1, r.Timestamp.Format(time.RFC3339), r.SenderRole, r.UserID, truncateRunes(r.Message, contextMessageLen), sentiment))
	}
	return strings.Join(lines, "\n")
}

func postProcess(answer string) string {
	answer = answerLabel.ReplaceAllString(answer, "")
	answer = replyLabel.ReplaceAllString(answer, "")

	polite := false
	for _, prefix := range politeStart {
		if strings.HasPrefix(answer, prefix) {
			polite = true
			break
		}
	}
	if !polite {
		answer = "ตามข้อมูลที่มี " + answer
	}

	if len([]rune(answer)) > maxAnswerRunes {
		answer = truncateRunes(answer, truncatedAnswerLen) + truncationNotice
	}
	return strings.TrimSpace(answer)
}

// userMessage turns a generation failure into the text shown to the user.
func userMessage(err error) string {
	u, ok := ai.AsUnavailable(err)
	if !ok {
		return fmt.Sprintf(msgUnexpected, err)
	}
	switch u.Status {
	case ai.StatusHTTPError:
		return fmt.Sprintf(msgHTTPError, u.StatusCode)
	case ai.StatusTimeout:
		return msgTimeout
	case ai.StatusConnectionError:
		return msgConnection
	default:
		return fmt.Sprintf(msgUnexpected, u.Err)
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
