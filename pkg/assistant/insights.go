package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/pkg/ai"
	"github.com/chatlens/chatlens/pkg/db/models"
)

const (
	insightMessages   = 20
	insightMessageLen = 150

	msgNoConversation   = "ไม่มีข้อมูลการสนทนาให้วิเคราะห์"
	msgNoInsight        = "ไม่สามารถวิเคราะห์ได้ในขณะนี้"
	msgInsightHTTPError = "เกิดข้อผิดพลาดในการวิเคราะห์"

	insightPrompt = `วิเคราะห์การสนทนานี้และให้ insights:

%s

กรุณาวิเคราะห์:
1. ความรู้สึกโดยรวมของลูกค้า
2. ประเด็นหลักที่ลูกค้าสนใจ
3. ประสิทธิภาพการตอบกลับของเจ้าหน้าที่
4. ข้อเสนอแนะเพื่อปรับปรุงบริการ

การวิเคราะห์:`
)

var insightOptions = ai.GenerateOptions{Temperature: ai.Float(0.7), MaxTokens: 500, Timeout: 45 * time.Second}

// ConversationInsights asks the text-generation service to analyse one
// conversation. Only a failure to read the conversation is returned as an
// error.
func (a *Assistant) ConversationInsights(ctx context.Context, conversationID string) (string, error) {
	msgs, err := a.source.ConversationMessages(ctx, conversationID)
	if err != nil {
		return "", err
	}
	return a.InsightsFor(ctx, msgs), nil
}

// InsightsFor analyses the given messages, in order.
func (a *Assistant) InsightsFor(ctx context.Context, msgs []models.Message) string {
	if len(msgs) == 0 {
		return msgNoConversation
	}
	if a.generator == nil {
		return msgConnection
	}

	out, err := a.generator.Generate(ctx, fmt.Sprintf(insightPrompt, summarizeForPrompt(msgs)), insightOptions)
	if err != nil {
		log.WithError(err).Warning("conversation insight generation failed")
		if u, ok := ai.AsUnavailable(err); ok && u.Status == ai.StatusHTTPError {
			return msgInsightHTTPError
		}
		return "เกิดข้อผิดพลาด: " + err.Error()
	}
	if out == "" {
		return msgNoInsight
	}
	return out
}

func summarizeForPrompt(msgs []models.Message) string {
	if len(msgs) > insightMessages {
		msgs = msgs[:insightMessages]
	}
	lines := make([]string, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		sentiment := string(m.SentimentLabel())
		if sentiment == "" {
			sentiment = "neutral"
		}
		lines = append(lines, fmt.Sprintf("%d. [%s] %s (ความรู้สึก: %s)",
			i+1, m.SenderRole, truncateRunes(m.Body, insightMessageLen), sentiment))
	}
	return strings.Join(lines, "\n")
}
