package pipeline

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
	refineContextSize = 10
	refineMessageLen  = 100
)

var refineOptions = ai.GenerateOptions{Temperature: ai.Float(0.5), MaxTokens: 200, Timeout: 30 * time.Second}

const refinePrompt = `ปรับปรุงคำตอบให้เหมาะสมกับบริบทการสนทนา:

ข้อความลูกค้า: %s
คำตอบเริ่มต้น: %s

Context การสนทนา:
%s

ปรับปรุงคำตอบให้:
1. เหมาะสมกับบริบท
2. สุภาพและเป็นมิตร
3. ตรงประเด็น
4. สั้นกระทัดรัด

คำตอบที่ปรับปรุงแล้ว:`

// refine asks the text-generation service to polish a canned reply, using the
// turns of msg's conversation up to msg as context. msg may be nil. The canned
// reply is returned unchanged when the service fails or answers nothing.
func (p *Pipeline) refine(ctx context.Context, msg *models.Message, customerMessage, base string) string {
	if p.generator == nil {
		return base
	}
	prompt := fmt.Sprintf(refinePrompt, customerMessage, base, p.conversationContext(ctx, msg))
	out, err := p.generator.Generate(ctx, prompt, refineOptions)
	if err != nil {
		log.WithError(err).Warning("could not refine auto reply, using canned response")
		return base
	}
	if out == "" {
		return base
	}
	return out
}

// conversationContext lists the latest turns before msg in its conversation,
// oldest first.
func (p *Pipeline) conversationContext(ctx context.Context, msg *models.Message) string {
	if msg == nil || msg.ConversationID == "" {
		return ""
	}
	msgs, err := p.store.ConversationMessages(ctx, msg.ConversationID)
	if err != nil {
		log.WithError(err).WithField("conversation", msg.ConversationID).Warning("could not load conversation for refinement")
		return ""
	}

	earlier := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == msg.ID || m.Timestamp.After(msg.Timestamp) {
			continue
		}
		earlier = append(earlier, m)
	}
	if len(earlier) > refineContextSize {
		earlier = earlier[len(earlier)-refineContextSize:]
	}

	lines := make([]string, 0, len(earlier))
	for i, m := range earlier {
		lines = append(lines, fmt.Sprintf("%d. [%s] %s: %s",
			i+1, m.Timestamp.Format(time.RFC3339), m.SenderRole, truncateRunes(m.Body, refineMessageLen)))
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
