// Package pipeline runs newly received messages through the analysis steps:
// sentiment classification, embedding, topic extraction and reply suggestions.
// Failures are recorded on the Result of each message and never returned.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/pkg/ai"
	"github.com/chatlens/chatlens/pkg/analysis"
	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/db/models"
	"github.com/chatlens/chatlens/pkg/settings"
)

const DefaultBatchLimit = 100

// Classifier assigns sentiment and topics to message text.
type Classifier interface {
	ClassifySentiment(text string) analysis.Sentiment
	ClassifyTopics(text string) []analysis.TopicMatch
}

type EmbeddingStatus string

const (
	EmbeddingCreated     EmbeddingStatus = "created"
	EmbeddingUnavailable EmbeddingStatus = "unavailable"
	EmbeddingDisabled    EmbeddingStatus = "disabled"
	EmbeddingSkipped     EmbeddingStatus = "skipped"
	EmbeddingNotStored   EmbeddingStatus = "not_stored"
)

// Options control the optional steps of processing.
type Options struct {
	// Force reprocesses messages that already have a sentiment.
	Force bool
	// Replies adds suggested replies and the auto reply decision.
	Replies bool
	// Refine rewrites the auto reply with the text-generation service.
	Refine bool
}

// Result describes what happened to one message.
type Result struct {
	MessageID        uint                  `json:"message_id"`
	Skipped          bool                  `json:"skipped,omitempty"`
	Sentiment        *analysis.Sentiment   `json:"sentiment,omitempty"`
	Topics           []analysis.TopicMatch `json:"topics"`
	EmbeddingStatus  EmbeddingStatus       `json:"embedding_status,omitempty"`
	EmbeddingCreated bool                  `json:"embedding_created"`
	Replies          []analysis.Reply      `json:"suggested_responses,omitempty"`
	AutoReply        *analysis.Reply       `json:"auto_response,omitempty"`
	// AutoReplyID is the stored system message carrying AutoReply. Only batch
	// sweeps store auto replies.
	AutoReplyID      *uint                 `json:"auto_response_message_id,omitempty"`
	Error            string                `json:"error,omitempty"`
}

// OK is true when the mandatory steps succeeded.
func (r Result) OK() bool {
	return r.Error == ""
}

type Pipeline struct {
	store      Store
	classifier Classifier
	embedder   ai.Embedder
	generator  ai.Generator
	settings   settings.Source
	now        func() time.Time
}

// New returns a pipeline. embedder and generator may be nil, in which case
// embeddings are reported unavailable and auto replies are never refined.
func New(store Store, classifier Classifier, embedder ai.Embedder, generator ai.Generator, source settings.Source) *Pipeline {
	if source == nil {
		source = settings.Static{}
	}
	return &Pipeline{
		store:      store,
		classifier: classifier,
		embedder:   embedder,
		generator:  generator,
		settings:   source,
		now:        time.Now,
	}
}

func (p *Pipeline) loadSettings(ctx context.Context) settings.Settings {
	s, err := p.settings.Load(ctx)
	if err != nil {
		log.WithError(err).Warning("could not load settings, using defaults")
		return settings.Defaults()
	}
	return s
}

// ProcessMessage loads a stored message and processes it. Messages that were
// already processed are skipped unless opts.Force is set.
func (p *Pipeline) ProcessMessage(ctx context.Context, id uint, opts Options) Result {
	msg, err := p.store.GetMessage(ctx, id)
	if err != nil {
		messagesMetric.WithLabelValues(outcomeFailed).Inc()
		log.WithError(err).WithField("message", id).Error("could not load message")
		return Result{MessageID: id, Topics: []analysis.TopicMatch{}, Error: err.Error()}
	}
	if msg.Processed() && !opts.Force {
		messagesMetric.WithLabelValues(outcomeSkipped).Inc()
		return Result{MessageID: id, Skipped: true, Topics: []analysis.TopicMatch{}}
	}
	return p.process(ctx, msg, p.loadSettings(ctx), opts)
}

// process runs every step for one message body. A panic in any step is
// recovered into Result.Error.
func (p *Pipeline) process(ctx context.Context, msg *models.Message, cfg settings.Settings, opts Options) (res Result) {
	id, body := msg.ID, msg.Body
	res = Result{MessageID: id, Topics: []analysis.TopicMatch{}}
	logger := log.WithField("message", id)

	defer func() {
		if r := recover(); r != nil {
			res.Error = fmt.Sprintf("panic: %v", r)
			logger.WithField("panic", r).Error("message processing panicked")
		}
		if res.OK() {
			messagesMetric.WithLabelValues(outcomeProcessed).Inc()
		} else {
			messagesMetric.WithLabelValues(outcomeFailed).Inc()
		}
	}()

	sentiment := p.classifier.ClassifySentiment(body)
	if err := p.store.SaveSentiment(ctx, id, sentiment.Label, sentiment.Score, p.now()); err != nil {
		logger.WithError(err).Error("could not store sentiment")
		res.Error = err.Error()
		return res
	}
	res.Sentiment = &sentiment

	res.EmbeddingStatus = p.embed(ctx, id, body, cfg)
	res.EmbeddingCreated = res.EmbeddingStatus == EmbeddingCreated
	embeddingsMetric.WithLabelValues(string(res.EmbeddingStatus)).Inc()

	res.Topics = p.classifier.ClassifyTopics(body)

	if opts.Replies {
		res.Replies, res.AutoReply = p.replies(ctx, msg, body, cfg, opts.Refine)
	}

	logger.WithFields(log.Fields{
		"sentiment": sentiment.Label,
		"embedding": res.EmbeddingStatus,
		"topics":    len(res.Topics),
	}).Debug("message processed")
	return res
}

// Replies returns the canned reply candidates for message and, when the best
// one is confident enough, the automatic reply. The message is not part of a
// stored conversation, so refinement runs without conversation context.
func (p *Pipeline) Replies(ctx context.Context, message string, refine bool) ([]analysis.Reply, *analysis.Reply) {
	return p.replies(ctx, nil, message, p.loadSettings(ctx), refine)
}

// replies suggests answers to body. msg, when set, is the stored message whose
// conversation is used to refine the auto reply.
func (p *Pipeline) replies(ctx context.Context, msg *models.Message, body string, cfg settings.Settings, refine bool) ([]analysis.Reply, *analysis.Reply) {
	candidates := analysis.SuggestReplies(body)
	reply, ok := analysis.AutoReply(candidates, cfg.AutoReplyThreshold())
	if !ok {
		return candidates, nil
	}
	if refine {
		reply.Text = p.refine(ctx, msg, body, reply.Text)
	}
	return candidates, &reply
}

func (p *Pipeline) embed(ctx context.Context, id uint, body string, cfg settings.Settings) EmbeddingStatus {
	logger := log.WithField("message", id)
	switch {
	case !cfg.Bool(settings.EmbeddingEnabled):
		return EmbeddingDisabled
	case strings.TrimSpace(body) == "":
		return EmbeddingSkipped
	case p.embedder == nil:
		return EmbeddingUnavailable
	}

	vector, err := p.embedder.Embed(ctx, body)
	if err != nil {
		logger.WithError(err).Warning("embedding service unavailable, continuing without embedding")
		return EmbeddingUnavailable
	}
	if err := p.store.SaveEmbedding(ctx, id, vector); err != nil {
		logger.WithError(err).Warning("could not store embedding")
		return EmbeddingNotStored
	}
	return EmbeddingCreated
}

// ProcessBatch processes up to limit unprocessed customer messages, newest
// first, and returns how many succeeded. A failing message does not stop the
// batch. With auto_response enabled, every confident auto reply is refined and
// stored in the conversation as a system message.
func (p *Pipeline) ProcessBatch(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	start := time.Now()
	defer func() {
		batchDurationMetric.Observe(time.Since(start).Seconds())
	}()

	msgs, err := p.store.UnprocessedCustomerMessages(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list unprocessed messages: %w", err)
	}

	cfg := p.loadSettings(ctx)
	autoRespond := cfg.Bool(settings.AutoResponse)
	opts := Options{Replies: autoRespond, Refine: autoRespond}
	succeeded, replied := 0, 0
	for i := range msgs {
		if ctx.Err() != nil {
			log.WithError(ctx.Err()).Warning("batch interrupted")
			break
		}
		res := p.process(ctx, &msgs[i], cfg, opts)
		if !res.OK() {
			continue
		}
		succeeded++
		if res.AutoReply != nil && p.storeAutoReply(ctx, &msgs[i], &res) {
			replied++
		}
	}

	log.WithFields(log.Fields{
		"candidates":   len(msgs),
		"succeeded":    succeeded,
		"auto_replies": replied,
		"elapsed":    time.Since(start),
	}).Info("processed message batch")
	return succeeded, nil
}

// storeAutoReply records res.AutoReply as a system message answering msg. A
// failure is logged and leaves the processed message untouched.
func (p *Pipeline) storeAutoReply(ctx context.Context, msg *models.Message, res *Result) bool {
	reply, err := p.Ingest(ctx, NewMessage{
		ConversationID: msg.ConversationID,
		UserID:         msg.UserID,
		SenderRole:     apitype.SenderSystem,
		Body:           res.AutoReply.Text,
		MessageKind:    apitype.MessageKindText,
		Timestamp:      p.now(),
		Metadata: map[string]interface{}{
			"auto_response": true,
			"in_reply_to":   msg.ID,
			"reply_type":    res.AutoReply.Category,
			"confidence":    res.AutoReply.Confidence,
		},
	})
	if err != nil {
		autoRepliesMetric.WithLabelValues(outcomeFailed).Inc()
		log.WithError(err).WithField("message", msg.ID).Warning("could not store auto reply")
		return false
	}
	autoRepliesMetric.WithLabelValues(outcomeProcessed).Inc()
	res.AutoReplyID = &reply.ID
	return true
}
