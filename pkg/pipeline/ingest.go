package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgtype"
	log "github.com/sirupsen/logrus"

	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/db/models"
)

// NewMessage is an incoming message as delivered by the messaging platform.
type NewMessage struct {
	ConversationID string                 `json:"conversation_id"`
	UserID         string                 `json:"user_id"`
	SenderRole     apitype.SenderRole     `json:"sender_type"`
	Body           string                 `json:"message"`
	MessageKind    apitype.MessageKind    `json:"message_type"`
	Timestamp      time.Time              `json:"timestamp"`
	ResponseTime   *float64               `json:"response_time,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// InvalidMessageError reports a NewMessage that cannot be stored.
type InvalidMessageError struct {
	Field  string
	Reason string
}

func (e *InvalidMessageError) Error() string {
	return fmt.Sprintf("invalid message: %s %s", e.Field, e.Reason)
}

func (m *NewMessage) normalize(now time.Time) error {
	m.ConversationID = strings.TrimSpace(m.ConversationID)
	m.UserID = strings.TrimSpace(m.UserID)
	if m.ConversationID == "" {
		return &InvalidMessageError{Field: "conversation_id", Reason: "is required"}
	}
	if m.UserID == "" {
		return &InvalidMessageError{Field: "user_id", Reason: "is required"}
	}
	if m.SenderRole == "" {
		m.SenderRole = apitype.SenderCustomer
	}
	if !m.SenderRole.Valid() {
		return &InvalidMessageError{Field: "sender_type", Reason: fmt.Sprintf("%q is not a known role", m.SenderRole)}
	}
	if m.MessageKind == "" {
		m.MessageKind = apitype.MessageKindText
	}
	if !m.MessageKind.Valid() {
		return &InvalidMessageError{Field: "message_type", Reason: fmt.Sprintf("%q is not a known kind", m.MessageKind)}
	}
	if m.MessageKind == apitype.MessageKindText && strings.TrimSpace(m.Body) == "" {
		return &InvalidMessageError{Field: "message", Reason: "is required for text messages"}
	}
	if m.ResponseTime != nil && *m.ResponseTime < 0 {
		return &InvalidMessageError{Field: "response_time", Reason: "must not be negative"}
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = now
	}
	return nil
}

// Ingest validates and stores a message. When no response time is given it is
// the number of seconds since the previous message of the other side in the
// same conversation.
func (p *Pipeline) Ingest(ctx context.Context, in NewMessage) (*models.Message, error) {
	if err := in.normalize(p.now()); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: in.ConversationID,
		UserID:         in.UserID,
		SenderRole:     in.SenderRole,
		Body:           in.Body,
		MessageKind:    in.MessageKind,
		Timestamp:      in.Timestamp,
		ResponseTime:   in.ResponseTime,
	}
	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, &InvalidMessageError{Field: "metadata", Reason: err.Error()}
		}
		msg.Metadata = pgtype.JSONB{Bytes: raw, Status: pgtype.Present}
	} else {
		msg.Metadata = pgtype.JSONB{Status: pgtype.Null}
	}
	msg.EmbeddingVector = pgtype.JSONB{Status: pgtype.Null}

	if msg.ResponseTime == nil {
		prev, err := p.store.PreviousOppositeMessage(ctx, in.ConversationID, in.SenderRole, in.Timestamp)
		if err != nil {
			log.WithError(err).WithField("conversation", in.ConversationID).Warning("could not compute response time")
		} else if prev != nil {
			latency := in.Timestamp.Sub(prev.Timestamp).Seconds()
			msg.ResponseTime = &latency
		}
	}

	if err := p.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	return msg, nil
}

// ProcessNewMessage stores a message and, for customer messages, runs it
// through the pipeline. The Result is nil for messages that are not analysed.
func (p *Pipeline) ProcessNewMessage(ctx context.Context, in NewMessage, opts Options) (*models.Message, *Result, error) {
	msg, err := p.Ingest(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	if msg.SenderRole != apitype.SenderCustomer {
		return msg, nil, nil
	}
	res := p.process(ctx, msg, p.loadSettings(ctx), opts)
	return msg, &res, nil
}

// IsInvalidMessage reports whether err was caused by bad input.
func IsInvalidMessage(err error) bool {
	var invalid *InvalidMessageError
	return errors.As(err, &invalid)
}
