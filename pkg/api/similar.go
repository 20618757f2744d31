package api

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/pkg/ai"
	"github.com/chatlens/chatlens/pkg/analysis"
	apitype "github.com/chatlens/chatlens/pkg/apis/api"
)

// ErrEmptyQuery is returned when similarity search is asked for blank text.
var ErrEmptyQuery = errors.New("query text is empty")

// FindSimilarMessages embeds text and ranks the most recent embedded customer
// messages by cosine similarity. Stored vectors that cannot be decoded are
// skipped. An embedding failure is returned as *ai.UnavailableError.
func (r *Reports) FindSimilarMessages(ctx context.Context, text string, limit int) ([]apitype.SimilarMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}
	if r.embedder == nil {
		return nil, &ai.UnavailableError{Service: ai.EmbeddingService, Status: ai.StatusConnectionError, Err: errors.New("no embedding service configured")}
	}

	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	msgs, err := r.store.EmbeddedCustomerMessages(ctx, SimilarityCorpusSize)
	if err != nil {
		queryFailed("similar_messages", err)
		return nil, err
	}

	corpus := make([]analysis.Candidate[apitype.SimilarMessage], 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		vec, err := m.Embedding()
		if err != nil {
			log.WithError(err).WithField("message", m.ID).Warning("skipping stored embedding")
			continue
		}
		corpus = append(corpus, analysis.Candidate[apitype.SimilarMessage]{
			Record: apitype.SimilarMessage{
				ID:             m.ID,
				ConversationID: m.ConversationID,
				Message:        m.Body,
				Timestamp:      m.Timestamp,
			},
			Vector: vec,
		})
	}

	scored := analysis.FindSimilar(vector, corpus, limit, analysis.DefaultSimilarityThreshold)
	results := make([]apitype.SimilarMessage, 0, len(scored))
	for _, s := range scored {
		s.Record.Similarity = round3(s.Similarity)
		results = append(results, s.Record)
	}
	return results, nil
}
