package pipeline

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatlens/chatlens/pkg/ai"
	"github.com/chatlens/chatlens/pkg/analysis"
	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/db/models"
	"github.com/chatlens/chatlens/pkg/settings"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type memoryStore struct {
	mu         sync.Mutex
	messages   map[uint]*models.Message
	nextID     uint
	embeddings map[uint][]float64
	saveErr    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{messages: map[uint]*models.Message{}, embeddings: map[uint][]float64{}}
}

func (s *memoryStore) add(role apitype.SenderRole, body string, ts time.Time) *models.Message {
	s.nextID++
	m := &models.Message{ID: s.nextID, ConversationID: "c1", UserID: "U1", SenderRole: role, Body: body, Timestamp: ts}
	s.messages[m.ID] = m
	return m
}

func (s *memoryStore) GetMessage(_ context.Context, id uint) (*models.Message, error) {
	m, ok := s.messages[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *m
	return &copied, nil
}

func (s *memoryStore) CreateMessage(_ context.Context, msg *models.Message) error {
	s.nextID++
	msg.ID = s.nextID
	copied := *msg
	s.messages[msg.ID] = &copied
	return nil
}

func (s *memoryStore) PreviousOppositeMessage(_ context.Context, conversationID string, role apitype.SenderRole, ts time.Time) (*models.Message, error) {
	var latest *models.Message
	for _, m := range s.messages {
		if m.ConversationID != conversationID || m.SenderRole == role || m.Timestamp.After(ts) {
			continue
		}
		if latest == nil || m.Timestamp.After(latest.Timestamp) {
			latest = m
		}
	}
	return latest, nil
}

func (s *memoryStore) SaveSentiment(_ context.Context, id uint, label apitype.SentimentLabel, score float64, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	m := s.messages[id]
	m.Sentiment = &label
	m.SentimentScore = &score
	m.ProcessedAt = &processedAt
	return nil
}

func (s *memoryStore) SaveEmbedding(_ context.Context, id uint, vector []float64) error {
	if s.messages[id].ProcessedAt == nil {
		return errors.New("embedding before sentiment")
	}
	s.embeddings[id] = vector
	return nil
}

func (s *memoryStore) UnprocessedCustomerMessages(_ context.Context, limit int) ([]models.Message, error) {
	var out []models.Message
	for _, m := range s.messages {
		if m.SenderRole == apitype.SenderCustomer && m.ProcessedAt == nil {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) ConversationMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	var out []models.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

type countingEmbedder struct {
	calls int
	err   error
}

func (e *countingEmbedder) Embed(context.Context, string) ([]float64, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float64{0.1, 0.2}, nil
}

// panickingClassifier panics on the body "boom".
type panickingClassifier struct {
	*analysis.Lexicon
}

func (c panickingClassifier) ClassifySentiment(text string) analysis.Sentiment {
	if text == "boom" {
		panic("classifier exploded")
	}
	return c.Lexicon.ClassifySentiment(text)
}

func newTestPipeline(store Store, embedder ai.Embedder, source settings.Source) *Pipeline {
	p := New(store, panickingClassifier{analysis.DefaultLexicon()}, embedder, nil, source)
	p.now = func() time.Time { return base.Add(time.Hour) }
	return p
}

func TestProcessMessage(t *testing.T) {
	store := newMemoryStore()
	m := store.add(apitype.SenderCustomer, "สินค้าดีมาก ขอบคุณ", base)
	embedder := &countingEmbedder{}
	p := newTestPipeline(store, embedder, nil)

	res := p.ProcessMessage(context.Background(), m.ID, Options{})
	require.True(t, res.OK(), res.Error)
	assert.Equal(t, apitype.SentimentPositive, res.Sentiment.Label)
	assert.Equal(t, EmbeddingCreated, res.EmbeddingStatus)
	assert.True(t, res.EmbeddingCreated)
	assert.NotEmpty(t, res.Topics)
	assert.Equal(t, []float64{0.1, 0.2}, store.embeddings[m.ID])

	stored := store.messages[m.ID]
	require.NotNil(t, stored.Sentiment)
	require.NotNil(t, stored.SentimentScore)
	require.NotNil(t, stored.ProcessedAt)

	again := p.ProcessMessage(context.Background(), m.ID, Options{})
	assert.True(t, again.Skipped)
	assert.Equal(t, 1, embedder.calls)

	forced := p.ProcessMessage(context.Background(), m.ID, Options{Force: true})
	assert.False(t, forced.Skipped)
	assert.Equal(t, 2, embedder.calls)
}

func TestProcessMessageEmbeddingUnavailable(t *testing.T) {
	store := newMemoryStore()
	m := store.add(apitype.SenderCustomer, "ส่งของช้า", base)
	embedder := &countingEmbedder{err: &ai.UnavailableError{Service: ai.EmbeddingService, Status: ai.StatusTimeout}}

	res := newTestPipeline(store, embedder, nil).ProcessMessage(context.Background(), m.ID, Options{})
	assert.True(t, res.OK())
	assert.Equal(t, EmbeddingUnavailable, res.EmbeddingStatus)
	assert.False(t, res.EmbeddingCreated)
	assert.NotNil(t, store.messages[m.ID].Sentiment, "sentiment is kept when embedding fails")
	assert.Empty(t, store.embeddings)
}

func TestProcessMessageEmbeddingDisabled(t *testing.T) {
	store := newMemoryStore()
	m := store.add(apitype.SenderCustomer, "hello", base)
	embedder := &countingEmbedder{}
	source := settings.Static{settings.EmbeddingEnabled: settings.BoolValue(false)}

	res := newTestPipeline(store, embedder, source).ProcessMessage(context.Background(), m.ID, Options{})
	assert.True(t, res.OK())
	assert.Equal(t, EmbeddingDisabled, res.EmbeddingStatus)
	assert.Zero(t, embedder.calls, "embedder is never called when disabled")
}

func TestProcessMessageStoreFailure(t *testing.T) {
	store := newMemoryStore()
	m := store.add(apitype.SenderCustomer, "hello", base)
	store.saveErr = errors.New("db down")
	embedder := &countingEmbedder{}

	res := newTestPipeline(store, embedder, nil).ProcessMessage(context.Background(), m.ID, Options{})
	assert.False(t, res.OK())
	assert.Contains(t, res.Error, "db down")
	assert.Zero(t, embedder.calls, "no embedding without a stored sentiment")

	missing := newTestPipeline(store, embedder, nil).ProcessMessage(context.Background(), 999, Options{})
	assert.False(t, missing.OK())
}

func TestProcessBatchContinuesPastFailures(t *testing.T) {
	store := newMemoryStore()
	for i := 0; i < 10; i++ {
		body := "ข้อความปกติ"
		if i == 4 {
			body = "boom"
		}
		store.add(apitype.SenderCustomer, body, base.Add(time.Duration(i)*time.Minute))
	}
	store.add(apitype.SenderAdmin, "admin reply", base)

	succeeded, err := newTestPipeline(store, &countingEmbedder{}, nil).ProcessBatch(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 9, succeeded)

	processed := 0
	for _, m := range store.messages {
		if m.ProcessedAt != nil {
			processed++
		}
	}
	assert.Equal(t, 9, processed)
}

func TestProcessBatchLimit(t *testing.T) {
	store := newMemoryStore()
	for i := 0; i < 5; i++ {
		store.add(apitype.SenderCustomer, "hello", base.Add(time.Duration(i)*time.Minute))
	}
	succeeded, err := newTestPipeline(store, nil, nil).ProcessBatch(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, succeeded)
	// newest first
	assert.NotNil(t, store.messages[5].ProcessedAt)
	assert.NotNil(t, store.messages[4].ProcessedAt)
	assert.Nil(t, store.messages[1].ProcessedAt)
}

func TestProcessWithReplies(t *testing.T) {
	store := newMemoryStore()
	m := store.add(apitype.SenderCustomer, "สวัสดีครับ", base)

	res := newTestPipeline(store, nil, nil).ProcessMessage(context.Background(), m.ID, Options{Replies: true})
	require.NotEmpty(t, res.Replies)
	assert.Equal(t, analysis.ReplyGreeting, res.Replies[0].Category)
	require.NotNil(t, res.AutoReply)

	strict := settings.Static{settings.ResponseThreshold: settings.NumberValue(100)}
	m2 := store.add(apitype.SenderCustomer, "สวัสดีครับ", base)
	res = newTestPipeline(store, nil, strict).ProcessMessage(context.Background(), m2.ID, Options{Replies: true})
	assert.NotEmpty(t, res.Replies)
	assert.Nil(t, res.AutoReply, "no auto reply below the threshold")
}

func TestProcessBatchStoresAutoReplies(t *testing.T) {
	store := newMemoryStore()
	question := store.add(apitype.SenderCustomer, "จัดส่งเมื่อไหร่", base)
	unsure := store.add(apitype.SenderCustomer, "xyz", base.Add(time.Minute))

	gen := &fakeGenerator{out: "จัดส่งภายใน 2-3 วันทำการค่ะ"}
	source := settings.Static{settings.AutoResponse: settings.BoolValue(true)}
	p := New(store, analysis.DefaultLexicon(), nil, gen, source)
	p.now = func() time.Time { return base.Add(5 * time.Minute) }

	succeeded, err := p.ProcessBatch(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, succeeded)

	var replies []*models.Message
	for _, m := range store.messages {
		if m.SenderRole == apitype.SenderSystem {
			replies = append(replies, m)
		}
	}
	require.Len(t, replies, 1, "only the confident reply is sent")
	reply := replies[0]
	assert.Equal(t, "c1", reply.ConversationID)
	assert.Equal(t, gen.out, reply.Body)
	assert.Equal(t, base.Add(5*time.Minute), reply.Timestamp)
	require.NotNil(t, reply.ResponseTime)
	assert.Equal(t, 240.0, *reply.ResponseTime, "latency since the last customer message")
	assert.Contains(t, string(reply.Metadata.Bytes), `"in_reply_to":`+strconv.Itoa(int(question.ID)))
	assert.Contains(t, string(reply.Metadata.Bytes), `"auto_response":true`)
	assert.NotContains(t, string(reply.Metadata.Bytes), `"in_reply_to":`+strconv.Itoa(int(unsure.ID)))
}

func TestProcessBatchWithoutAutoResponse(t *testing.T) {
	store := newMemoryStore()
	store.add(apitype.SenderCustomer, "จัดส่งเมื่อไหร่", base)
	gen := &fakeGenerator{out: "unused"}

	succeeded, err := New(store, analysis.DefaultLexicon(), nil, gen, nil).ProcessBatch(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, succeeded)
	assert.Len(t, store.messages, 1, "no reply is stored")
	assert.Empty(t, gen.prompt, "nothing is refined")
}
