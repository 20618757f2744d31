package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chatlens/chatlens/pkg/ai"
	"github.com/chatlens/chatlens/pkg/analysis"
	"github.com/chatlens/chatlens/pkg/api"
	"github.com/chatlens/chatlens/pkg/api/apitest"
	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/assistant"
	"github.com/chatlens/chatlens/pkg/auth"
	"github.com/chatlens/chatlens/pkg/cache/memory"
	"github.com/chatlens/chatlens/pkg/db/models"
	"github.com/chatlens/chatlens/pkg/db/query"
	"github.com/chatlens/chatlens/pkg/pipeline"
	"github.com/chatlens/chatlens/pkg/settings"
)

const adminPassword = "Adm1n!pass"

type memUsers struct {
	mu     sync.Mutex
	users  map[string]*models.AdminUser
	nextID uint
}

func (m *memUsers) ActiveUser(_ context.Context, username string) (*models.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, query.ErrNotFound)
	}
	return u, nil
}

func (m *memUsers) CreateUser(_ context.Context, user *models.AdminUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return errors.New("duplicate username")
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.Username] = user
	return nil
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, userID uint, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			u.PasswordHash = hash
			return nil
		}
	}
	return query.ErrNotFound
}

func (m *memUsers) TouchLastLogin(context.Context, uint, time.Time) error {
	return nil
}

type memMessages struct {
	mu   sync.Mutex
	msgs []*models.Message
}

func (m *memMessages) find(id uint) (*models.Message, error) {
	for _, msg := range m.msgs {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, fmt.Errorf("message %d: %w", id, query.ErrNotFound)
}

func (m *memMessages) GetMessage(_ context.Context, id uint) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, err := m.find(id)
	if err != nil {
		return nil, err
	}
	cp := *msg
	return &cp, nil
}

func (m *memMessages) CreateMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = uint(len(m.msgs) + 1)
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *memMessages) PreviousOppositeMessage(context.Context, string, apitype.SenderRole, time.Time) (*models.Message, error) {
	return nil, nil
}

func (m *memMessages) SaveSentiment(_ context.Context, id uint, label apitype.SentimentLabel, score float64, processedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, err := m.find(id)
	if err != nil {
		return err
	}
	msg.Sentiment = &label
	msg.SentimentScore = &score
	msg.ProcessedAt = &processedAt
	return nil
}

func (m *memMessages) SaveEmbedding(_ context.Context, id uint, vector []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, err := m.find(id)
	if err != nil {
		return err
	}
	msg.EmbeddingVector, err = models.EncodeEmbedding(vector)
	return err
}

func (m *memMessages) UnprocessedCustomerMessages(_ context.Context, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for i := len(m.msgs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.msgs[i].SenderRole == apitype.SenderCustomer && !m.msgs[i].Processed() {
			out = append(out, *m.msgs[i])
		}
	}
	return out, nil
}

func (m *memMessages) ConversationMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, msg := range m.msgs {
		if msg.ConversationID == conversationID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

type memSettings struct {
	mu     sync.Mutex
	values settings.Settings
}

func (m *memSettings) Load(context.Context) (settings.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := settings.Defaults()
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

func (m *memSettings) Update(ctx context.Context, values map[string]interface{}) (settings.Settings, error) {
	update := settings.Settings{}
	for key, raw := range values {
		v, err := settings.FromInterface(settings.KindOf(key), raw)
		if err == nil {
			err = settings.Validate(key, v)
		}
		if err != nil {
			return nil, &settings.ValidationError{Key: key, Err: err}
		}
		update[key] = v
	}
	m.mu.Lock()
	for k, v := range update {
		m.values[k] = v
	}
	m.mu.Unlock()
	return m.Load(ctx)
}

type stubGenerator struct {
	out string
	err error
}

func (g stubGenerator) Generate(context.Context, string, ai.GenerateOptions) (string, error) {
	return g.out, g.err
}

type stubProber struct {
	err error
}

func (p stubProber) Probe(context.Context) error { return p.err }

func (p stubProber) ModelName() string { return "stub" }

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

type harness struct {
	t        *testing.T
	server   *Server
	handler  http.Handler
	auth     *auth.Service
	store    *apitest.Store
	messages *memMessages
	settings *memSettings
	tokens   map[auth.Role]string
}

type harnessOption func(*Config)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	h := &harness{
		t:        t,
		store:    &apitest.Store{Messages: map[string][]models.Message{}},
		messages: &memMessages{},
		settings: &memSettings{values: settings.Settings{}},
		tokens:   map[auth.Role]string{},
	}

	users := &memUsers{users: map[string]*models.AdminUser{}}
	h.auth = auth.NewService(users, auth.NewLoginLimiter(), auth.NewSessionStore())
	_, err := h.auth.Bootstrap(context.Background(), auth.NewUser{Username: "admin", Password: adminPassword, Role: auth.RoleAdmin})
	require.NoError(t, err)
	for i, role := range []auth.Role{auth.RoleAdmin, auth.RoleManager, auth.RoleAgent} {
		h.tokens[role] = h.auth.Sessions().Create(uint(i+1), string(role), "", role).Token
	}

	generator := stubGenerator{out: "มีลูกค้าสอบถามเรื่องราคา 3 ราย"}
	cfg := Config{
		Auth:      h.auth,
		Reports:   api.NewReports(h.store, memory.NewCache(), analysis.DefaultLexicon(), nil),
		Pipeline:  pipeline.New(h.messages, analysis.DefaultLexicon(), nil, generator, h.settings),
		Assistant: assistant.New(generator, stubProber{}, nil),
		Settings:  h.settings,
		Database:  stubPinger{},
	}
	for _, o := range opts {
		o(&cfg)
	}
	h.server = NewServer(cfg)
	h.handler = h.server.Handler()
	return h
}

// do sends a request as role. An empty role sends no token.
func (h *harness) do(method, path string, role auth.Role, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+h.tokens[role])
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type failure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
