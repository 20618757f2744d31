package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatlens/chatlens/pkg/ai"
	"github.com/chatlens/chatlens/pkg/analysis"
	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/assistant"
	"github.com/chatlens/chatlens/pkg/auth"
	"github.com/chatlens/chatlens/pkg/db/models"
	"github.com/chatlens/chatlens/pkg/pipeline"
)

func TestLoginFlow(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgInvalidCredentials, decode[failure](t, rec).Message)

	rec = h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": adminPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[loginResponse](t, rec)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, auth.RoleAdmin, login.User.Role)
	assert.Equal(t, "ผู้ดูแลระบบ", login.User.RoleDisplay)

	h.tokens["fresh"] = login.Token
	rec = h.do(http.MethodGet, "/api/auth/me", "fresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", decode[userResponse](t, rec).Username)

	rec = h.do(http.MethodPost, "/api/auth/logout", "fresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodGet, "/api/auth/me", "fresh", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginLockout(t *testing.T) {
	h := newHarness(t)
	bad := map[string]string{"username": "admin", "password": "wrong"}

	for i := 0; i < auth.MaxLoginAttempts; i++ {
		rec := h.do(http.MethodPost, "/api/auth/login", "", bad)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": adminPassword})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, decode[failure](t, rec).Message, "15 นาที")
}

func TestRoleChecks(t *testing.T) {
	h := newHarness(t)
	newUser := map[string]string{"username": "somchai", "password": "Agent#2024", "role": "agent"}

	tests := []struct {
		name   string
		method string
		path   string
		role   auth.Role
		body   interface{}
		want   int
	}{
		{name: "no token", method: http.MethodGet, path: "/api/analysis/topics", want: http.StatusUnauthorized},
		{name: "agent reads analysis", method: http.MethodGet, path: "/api/analysis/topics", role: auth.RoleAgent, want: http.StatusOK},
		{name: "agent reads settings", method: http.MethodGet, path: "/api/settings", role: auth.RoleAgent, want: http.StatusForbidden},
		{name: "manager reads settings", method: http.MethodGet, path: "/api/settings", role: auth.RoleManager, want: http.StatusOK},
		{name: "manager creates user", method: http.MethodPost, path: "/api/users", role: auth.RoleManager, body: newUser, want: http.StatusForbidden},
		{name: "admin creates user", method: http.MethodPost, path: "/api/users", role: auth.RoleAdmin, body: newUser, want: http.StatusCreated},
		{name: "agent runs batch", method: http.MethodPost, path: "/api/messages/process", role: auth.RoleAgent, want: http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(tc.method, tc.path, tc.role, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateUserValidation(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/users", auth.RoleAdmin, map[string]string{"username": "weak", "password": "password"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[failure](t, rec).Message, msgWeakPassword)

	rec = h.do(http.MethodPost, "/api/users", auth.RoleAdmin, map[string]string{"username": "x", "password": "Agent#2024", "role": "owner"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": adminPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	h.tokens["fresh"] = decode[loginResponse](t, rec).Token

	rec = h.do(http.MethodPost, "/api/auth/password", "fresh", map[string]string{"current_password": "nope", "new_password": "N3w!password"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/auth/password", "fresh", map[string]string{"current_password": adminPassword, "new_password": "N3w!password"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "N3w!password"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalysisWidgets(t *testing.T) {
	h := newHarness(t)
	h.store.Sentiments = []apitype.SentimentCount{
		{Sentiment: apitype.SentimentPositive, Count: 7},
		{Sentiment: apitype.SentimentNegative, Count: 2},
	}

	rec := h.do(http.MethodGet, "/api/analysis/sentiment?start_date=2024-03-01&end_date=2024-03-07", auth.RoleAgent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	widget := decode[apitype.Widget[[]apitype.SentimentCount]](t, rec)
	assert.Empty(t, widget.Errors)
	assert.Equal(t, h.store.Sentiments, widget.Data)

	rec = h.do(http.MethodGet, "/api/analysis/sentiment?start_date=2024-03-07&end_date=2024-03-01", auth.RoleAgent, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/analysis/sentiment?start_date=2024-03-01", auth.RoleAgent, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWidgetReportsStoreErrors(t *testing.T) {
	h := newHarness(t)
	h.store.Err = errors.New("connection refused")

	for _, path := range []string{
		"/api/dashboard/overview",
		"/api/dashboard/daily",
		"/api/dashboard/message-types",
		"/api/dashboard/counts",
		"/api/conversations/recent",
		"/api/conversations?user_id=U1",
		"/api/analysis/sentiment/trend",
		"/api/analysis/response-time",
		"/api/analysis/satisfaction",
		"/api/insights",
	} {
		t.Run(path, func(t *testing.T) {
			rec := h.do(http.MethodGet, path, auth.RoleAgent, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			widget := decode[apitype.Widget[interface{}]](t, rec)
			assert.NotEmpty(t, widget.Errors)
		})
	}
}

func TestConversations(t *testing.T) {
	h := newHarness(t)
	h.store.Rows = []apitype.ConversationRow{
		{ID: 1, UserID: "U1", Message: "สวัสดี"},
		{ID: 2, UserID: "U2", Message: "ราคาเท่าไหร่"},
	}

	rec := h.do(http.MethodGet, "/api/conversations?user_id=U2", auth.RoleAgent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	widget := decode[apitype.Widget[[]apitype.ConversationRow]](t, rec)
	require.Len(t, widget.Data, 1)
	assert.Equal(t, uint(2), widget.Data[0].ID)

	rec = h.do(http.MethodGet, "/api/conversations/recent?limit=1", auth.RoleAgent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[apitype.Widget[[]apitype.ConversationRow]](t, rec).Data, 1)

	rec = h.do(http.MethodGet, "/api/conversations/recent?limit=5000", auth.RoleAgent, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConversationSummary(t *testing.T) {
	h := newHarness(t)
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	positive := apitype.SentimentPositive
	h.store.Messages["c1"] = []models.Message{
		{ID: 1, ConversationID: "c1", UserID: "U1", SenderRole: apitype.SenderCustomer, Body: "ราคาเท่าไหร่", Timestamp: start, Sentiment: &positive},
		{ID: 2, ConversationID: "c1", UserID: "agent", SenderRole: apitype.SenderAdmin, Body: "100 บาทค่ะ", Timestamp: start.Add(time.Minute)},
	}

	rec := h.do(http.MethodGet, "/api/conversations/c1/summary", auth.RoleAgent, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[apitype.ConversationSummary](t, rec)
	assert.Equal(t, 2, summary.TotalMessages)
	assert.Equal(t, "U1", summary.UserID)
	assert.Len(t, h.store.UpsertedSummaries, 1)

	rec = h.do(http.MethodGet, "/api/conversations/missing/summary", auth.RoleAgent, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type messageResponse struct {
	Message struct {
		ID             uint   `json:"id"`
		ConversationID string `json:"conversation_id"`
	} `json:"message"`
	Analysis *struct {
		Sentiment       *analysis.Sentiment `json:"sentiment"`
		EmbeddingStatus string              `json:"embedding_status"`
		Replies         []analysis.Reply    `json:"suggested_responses"`
	} `json:"analysis"`
}

func TestCreateMessage(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/messages", auth.RoleAgent, map[string]interface{}{
		"conversation_id": "c1",
		"user_id":         "U1",
		"message":         "สินค้าดีมาก ขอบคุณค่ะ",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[messageResponse](t, rec)
	assert.Equal(t, uint(1), resp.Message.ID)
	require.NotNil(t, resp.Analysis)
	require.NotNil(t, resp.Analysis.Sentiment)
	assert.Equal(t, string(pipeline.EmbeddingUnavailable), resp.Analysis.EmbeddingStatus)
	assert.NotEmpty(t, resp.Analysis.Replies)
	assert.True(t, h.messages.msgs[0].Processed())

	rec = h.do(http.MethodPost, "/api/messages", auth.RoleAgent, map[string]interface{}{
		"conversation_id": "c1",
		"user_id":         "agent",
		"sender_type":     "admin",
		"message":         "ยินดีค่ะ",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, decode[messageResponse](t, rec).Analysis, "staff messages are not analysed")

	rec = h.do(http.MethodPost, "/api/messages", auth.RoleAgent, map[string]interface{}{
		"conversation_id": "c1",
		"user_id":         "U1",
		"message":         "x",
		"process":         false,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, decode[messageResponse](t, rec).Analysis)
	assert.False(t, h.messages.msgs[2].Processed())

	rec = h.do(http.MethodPost, "/api/messages", auth.RoleAgent, map[string]interface{}{
		"conversation_id": "c1",
		"user_id":         "U1",
		"sender_type":     "bot",
		"message":         "hi",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/messages", auth.RoleAgent, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessEndpoints(t *testing.T) {
	h := newHarness(t)
	for _, body := range []string{"hello", "ราคาเท่าไหร่", "ส่งของวันไหน"} {
		rec := h.do(http.MethodPost, "/api/messages", auth.RoleAgent, map[string]interface{}{
			"conversation_id": "c1", "user_id": "U1", "message": body, "process": false,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := h.do(http.MethodPost, "/api/messages/process?limit=2", auth.RoleManager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, decode[map[string]interface{}](t, rec)["processed"])

	rec = h.do(http.MethodPost, "/api/messages/1/process", auth.RoleAgent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[pipeline.Result](t, rec).Skipped)

	rec = h.do(http.MethodPost, "/api/messages/1/process", auth.RoleAgent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[pipeline.Result](t, rec).Skipped)

	rec = h.do(http.MethodPost, "/api/messages/1/process?force=true", auth.RoleAgent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[pipeline.Result](t, rec).Skipped)

	rec = h.do(http.MethodPost, "/api/messages/99/process", auth.RoleAgent, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSimilarMessages(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/messages/similar", auth.RoleAgent, map[string]interface{}{"message": "ราคา"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = h.do(http.MethodPost, "/api/messages/similar", auth.RoleAgent, map[string]interface{}{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/messages/similar", auth.RoleAgent, map[string]interface{}{"message": "ราคา", "limit": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplies(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/replies/suggest", auth.RoleAgent, map[string]string{"message": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[replyResponse](t, rec)
	assert.True(t, resp.ShouldAutoReply)
	require.NotNil(t, resp.AutoReply)
	assert.Equal(t, analysis.ReplyGreeting, resp.AutoReply.Category)
	assert.Equal(t, resp.Suggestions[0].Text, resp.AutoReply.Text)

	rec = h.do(http.MethodPost, "/api/replies/auto", auth.RoleAgent, map[string]string{"message": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[replyResponse](t, rec)
	require.NotNil(t, resp.AutoReply)
	assert.Equal(t, "มีลูกค้าสอบถามเรื่องราคา 3 ราย", resp.AutoReply.Text, "auto reply is refined")

	rec = h.do(http.MethodPost, "/api/replies/suggest", auth.RoleAgent, map[string]string{"message": "xyz"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[replyResponse](t, rec)
	assert.False(t, resp.ShouldAutoReply)
	assert.Equal(t, analysis.ReplyFallback, resp.Suggestions[0].Category)

	rec = h.do(http.MethodPost, "/api/replies/suggest", auth.RoleAgent, map[string]string{"message": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettings(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPut, "/api/settings", auth.RoleManager, map[string]interface{}{"response_threshold": 150})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPut, "/api/settings", auth.RoleManager, map[string]interface{}{"auto_response": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPut, "/api/settings", auth.RoleManager, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPut, "/api/settings", auth.RoleManager, map[string]interface{}{
		"response_threshold": 90,
		"line_token":         "secret-token",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[map[string]interface{}](t, rec)
	assert.Equal(t, 90.0, got["response_threshold"])
	assert.Equal(t, "********", got["line_token"])

	rec = h.do(http.MethodGet, "/api/settings", auth.RoleManager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 90.0, decode[map[string]interface{}](t, rec)["response_threshold"])
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		cfg        func(*Config)
		wantCode   int
		wantStatus string
	}{
		{
			name: "healthy",
			cfg: func(c *Config) {
				c.EmbeddingProbe = stubProber{}
				c.ChatProbe = stubProber{}
			},
			wantCode:   http.StatusOK,
			wantStatus: healthHealthy,
		},
		{
			name: "embedding down",
			cfg: func(c *Config) {
				c.EmbeddingProbe = stubProber{err: &ai.UnavailableError{Service: ai.EmbeddingService, Status: ai.StatusTimeout}}
				c.ChatProbe = stubProber{}
			},
			wantCode:   http.StatusOK,
			wantStatus: healthDegraded,
		},
		{
			name:       "ai not configured",
			cfg:        func(c *Config) {},
			wantCode:   http.StatusOK,
			wantStatus: healthDegraded,
		},
		{
			name: "database down",
			cfg: func(c *Config) {
				c.Database = stubPinger{err: errors.New("dial tcp: connection refused")}
				c.EmbeddingProbe = stubProber{}
				c.ChatProbe = stubProber{}
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: healthUnhealthy,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.cfg)
			rec := h.do(http.MethodGet, "/api/health", "", nil)
			assert.Equal(t, tc.wantCode, rec.Code)
			resp := decode[healthResponse](t, rec)
			assert.Equal(t, tc.wantStatus, resp.Status)
		})
	}
}

func TestAssistantChat(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/assistant/chat", auth.RoleAgent, map[string]string{"message": "วันนี้มีลูกค้าถามเรื่องราคากี่คน"})
	require.Equal(t, http.StatusOK, rec.Code)
	answer := decode[assistant.Answer](t, rec)
	assert.Equal(t, "ตามข้อมูลที่มี มีลูกค้าสอบถามเรื่องราคา 3 ราย", answer.Answer)

	rec = h.do(http.MethodPost, "/api/assistant/chat", auth.RoleAgent, map[string]string{"message": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/assistant/suggestions?audience=customer", auth.RoleAgent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]string](t, rec)["suggestions"], 5)
}

func TestAssistantSocket(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/assistant/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+h.tokens[auth.RoleAgent], nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(chatRequest{Message: "สรุปวันนี้"}))
	var frame chatFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "answer", frame.Type)
	require.NotNil(t, frame.Answer)
	assert.Equal(t, "สรุปวันนี้", frame.Answer.Question)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	frame = chatFrame{}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "error", frame.Type)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/nope", auth.RoleAgent, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decode[failure](t, rec).Code)
}
