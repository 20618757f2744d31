// Package server exposes the analytics, pipeline, assistant and settings
// operations as a JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	metricsprom "github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
	log "github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/pkg/ai"
	"github.com/chatlens/chatlens/pkg/api"
	"github.com/chatlens/chatlens/pkg/assistant"
	"github.com/chatlens/chatlens/pkg/auth"
	"github.com/chatlens/chatlens/pkg/pipeline"
	"github.com/chatlens/chatlens/pkg/settings"
)

const shutdownTimeout = 10 * time.Second

var httpMetrics = middleware.New(middleware.Config{
	Recorder: metricsprom.NewRecorder(metricsprom.Config{Prefix: "chatlens"}),
})

// SettingsStore reads and writes the runtime settings.
type SettingsStore interface {
	settings.Source
	Update(ctx context.Context, values map[string]interface{}) (settings.Settings, error)
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config wires the server to its collaborators. Probes may be nil when the
// corresponding AI service is not configured.
type Config struct {
	ListenAddr     string
	Auth           *auth.Service
	Reports        *api.Reports
	Pipeline       *pipeline.Pipeline
	Assistant      *assistant.Assistant
	Settings       SettingsStore
	Database       Pinger
	EmbeddingProbe ai.Prober
	ChatProbe      ai.Prober
}

type Server struct {
	listenAddr     string
	auth           *auth.Service
	reports        *api.Reports
	pipeline       *pipeline.Pipeline
	assistant      *assistant.Assistant
	settings       SettingsStore
	database       Pinger
	embeddingProbe ai.Prober
	chatProbe      ai.Prober

	wsUpgrader websocket.Upgrader
	httpServer *http.Server
}

func NewServer(cfg Config) *Server {
	return &Server{
		listenAddr:     cfg.ListenAddr,
		auth:           cfg.Auth,
		reports:        cfg.Reports,
		pipeline:       cfg.Pipeline,
		assistant:      cfg.Assistant,
		settings:       cfg.Settings,
		database:       cfg.Database,
		embeddingProbe: cfg.EmbeddingProbe,
		chatProbe:      cfg.ChatProbe,
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// the dashboard is served from a different origin in development
				return true
			},
		},
	}
}

// handle registers h under path. An empty role leaves the endpoint public.
func (s *Server) handle(r *mux.Router, path, id string, role auth.Role, h http.HandlerFunc, methods ...string) {
	var handler http.Handler = h
	if role != "" {
		handler = s.authorize(role, h)
	}
	r.Handle(path, std.Handler(id, httpMetrics, handler)).Methods(methods...)
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	r := router.PathPrefix("/api").Subrouter()

	s.handle(r, "/health", "health", "", s.jsonHealth, http.MethodGet)

	s.handle(r, "/auth/login", "auth_login", "", s.login, http.MethodPost)
	s.handle(r, "/auth/logout", "auth_logout", auth.RoleAgent, s.logout, http.MethodPost)
	s.handle(r, "/auth/me", "auth_me", auth.RoleAgent, s.me, http.MethodGet)
	s.handle(r, "/auth/password", "auth_password", auth.RoleAgent, s.changePassword, http.MethodPost)
	s.handle(r, "/users", "users_create", auth.RoleAdmin, s.createUser, http.MethodPost)

	s.handle(r, "/dashboard/overview", "dashboard_overview", auth.RoleAgent, s.jsonOverview, http.MethodGet)
	s.handle(r, "/dashboard/daily", "dashboard_daily", auth.RoleAgent, s.jsonDailyCounts, http.MethodGet)
	s.handle(r, "/dashboard/message-types", "dashboard_message_types", auth.RoleAgent, s.jsonMessageKinds, http.MethodGet)
	s.handle(r, "/dashboard/counts", "dashboard_counts", auth.RoleAgent, s.jsonConversationCounts, http.MethodGet)

	s.handle(r, "/conversations/recent", "conversations_recent", auth.RoleAgent, s.jsonRecentConversations, http.MethodGet)
	s.handle(r, "/conversations", "conversations", auth.RoleAgent, s.jsonConversations, http.MethodGet)
	s.handle(r, "/conversations/{id}/summary", "conversation_summary", auth.RoleAgent, s.jsonConversationSummary, http.MethodGet)
	s.handle(r, "/conversations/{id}/insights", "conversation_insights", auth.RoleAgent, s.jsonConversationInsights, http.MethodGet)

	s.handle(r, "/analysis/sentiment", "analysis_sentiment", auth.RoleAgent, s.jsonSentiment, http.MethodGet)
	s.handle(r, "/analysis/sentiment/trend", "analysis_sentiment_trend", auth.RoleAgent, s.jsonSentimentTrend, http.MethodGet)
	s.handle(r, "/analysis/topics", "analysis_topics", auth.RoleAgent, s.jsonTopics, http.MethodGet)
	s.handle(r, "/analysis/response-time", "analysis_response_time", auth.RoleAgent, s.jsonResponseTimes, http.MethodGet)
	s.handle(r, "/analysis/satisfaction", "analysis_satisfaction", auth.RoleAgent, s.jsonSatisfaction, http.MethodGet)
	s.handle(r, "/insights", "insights", auth.RoleAgent, s.jsonInsights, http.MethodGet)

	s.handle(r, "/messages", "messages_create", auth.RoleAgent, s.createMessage, http.MethodPost)
	s.handle(r, "/messages/process", "messages_process_batch", auth.RoleManager, s.processBatch, http.MethodPost)
	s.handle(r, "/messages/similar", "messages_similar", auth.RoleAgent, s.similarMessages, http.MethodPost)
	s.handle(r, "/messages/{id:[0-9]+}/process", "messages_process", auth.RoleAgent, s.processMessage, http.MethodPost)
	s.handle(r, "/replies/suggest", "replies_suggest", auth.RoleAgent, s.suggestReplies, http.MethodPost)
	s.handle(r, "/replies/auto", "replies_auto", auth.RoleAgent, s.autoReply, http.MethodPost)

	s.handle(r, "/assistant/chat", "assistant_chat", auth.RoleAgent, s.assistantChat, http.MethodPost)
	s.handle(r, "/assistant/suggestions", "assistant_suggestions", auth.RoleAgent, s.assistantSuggestions, http.MethodGet)
	s.handle(r, "/assistant/ws", "assistant_ws", auth.RoleAgent, s.assistantSocket, http.MethodGet)

	s.handle(r, "/settings", "settings_get", auth.RoleManager, s.getSettings, http.MethodGet)
	s.handle(r, "/settings", "settings_update", auth.RoleManager, s.updateSettings, http.MethodPut)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		failureResponse(w, http.StatusNotFound, "not found")
	})
	return router
}

// Serve blocks until the server is shut down.
func (s *Server) Serve() {
	// Store a pointer to the HTTP server for later retrieval.
	s.httpServer = &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Infof("Serving reports on %s ", s.listenAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("Server exited")
	}
}

// GetHTTPServer returns the running server, or nil before Serve.
func (s *Server) GetHTTPServer() *http.Server {
	return s.httpServer
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func failureResponse(w http.ResponseWriter, code int, message string) {
	api.RespondWithError(code, w, message)
}
