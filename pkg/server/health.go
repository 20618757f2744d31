package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/chatlens/chatlens/pkg/ai"
	"github.com/chatlens/chatlens/pkg/api"
	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/assistant"
)

const (
	healthTimeout = 15 * time.Second

	healthHealthy   = "healthy"
	healthDegraded  = "degraded"
	healthUnhealthy = "unhealthy"
)

type healthResponse struct {
	Status    string                `json:"status"`
	Database  apitype.ServiceStatus `json:"database"`
	Embedding apitype.ServiceStatus `json:"embedding"`
	Chat      apitype.ServiceStatus `json:"chat"`
	Timestamp time.Time             `json:"timestamp"`
}

// jsonHealth probes the database and both AI services concurrently. A down
// database makes the service unhealthy, a down AI service only degrades it.
func (s *Server) jsonHealth(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Timestamp: time.Now().UTC()}
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		resp.Database = s.databaseStatus(ctx)
	}()
	go func() {
		defer wg.Done()
		resp.Embedding = assistant.ServiceStatus(ctx, ai.EmbeddingService, s.embeddingProbe)
	}()
	go func() {
		defer wg.Done()
		resp.Chat = assistant.ServiceStatus(ctx, ai.GenerationService, s.chatProbe)
	}()
	wg.Wait()

	code := http.StatusOK
	switch {
	case !resp.Database.Available:
		resp.Status = healthUnhealthy
		code = http.StatusServiceUnavailable
	case !resp.Embedding.Available || !resp.Chat.Available:
		resp.Status = healthDegraded
	default:
		resp.Status = healthHealthy
	}
	api.RespondWithJSON(code, w, resp)
}

func (s *Server) databaseStatus(ctx context.Context) apitype.ServiceStatus {
	status := apitype.ServiceStatus{Name: "database"}
	if s.database == nil {
		status.Status = assistant.StatusNotConfigured
		return status
	}
	start := time.Now()
	err := s.database.Ping(ctx)
	status.Latency = time.Since(start)
	if err != nil {
		status.Status = "error"
		status.Error = err.Error()
		return status
	}
	status.Available = true
	status.Status = assistant.StatusOnline
	return status
}
