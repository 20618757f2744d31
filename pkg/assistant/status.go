package assistant

import (
	"context"
	"time"

	"github.com/chatlens/chatlens/pkg/ai"
	apitype "github.com/chatlens/chatlens/pkg/apis/api"
)

const (
	StatusOnline        = "online"
	StatusNotConfigured = "not_configured"
)

// ServiceStatus probes an AI service and reports whether it answers.
func ServiceStatus(ctx context.Context, name string, p ai.Prober) apitype.ServiceStatus {
	if p == nil {
		return apitype.ServiceStatus{Name: name, Status: StatusNotConfigured}
	}
	start := time.Now()
	err := p.Probe(ctx)
	status := apitype.ServiceStatus{
		Name:    name,
		Model:   p.ModelName(),
		Latency: time.Since(start),
	}
	if err == nil {
		status.Available = true
		status.Status = StatusOnline
		return status
	}
	status.Error = err.Error()
	status.Status = "error"
	if u, ok := ai.AsUnavailable(err); ok {
		status.Status = string(u.Status)
	}
	return status
}

// Status reports whether the assistant's text-generation service answers.
func (a *Assistant) Status(ctx context.Context) apitype.ServiceStatus {
	return ServiceStatus(ctx, ai.GenerationService, a.prober)
}
