// Package ai contains clients for the embedding and text-generation services.
// Two backends are provided: an Ollama-style JSON API and any OpenAI-compatible
// endpoint. Both return *UnavailableError on failure.
package ai

import (
	"context"
	"time"
)

const (
	EmbeddingService  = "embedding"
	GenerationService = "chat"

	DefaultEmbedTimeout    = 30 * time.Second
	DefaultGenerateTimeout = 60 * time.Second
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Generator completes a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Prober checks whether a backing service answers at all.
type Prober interface {
	Probe(ctx context.Context) error
	ModelName() string
}

// GenerateOptions are the sampling options sent with a prompt. Nil sampling
// values and a zero MaxTokens are left out of the request so the service
// default applies; an explicit 0 is sent as 0.
type GenerateOptions struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   int
	Timeout     time.Duration
}

// Float returns a pointer to v for the optional sampling options.
func Float(v float64) *float64 {
	return &v
}

func withTimeout(ctx context.Context, d, fallback time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = fallback
	}
	return context.WithTimeout(ctx, d)
}
