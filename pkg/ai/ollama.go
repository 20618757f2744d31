package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	DefaultOllamaEmbedURL    = "http://localhost:11434/api/embeddings"
	DefaultOllamaGenerateURL = "http://localhost:11434/api/generate"
	DefaultEmbeddingModel    = "nomic-embed-text:latest"
	DefaultChatModel         = "Qwen3:14b"

	maxResponseBytes = 8 << 20
)

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaGenerateRequest struct {
	Model   string                `json:"model"`
	Prompt  string                `json:"prompt"`
	Stream  bool                  `json:"stream"`
	Options ollamaGenerateOptions `json:"options"`
}

type ollamaGenerateOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}

// OllamaClient talks to an Ollama-style JSON API: one endpoint that returns
// {"embedding": [...]} and one that returns {"response": "..."}.
type OllamaClient struct {
	service    string
	url        string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

type Option func(*OllamaClient)

func WithHTTPClient(c *http.Client) Option {
	return func(o *OllamaClient) {
		o.httpClient = c
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *OllamaClient) {
		o.timeout = d
	}
}

// NewOllamaEmbedder returns a client for the embeddings endpoint at url.
func NewOllamaEmbedder(url, model string, opts ...Option) *OllamaClient {
	if url == "" {
		url = DefaultOllamaEmbedURL
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return newOllamaClient(EmbeddingService, url, model, DefaultEmbedTimeout, opts...)
}

// NewOllamaGenerator returns a client for the generate endpoint at url.
func NewOllamaGenerator(url, model string, opts ...Option) *OllamaClient {
	if url == "" {
		url = DefaultOllamaGenerateURL
	}
	if model == "" {
		model = DefaultChatModel
	}
	return newOllamaClient(GenerationService, url, model, DefaultGenerateTimeout, opts...)
}

func newOllamaClient(service, url, model string, timeout time.Duration, opts ...Option) *OllamaClient {
	c := &OllamaClient{
		service:    service,
		url:        strings.TrimSpace(url),
		model:      model,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *OllamaClient) ModelName() string {
	return c.model
}

// Embed requests an embedding for text. The response must be HTTP 200 with a
// numeric "embedding" array.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := withTimeout(ctx, c.timeout, DefaultEmbedTimeout)
	defer cancel()

	raw, err := c.post(ctx, ollamaEmbedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, unavailable(c.service, err)
	}

	result := gjson.GetBytes(raw, "embedding")
	if !result.IsArray() {
		return nil, unavailable(c.service, malformed("embedding field is missing or not an array"))
	}
	values := result.Array()
	if len(values) == 0 {
		return nil, unavailable(c.service, malformed("embedding is empty"))
	}
	vector := make([]float64, 0, len(values))
	for i, v := range values {
		if v.Type != gjson.Number {
			return nil, unavailable(c.service, malformed("embedding[%d] is not a number", i))
		}
		vector = append(vector, v.Float())
	}
	return vector, nil
}

// Generate sends a non-streaming completion request and returns the trimmed
// "response" field.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout, c.timeout)
	defer cancel()

	raw, err := c.post(ctx, ollamaGenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaGenerateOptions{
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
			MaxTokens:   opts.MaxTokens,
		},
	})
	if err != nil {
		return "", unavailable(c.service, err)
	}

	result := gjson.GetBytes(raw, "response")
	if result.Type != gjson.String {
		return "", unavailable(c.service, malformed("response field is missing or not a string"))
	}
	return strings.TrimSpace(result.String()), nil
}

// Probe checks that the service answers a minimal request.
func (c *OllamaClient) Probe(ctx context.Context) error {
	if c.service == EmbeddingService {
		_, err := c.Embed(ctx, "test")
		return err
	}
	_, err := c.Generate(ctx, "สวัสดี", GenerateOptions{MaxTokens: 10, Timeout: 10 * time.Second})
	return err
}

func (c *OllamaClient) post(ctx context.Context, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, URL: c.url, Body: string(buf)}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if !gjson.ValidBytes(buf) {
		return nil, malformed("response body is not valid JSON")
	}
	log.WithFields(log.Fields{
		"service": c.service,
		"model":   c.model,
		"elapsed": time.Since(start),
	}).Debug("ai request complete")
	return buf, nil
}
