package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	log "github.com/sirupsen/logrus"
)

// LLMClient uses an OpenAI-compatible endpoint for both text generation and
// embeddings.
type LLMClient struct {
	client         *openai.Client
	model          string
	embeddingModel string
	timeout        time.Duration
}

// NewLLMClient creates a client for url. An empty apiKey tries unauthenticated access.
func NewLLMClient(url, apiKey, model, embeddingModel string, httpClient *http.Client) *LLMClient {
	options := []option.RequestOption{option.WithBaseURL(url), option.WithMaxRetries(0)}

	if apiKey == "" {
		log.Info("no API key configured for the OpenAI-compatible endpoint, will try unauthenticated access")
	} else {
		options = append(options, option.WithAPIKey(apiKey))
	}
	if httpClient != nil {
		options = append(options, option.WithHTTPClient(httpClient))
	}

	client := openai.NewClient(options...)
	return &LLMClient{client: &client, model: model, embeddingModel: embeddingModel, timeout: DefaultGenerateTimeout}
}

func (llm *LLMClient) ModelName() string {
	return llm.model
}

// Chat sends a system instruction and a user message.
func (llm *LLMClient) Chat(ctx context.Context, instructions, data string, opts GenerateOptions) (string, error) {
	return llm.complete(ctx, opts,
		openai.SystemMessage(instructions),
		openai.UserMessage(data),
	)
}

// Generate sends prompt as a single user message.
func (llm *LLMClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return llm.complete(ctx, opts, openai.UserMessage(prompt))
}

func (llm *LLMClient) complete(ctx context.Context, opts GenerateOptions, messages ...openai.ChatCompletionMessageParamUnion) (string, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout, llm.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    llm.model,
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}
	if opts.TopP != nil {
		params.TopP = openai.Float(*opts.TopP)
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}

	resp, err := llm.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", unavailable(GenerationService, err)
	}

	if len(resp.Choices) == 0 {
		return "", unavailable(GenerationService, malformed("client didn't return any content choices"))
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embed uses the embeddings endpoint with the configured embedding model.
func (llm *LLMClient) Embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := withTimeout(ctx, 0, DefaultEmbedTimeout)
	defer cancel()

	resp, err := llm.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(llm.embeddingModel),
	})
	if err != nil {
		return nil, unavailable(EmbeddingService, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, unavailable(EmbeddingService, malformed("no embedding returned for model %s", llm.embeddingModel))
	}
	return resp.Data[0].Embedding, nil
}

// Probe sends a tiny completion request.
func (llm *LLMClient) Probe(ctx context.Context) error {
	_, err := llm.Generate(ctx, "สวัสดี", GenerateOptions{MaxTokens: 10, Timeout: 10 * time.Second})
	if err != nil {
		return fmt.Errorf("probe %s: %w", llm.model, err)
	}
	return nil
}

// EmbeddingProber adapts the embedding side of the client to Prober.
type EmbeddingProber struct {
	*LLMClient
}

func (p EmbeddingProber) ModelName() string {
	return p.embeddingModel
}

func (p EmbeddingProber) Probe(ctx context.Context) error {
	_, err := p.Embed(ctx, "test")
	return err
}
