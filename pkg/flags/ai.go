package flags

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/chatlens/chatlens/pkg/ai"
)

const (
	AIBackendOllama = "ollama"
	AIBackendOpenAI = "openai"
)

// AIFlags configure the embedding and text-generation services.
type AIFlags struct {
	Backend        string
	EmbeddingURL   string
	EmbeddingModel string
	ChatURL        string
	ChatModel      string
	Endpoint       string
	APIKey         string
}

func NewAIFlags() *AIFlags {
	return &AIFlags{
		Backend:        AIBackendOllama,
		EmbeddingURL:   ai.DefaultOllamaEmbedURL,
		EmbeddingModel: ai.DefaultEmbeddingModel,
		ChatURL:        ai.DefaultOllamaGenerateURL,
		ChatModel:      ai.DefaultChatModel,
	}
}

func (f *AIFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.Backend, "ai-backend", f.Backend, "AI service API: ollama or openai")
	fs.StringVar(&f.EmbeddingURL, "embedding-url", f.EmbeddingURL, "Ollama embeddings endpoint")
	fs.StringVar(&f.EmbeddingModel, "embedding-model", f.EmbeddingModel, "Model used for message embeddings")
	fs.StringVar(&f.ChatURL, "chat-url", f.ChatURL, "Ollama generate endpoint")
	fs.StringVar(&f.ChatModel, "chat-model", f.ChatModel, "Model used for the assistant and reply refinement")
	fs.StringVar(&f.Endpoint, "ai-endpoint", "", "URL for an OpenAI-compatible endpoint, used with --ai-backend=openai. Set OPENAI_API_KEY to specify an API key.")
}

func (f *AIFlags) Validate() error {
	switch f.Backend {
	case AIBackendOllama:
		return nil
	case AIBackendOpenAI:
		if f.Endpoint == "" {
			return fmt.Errorf("--ai-endpoint is required with --ai-backend=%s", AIBackendOpenAI)
		}
		return nil
	}
	return fmt.Errorf("unknown AI backend %q", f.Backend)
}

// AIClients are the configured service clients. The probers report on the
// same services the embedder and generator use.
type AIClients struct {
	Embedder       ai.Embedder
	Generator      ai.Generator
	EmbeddingProbe ai.Prober
	ChatProbe      ai.Prober
}

func (f *AIFlags) GetAIClients() AIClients {
	if f.Backend == AIBackendOpenAI {
		llm := ai.NewLLMClient(f.Endpoint, os.Getenv("OPENAI_API_KEY"), f.ChatModel, f.EmbeddingModel, nil)
		return AIClients{
			Embedder:       llm,
			Generator:      llm,
			EmbeddingProbe: ai.EmbeddingProber{LLMClient: llm},
			ChatProbe:      llm,
		}
	}

	embedder := ai.NewOllamaEmbedder(f.EmbeddingURL, f.EmbeddingModel)
	generator := ai.NewOllamaGenerator(f.ChatURL, f.ChatModel)
	return AIClients{
		Embedder:       embedder,
		Generator:      generator,
		EmbeddingProbe: embedder,
		ChatProbe:      generator,
	}
}
