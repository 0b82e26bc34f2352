package llmservice

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ollamaapi "github.com/ollama/ollama/api"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"study-rag/internal/config"
	"study-rag/internal/embedding"
)

const (
	ProviderOllama = "ollama"
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
)

// Constructor builds one provider from configuration
type Constructor func(ctx context.Context, cfg config.LLMConfig) (*Providers, error)

// Constructors holds one constructor per provider, in no particular order;
// priority is decided by Resolve.
type Constructors struct {
	Ollama Constructor
	Google Constructor
	OpenAI Constructor
}

func DefaultConstructors() Constructors {
	return Constructors{
		Ollama: newOllama,
		Google: newGoogle,
		OpenAI: newOpenAI,
	}
}

func newOllama(ctx context.Context, cfg config.LLMConfig) (*Providers, error) {
	base, err := url.Parse(cfg.OllamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", cfg.OllamaURL, err)
	}
	if err := ollamaapi.NewClient(base, http.DefaultClient).Heartbeat(ctx); err != nil {
		return nil, fmt.Errorf("ollama server %s is not reachable: %w", cfg.OllamaURL, err)
	}

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.OllamaURL),
		ollama.WithModel(cfg.OllamaModel),
	)
	if err != nil {
		return nil, err
	}
	embedLLM, err := ollama.New(
		ollama.WithServerURL(cfg.OllamaURL),
		ollama.WithModel(cfg.OllamaEmbeddingModel),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embedding.New(embedLLM)
	if err != nil {
		return nil, err
	}

	return &Providers{
		Name:           ProviderOllama,
		Model:          cfg.OllamaModel,
		EmbeddingModel: cfg.OllamaEmbeddingModel,
		LLM:            llm,
		Embedder:       embedder,
	}, nil
}

func newGoogle(ctx context.Context, cfg config.LLMConfig) (*Providers, error) {
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.GoogleAPIKey),
		googleai.WithDefaultModel(cfg.GoogleModel),
		googleai.WithDefaultEmbeddingModel(cfg.GoogleEmbeddingModel),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embedding.New(llm)
	if err != nil {
		return nil, err
	}

	return &Providers{
		Name:           ProviderGoogle,
		Model:          cfg.GoogleModel,
		EmbeddingModel: cfg.GoogleEmbeddingModel,
		LLM:            llm,
		Embedder:       embedder,
	}, nil
}

func newOpenAI(_ context.Context, cfg config.LLMConfig) (*Providers, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.OpenAIAPIKey, "Bearer ")),
		openai.WithModel(cfg.OpenAIModel),
		openai.WithEmbeddingModel(cfg.OpenAIEmbeddingModel),
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	embedder, err := embedding.New(llm)
	if err != nil {
		return nil, err
	}

	return &Providers{
		Name:           ProviderOpenAI,
		Model:          cfg.OpenAIModel,
		EmbeddingModel: cfg.OpenAIEmbeddingModel,
		LLM:            llm,
		Embedder:       embedder,
	}, nil
}

// withCallOptions applies default call options to every request
type withCallOptions struct {
	llms.Model
	opts []llms.CallOption
}

func (m withCallOptions) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := make([]llms.CallOption, 0, len(m.opts)+len(options))
	opts = append(append(opts, m.opts...), options...)
	return m.Model.GenerateContent(ctx, messages, opts...)
}

func (m withCallOptions) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
