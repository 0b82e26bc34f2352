package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"

	"study-rag/internal/config"
)

// ErrConfiguration is returned when no LLM or embeddings provider can be resolved
var ErrConfiguration = errors.New("no usable LLM provider configured")

// Providers is the resolved LLM and embeddings pair
type Providers struct {
	Name           string
	Model          string
	EmbeddingModel string
	LLM            llms.Model
	Embedder       embeddings.Embedder
}

type candidate struct {
	name      string
	construct Constructor
}

// Resolve picks the first provider that is configured and constructs
// successfully, in the order Ollama, Google, OpenAI. A provider that fails to
// construct is skipped in favour of the next configured one.
func Resolve(ctx context.Context, cfg config.LLMConfig, cons Constructors) (*Providers, error) {
	var candidates []candidate
	var missing []string

	if cfg.UseOllama {
		candidates = append(candidates, candidate{ProviderOllama, cons.Ollama})
	} else {
		missing = append(missing, "USE_OLLAMA")
	}
	if cfg.GoogleAPIKey != "" {
		candidates = append(candidates, candidate{ProviderGoogle, cons.Google})
	} else {
		missing = append(missing, "GOOGLE_API_KEY")
	}
	if cfg.OpenAIAPIKey != "" {
		candidates = append(candidates, candidate{ProviderOpenAI, cons.OpenAI})
	} else {
		missing = append(missing, "OPENAI_API_KEY")
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: set one of %s (USE_OLLAMA=true for a local runtime)",
			ErrConfiguration, strings.Join(missing, ", "))
	}

	var failures []error
	for _, c := range candidates {
		if c.construct == nil {
			failures = append(failures, fmt.Errorf("%s: no constructor", c.name))
			continue
		}
		p, err := c.construct(ctx, cfg)
		if err != nil {
			log.Warn().Err(err).Str("provider", c.name).Msg("LLM provider unavailable, trying next")
			failures = append(failures, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		if p.LLM == nil || p.Embedder == nil {
			failures = append(failures, fmt.Errorf("%s: incomplete provider", c.name))
			continue
		}
		p.LLM = withCallOptions{Model: p.LLM, opts: []llms.CallOption{llms.WithTemperature(cfg.Temperature)}}
		log.Info().Str("provider", p.Name).Str("model", p.Model).Str("embedding_model", p.EmbeddingModel).Msg("Resolved LLM provider")
		return p, nil
	}

	return nil, fmt.Errorf("%w: every configured provider failed: %w", ErrConfiguration, errors.Join(failures...))
}

// Lazy resolves providers on first use and keeps them for the process lifetime.
// Failed resolutions are not cached.
type Lazy struct {
	mu       sync.Mutex
	resolve  func(ctx context.Context) (*Providers, error)
	resolved *Providers
}

func NewLazy(cfg config.LLMConfig, cons Constructors) *Lazy {
	return &Lazy{
		resolve: func(ctx context.Context) (*Providers, error) {
			return Resolve(ctx, cfg, cons)
		},
	}
}

// NewStatic returns a Lazy that always yields p
func NewStatic(p *Providers) *Lazy {
	return &Lazy{resolved: p}
}

func (l *Lazy) Get(ctx context.Context) (*Providers, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.resolved != nil {
		return l.resolved, nil
	}
	if l.resolve == nil {
		return nil, ErrConfiguration
	}
	p, err := l.resolve(ctx)
	if err != nil {
		return nil, err
	}
	l.resolved = p
	return p, nil
}

// Predict sends a single prompt and returns the completion text
func Predict(ctx context.Context, llm llms.Model, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, llm, prompt, options...)
}
