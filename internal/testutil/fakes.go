// Package testutil holds fakes shared by the service and HTTP tests.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"

	"study-rag/internal/llmservice"
)

// MockLLM answers every prompt through ReplyFn and records the prompts
type MockLLM struct {
	ReplyFn func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (m *MockLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	var b strings.Builder
	for _, msg := range messages {
		for _, p := range msg.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				b.WriteString(tc.Text)
			}
		}
	}
	prompt := b.String()

	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	out, err := m.ReplyFn(prompt)
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: out}}}, nil
}

func (m *MockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func (m *MockLLM) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// StudyLLM replies with one flashcard, one quiz item or a plain answer
// depending on the prompt
func StudyLLM() *MockLLM {
	return &MockLLM{ReplyFn: func(prompt string) (string, error) {
		text := strings.ToLower(prompt)
		switch {
		case strings.Contains(text, "flashcard"):
			return `[{"question": "What is studied?", "answer": "Cells."}]`, nil
		case strings.Contains(text, "multiple-choice"):
			return "```json\n[{\"question\": \"Unit of life?\", \"options\": [\"Cell\", \"Atom\", \"Rock\", \"Star\"], \"answer\": \"Cell\"}]\n```", nil
		default:
			return "Cells are the unit of life.", nil
		}
	}}
}

// LetterEmbedder embeds text as letter counts plus a constant component
type LetterEmbedder struct{}

func (LetterEmbedder) vector(text string) []float32 {
	v := make([]float32, 27)
	v[26] = 1
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

func (e LetterEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e LetterEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

// Providers returns a resolved provider pair backed by llm and LetterEmbedder
func Providers(llm llms.Model) *llmservice.Lazy {
	return llmservice.NewStatic(&llmservice.Providers{
		Name:           "test",
		Model:          "mock",
		EmbeddingModel: "letters",
		LLM:            llm,
		Embedder:       LetterEmbedder{},
	})
}

// TextExtractor returns Text for every file
type TextExtractor struct {
	Text string
	Err  error
}

func (e TextExtractor) ExtractText(string) (string, error) {
	return e.Text, e.Err
}

// StudyText is long enough to split into several chunks at the default size
func StudyText() string {
	var b strings.Builder
	b.WriteString("Cells\nCells are the unit of life. ")
	for b.Len() < 2500 {
		b.WriteString("Cells divide, grow and respond to their environment. ")
	}
	return b.String()
}
