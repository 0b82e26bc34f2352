package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"study-rag/internal/models"
)

const (
	DefaultDifficulty = "Medium"
	quizOptionCount   = 4
)

// QuizAgent generates multiple-choice questions. Every item it returns
// carries a difficulty; DefaultDifficulty is used when the LLM omits one.
type QuizAgent struct {
	LLM               llms.Model
	Strict            bool
	DefaultDifficulty string
}

func NewQuizAgent(llm llms.Model, strict bool, defaultDifficulty string) *QuizAgent {
	if defaultDifficulty == "" {
		defaultDifficulty = DefaultDifficulty
	}
	return &QuizAgent{LLM: llm, Strict: strict, DefaultDifficulty: defaultDifficulty}
}

func (a *QuizAgent) GenerateFromChunks(ctx context.Context, chunks []string) ([]models.QuizItem, error) {
	items, err := generate(ctx, a.LLM, "quiz", models.QuizPromptTemplate, chunks, a.Strict, parseQuizItems)
	if err != nil {
		return nil, err
	}
	return a.withDifficulty(items), nil
}

func (a *QuizAgent) withDifficulty(items []models.QuizItem) []models.QuizItem {
	def := a.DefaultDifficulty
	if def == "" {
		def = DefaultDifficulty
	}
	for i := range items {
		if strings.TrimSpace(items[i].Difficulty) == "" {
			items[i].Difficulty = def
		}
	}
	return items
}

func parseQuizItems(reply string) ([]models.QuizItem, error) {
	items, err := decodeRecords[models.QuizItem](reply)
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		if strings.TrimSpace(item.Question) == "" || strings.TrimSpace(item.Answer) == "" {
			return nil, fmt.Errorf("%w: quiz item %d lacks a question or answer", ErrUnparseableOutput, i)
		}
		if len(item.Options) != quizOptionCount {
			return nil, fmt.Errorf("%w: quiz item %d has %d options, want %d", ErrUnparseableOutput, i, len(item.Options), quizOptionCount)
		}
	}
	return items, nil
}
