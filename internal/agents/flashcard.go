package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"study-rag/internal/models"
)

type FlashcardAgent struct {
	LLM    llms.Model
	Strict bool
}

func NewFlashcardAgent(llm llms.Model, strict bool) *FlashcardAgent {
	return &FlashcardAgent{LLM: llm, Strict: strict}
}

// GenerateFromChunks returns the flashcards for all chunks, in chunk order
func (a *FlashcardAgent) GenerateFromChunks(ctx context.Context, chunks []string) ([]models.Flashcard, error) {
	return generate(ctx, a.LLM, "flashcard", models.FlashcardPromptTemplate, chunks, a.Strict, parseFlashcards)
}

func parseFlashcards(reply string) ([]models.Flashcard, error) {
	cards, err := decodeRecords[models.Flashcard](reply)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		cards[i].Question = strings.TrimSpace(cards[i].Question)
		cards[i].Answer = strings.TrimSpace(cards[i].Answer)
		if cards[i].Question == "" || cards[i].Answer == "" {
			return nil, fmt.Errorf("%w: flashcard %d lacks a question or answer", ErrUnparseableOutput, i)
		}
	}
	return cards, nil
}
