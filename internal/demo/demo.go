// Package demo runs the generation pipeline against a canned LLM so the
// service can be shown without any provider credentials.
package demo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"study-rag/internal/agents"
	"study-rag/internal/artifacts"
	"study-rag/internal/config"
	"study-rag/internal/helper"
	"study-rag/internal/models"
	"study-rag/internal/parser"
)

const fallbackReply = "[DEMO] Generated content based on input chunk."

// SampleText is used when no sample PDF is available
const SampleText = "Topic: Photosynthesis\n" +
	"Photosynthesis is the process by which plants convert light into chemical energy.\n" +
	"Key steps include light absorption, water splitting, and carbon fixation.\n" +
	"Definitions: Chlorophyll - pigment that captures light.\n"

var (
	stubFlashcards = []models.Flashcard{
		{Question: "What is the main topic?", Answer: "The main topic is X."},
		{Question: "Define X.", Answer: "X is defined as ..."},
	}
	stubQuizzes = []models.QuizItem{
		{Question: "What does X stand for?", Options: []string{"A", "B", "C", "D"}, Answer: "A"},
	}
)

// StubLLM answers by keyword: flashcard prompts get two cards, quiz prompts
// get one question without a difficulty, anything else a fixed line.
type StubLLM struct{}

var _ llms.Model = StubLLM{}

func (s StubLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	var prompt strings.Builder
	for _, m := range messages {
		for _, part := range m.Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt.WriteString(text.Text)
			}
		}
	}
	reply, err := s.reply(prompt.String())
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (s StubLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

func (StubLLM) reply(prompt string) (string, error) {
	text := strings.ToLower(prompt)
	var v any
	switch {
	case strings.Contains(text, "flashcard") || strings.Contains(text, "produce"):
		v = stubFlashcards
	case strings.Contains(text, "multiple-choice") || strings.Contains(text, "mcq") || strings.Contains(text, "quiz"):
		v = stubQuizzes
	default:
		return fallbackReply, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Run generates all three artifacts from the sample PDF, or from SampleText
// when the PDF is missing, and returns the number of records per file.
func Run(ctx context.Context, reader *parser.Reader, store *artifacts.Store, cfg *config.Config) (map[string]int, error) {
	chunks, err := sampleChunks(reader, cfg.Demo.SamplePDF)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, errors.New("demo input produced no chunks")
	}
	log.Info().Int("chunks", len(chunks)).Str("first", helper.Truncate(chunks[0], 300)).Msg("Demo reader output")

	llm := StubLLM{}
	flashcards, err := agents.NewFlashcardAgent(llm, cfg.Generation.Strict).GenerateFromChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}
	quizzes, err := agents.NewQuizAgent(llm, cfg.Generation.Strict, cfg.Generation.QuizDefaultDifficulty).GenerateFromChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}
	plan := agents.NewPlannerAgent().PlanTopics(agents.TopicsFromChunks(chunks, cfg.RAG.TopicMaxChars))

	if err := store.Save(models.FlashcardsFile, flashcards); err != nil {
		return nil, err
	}
	if err := store.Save(models.QuizzesFile, quizzes); err != nil {
		return nil, err
	}
	if err := store.Save(models.PlannerFile, plan); err != nil {
		return nil, err
	}

	summary := map[string]int{
		models.FlashcardsFile: len(flashcards),
		models.QuizzesFile:    len(quizzes),
		models.PlannerFile:    len(plan),
	}
	log.Info().Interface("summary", summary).Msg("Demo run complete")
	return summary, nil
}

func sampleChunks(reader *parser.Reader, samplePDF string) ([]string, error) {
	if samplePDF != "" {
		if _, err := os.Stat(samplePDF); err == nil {
			log.Info().Str("file", samplePDF).Msg("Using sample PDF")
			chunks, err := reader.ReadPDF(samplePDF)
			if err != nil {
				return nil, fmt.Errorf("failed to read sample PDF: %w", err)
			}
			return chunks, nil
		}
	}
	log.Info().Msg("No sample PDF found, using built-in sample text")
	return reader.SplitText(SampleText)
}
