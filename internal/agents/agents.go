// Package agents turns document chunks into study material by prompting an
// LLM once per chunk and parsing the JSON it returns.
package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"study-rag/internal/llmservice"
)

var (
	// ErrGeneration is the parent of every generation failure
	ErrGeneration = errors.New("generation failed")

	// ErrLLMCall means the provider call itself failed
	ErrLLMCall = fmt.Errorf("%w: LLM call failed", ErrGeneration)

	// ErrUnparseableOutput means the LLM answered with something other than
	// a JSON array of well-formed records
	ErrUnparseableOutput = fmt.Errorf("%w: LLM produced unparseable output", ErrGeneration)
)

type parseFunc[T any] func(raw string) ([]T, error)

// generate prompts the LLM for each chunk and concatenates the parsed records.
// When strict is false, chunks whose output cannot be parsed are skipped.
func generate[T any](ctx context.Context, llm llms.Model, kind, promptTemplate string, chunks []string, strict bool, parse parseFunc[T]) ([]T, error) {
	if llm == nil {
		return nil, fmt.Errorf("%w: no LLM configured for %s", ErrLLMCall, kind)
	}

	records := []T{}
	skipped := 0
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		prompt := fmt.Sprintf(promptTemplate, chunk)
		out, err := llmservice.Predict(ctx, llm, prompt)
		if err != nil {
			return nil, fmt.Errorf("%w: %s chunk %d: %v", ErrLLMCall, kind, i, err)
		}

		parsed, err := parse(out)
		if err != nil {
			if strict {
				return nil, fmt.Errorf("%s chunk %d: %w", kind, i, err)
			}
			skipped++
			log.Warn().Err(err).Str("agent", kind).Int("chunk", i).Msg("Skipping unparseable LLM output")
			continue
		}
		records = append(records, parsed...)
	}

	log.Debug().Str("agent", kind).Int("chunks", len(chunks)).Int("records", len(records)).Int("skipped", skipped).Msg("Generation finished")
	return records, nil
}
