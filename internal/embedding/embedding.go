package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
)

// New wraps a provider client that can create embeddings
func New(client any) (embeddings.Embedder, error) {
	ec, ok := client.(embeddings.EmbedderClient)
	if !ok {
		return nil, fmt.Errorf("provider %T cannot create embeddings", client)
	}
	embedder, err := embeddings.NewEmbedder(ec)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// EmbedChunks embeds every chunk, returning one vector per chunk in order
func EmbedChunks(ctx context.Context, embedder embeddings.Embedder, chunks []string) ([][]float32, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks generated from content")
		return nil, nil
	}

	vectors, err := embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	log.Debug().Int("chunks", len(chunks)).Int("dims", len(vectors[0])).Msg("Embedded chunks")
	return vectors, nil
}

// ChromemFunc adapts an embedder for chromem collections
func ChromemFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	if embedder == nil {
		return func(context.Context, string) ([]float32, error) {
			return nil, errors.New("no embedder configured")
		}
	}
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
}
