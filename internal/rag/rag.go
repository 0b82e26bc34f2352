package rag

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/schema"

	"study-rag/internal/chromemdb"
	"study-rag/internal/llmservice"
)

const (
	questionKey    = "question"
	chatHistoryKey = "chat_history"
	answerKey      = "text"
	sourcesKey     = "source_documents"

	DefaultTopK = 3
)

// ErrInvalidQuestion is returned when the chain rejects its inputs
var ErrInvalidQuestion = errors.New("invalid chat input")

// Retriever returns the chunks closest to a question
type Retriever struct {
	Collection *chromemdb.Collection
	Embedder   embeddings.Embedder
	K          int
}

var _ schema.Retriever = (*Retriever)(nil)

func NewRetriever(collection *chromemdb.Collection, embedder embeddings.Embedder, k int) *Retriever {
	if k <= 0 {
		k = DefaultTopK
	}
	return &Retriever{Collection: collection, Embedder: embedder, K: k}
}

func (r *Retriever) GetRelevantDocuments(ctx context.Context, query string) ([]schema.Document, error) {
	if r.Embedder == nil {
		return nil, fmt.Errorf("%w: no embedder for retrieval", llmservice.ErrConfiguration)
	}
	vector, err := r.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	results, err := r.Collection.Query(ctx, vector, r.K)
	if err != nil {
		return nil, err
	}

	docs := make([]schema.Document, 0, len(results))
	for _, res := range results {
		docs = append(docs, schema.Document{
			PageContent: res.Content,
			Metadata: map[string]any{
				"id":    res.ID,
				"index": strconv.Itoa(res.Index),
			},
			Score: res.Similarity,
		})
	}
	log.Debug().Str("query", query).Int("docs", len(docs)).Msg("Retrieved documents")
	return docs, nil
}

// ChatAgent answers questions over the index. It keeps no session state: the
// caller passes the history on every call.
type ChatAgent struct {
	LLM llms.Model
}

func NewChatAgent(llm llms.Model) *ChatAgent {
	return &ChatAgent{LLM: llm}
}

// BuildChain returns a conversational retrieval chain seeded with history
func (a *ChatAgent) BuildChain(retriever schema.Retriever, history []ChatTurn) (chains.ConversationalRetrievalQA, error) {
	if a.LLM == nil {
		return chains.ConversationalRetrievalQA{}, fmt.Errorf("%w: chat agent has no LLM", llmservice.ErrConfiguration)
	}

	mem := memory.NewConversationBuffer(
		memory.WithChatHistory(memory.NewChatMessageHistory(
			memory.WithPreviousMessages(Messages(history)),
		)),
		memory.WithMemoryKey(chatHistoryKey),
		memory.WithInputKey(questionKey),
		memory.WithOutputKey(answerKey),
	)

	chain := chains.NewConversationalRetrievalQAFromLLM(a.LLM, retriever, mem)
	chain.ReturnSourceDocuments = true
	return chain, nil
}

// Ask runs the chain once and returns the answer with the documents it used
func Ask(ctx context.Context, chain chains.ConversationalRetrievalQA, question string) (string, []schema.Document, error) {
	out, err := chains.Call(ctx, chain, map[string]any{questionKey: question})
	if err != nil {
		if isInputError(err) {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
		}
		return "", nil, fmt.Errorf("failed to answer question: %w", err)
	}

	answer, ok := out[answerKey].(string)
	if !ok {
		return "", nil, fmt.Errorf("chain returned no %q output", answerKey)
	}
	sources, _ := out[sourcesKey].([]schema.Document)
	return answer, sources, nil
}

func isInputError(err error) bool {
	return errors.Is(err, chains.ErrInvalidInputValues) ||
		errors.Is(err, chains.ErrInputValuesWrongType) ||
		errors.Is(err, chains.ErrMissingInputValues) ||
		errors.Is(err, chains.ErrMissingMemoryKeyValues) ||
		errors.Is(err, chains.ErrMemoryValuesWrongType)
}
