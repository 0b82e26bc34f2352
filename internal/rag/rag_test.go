package rag

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"study-rag/internal/chromemdb"
	"study-rag/internal/llmservice"
)

// letterEmbedder embeds text as letter frequencies plus a constant component
type letterEmbedder struct{}

func (letterEmbedder) vector(text string) []float32 {
	v := make([]float32, 27)
	v[26] = 1
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

func (e letterEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e letterEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

type mockLLM struct {
	ReplyFn func(prompt string) (string, error)
	prompts []string
}

func (m *mockLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	var b strings.Builder
	for _, msg := range messages {
		for _, p := range msg.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				b.WriteString(tc.Text)
			}
		}
	}
	m.prompts = append(m.prompts, b.String())
	out, err := m.ReplyFn(b.String())
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: out}}}, nil
}

func (m *mockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

var chunks = []string{
	"zzzz zzzz zzzz",
	"photosynthesis happens in chloroplasts",
	"mitochondria release energy",
	"qqqq qqqq",
}

func openCollection(t *testing.T) *chromemdb.Collection {
	t.Helper()
	ctx := context.Background()
	ix := chromemdb.NewIndex(t.TempDir(), "instance-a")
	vectors, err := letterEmbedder{}.EmbedDocuments(ctx, chunks)
	require.NoError(t, err)
	require.NoError(t, ix.Rebuild(ctx, chunks, vectors, "test", "letters"))

	c, err := ix.Open(ctx, letterEmbedder{}, chromemdb.Expectation{})
	require.NoError(t, err)
	return c
}

func TestRetrieverReturnsTopK(t *testing.T) {
	r := NewRetriever(openCollection(t), letterEmbedder{}, 2)

	docs, err := r.GetRelevantDocuments(context.Background(), "photosynthesis chloroplasts")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, chunks[1], docs[0].PageContent)
	assert.Equal(t, "1", docs[0].Metadata["index"])
	assert.GreaterOrEqual(t, docs[0].Score, docs[1].Score)
}

func TestRetrieverDefaultsK(t *testing.T) {
	r := NewRetriever(openCollection(t), letterEmbedder{}, 0)
	assert.Equal(t, DefaultTopK, r.K)

	docs, err := r.GetRelevantDocuments(context.Background(), "energy")
	require.NoError(t, err)
	assert.Len(t, docs, DefaultTopK)
}

func TestRetrieverWithoutEmbedder(t *testing.T) {
	r := &Retriever{Collection: openCollection(t), K: 1}
	_, err := r.GetRelevantDocuments(context.Background(), "x")
	assert.ErrorIs(t, err, llmservice.ErrConfiguration)
}

func TestBuildChainNeedsLLM(t *testing.T) {
	_, err := NewChatAgent(nil).BuildChain(nil, nil)
	assert.ErrorIs(t, err, llmservice.ErrConfiguration)
}

func TestAskReturnsAnswerAndSources(t *testing.T) {
	llm := &mockLLM{ReplyFn: func(string) (string, error) { return "In the chloroplasts.", nil }}
	agent := NewChatAgent(llm)

	chain, err := agent.BuildChain(NewRetriever(openCollection(t), letterEmbedder{}, 3), nil)
	require.NoError(t, err)

	answer, sources, err := Ask(context.Background(), chain, "Where does photosynthesis happen?")
	require.NoError(t, err)
	assert.Equal(t, "In the chloroplasts.", answer)
	require.Len(t, sources, 3)
	assert.Equal(t, chunks[1], sources[0].PageContent)

	// no history means no question rewriting
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], chunks[1])
	assert.Contains(t, llm.prompts[0], "Where does photosynthesis happen?")
}

func TestAskWithHistoryCondensesQuestion(t *testing.T) {
	llm := &mockLLM{ReplyFn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Chat History") {
			return "Where do plants release energy?", nil
		}
		return "Mitochondria.", nil
	}}
	history := []ChatTurn{Pair("What is photosynthesis?", "A process in plants.")}

	chain, err := NewChatAgent(llm).BuildChain(NewRetriever(openCollection(t), letterEmbedder{}, 1), history)
	require.NoError(t, err)

	answer, sources, err := Ask(context.Background(), chain, "And energy?")
	require.NoError(t, err)
	assert.Equal(t, "Mitochondria.", answer)
	require.Len(t, sources, 1)
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[0], "What is photosynthesis?")
	assert.Contains(t, llm.prompts[0], "A process in plants.")
}

func TestAskPropagatesLLMFailure(t *testing.T) {
	llm := &mockLLM{ReplyFn: func(string) (string, error) { return "", errors.New("backend down") }}
	chain, err := NewChatAgent(llm).BuildChain(NewRetriever(openCollection(t), letterEmbedder{}, 1), nil)
	require.NoError(t, err)

	_, _, err = Ask(context.Background(), chain, "anything")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidQuestion)
	assert.Contains(t, err.Error(), "backend down")
}

func TestChatTurnJSON(t *testing.T) {
	var history []ChatTurn
	require.NoError(t, json.Unmarshal([]byte(`[
		["What is X?", "X is a letter."],
		{"role": "user", "content": "And Y?"},
		{"role": "Assistant", "content": "Y follows X."}
	]`), &history))
	require.Len(t, history, 3)

	msgs := Messages(history)
	require.Len(t, msgs, 4)
	assert.Equal(t, llms.HumanChatMessage{Content: "What is X?"}, msgs[0])
	assert.Equal(t, llms.AIChatMessage{Content: "X is a letter."}, msgs[1])
	assert.Equal(t, llms.HumanChatMessage{Content: "And Y?"}, msgs[2])
	assert.Equal(t, llms.AIChatMessage{Content: "Y follows X."}, msgs[3])

	out, err := json.Marshal(history[0])
	require.NoError(t, err)
	assert.JSONEq(t, `["What is X?", "X is a letter."]`, string(out))
}

func TestChatTurnRejectsMalformed(t *testing.T) {
	for _, raw := range []string{`["only one"]`, `{"role": "system", "content": "x"}`, `42`} {
		var turn ChatTurn
		assert.Error(t, json.Unmarshal([]byte(raw), &turn), raw)
	}
}
