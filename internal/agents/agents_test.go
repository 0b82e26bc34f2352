package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// scriptedLLM answers every prompt through ReplyFn
type scriptedLLM struct {
	ReplyFn func(prompt string) (string, error)
	prompts []string
}

func (s *scriptedLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	var b strings.Builder
	for _, m := range messages {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				b.WriteString(tc.Text)
			}
		}
	}
	prompt := b.String()
	s.prompts = append(s.prompts, prompt)
	out, err := s.ReplyFn(prompt)
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: out}}}, nil
}

func (s *scriptedLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

func fixed(reply string) *scriptedLLM {
	return &scriptedLLM{ReplyFn: func(string) (string, error) { return reply, nil }}
}

func TestQuizAgentAddsDefaultDifficulty(t *testing.T) {
	llm := fixed(`[{"question": "What is X?", "options": ["A","B","C","D"], "answer": "A"}]`)
	q := NewQuizAgent(llm, false, "")

	out, err := q.GenerateFromChunks(context.Background(), []string{"Some sample text about X."})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Medium", out[0].Difficulty)
}

func TestQuizAgentDifficultyProperty(t *testing.T) {
	replies := []string{
		`[{"question":"q1","options":["a","b","c","d"],"answer":"a"},{"question":"q2","options":["a","b","c","d"],"answer":"b"}]`,
		`[{"question":"q3","options":["a","b","c","d"],"answer":"c","difficulty":""}]`,
		`[{"question":"q4","options":["a","b","c","d"],"answer":"d","difficulty":"Hard"}]`,
	}
	i := 0
	llm := &scriptedLLM{ReplyFn: func(string) (string, error) {
		r := replies[i%len(replies)]
		i++
		return r, nil
	}}
	q := NewQuizAgent(llm, true, "Easy")

	out, err := q.GenerateFromChunks(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, out, 4)
	for _, item := range out {
		assert.NotEmpty(t, item.Difficulty, item.Question)
	}
	assert.Equal(t, "Easy", out[0].Difficulty)
	assert.Equal(t, "Easy", out[2].Difficulty)
	assert.Equal(t, "Hard", out[3].Difficulty)
}

func TestQuizAgentRejectsWrongOptionCount(t *testing.T) {
	llm := fixed(`[{"question":"q","options":["a","b"],"answer":"a"}]`)

	_, err := NewQuizAgent(llm, true, "").GenerateFromChunks(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrUnparseableOutput)

	out, err := NewQuizAgent(llm, false, "").GenerateFromChunks(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFlashcardAgentOnePromptPerChunk(t *testing.T) {
	llm := fixed(`[{"question":"What is the main topic?","answer":"X"}]`)
	a := NewFlashcardAgent(llm, true)

	cards, err := a.GenerateFromChunks(context.Background(), []string{"first chunk", "  ", "second chunk"})
	require.NoError(t, err)
	assert.Len(t, cards, 2)
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[0], "first chunk")
	assert.Contains(t, llm.prompts[1], "second chunk")
	assert.Contains(t, llm.prompts[0], "flashcard")
}

func TestFlashcardAgentErrors(t *testing.T) {
	t.Run("llm failure", func(t *testing.T) {
		llm := &scriptedLLM{ReplyFn: func(string) (string, error) { return "", errors.New("rate limited") }}
		_, err := NewFlashcardAgent(llm, false).GenerateFromChunks(context.Background(), []string{"x"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrLLMCall)
		assert.ErrorIs(t, err, ErrGeneration)
		assert.NotErrorIs(t, err, ErrUnparseableOutput)
	})

	t.Run("unparseable strict", func(t *testing.T) {
		_, err := NewFlashcardAgent(fixed("Sure! Here are some cards."), true).GenerateFromChunks(context.Background(), []string{"x"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnparseableOutput)
		assert.ErrorIs(t, err, ErrGeneration)
		assert.NotErrorIs(t, err, ErrLLMCall)
	})

	t.Run("unparseable lenient skips", func(t *testing.T) {
		cards, err := NewFlashcardAgent(fixed("not json"), false).GenerateFromChunks(context.Background(), []string{"x", "y"})
		require.NoError(t, err)
		assert.NotNil(t, cards)
		assert.Empty(t, cards)
	})

	t.Run("missing answer", func(t *testing.T) {
		_, err := NewFlashcardAgent(fixed(`[{"question":"q"}]`), true).GenerateFromChunks(context.Background(), []string{"x"})
		assert.ErrorIs(t, err, ErrUnparseableOutput)
	})

	t.Run("nil llm", func(t *testing.T) {
		_, err := NewFlashcardAgent(nil, false).GenerateFromChunks(context.Background(), []string{"x"})
		assert.ErrorIs(t, err, ErrLLMCall)
	})
}

func TestFlashcardAgentUnwrapsObjectReply(t *testing.T) {
	llm := fixed(`{"flashcards": [{"question": "What is X?", "answer": "A letter."}]}`)

	cards, err := NewFlashcardAgent(llm, true).GenerateFromChunks(context.Background(), []string{"x"})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "What is X?", cards[0].Question)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{name: "plain", reply: `[{"a":1}]`, want: `[{"a":1}]`},
		{name: "fenced", reply: "Here you go:\n\n```json\n[{\"a\":1}]\n```\n", want: `[{"a":1}]`},
		{name: "fenced without language", reply: "```\n[1, 2]\n```", want: `[1, 2]`},
		{name: "surrounded", reply: `Cards: [{"a":1}] hope this helps`, want: `[{"a":1}]`},
		{name: "empty", reply: "   ", want: ""},
		{name: "wrapped in object", reply: `{"flashcards": [{"a":1}]}`, want: `[{"a":1}]`},
		{name: "fenced object", reply: "```json\n{\"items\": [1]}\n```", want: `[1]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(extractJSON(tt.reply)))
		})
	}
}

func TestPlannerAgent(t *testing.T) {
	plan := NewPlannerAgent().PlanTopics([]string{"Photosynthesis", "", "Respiration"})
	require.Len(t, plan, 3)
	assert.Equal(t, 1, plan[0].Day)
	assert.Equal(t, "Photosynthesis", plan[0].Topic)
	assert.Equal(t, "Topic", plan[1].Topic)
	assert.Equal(t, 3, plan[2].Day)
	assert.NotEmpty(t, plan[2].Activities)
	assert.Empty(t, NewPlannerAgent().PlanTopics(nil))
}

func TestTopicsFromChunks(t *testing.T) {
	long := strings.Repeat("x", 120)
	topics := TopicsFromChunks([]string{"Topic: Photosynthesis\nbody", "\nno first line", long}, 80)
	assert.Equal(t, []string{"Topic: Photosynthesis", "Topic", strings.Repeat("x", 80)}, topics)
}
