package rag

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// ChatTurn is one exchange of the chat history. It decodes either a
// ["question", "answer"] pair or a {"role", "content"} message.
type ChatTurn struct {
	Role    string
	Content string
	// Answer is set only for pair form
	Answer string
	pair   bool
}

func (t *ChatTurn) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("chat history pair must have 2 entries, got %d", len(pair))
		}
		*t = ChatTurn{Role: "human", Content: pair[0], Answer: pair[1], pair: true}
		return nil
	}

	var msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("chat history entry must be a [question, answer] pair or a {role, content} object")
	}
	role := strings.ToLower(strings.TrimSpace(msg.Role))
	switch role {
	case "human", "user", "ai", "assistant":
	default:
		return fmt.Errorf("unknown chat role %q", msg.Role)
	}
	*t = ChatTurn{Role: role, Content: msg.Content}
	return nil
}

func (t ChatTurn) MarshalJSON() ([]byte, error) {
	if t.pair {
		return json.Marshal([]string{t.Content, t.Answer})
	}
	return json.Marshal(map[string]string{"role": t.Role, "content": t.Content})
}

// Pair builds a turn from a question and its answer
func Pair(question, answer string) ChatTurn {
	return ChatTurn{Role: "human", Content: question, Answer: answer, pair: true}
}

// Messages converts the history into chat messages in order
func Messages(history []ChatTurn) []llms.ChatMessage {
	msgs := make([]llms.ChatMessage, 0, len(history)*2)
	for _, t := range history {
		switch t.Role {
		case "ai", "assistant":
			msgs = append(msgs, llms.AIChatMessage{Content: t.Content})
		default:
			msgs = append(msgs, llms.HumanChatMessage{Content: t.Content})
		}
		if t.pair {
			msgs = append(msgs, llms.AIChatMessage{Content: t.Answer})
		}
	}
	return msgs
}
