package agents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// extractJSON finds the JSON array in an LLM reply: the outermost [...] span of
// the first fenced code block if there is one, otherwise of the whole reply.
// A JSON object wrapping the array, like {"flashcards": [...]}, yields the array.
func extractJSON(reply string) []byte {
	src := []byte(strings.TrimSpace(reply))
	if len(src) == 0 {
		return nil
	}
	if src[0] == '[' && json.Valid(src) {
		return src
	}

	if block := firstFencedBlock(src); block != nil {
		src = bytes.TrimSpace(block)
	}
	return arraySpan(src)
}

// arraySpan returns the outermost [...] span of src, or src when there is none
func arraySpan(src []byte) []byte {
	start := bytes.IndexByte(src, '[')
	end := bytes.LastIndexByte(src, ']')
	if start >= 0 && end > start {
		return src[start : end+1]
	}
	return src
}

func firstFencedBlock(src []byte) []byte {
	doc := markdown.Parser().Parse(text.NewReader(src))

	var found []byte
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		found = buf.Bytes()
		return ast.WalkStop, nil
	})
	return found
}

// decodeRecords unmarshals the JSON array found in reply into records
func decodeRecords[T any](reply string) ([]T, error) {
	payload := extractJSON(reply)
	if payload == nil {
		return nil, fmt.Errorf("%w: empty reply", ErrUnparseableOutput)
	}
	var records []T
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableOutput, err)
	}
	return records, nil
}
