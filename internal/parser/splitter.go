package parser

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/textsplitter"

	"study-rag/internal/config"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// Splitter breaks text into ordered chunks
type Splitter interface {
	SplitText(text string) ([]string, error)
}

// FixedSplitter cuts text into windows of Size characters. Every chunk after
// the first starts Overlap characters before the end of the previous one,
// unless the previous chunk reached the end of the text.
type FixedSplitter struct {
	Size    int
	Overlap int
}

func NewFixedSplitter(size, overlap int) (*FixedSplitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &FixedSplitter{Size: size, Overlap: overlap}, nil
}

func (s *FixedSplitter) SplitText(text string) ([]string, error) {
	content := []rune(text)
	contentLen := len(content)

	var chunks []string
	start := 0
	for start < contentLen {
		end := min(start+s.Size, contentLen)
		chunks = append(chunks, string(content[start:end]))
		if end == contentLen {
			break
		}
		start = end - s.Overlap
	}
	return chunks, nil
}

// NewSplitter builds the splitter named by kind. The recursive splitter falls
// back to the fixed one when it cannot be constructed.
func NewSplitter(kind string, size, overlap int) (Splitter, error) {
	if size == 0 {
		size, overlap = defaultChunkSize, defaultChunkOverlap
	}
	fixed, err := NewFixedSplitter(size, overlap)
	if err != nil {
		return nil, err
	}

	switch kind {
	case "", config.SplitterFixed:
		return fixed, nil
	case config.SplitterRecursive:
		rs, err := newRecursiveSplitter(size, overlap)
		if err != nil {
			log.Warn().Err(err).Msg("Recursive splitter unavailable, using fixed windows")
			return fixed, nil
		}
		return rs, nil
	default:
		return nil, fmt.Errorf("unknown splitter %q", kind)
	}
}

func newRecursiveSplitter(size, overlap int) (s Splitter, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("recursive splitter: %v", r)
		}
	}()
	rs := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	)
	return rs, nil
}
