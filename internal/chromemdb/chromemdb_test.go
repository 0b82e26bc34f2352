package chromemdb

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oneHot(i, dims int) []float32 {
	v := make([]float32, dims)
	v[i%dims] = 1
	return v
}

func buildIndex(t *testing.T, instanceID string) (*Index, []string) {
	t.Helper()
	chunks := []string{"light absorption", "water splitting", "carbon fixation", "chlorophyll"}
	vectors := make([][]float32, len(chunks))
	for i := range chunks {
		vectors[i] = oneHot(i, 8)
	}
	ix := NewIndex(filepath.Join(t.TempDir(), "vector_index"), instanceID)
	require.NoError(t, ix.Rebuild(context.Background(), chunks, vectors, "fake", "fake-embed"))
	return ix, chunks
}

func TestRebuildAndOpen(t *testing.T) {
	ix, chunks := buildIndex(t, "instance-a")
	assert.True(t, ix.Exists())

	c, err := ix.Open(context.Background(), nil, Expectation{Provider: "fake", EmbeddingModel: "fake-embed"})
	require.NoError(t, err)
	assert.Equal(t, len(chunks), c.Count())
	assert.Equal(t, len(chunks), c.Manifest().ChunkCount)

	got, err := c.Chunks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, chunks, got)
}

func TestQueryReturnsNearestFirst(t *testing.T) {
	ix, _ := buildIndex(t, "instance-a")
	c, err := ix.Open(context.Background(), nil, Expectation{})
	require.NoError(t, err)

	results, err := c.Query(context.Background(), oneHot(2, 8), 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "carbon fixation", results[0].Content)
	assert.Equal(t, 2, results[0].Index)

	// k larger than the collection is clamped
	results, err = c.Query(context.Background(), oneHot(0, 8), 50)
	require.NoError(t, err)
	assert.Len(t, results, 4)

	_, err = c.Query(context.Background(), nil, 3)
	assert.Error(t, err)
}

func TestRebuildReplacesPreviousIndex(t *testing.T) {
	ix, _ := buildIndex(t, "instance-a")
	require.NoError(t, ix.Rebuild(context.Background(), []string{"only"}, [][]float32{oneHot(0, 8)}, "fake", "fake-embed"))

	c, err := ix.Open(context.Background(), nil, Expectation{})
	require.NoError(t, err)
	got, err := c.Chunks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, got)
}

func TestRebuildKeepsUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	id, err := LoadInstanceID(dir)
	require.NoError(t, err)
	other := filepath.Join(dir, "flashcards.json")
	require.NoError(t, os.WriteFile(other, []byte(`[]`), 0o644))

	ix := NewIndex(dir, id)
	for i := 0; i < 2; i++ {
		require.NoError(t, ix.Rebuild(context.Background(), []string{"a", "b"}, [][]float32{oneHot(0, 4), oneHot(1, 4)}, "fake", "fake-embed"))
	}

	_, err = os.Stat(other)
	assert.NoError(t, err)
	again, err := LoadInstanceID(dir)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	c, err := ix.Open(context.Background(), nil, Expectation{})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Count())
}

func TestOpenMissingIndex(t *testing.T) {
	ix := NewIndex(filepath.Join(t.TempDir(), "nothing"), "instance-a")
	assert.False(t, ix.Exists())
	_, err := ix.Open(context.Background(), nil, Expectation{})
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestOpenRejectsUntrustedIndex(t *testing.T) {
	tests := []struct {
		name   string
		open   func(ix *Index) error
		mutate func(m *Manifest)
	}{
		{
			name: "other instance",
			open: func(ix *Index) error {
				_, err := NewIndex(ix.Dir(), "instance-b").Open(context.Background(), nil, Expectation{})
				return err
			},
		},
		{
			name: "other provider",
			open: func(ix *Index) error {
				_, err := ix.Open(context.Background(), nil, Expectation{Provider: "openai"})
				return err
			},
		},
		{
			name: "other embedding model",
			open: func(ix *Index) error {
				_, err := ix.Open(context.Background(), nil, Expectation{Provider: "fake", EmbeddingModel: "bigger"})
				return err
			},
		},
		{
			name:   "format version",
			mutate: func(m *Manifest) { m.FormatVersion = 99 },
		},
		{
			name:   "chunk count mismatch",
			mutate: func(m *Manifest) { m.ChunkCount = 1 },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, _ := buildIndex(t, "instance-a")
			if tt.mutate != nil {
				path := filepath.Join(ix.Dir(), manifestFile)
				data, err := os.ReadFile(path)
				require.NoError(t, err)
				var m Manifest
				require.NoError(t, json.Unmarshal(data, &m))
				tt.mutate(&m)
				data, err = json.Marshal(m)
				require.NoError(t, err)
				require.NoError(t, os.WriteFile(path, data, 0o644))
			}
			open := tt.open
			if open == nil {
				open = func(ix *Index) error {
					_, err := ix.Open(context.Background(), nil, Expectation{})
					return err
				}
			}
			assert.ErrorIs(t, open(ix), ErrUntrustedIndex)
		})
	}
}

func TestRebuildRejectsMismatchedVectors(t *testing.T) {
	ix := NewIndex(filepath.Join(t.TempDir(), "idx"), "instance-a")
	err := ix.Rebuild(context.Background(), []string{"a", "b"}, [][]float32{oneHot(0, 4)}, "fake", "m")
	assert.Error(t, err)
	assert.False(t, ix.Exists())
}

func TestLoadInstanceID(t *testing.T) {
	dir := t.TempDir()
	first, err := LoadInstanceID(dir)
	require.NoError(t, err)
	second, err := LoadInstanceID(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, os.WriteFile(filepath.Join(dir, instanceFile), []byte("garbage"), 0o600))
	_, err = LoadInstanceID(dir)
	assert.Error(t, err)
}
