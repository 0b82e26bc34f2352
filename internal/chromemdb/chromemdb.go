package chromemdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"study-rag/internal/embedding"
	"study-rag/internal/helper"
)

var (
	// ErrIndexNotFound is returned when no index has been built yet
	ErrIndexNotFound = errors.New("no index found")

	// ErrUntrustedIndex is returned when the index directory was not written by
	// this service instance, or by an incompatible format or embeddings model
	ErrUntrustedIndex = errors.New("refusing to load index")
)

const (
	FormatVersion = 1

	collectionName = "chunks"
	manifestFile   = "manifest.json"
	dbDir          = "db"
	compress       = false
)

// Manifest is written next to the persisted collection. The collection files
// are gob encoded, so they are only decoded when the manifest proves this
// instance wrote them.
type Manifest struct {
	FormatVersion  int       `json:"format_version"`
	InstanceID     string    `json:"instance_id"`
	Provider       string    `json:"provider"`
	EmbeddingModel string    `json:"embedding_model"`
	ChunkCount     int       `json:"chunk_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Index is the on-disk vector index, rebuilt wholesale on every upload
type Index struct {
	dir        string
	instanceID string
}

func NewIndex(dir, instanceID string) *Index {
	return &Index{dir: dir, instanceID: instanceID}
}

func (ix *Index) Dir() string { return ix.dir }

// Exists reports whether a complete index is present
func (ix *Index) Exists() bool {
	_, err := os.Stat(filepath.Join(ix.dir, manifestFile))
	return err == nil
}

// Rebuild replaces the index with the given chunks and their vectors
func (ix *Index) Rebuild(ctx context.Context, chunks []string, vectors [][]float32, provider, embeddingModel string) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	// only the files this index owns are removed; the directory may hold others
	for _, name := range []string{manifestFile, dbDir} {
		if err := os.RemoveAll(filepath.Join(ix.dir, name)); err != nil {
			return fmt.Errorf("failed to clear index: %v", err)
		}
	}
	if err := helper.CreateFolder(ix.dir); err != nil {
		return err
	}

	db, err := chromem.NewPersistentDB(filepath.Join(ix.dir, dbDir), compress)
	if err != nil {
		return fmt.Errorf("failed to create database: %v", err)
	}
	c, err := db.CreateCollection(collectionName, nil, embedding.ChromemFunc(nil))
	if err != nil {
		return fmt.Errorf("failed to create collection: %v", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        docID(i),
			Content:   chunk,
			Metadata:  map[string]string{"index": strconv.Itoa(i)},
			Embedding: vectors[i],
		}
	}
	if len(docs) > 0 {
		if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("failed to add documents: %v", err)
		}
	}

	// written last: a manifest means the collection is complete
	m := Manifest{
		FormatVersion:  FormatVersion,
		InstanceID:     ix.instanceID,
		Provider:       provider,
		EmbeddingModel: embeddingModel,
		ChunkCount:     len(chunks),
		CreatedAt:      time.Now().UTC(),
	}
	if err := helper.WriteJSON(filepath.Join(ix.dir, manifestFile), m); err != nil {
		return err
	}

	log.Info().Str("dir", ix.dir).Int("chunks", len(chunks)).Str("provider", provider).Msg("Vector index rebuilt")
	return nil
}

// Expectation is what the caller requires of a stored index. Empty provider
// fields are not checked.
type Expectation struct {
	Provider       string
	EmbeddingModel string
}

// Open verifies the manifest and loads the collection. The embedder may be nil
// when only Chunks is needed.
func (ix *Index) Open(ctx context.Context, embedder embeddings.Embedder, expect Expectation) (*Collection, error) {
	m, err := ix.readManifest()
	if err != nil {
		return nil, err
	}
	if err := ix.verify(m, expect); err != nil {
		return nil, err
	}

	db, err := chromem.NewPersistentDB(filepath.Join(ix.dir, dbDir), compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	c := db.GetCollection(collectionName, embedding.ChromemFunc(embedder))
	if c == nil {
		return nil, fmt.Errorf("%w: collection %q missing from %s", ErrUntrustedIndex, collectionName, ix.dir)
	}
	if c.Count() != m.ChunkCount {
		return nil, fmt.Errorf("%w: manifest lists %d chunks, collection holds %d", ErrUntrustedIndex, m.ChunkCount, c.Count())
	}

	return &Collection{collection: c, manifest: m}, nil
}

func (ix *Index) readManifest() (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(ix.dir, manifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return m, ErrIndexNotFound
	}
	if err != nil {
		return m, fmt.Errorf("failed to read manifest: %v", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: unreadable manifest: %v", ErrUntrustedIndex, err)
	}
	return m, nil
}

func (ix *Index) verify(m Manifest, expect Expectation) error {
	switch {
	case m.FormatVersion != FormatVersion:
		return fmt.Errorf("%w: format version %d, want %d", ErrUntrustedIndex, m.FormatVersion, FormatVersion)
	case m.InstanceID == "" || m.InstanceID != ix.instanceID:
		return fmt.Errorf("%w: created by instance %q, this is %q", ErrUntrustedIndex, m.InstanceID, ix.instanceID)
	case expect.Provider != "" && m.Provider != expect.Provider:
		return fmt.Errorf("%w: built with %s embeddings, current provider is %s; re-upload the PDF", ErrUntrustedIndex, m.Provider, expect.Provider)
	case expect.EmbeddingModel != "" && m.EmbeddingModel != expect.EmbeddingModel:
		return fmt.Errorf("%w: built with embedding model %s, current model is %s; re-upload the PDF", ErrUntrustedIndex, m.EmbeddingModel, expect.EmbeddingModel)
	}
	return nil
}

// Collection is a loaded, verified index
type Collection struct {
	collection *chromem.Collection
	manifest   Manifest
}

// Result is one nearest-neighbour hit
type Result struct {
	ID         string
	Index      int
	Content    string
	Similarity float32
}

func (c *Collection) Manifest() Manifest { return c.manifest }

func (c *Collection) Count() int { return c.collection.Count() }

// Chunks returns every stored chunk in document order
func (c *Collection) Chunks(ctx context.Context) ([]string, error) {
	n := c.collection.Count()
	chunks := make([]string, 0, n)
	for i := 0; i < n; i++ {
		doc, err := c.collection.GetByID(ctx, docID(i))
		if err != nil {
			return nil, fmt.Errorf("failed to read chunk %d: %v", i, err)
		}
		chunks = append(chunks, doc.Content)
	}
	return chunks, nil
}

// Query returns up to k chunks most similar to vector, best first
func (c *Collection) Query(ctx context.Context, vector []float32, k int) ([]Result, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}
	k = min(k, c.collection.Count())
	if k <= 0 {
		return nil, nil
	}

	results, err := c.collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		idx, _ := strconv.Atoi(r.Metadata["index"])
		out = append(out, Result{
			ID:         r.ID,
			Index:      idx,
			Content:    r.Content,
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

func docID(i int) string {
	return fmt.Sprintf("chunk-%06d", i)
}
