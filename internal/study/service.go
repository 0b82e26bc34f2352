package study

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"study-rag/internal/agents"
	"study-rag/internal/artifacts"
	"study-rag/internal/chromemdb"
	"study-rag/internal/config"
	"study-rag/internal/demo"
	"study-rag/internal/embedding"
	"study-rag/internal/helper"
	"study-rag/internal/llmservice"
	"study-rag/internal/models"
	"study-rag/internal/parser"
	"study-rag/internal/rag"
)

// Service is the application context shared by all requests
type Service struct {
	cfg       *config.Config
	reader    *parser.Reader
	store     *artifacts.Store
	index     *chromemdb.Index
	providers *llmservice.Lazy
	planner   *agents.PlannerAgent
}

func NewService(cfg *config.Config, reader *parser.Reader, store *artifacts.Store, index *chromemdb.Index, providers *llmservice.Lazy) *Service {
	return &Service{
		cfg:       cfg,
		reader:    reader,
		store:     store,
		index:     index,
		providers: providers,
		planner:   agents.NewPlannerAgent(),
	}
}

// UploadPDF stores the upload, indexes its chunks and saves a reader summary.
// It returns the number of chunks indexed.
func (s *Service) UploadPDF(ctx context.Context, filename string, body io.Reader) (int, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return 0, &Error{Msg: MsgOnlyPDF, Err: ErrValidation}
	}

	path, err := s.store.SaveUpload(filename, body)
	if err != nil {
		return 0, err
	}

	chunks, err := s.reader.ReadPDF(path)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: %s contains no extractable text", parser.ErrExtraction, filename)
	}
	log.Info().Str("file", filename).Int("chunks", len(chunks)).Msg("Read and chunked PDF")

	p, err := s.providers.Get(ctx)
	if err != nil {
		return 0, err
	}
	vectors, err := embedding.EmbedChunks(ctx, p.Embedder, chunks)
	if err != nil {
		return 0, err
	}
	if err := s.index.Rebuild(ctx, chunks, vectors, p.Name, p.EmbeddingModel); err != nil {
		return 0, err
	}

	summary := models.ReaderSummary{
		ChunksCount: len(chunks),
		Sample:      chunks[:min(models.SummarySampleSize, len(chunks))],
	}
	if err := s.store.SaveSummary(summary); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// GenerateAll produces flashcards, quizzes and a plan from every indexed chunk
func (s *Service) GenerateAll(ctx context.Context) (models.GenerateSummary, error) {
	var out models.GenerateSummary
	if !s.index.Exists() {
		return out, &Error{Msg: MsgNoMaterials, Err: chromemdb.ErrIndexNotFound}
	}

	chunks, err := s.indexedChunks(ctx)
	if err != nil {
		return out, err
	}
	if len(chunks) == 0 {
		return out, &Error{Msg: MsgNoChunks, Err: ErrNoChunks}
	}

	p, err := s.providers.Get(ctx)
	if err != nil {
		return out, err
	}

	gen := s.cfg.Generation
	log.Info().Int("chunks", len(chunks)).Str("provider", p.Name).Msg("Generating study materials")

	flashcards, err := agents.NewFlashcardAgent(p.LLM, gen.Strict).GenerateFromChunks(ctx, chunks)
	if err != nil {
		return out, err
	}
	log.Info().Int("flashcards", len(flashcards)).Msg("Generated flashcards")

	quizzes, err := agents.NewQuizAgent(p.LLM, gen.Strict, gen.QuizDefaultDifficulty).GenerateFromChunks(ctx, chunks)
	if err != nil {
		return out, err
	}
	log.Info().Int("quizzes", len(quizzes)).Msg("Generated quizzes")

	plan := s.planner.PlanTopics(agents.TopicsFromChunks(chunks, s.cfg.RAG.TopicMaxChars))

	if err := s.store.Save(models.FlashcardsFile, flashcards); err != nil {
		return out, err
	}
	if err := s.store.Save(models.QuizzesFile, quizzes); err != nil {
		return out, err
	}
	if err := s.store.Save(models.PlannerFile, plan); err != nil {
		return out, err
	}

	return models.GenerateSummary{
		Flashcards: len(flashcards),
		Quizzes:    len(quizzes),
		PlanItems:  len(plan),
	}, nil
}

// indexedChunks reads all chunks from the index, falling back to the sample
// kept in the reader summary when the collection cannot be read
func (s *Service) indexedChunks(ctx context.Context) ([]string, error) {
	col, err := s.index.Open(ctx, nil, chromemdb.Expectation{})
	if err != nil {
		if errors.Is(err, chromemdb.ErrUntrustedIndex) || errors.Is(err, chromemdb.ErrIndexNotFound) {
			return nil, err
		}
		log.Warn().Err(err).Msg("Failed to open index, using reader summary")
		return s.sampleChunks(), nil
	}

	chunks, err := col.Chunks(ctx)
	if err != nil || len(chunks) == 0 {
		log.Warn().Err(err).Msg("No chunks read from index, using reader summary")
		return s.sampleChunks(), nil
	}
	return chunks, nil
}

func (s *Service) sampleChunks() []string {
	summary, ok := s.store.LoadSummary()
	if !ok {
		return nil
	}
	return summary.Sample
}

// Chat answers a question against the index. The history is supplied by the
// caller; nothing is kept between calls.
func (s *Service) Chat(ctx context.Context, question string, history []rag.ChatTurn) (models.ChatResponse, error) {
	var out models.ChatResponse
	if strings.TrimSpace(question) == "" {
		return out, &Error{Msg: "question must not be empty", Err: ErrValidation}
	}
	if !s.index.Exists() {
		return out, &Error{Msg: MsgNoIndex, Err: chromemdb.ErrIndexNotFound}
	}

	p, err := s.providers.Get(ctx)
	if err != nil {
		return out, err
	}
	col, err := s.index.Open(ctx, p.Embedder, chromemdb.Expectation{
		Provider:       p.Name,
		EmbeddingModel: p.EmbeddingModel,
	})
	if err != nil {
		return out, err
	}

	chain, err := rag.NewChatAgent(p.LLM).BuildChain(rag.NewRetriever(col, p.Embedder, s.cfg.RAG.TopK), history)
	if err != nil {
		return out, err
	}
	answer, docs, err := rag.Ask(ctx, chain, question)
	if err != nil {
		if errors.Is(err, rag.ErrInvalidQuestion) {
			return out, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return out, err
	}

	sources := make([]string, 0, len(docs))
	for _, d := range docs {
		sources = append(sources, helper.Truncate(d.PageContent, s.cfg.RAG.SourcePreviewChars))
	}
	return models.ChatResponse{Answer: answer, Sources: sources}, nil
}

// RunDemo runs the offline demo pipeline into the artifact store
func (s *Service) RunDemo(ctx context.Context) (map[string]int, error) {
	if !s.cfg.Demo.Enabled {
		return nil, &Error{Msg: MsgDemoNotFound, Err: ErrDemoUnavailable}
	}
	summary, err := demo.Run(ctx, s.reader, s.store, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("demo failed: %w", err)
	}
	return summary, nil
}

func (s *Service) Flashcards() ([]byte, error) {
	return s.store.LoadRaw(models.FlashcardsFile)
}

func (s *Service) Quizzes() ([]byte, error) {
	return s.store.LoadRaw(models.QuizzesFile)
}

func (s *Service) Planner() ([]byte, error) {
	return s.store.LoadRaw(models.PlannerFile)
}
