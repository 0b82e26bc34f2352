package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	RAG        RAGConfig        `yaml:"rag"`
	LLM        LLMConfig        `yaml:"llm"`
	Generation GenerationConfig `yaml:"generation"`
	Demo       DemoConfig       `yaml:"demo"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	LogLevel    string   `yaml:"log_level"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type StorageConfig struct {
	OutputDir string `yaml:"output_dir"`
	IndexPath string `yaml:"index_path"`
}

type RAGConfig struct {
	ChunkSize          int    `yaml:"chunk_size"`
	ChunkOverlap       int    `yaml:"chunk_overlap"`
	Splitter           string `yaml:"splitter"`
	TopK               int    `yaml:"top_k"`
	SourcePreviewChars int    `yaml:"source_preview_chars"`
	TopicMaxChars      int    `yaml:"topic_max_chars"`
}

// LLMConfig selects the LLM and embeddings provider. Priority is
// Ollama (UseOllama) > Google (GoogleAPIKey) > OpenAI (OpenAIAPIKey).
type LLMConfig struct {
	UseOllama            bool    `yaml:"use_ollama"`
	OllamaURL            string  `yaml:"ollama_url"`
	OllamaModel          string  `yaml:"ollama_model"`
	OllamaEmbeddingModel string  `yaml:"ollama_embedding_model"`
	GoogleAPIKey         string  `yaml:"google_api_key"`
	GoogleModel          string  `yaml:"google_model"`
	GoogleEmbeddingModel string  `yaml:"google_embedding_model"`
	OpenAIAPIKey         string  `yaml:"openai_api_key"`
	OpenAIBaseURL        string  `yaml:"openai_base_url"`
	OpenAIModel          string  `yaml:"openai_model"`
	OpenAIEmbeddingModel string  `yaml:"openai_embedding_model"`
	Temperature          float64 `yaml:"temperature"`
}

type GenerationConfig struct {
	QuizDefaultDifficulty string `yaml:"quiz_default_difficulty"`
	// Strict turns unparseable LLM output into an error instead of skipping the chunk.
	Strict bool `yaml:"strict"`
}

type DemoConfig struct {
	Enabled   bool   `yaml:"enabled"`
	SamplePDF string `yaml:"sample_pdf"`
}

const (
	SplitterFixed     = "fixed"
	SplitterRecursive = "recursive"
)

// Default returns the configuration used when no file or environment is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8000",
			LogLevel:    "debug",
			CORSOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			OutputDir: "./outputs",
			IndexPath: "./outputs/vector_index",
		},
		RAG: RAGConfig{
			ChunkSize:          1000,
			ChunkOverlap:       200,
			Splitter:           SplitterFixed,
			TopK:               3,
			SourcePreviewChars: 400,
			TopicMaxChars:      80,
		},
		LLM: LLMConfig{
			OllamaURL:            "http://localhost:11434",
			OllamaModel:          "mistral",
			OllamaEmbeddingModel: "nomic-embed-text",
			GoogleModel:          "gemini-1.5-flash",
			GoogleEmbeddingModel: "text-embedding-004",
			OpenAIModel:          "gpt-4o-mini",
			OpenAIEmbeddingModel: "text-embedding-3-small",
			Temperature:          0.1,
		},
		Generation: GenerationConfig{
			QuizDefaultDifficulty: "Medium",
		},
		Demo: DemoConfig{
			Enabled:   true,
			SamplePDF: "./sample.pdf",
		},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults, then applies
// .env and environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	// existing environment variables take precedence over .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("GOOGLE_API_KEY", &c.LLM.GoogleAPIKey)
	str("OPENAI_API_KEY", &c.LLM.OpenAIAPIKey)
	str("OLLAMA_MODEL", &c.LLM.OllamaModel)
	str("OLLAMA_URL", &c.LLM.OllamaURL)
	str("LLM_MODEL", &c.LLM.OpenAIModel)
	str("INDEX_PATH", &c.Storage.IndexPath)
	str("OUTPUT_DIR", &c.Storage.OutputDir)
	str("LOG_LEVEL", &c.Server.LogLevel)
	str("ADDR", &c.Server.Addr)

	if v, ok := lookup("USE_OLLAMA"); ok && v != "" {
		b, err := strconv.ParseBool(strings.ToLower(v))
		if err != nil {
			return fmt.Errorf("invalid USE_OLLAMA value %q: %w", v, err)
		}
		c.LLM.UseOllama = b
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.RAG.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize))
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk_overlap must be in [0, chunk_size), got %d", c.RAG.ChunkOverlap))
	}
	if c.RAG.Splitter != SplitterFixed && c.RAG.Splitter != SplitterRecursive {
		errs = append(errs, fmt.Errorf("rag.splitter must be %q or %q, got %q", SplitterFixed, SplitterRecursive, c.RAG.Splitter))
	}
	if c.RAG.TopK < 1 {
		errs = append(errs, fmt.Errorf("rag.top_k must be at least 1, got %d", c.RAG.TopK))
	}
	if c.LLM.Temperature < 0 {
		errs = append(errs, fmt.Errorf("llm.temperature must not be negative, got %g", c.LLM.Temperature))
	}
	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("server.log_level must be one of debug, info, warn, error, got %q", c.Server.LogLevel))
	}
	if c.Storage.OutputDir == "" || c.Storage.IndexPath == "" {
		errs = append(errs, errors.New("storage.output_dir and storage.index_path are required"))
	} else if within(c.Storage.OutputDir, c.Storage.IndexPath) {
		errs = append(errs, fmt.Errorf("storage.index_path %q must not be storage.output_dir or one of its parents", c.Storage.IndexPath))
	}
	return errors.Join(errs...)
}

// within reports whether path is dir or lies below it
func within(path, dir string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
