package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"study-rag/internal/api"
	"study-rag/internal/artifacts"
	"study-rag/internal/chromemdb"
	"study-rag/internal/config"
	"study-rag/internal/helper"
	"study-rag/internal/llmservice"
	"study-rag/internal/parser"
	"study-rag/internal/study"
)

const (
	configFilePath  = "./configs/config.yaml"
	shutdownTimeout = 10 * time.Second
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	runDemo := flag.Bool("demo", false, "Run the offline demo once and exit")
	addr := flag.String("addr", "", "Listen address, overrides the config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if level, err := zerolog.ParseLevel(cfg.Server.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Debug().Interface("storage", cfg.Storage).Interface("rag", cfg.RAG).Msg("Loaded config")

	svc, err := newService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing service")
	}

	if *runDemo {
		summary, err := svc.RunDemo(context.Background())
		if err != nil {
			log.Fatal().Err(err).Msg("Demo failed")
		}
		helper.PrettyPrint(summary)
		return
	}

	serve(cfg, svc)
}

func newService(cfg *config.Config) (*study.Service, error) {
	if err := helper.CreateFolder(cfg.Storage.OutputDir); err != nil {
		return nil, err
	}
	instanceID, err := chromemdb.LoadInstanceID(cfg.Storage.OutputDir)
	if err != nil {
		return nil, err
	}

	splitter, err := parser.NewSplitter(cfg.RAG.Splitter, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	return study.NewService(
		cfg,
		parser.NewReader(parser.PDFExtractor{}, splitter),
		artifacts.NewStore(cfg.Storage.OutputDir),
		chromemdb.NewIndex(cfg.Storage.IndexPath, instanceID),
		llmservice.NewLazy(cfg.LLM, llmservice.DefaultConstructors()),
	), nil
}

func serve(cfg *config.Config, svc *study.Service) {
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(api.NewHandler(svc), log.Logger, cfg.Server.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}
