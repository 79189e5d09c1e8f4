package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"policyqa/internal/chunker"
	"policyqa/internal/config"
	"policyqa/internal/embedding"
	"policyqa/internal/extract"
	"policyqa/internal/fetch"
	"policyqa/internal/server"
	"policyqa/internal/service"
	"policyqa/internal/synthesizer"
	"policyqa/internal/vectorstore"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Assemble components
	fetcher := fetch.NewFetcher(fetch.Config{
		Timeout:  time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxBytes: cfg.Fetch.MaxBytes,
	})
	extractor := extract.NewPDFExtractor()
	chk := chunker.NewRecursiveChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)

	embedder, err := embedding.NewClient(embedding.Config{
		BaseURL:    cfg.Embedder.BaseURL,
		APIKeyEnv:  cfg.Embedder.APIKeyEnv,
		Model:      cfg.Embedder.Model,
		Dimensions: cfg.Embedder.Dimensions,
		Timeout:    time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
		BatchSize:  cfg.Embedder.BatchSize,
	})
	if err != nil {
		logger.Fatal("embedder init failed", zap.Error(err))
	}

	store, err := vectorstore.New(cfg.VectorStore, embedder.Dimension())
	if err != nil {
		logger.Fatal("vector store init failed", zap.Error(err))
	}

	synth, err := synthesizer.NewClient(synthesizer.Config{
		BaseURL:   cfg.Synthesizer.BaseURL,
		APIKeyEnv: cfg.Synthesizer.APIKeyEnv,
		Model:     cfg.Synthesizer.Model,
		MaxTokens: cfg.Synthesizer.MaxTokens,
		Timeout:   time.Duration(cfg.Synthesizer.TimeoutSecs) * time.Second,
	})
	if err != nil {
		logger.Fatal("synthesizer init failed", zap.Error(err))
	}

	pipeline := service.NewPipeline(fetcher, extractor, chk, embedder, store, synth, service.Options{
		TopK:        cfg.Retrieval.TopK,
		MaxParallel: cfg.Retrieval.MaxParallel,
	}, logger)

	srv := server.NewServer(pipeline, &cfg.Server, os.Getenv(cfg.Server.AuthTokenEnv), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		logger.Fatal("server stopped", zap.Error(err))
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
