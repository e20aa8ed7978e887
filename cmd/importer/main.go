package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"importer/internal/api"
	"importer/internal/config"
	"importer/internal/importer"
	"importer/internal/pipeline"
	"importer/internal/retry"
	"importer/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("📼 Starting Record Stream Importer...")

	// 1. Load configuration
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	// 2. Configure logger
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Configuration loaded",
		"data_dir", cfg.DataDir,
		"poll_interval", cfg.PollInterval,
		"log_level", cfg.LogLevel,
		"pipeline_enabled", cfg.PipelineEnabled,
	)

	// 3. Initialize database connection
	ctx := context.Background()
	repository, err := storage.NewPostgresRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer repository.Close()
	slog.Info("Database connected successfully")

	// 4. Create the per-file processor with retry strategy
	strategy := retry.NewStrategy(retry.LoadConfig())
	processor := importer.NewProcessor(repository, strategy)

	// 5. Create parallel pipeline for catch-up mode
	var pl *pipeline.Pipeline
	if cfg.PipelineEnabled {
		pl = pipeline.NewPipeline(pipeline.PipelineConfig{
			Enabled:        cfg.PipelineEnabled,
			WorkerCount:    cfg.PipelineWorkerCount,
			BufferSize:     cfg.PipelineBufferSize,
			EnableBacklog:  cfg.PipelineEnableBacklog,
			DisableBacklog: cfg.PipelineDisableBacklog,
		}, repository, processor)
	}

	// 6. Create streamer
	streamer := importer.NewStreamer(cfg.DataDir, cfg.PollInterval, cfg.BootstrapHash, processor, repository, pl)

	// 7. Start API server (health, metrics, record files)
	server := api.NewServer(cfg.APIPort, repository)
	if err := server.Start(); err != nil {
		log.Fatalf("❌ Failed to start API server: %v", err)
	}

	// 8. Setup graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start importing in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := streamer.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	// Wait for interrupt or error
	select {
	case <-sigChan:
		slog.Warn("Interrupt received, shutting down...")
		cancel()
	case err := <-errChan:
		slog.Error("Streamer error", "error", err)
		cancel()
		defer os.Exit(1)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error shutting down API server", "error", err)
	}

	slog.Info("Importer stopped")
}
