// Package bootstrap provides dependency initialization for the transcription API.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/voxline/transcribe-api/internal/config"
	"github.com/voxline/transcribe-api/internal/engine"
	"github.com/voxline/transcribe-api/internal/job"
	"github.com/voxline/transcribe-api/internal/media"
	"github.com/voxline/transcribe-api/internal/pipeline"
	"github.com/voxline/transcribe-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	TranscribeService *job.TranscribeService
	// Storage is the temp workspace the HTTP layer writes uploads to.
	Storage storage.Storage
	// Engine is exposed so the caller can control its lifecycle:
	// Open at startup, Close on shutdown.
	Engine engine.Engine
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)

	processor := media.NewFFmpegProcessor("")
	if !processor.Available() {
		logger.Warn("ffmpeg not found in PATH, chunked processing disabled, long audio will be transcribed in one pass")
	}

	eng := initEngine(cfg, logger)

	repo := job.NewMemoryRepository()

	orch, err := pipeline.NewOrchestrator(processor, processor, eng, store, pipeline.Options{
		ChunkLengthSec:    cfg.ChunkLengthSec,
		ChunkOverlapSec:   cfg.ChunkOverlapSec,
		BaseTimeoutSec:    cfg.BaseTimeoutSec,
		TimeoutMultiplier: cfg.TimeoutMultiplier,
		MinFreeDiskBytes:  uint64(cfg.MinFreeDiskMB) * 1024 * 1024,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}

	svc := job.NewTranscribeService(repo, orch, store, logger)

	return &Dependencies{
		TranscribeService: svc,
		Storage:           store,
		Engine:            eng,
	}, nil
}

// initEngine selects the transcription backend based on configuration.
func initEngine(cfg *config.Config, logger *slog.Logger) engine.Engine {
	threads := cfg.EngineThreads()
	if cfg.EngineBackend == config.BackendCLI {
		logger.Info("using whisper CLI backend",
			slog.String("binary", cfg.WhisperCLIPath),
			slog.Int("threads", threads),
		)
		return engine.NewCLI(cfg.WhisperCLIPath, cfg.ModelPath, threads, logger)
	}
	logger.Info("using native whisper backend",
		slog.String("model", cfg.ModelPath),
		slog.Int("threads", threads),
	)
	return engine.NewWhisperCpp(cfg.ModelPath, threads, logger)
}
