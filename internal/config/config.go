// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrModelPathRequired is returned when MODEL_PATH is not set.
	ErrModelPathRequired = errors.New("config: MODEL_PATH is required")
	// ErrOverlapTooLarge is returned when the chunk overlap is not smaller
	// than the chunk length.
	ErrOverlapTooLarge = errors.New("config: CHUNK_OVERLAP_SEC must be smaller than CHUNK_LENGTH_SEC")
	// ErrNonPositiveChunkLength is returned when the chunk length is zero or negative.
	ErrNonPositiveChunkLength = errors.New("config: CHUNK_LENGTH_SEC must be positive")
	// ErrNegativeOverlap is returned when the chunk overlap is negative.
	ErrNegativeOverlap = errors.New("config: CHUNK_OVERLAP_SEC must not be negative")
	// ErrNonPositiveTimeout is returned when the timeout floor or multiplier is not positive.
	ErrNonPositiveTimeout = errors.New("config: BASE_TIMEOUT_SEC and TIMEOUT_MULTIPLIER must be positive")
	// ErrUnknownEngineBackend is returned when ENGINE_BACKEND is not a known value.
	ErrUnknownEngineBackend = errors.New(`config: ENGINE_BACKEND must be "native" or "cli"`)
)

// Engine backend selection values.
const (
	// BackendNative runs transcription through the in-process whisper.cpp binding.
	BackendNative = "native"
	// BackendCLI runs transcription through the whisper.cpp command-line binary.
	BackendCLI = "cli"
)

// maxAutoThreads caps auto-detected engine threads to avoid oversubscription
// when several requests run their pipelines at once.
const maxAutoThreads = 8

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Engine settings
	ModelPath      string `env:"MODEL_PATH, required" json:"model_path"`
	EngineBackend  string `env:"ENGINE_BACKEND, default=native" json:"engine_backend"` // "native" or "cli"
	WhisperCLIPath string `env:"WHISPER_CLI_PATH, default=whisper-cli" json:"whisper_cli_path,omitempty"`
	MaxThreads     int    `env:"MAX_THREADS, default=0" json:"max_threads"` // 0 = auto, capped

	// Chunking settings
	ChunkLengthSec  float64 `env:"CHUNK_LENGTH_SEC, default=30" json:"chunk_length_sec"`
	ChunkOverlapSec float64 `env:"CHUNK_OVERLAP_SEC, default=1" json:"chunk_overlap_sec"`

	// Timeout settings
	BaseTimeoutSec    float64 `env:"BASE_TIMEOUT_SEC, default=90" json:"base_timeout_sec"`
	TimeoutMultiplier float64 `env:"TIMEOUT_MULTIPLIER, default=1.5" json:"timeout_multiplier"`

	// Storage settings
	TempDir       string `env:"TEMP_DIR, default=/tmp/transcribe" json:"temp_dir"`
	MinFreeDiskMB int64  `env:"MIN_FREE_DISK_MB, default=512" json:"min_free_disk_mb"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set or the chunking
// relationship is invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		if strings.Contains(err.Error(), "MODEL_PATH") {
			return nil, ErrModelPathRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and that the
// chunk/overlap and timeout relationships hold. Violations are fatal and
// reported before any work starts.
func (c *Config) Validate() error {
	if c.ModelPath == "" {
		return ErrModelPathRequired
	}
	if c.ChunkLengthSec <= 0 {
		return fmt.Errorf("%w: got %.2f", ErrNonPositiveChunkLength, c.ChunkLengthSec)
	}
	if c.ChunkOverlapSec < 0 {
		return fmt.Errorf("%w: got %.2f", ErrNegativeOverlap, c.ChunkOverlapSec)
	}
	if c.ChunkOverlapSec >= c.ChunkLengthSec {
		return fmt.Errorf("%w: overlap %.2f, length %.2f", ErrOverlapTooLarge, c.ChunkOverlapSec, c.ChunkLengthSec)
	}
	if c.BaseTimeoutSec <= 0 || c.TimeoutMultiplier <= 0 {
		return fmt.Errorf("%w: base %.2f, multiplier %.2f", ErrNonPositiveTimeout, c.BaseTimeoutSec, c.TimeoutMultiplier)
	}
	switch c.EngineBackend {
	case BackendNative, BackendCLI:
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownEngineBackend, c.EngineBackend)
	}
	return nil
}

// EngineThreads resolves the engine thread count. When MaxThreads is zero,
// the count is auto-detected from the CPU count and capped at 8.
func (c *Config) EngineThreads() int {
	if c.MaxThreads > 0 {
		return c.MaxThreads
	}
	n := runtime.NumCPU()
	if n > maxAutoThreads {
		n = maxAutoThreads
	}
	return n
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, ModelPath: %s, EngineBackend: %s, MaxThreads: %d, ChunkLengthSec: %.1f, ChunkOverlapSec: %.1f, BaseTimeoutSec: %.1f, TimeoutMultiplier: %.2f, TempDir: %s, MinFreeDiskMB: %d, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.ModelPath,
		c.EngineBackend,
		c.MaxThreads,
		c.ChunkLengthSec,
		c.ChunkOverlapSec,
		c.BaseTimeoutSec,
		c.TimeoutMultiplier,
		c.TempDir,
		c.MinFreeDiskMB,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
