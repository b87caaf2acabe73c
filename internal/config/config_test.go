package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv removes every variable the config reads so defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT",
		"MODEL_PATH",
		"ENGINE_BACKEND",
		"WHISPER_CLI_PATH",
		"MAX_THREADS",
		"CHUNK_LENGTH_SEC",
		"CHUNK_OVERLAP_SEC",
		"BASE_TIMEOUT_SEC",
		"TIMEOUT_MULTIPLIER",
		"TEMP_DIR",
		"MIN_FREE_DISK_MB",
		"LOG_FORMAT",
		"LOG_LEVEL",
	} {
		os.Unsetenv(key)
	}
}

func TestLoad_RequiredVariables(t *testing.T) {
	t.Run("missing MODEL_PATH returns error", func(t *testing.T) {
		clearEnv(t)

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrModelPathRequired)
	})

	t.Run("MODEL_PATH present succeeds", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MODEL_PATH", "/models/ggml-base.bin")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "/models/ggml-base.bin", cfg.ModelPath)
	})
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_PATH", "/models/ggml-base.bin")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, BackendNative, cfg.EngineBackend)
	assert.Equal(t, 0, cfg.MaxThreads)
	assert.InDelta(t, 30.0, cfg.ChunkLengthSec, 1e-9)
	assert.InDelta(t, 1.0, cfg.ChunkOverlapSec, 1e-9)
	assert.InDelta(t, 90.0, cfg.BaseTimeoutSec, 1e-9)
	assert.InDelta(t, 1.5, cfg.TimeoutMultiplier, 1e-9)
	assert.Equal(t, "/tmp/transcribe", cfg.TempDir)
	assert.Equal(t, int64(512), cfg.MinFreeDiskMB)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			ModelPath:         "/models/ggml-base.bin",
			EngineBackend:     BackendNative,
			ChunkLengthSec:    30,
			ChunkOverlapSec:   1,
			BaseTimeoutSec:    90,
			TimeoutMultiplier: 1.5,
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		require.NoError(t, base().Validate())
	})

	t.Run("overlap equal to chunk length is rejected", func(t *testing.T) {
		cfg := base()
		cfg.ChunkOverlapSec = 30
		assert.ErrorIs(t, cfg.Validate(), ErrOverlapTooLarge)
	})

	t.Run("overlap larger than chunk length is rejected", func(t *testing.T) {
		cfg := base()
		cfg.ChunkOverlapSec = 45
		assert.ErrorIs(t, cfg.Validate(), ErrOverlapTooLarge)
	})

	t.Run("non-positive chunk length is rejected", func(t *testing.T) {
		cfg := base()
		cfg.ChunkLengthSec = 0
		assert.ErrorIs(t, cfg.Validate(), ErrNonPositiveChunkLength)
	})

	t.Run("negative overlap is rejected", func(t *testing.T) {
		cfg := base()
		cfg.ChunkOverlapSec = -1
		assert.ErrorIs(t, cfg.Validate(), ErrNegativeOverlap)
	})

	t.Run("non-positive timeout is rejected", func(t *testing.T) {
		cfg := base()
		cfg.BaseTimeoutSec = 0
		assert.ErrorIs(t, cfg.Validate(), ErrNonPositiveTimeout)

		cfg = base()
		cfg.TimeoutMultiplier = -1
		assert.ErrorIs(t, cfg.Validate(), ErrNonPositiveTimeout)
	})

	t.Run("unknown engine backend is rejected", func(t *testing.T) {
		cfg := base()
		cfg.EngineBackend = "grpc"
		assert.ErrorIs(t, cfg.Validate(), ErrUnknownEngineBackend)
	})
}

func TestEngineThreads(t *testing.T) {
	t.Run("explicit value wins", func(t *testing.T) {
		cfg := &Config{MaxThreads: 4}
		assert.Equal(t, 4, cfg.EngineThreads())
	})

	t.Run("auto-detected value is capped", func(t *testing.T) {
		cfg := &Config{MaxThreads: 0}
		n := cfg.EngineThreads()
		assert.Greater(t, n, 0)
		assert.LessOrEqual(t, n, maxAutoThreads)
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		cfg := &Config{LogFormat: "json", LogLevel: "debug"}
		logger := cfg.NewLogger()
		require.NotNil(t, logger)
		assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	})

	t.Run("text format defaults to info", func(t *testing.T) {
		cfg := &Config{LogFormat: "text", LogLevel: "bogus"}
		logger := cfg.NewLogger()
		require.NotNil(t, logger)
		assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
		assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	})
}

func TestString_ContainsSettings(t *testing.T) {
	cfg := &Config{
		Port:              8080,
		ModelPath:         "/models/ggml-base.bin",
		EngineBackend:     BackendCLI,
		ChunkLengthSec:    30,
		ChunkOverlapSec:   1,
		BaseTimeoutSec:    90,
		TimeoutMultiplier: 1.5,
		TempDir:           "/tmp/transcribe",
		LogFormat:         "text",
		LogLevel:          "info",
	}

	var buf bytes.Buffer
	buf.WriteString(cfg.String())

	assert.Contains(t, buf.String(), "ModelPath: /models/ggml-base.bin")
	assert.Contains(t, buf.String(), "EngineBackend: cli")
	assert.Contains(t, buf.String(), "ChunkLengthSec: 30.0")
}
