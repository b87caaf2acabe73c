package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CLI runs transcription through the whisper.cpp command-line binary in a
// subprocess. It is the fallback backend for environments where the cgo
// binding cannot be built; the pipeline behaves identically with either.
type CLI struct {
	binPath   string
	modelPath string
	threads   int
	logger    *slog.Logger

	mu   sync.Mutex
	open bool
}

// NewCLI creates a CLI engine.
// If binPath is empty, it defaults to "whisper-cli" (found via PATH).
func NewCLI(binPath, modelPath string, threads int, logger *slog.Logger) *CLI {
	if binPath == "" {
		binPath = "whisper-cli"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CLI{
		binPath:   binPath,
		modelPath: modelPath,
		threads:   threads,
		logger:    logger,
	}
}

// Open verifies the binary and the model file are reachable. The model
// itself is loaded by the subprocess on every call.
func (e *CLI) Open() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := exec.LookPath(e.binPath); err != nil {
		return fmt.Errorf("engine: whisper binary not found: %s", e.binPath)
	}
	if _, err := os.Stat(e.modelPath); err != nil {
		return fmt.Errorf("%w: %s", ErrModelNotFound, e.modelPath)
	}
	e.open = true

	e.logger.Info("whisper cli engine ready",
		slog.String("bin_path", e.binPath),
		slog.String("model_path", e.modelPath),
		slog.Int("threads", e.threads),
	)
	return nil
}

// Close marks the engine unusable. There is no long-lived context to free.
func (e *CLI) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open = false
	return nil
}

// Transcribe recognizes speech in a 16 kHz mono PCM WAV file by invoking
// the whisper.cpp binary with full-JSON output and parsing the result file.
func (e *CLI) Transcribe(ctx context.Context, wavPath, language string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.open {
		return Result{}, ErrNotOpen
	}

	start := time.Now()

	lang := language
	if lang == "" {
		lang = "auto"
	}

	outPrefix := wavPath
	args := []string{
		"-m", e.modelPath,
		"-f", wavPath,
		"-l", lang,
		"-t", strconv.Itoa(e.threads),
		"-ojf",
		"-of", outPrefix,
		"-np",
	}

	// #nosec G204 - binPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.binPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("transcribe cancelled: %w", ctx.Err())
		}
		return Result{}, fmt.Errorf("%w: %w, stderr: %s", ErrTranscription, err, strings.TrimSpace(stderr.String()))
	}

	jsonPath := outPrefix + ".json"
	defer func() { _ = os.Remove(jsonPath) }()

	raw, err := os.ReadFile(jsonPath) // #nosec G304 - path derived from our own temp file
	if err != nil {
		return Result{}, fmt.Errorf("%w: read output: %w", ErrTranscription, err)
	}

	text, confidence, err := parseCLIOutput(raw)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTranscription, err)
	}

	return Result{
		Text:           text,
		Confidence:     confidence,
		ProcessingTime: time.Since(start),
	}, nil
}

// cliOutput mirrors the whisper.cpp full-JSON output file.
type cliOutput struct {
	Transcription []struct {
		Text   string `json:"text"`
		Tokens []struct {
			Text string  `json:"text"`
			P    float64 `json:"p"`
		} `json:"tokens"`
	} `json:"transcription"`
}

// parseCLIOutput extracts the joined text and mean token probability from
// the whisper.cpp JSON output. Confidence is zero when no token
// probabilities are present.
func parseCLIOutput(raw []byte) (string, float64, error) {
	var out cliOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", 0, fmt.Errorf("parse output: %w", err)
	}

	var sb strings.Builder
	var probSum float64
	var probCount int
	for _, seg := range out.Transcription {
		sb.WriteString(seg.Text)
		for _, tok := range seg.Tokens {
			probSum += tok.P
			probCount++
		}
	}

	confidence := 0.0
	if probCount > 0 {
		confidence = probSum / float64(probCount)
	}

	return strings.TrimSpace(sb.String()), confidence, nil
}

// Compile-time check that CLI implements Engine.
var _ Engine = (*CLI)(nil)
