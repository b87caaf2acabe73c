package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/wav"
)

// WhisperCpp runs transcription through the in-process whisper.cpp binding.
// The loaded model is kept for the lifetime of the process; a mutex keeps
// the inference context exclusively owned, so concurrent requests queue up
// instead of contending for the same CPU cores.
type WhisperCpp struct {
	modelPath string
	threads   int
	logger    *slog.Logger

	mu    sync.Mutex
	model whisper.Model
}

// NewWhisperCpp creates a WhisperCpp engine for the given model file.
// threads is the number of CPU threads one inference call may use.
func NewWhisperCpp(modelPath string, threads int, logger *slog.Logger) *WhisperCpp {
	if logger == nil {
		logger = slog.Default()
	}
	return &WhisperCpp{
		modelPath: modelPath,
		threads:   threads,
		logger:    logger,
	}
}

// Open loads the whisper model from disk.
func (e *WhisperCpp) Open() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model != nil {
		return nil
	}
	if _, err := os.Stat(e.modelPath); err != nil {
		return fmt.Errorf("%w: %s", ErrModelNotFound, e.modelPath)
	}

	model, err := whisper.New(e.modelPath)
	if err != nil {
		return fmt.Errorf("load whisper model: %w", err)
	}
	e.model = model

	e.logger.Info("whisper model loaded",
		slog.String("model_path", e.modelPath),
		slog.Int("threads", e.threads),
	)
	return nil
}

// Close frees the loaded model.
func (e *WhisperCpp) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		return nil
	}
	err := e.model.Close()
	e.model = nil
	if err != nil {
		return fmt.Errorf("close whisper model: %w", err)
	}
	return nil
}

// Transcribe recognizes speech in a 16 kHz mono PCM WAV file.
func (e *WhisperCpp) Transcribe(ctx context.Context, wavPath, language string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		return Result{}, ErrNotOpen
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("transcribe cancelled: %w", err)
	}

	start := time.Now()

	samples, err := readSamples(wavPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTranscription, err)
	}

	wctx, err := e.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("%w: new context: %w", ErrTranscription, err)
	}

	wctx.SetThreads(uint(e.threads))
	if language != "" {
		if err := wctx.SetLanguage(language); err != nil {
			return Result{}, fmt.Errorf("%w: set language %q: %w", ErrTranscription, language, err)
		}
	} else {
		if err := wctx.SetLanguage("auto"); err != nil {
			return Result{}, fmt.Errorf("%w: set language auto: %w", ErrTranscription, err)
		}
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("%w: process: %w", ErrTranscription, err)
	}

	var sb strings.Builder
	var probSum float64
	var probCount int
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			break
		}
		sb.WriteString(seg.Text)
		for _, tok := range seg.Tokens {
			probSum += float64(tok.P)
			probCount++
		}
	}

	confidence := 0.0
	if probCount > 0 {
		confidence = probSum / float64(probCount)
	}

	return Result{
		Text:           strings.TrimSpace(sb.String()),
		Confidence:     confidence,
		ProcessingTime: time.Since(start),
	}, nil
}

// readSamples decodes a WAV file into float32 PCM samples.
func readSamples(wavPath string) ([]float32, error) {
	fh, err := os.Open(wavPath) // #nosec G304 - path is produced by the segmenter
	if err != nil {
		return nil, fmt.Errorf("open samples: %w", err)
	}
	defer func() { _ = fh.Close() }()

	dec := wav.NewDecoder(fh)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode samples: %w", err)
	}

	return buf.AsFloat32Buffer().Data, nil
}

// Compile-time check that WhisperCpp implements Engine.
var _ Engine = (*WhisperCpp)(nil)
