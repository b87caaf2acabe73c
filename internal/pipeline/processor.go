package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voxline/transcribe-api/internal/engine"
	"github.com/voxline/transcribe-api/internal/media"
	"github.com/voxline/transcribe-api/internal/plan"
	"github.com/voxline/transcribe-api/internal/storage"
)

// ProgressFunc is called after every finished chunk with the number of
// chunks processed so far and the planned total. It is an observation
// hook for logging and job tracking, never control flow.
type ProgressFunc func(processed, total int)

// Processor runs the sequential chunk loop. Chunks are processed strictly
// one at a time: the engine saturates the available cores for a single
// call, and each call holds a roughly constant memory footprint, so
// sequential execution keeps peak memory flat regardless of clip length.
type Processor struct {
	segmenter media.Segmenter
	engine    engine.Engine
	store     storage.Storage
	logger    *slog.Logger
}

// NewProcessor creates a Processor with its collaborators.
func NewProcessor(segmenter media.Segmenter, eng engine.Engine, store storage.Storage, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		segmenter: segmenter,
		engine:    eng,
		store:     store,
		logger:    logger,
	}
}

// Process iterates the planned windows in order, extracting and
// transcribing one chunk at a time. A chunk failure is recorded and the
// loop advances; there are no per-chunk retries. The chunk's segment file
// is removed before the next window starts on every path, so no two
// segment files coexist on disk.
//
// The context deadline is the only cancellation signal: it is checked
// between chunks, the in-flight chunk is allowed to finish, and the next
// one never starts. The returned error is the context error when the loop
// was abandoned, nil when it visited every window.
func (p *Processor) Process(ctx context.Context, source, language string, windows []plan.Window, progress ProgressFunc) ([]ChunkResult, error) {
	results := make([]ChunkResult, 0, len(windows))

	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("abandoning chunk loop",
				slog.Int("chunks_processed", len(results)),
				slog.Int("chunks_total", len(windows)),
				slog.String("reason", err.Error()),
			)
			return results, err
		}

		results = append(results, p.processChunk(ctx, source, language, w))

		if progress != nil {
			progress(len(results), len(windows))
		}
	}

	return results, nil
}

// processChunk runs one window through Segmenting -> Transcribing ->
// Collected -> Cleanup. The segment file is deleted before returning,
// regardless of outcome.
func (p *Processor) processChunk(ctx context.Context, source, language string, w plan.Window) ChunkResult {
	segPath := p.store.TempPath(fmt.Sprintf("chunk_%03d", w.Index)) + ".wav"
	defer func() {
		if err := p.store.CleanupTemp(context.WithoutCancel(ctx), []string{segPath}); err != nil {
			p.logger.Warn("segment cleanup failed",
				slog.Int("chunk", w.Index),
				slog.String("error", err.Error()),
			)
		}
	}()

	if err := p.segmenter.ExtractWindow(ctx, source, segPath, w.Start, w.End); err != nil {
		p.logger.Warn("chunk extraction failed",
			slog.Int("chunk", w.Index),
			slog.Float64("start", w.Start),
			slog.Float64("end", w.End),
			slog.String("error", err.Error()),
		)
		return ChunkResult{Index: w.Index, Status: ChunkFailed, Err: fmt.Errorf("extract window: %w", err)}
	}

	res, err := p.engine.Transcribe(ctx, segPath, language)
	if err != nil {
		p.logger.Warn("chunk transcription failed",
			slog.Int("chunk", w.Index),
			slog.String("error", err.Error()),
		)
		return ChunkResult{Index: w.Index, Status: ChunkFailed, Err: fmt.Errorf("transcribe: %w", err)}
	}

	p.logger.Debug("chunk transcribed",
		slog.Int("chunk", w.Index),
		slog.Float64("confidence", res.Confidence),
		slog.Duration("engine_time", res.ProcessingTime),
	)

	return ChunkResult{
		Index:      w.Index,
		Text:       res.Text,
		Confidence: res.Confidence,
		Status:     ChunkOk,
	}
}
