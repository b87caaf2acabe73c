package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voxline/transcribe-api/internal/engine"
	"github.com/voxline/transcribe-api/internal/media"
	"github.com/voxline/transcribe-api/internal/plan"
	"github.com/voxline/transcribe-api/internal/storage"
)

// Options carries the per-operation tuning the orchestrator applies.
// Validated once at construction; invalid options are a fatal
// configuration error raised before any work begins.
type Options struct {
	// ChunkLengthSec is the nominal chunk length in seconds.
	ChunkLengthSec float64
	// ChunkOverlapSec is the audio duplicated between consecutive chunks.
	ChunkOverlapSec float64
	// BaseTimeoutSec is the floor of the adaptive operation deadline.
	BaseTimeoutSec float64
	// TimeoutMultiplier scales the deadline with the audio duration.
	TimeoutMultiplier float64
	// MinFreeDiskBytes is the free-space floor checked before a chunk loop.
	MinFreeDiskBytes uint64
}

// Validate checks the option relationships. The planner enforces the same
// rules; checking here surfaces misconfiguration at startup instead of on
// the first request.
func (o Options) Validate() error {
	if o.ChunkLengthSec <= 0 {
		return fmt.Errorf("%w: got %.2f", plan.ErrNonPositiveChunkLength, o.ChunkLengthSec)
	}
	if o.ChunkOverlapSec < 0 {
		return fmt.Errorf("%w: got %.2f", plan.ErrNegativeOverlap, o.ChunkOverlapSec)
	}
	if o.ChunkOverlapSec >= o.ChunkLengthSec {
		return fmt.Errorf("%w: overlap %.2f, chunk length %.2f", plan.ErrOverlapTooLarge, o.ChunkOverlapSec, o.ChunkLengthSec)
	}
	return nil
}

// Orchestrator composes the prober, planner, processor, merger, and the
// adaptive deadline into one operation. All failure modes resolve to an
// Outcome with an appropriate status; nothing escapes Run as an error.
type Orchestrator struct {
	prober    media.Prober
	segmenter media.Segmenter
	engine    engine.Engine
	store     storage.Storage
	processor *Processor
	opts      Options
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator and validates its options.
func NewOrchestrator(prober media.Prober, segmenter media.Segmenter, eng engine.Engine, store storage.Storage, opts Options, logger *slog.Logger) (*Orchestrator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		prober:    prober,
		segmenter: segmenter,
		engine:    eng,
		store:     store,
		processor: NewProcessor(segmenter, eng, store, logger),
		opts:      opts,
		logger:    logger,
	}, nil
}

// Run transcribes one local audio file and returns the terminal outcome.
// The deadline clock starts once the duration is known; from then on the
// whole operation, fast path or chunk loop, runs under one deadline.
// Every temporary file created during the run is deleted before Run
// returns, on every path.
func (o *Orchestrator) Run(ctx context.Context, sourcePath, language string, progress ProgressFunc) Outcome {
	started := time.Now()

	duration, err := o.prober.Duration(ctx, sourcePath)
	if err != nil {
		o.logger.Error("duration probe failed",
			slog.String("source", sourcePath),
			slog.String("error", err.Error()),
		)
		return o.finish(Outcome{
			Status: StatusFailed,
			Error:  fmt.Sprintf("%v: %v", ErrProbe, err),
		}, started)
	}

	deadline := plan.DeadlineDuration(duration, o.opts.BaseTimeoutSec, o.opts.TimeoutMultiplier)
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	o.logger.Info("transcription started",
		slog.String("source", sourcePath),
		slog.Float64("duration", duration),
		slog.Duration("deadline", deadline),
		slog.String("language", language),
	)

	windows, err := plan.Windows(duration, o.opts.ChunkLengthSec, o.opts.ChunkOverlapSec)
	if err != nil {
		return o.finish(Outcome{
			Status:   StatusFailed,
			Duration: duration,
			Error:    err.Error(),
		}, started)
	}

	if len(windows) == 1 {
		return o.finish(o.fastPath(ctx, sourcePath, language, duration, o.segmenter.Available(), progress), started)
	}

	if !o.segmenter.Available() {
		// Extraction capability missing entirely: one-shot fallback to a
		// single direct pass instead of failing the request.
		o.logger.Warn("extraction unavailable, falling back to single-pass transcription",
			slog.String("source", sourcePath),
		)
		return o.finish(o.fastPath(ctx, sourcePath, language, duration, false, progress), started)
	}

	if outcome, ok := o.checkDiskSpace(duration); !ok {
		return o.finish(outcome, started)
	}

	results, loopErr := o.processor.Process(ctx, sourcePath, language, windows, progress)
	transcript, confidence := Merge(results)

	outcome := Outcome{
		Transcript:      transcript,
		Duration:        duration,
		Confidence:      confidence,
		ChunksProcessed: len(results),
		ChunksTotal:     len(windows),
	}

	switch {
	case loopErr != nil:
		outcome.Status = StatusTimeout
		outcome.Error = fmt.Sprintf("operation deadline exceeded after %d/%d chunks", len(results), len(windows))
	case okChunks(results) == 0:
		outcome.Status = StatusFailed
		outcome.Error = "all chunks failed"
	case failedChunks(results) > 0:
		outcome.Status = StatusPartial
	default:
		outcome.Status = StatusSuccess
	}

	return o.finish(outcome, started)
}

// fastPath transcribes the whole clip in one engine call. When convert is
// true the source is first resampled through the segmenter; otherwise the
// engine receives the source file directly (the extraction-unavailable
// fallback).
func (o *Orchestrator) fastPath(ctx context.Context, sourcePath, language string, duration float64, convert bool, progress ProgressFunc) Outcome {
	outcome := Outcome{
		Duration:    duration,
		ChunksTotal: 1,
	}

	inputPath := sourcePath
	if convert {
		tmpPath := o.store.TempPath("full") + ".wav"
		defer func() {
			_ = o.store.CleanupTemp(context.WithoutCancel(ctx), []string{tmpPath})
		}()

		if err := o.segmenter.ExtractWindow(ctx, sourcePath, tmpPath, 0, duration); err != nil {
			outcome.Status = StatusFailed
			outcome.Error = fmt.Sprintf("convert source: %v", err)
			if ctx.Err() != nil {
				outcome.Status = StatusTimeout
				outcome.Error = "operation deadline exceeded during conversion"
			}
			return outcome
		}
		inputPath = tmpPath
	}

	res, err := o.engine.Transcribe(ctx, inputPath, language)
	outcome.ChunksProcessed = 1
	if progress != nil {
		progress(1, 1)
	}
	if err != nil {
		if ctx.Err() != nil {
			outcome.Status = StatusTimeout
			outcome.Error = "operation deadline exceeded during transcription"
			return outcome
		}
		outcome.Status = StatusFailed
		outcome.Error = fmt.Sprintf("transcribe: %v", err)
		return outcome
	}

	outcome.Status = StatusSuccess
	outcome.Transcript = res.Text
	outcome.Confidence = res.Confidence
	return outcome
}

// checkDiskSpace verifies the workspace has room for chunk segments.
// Runs once before the chunk loop, not per chunk, so a full disk aborts
// early instead of mid-loop.
func (o *Orchestrator) checkDiskSpace(duration float64) (Outcome, bool) {
	free, err := o.store.FreeBytes()
	if err != nil {
		o.logger.Warn("free-space check failed, proceeding",
			slog.String("error", err.Error()),
		)
		return Outcome{}, true
	}
	if free < o.opts.MinFreeDiskBytes {
		o.logger.Error("insufficient disk space for chunking",
			slog.Uint64("free_bytes", free),
			slog.Uint64("required_bytes", o.opts.MinFreeDiskBytes),
		)
		return Outcome{
			Status:   StatusFailed,
			Duration: duration,
			Error:    fmt.Sprintf("%v: %d bytes free, %d required", ErrDiskSpace, free, o.opts.MinFreeDiskBytes),
		}, false
	}
	return Outcome{}, true
}

// finish stamps the wall-clock processing time and logs the outcome.
func (o *Orchestrator) finish(outcome Outcome, started time.Time) Outcome {
	outcome.ProcessingTime = time.Since(started).Seconds()

	o.logger.Info("transcription finished",
		slog.String("status", string(outcome.Status)),
		slog.Int("chunks_processed", outcome.ChunksProcessed),
		slog.Int("chunks_total", outcome.ChunksTotal),
		slog.Float64("confidence", outcome.Confidence),
		slog.Float64("processing_time", outcome.ProcessingTime),
	)
	return outcome
}
