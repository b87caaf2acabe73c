package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voxline/transcribe-api/internal/pipeline"
	"github.com/voxline/transcribe-api/internal/storage"
)

// Runner is the pipeline port the service drives. Satisfied by
// pipeline.Orchestrator.
type Runner interface {
	Run(ctx context.Context, sourcePath, language string, progress pipeline.ProgressFunc) pipeline.Outcome
}

// TranscribeService orchestrates the lifecycle of one transcription
// request: it creates the job record, drives the pipeline, publishes chunk
// progress, and records the terminal outcome. The pipeline itself knows
// nothing about jobs.
type TranscribeService struct {
	repo   Repository
	runner Runner
	store  storage.Storage
	logger *slog.Logger
}

// NewTranscribeService creates a new TranscribeService.
func NewTranscribeService(repo Repository, runner Runner, store storage.Storage, logger *slog.Logger) *TranscribeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TranscribeService{
		repo:   repo,
		runner: runner,
		store:  store,
		logger: logger,
	}
}

// CreateJob creates a new job in IN_QUEUE status and persists it.
func (s *TranscribeService) CreateJob(ctx context.Context, audioPath, language string) (*Job, error) {
	j := New()
	j.Language = language
	j.InputAudioPath = audioPath

	s.logger.Info("creating transcription job",
		slog.String("job_id", j.ID),
		slog.String("language", language),
		slog.String("audio_path", audioPath),
	)

	if err := s.repo.Save(ctx, j); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("save job: %w", err)
	}

	return j, nil
}

// GetJob retrieves a job by ID.
func (s *TranscribeService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// Process runs the pipeline for an existing job and records the outcome.
// The uploaded source file is removed when the run finishes, whatever the
// result. Errors returned here concern job bookkeeping only; pipeline
// failures are expressed in the job status.
func (s *TranscribeService) Process(ctx context.Context, j *Job) error {
	defer func() {
		if err := s.store.CleanupTemp(context.WithoutCancel(ctx), []string{j.InputAudioPath}); err != nil {
			s.logger.Warn("upload cleanup failed",
				slog.String("job_id", j.ID),
				slog.String("error", err.Error()),
			)
		}
	}()

	if err := j.Start(); err != nil {
		return fmt.Errorf("start job %s: %w", j.ID, err)
	}
	if err := s.repo.Save(ctx, j); err != nil {
		return fmt.Errorf("save job %s: %w", j.ID, err)
	}

	progress := func(processed, total int) {
		j.SetPlan(j.DurationSec, total)
		j.SetChunksProcessed(processed)
		if err := s.repo.Save(ctx, j); err != nil {
			s.logger.Warn("progress save failed",
				slog.String("job_id", j.ID),
				slog.String("error", err.Error()),
			)
		}
		s.logger.Info("chunk processed",
			slog.String("job_id", j.ID),
			slog.Int("chunks_processed", processed),
			slog.Int("chunks_total", total),
		)
	}

	outcome := s.runner.Run(ctx, j.InputAudioPath, j.Language, progress)

	j.SetPlan(outcome.Duration, outcome.ChunksTotal)
	j.SetChunksProcessed(outcome.ChunksProcessed)
	j.SetResult(outcome.Transcript, outcome.Confidence, outcome.ProcessingTime)

	var transitionErr error
	switch outcome.Status {
	case pipeline.StatusSuccess:
		transitionErr = j.TransitionTo(StatusCompleted)
	case pipeline.StatusPartial:
		transitionErr = j.TransitionTo(StatusPartial)
	case pipeline.StatusTimeout:
		j.SetError(outcome.Error)
		transitionErr = j.TransitionTo(StatusTimedOut)
	case pipeline.StatusFailed:
		transitionErr = j.Fail(outcome.Error)
	}
	if transitionErr != nil {
		return fmt.Errorf("finish job %s: %w", j.ID, transitionErr)
	}

	if err := s.repo.Save(ctx, j); err != nil {
		return fmt.Errorf("save job %s: %w", j.ID, err)
	}

	s.logger.Info("transcription job finished",
		slog.String("job_id", j.ID),
		slog.String("status", string(j.GetStatus())),
		slog.Int("chunks_processed", j.ChunksProcessed),
		slog.Int("chunks_total", j.ChunksTotal),
	)
	return nil
}
