// Package job provides the Job aggregate for tracking transcription
// requests. It includes the Job entity with guarded state transitions and
// chunk progress counters, as well as repository interfaces for lookup.
// Jobs live in memory for the lifetime of the process; durable job storage
// is an external concern.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/voxline/transcribe-api/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job has been accepted but not started.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the pipeline is processing the job.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates every chunk transcribed successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusPartial indicates the transcript is usable but one or more chunks failed.
	StatusPartial Status = "PARTIAL"
	// StatusFailed indicates the job produced no usable transcript.
	StatusFailed Status = "FAILED"
	// StatusTimedOut indicates the operation deadline expired before completion.
	StatusTimedOut Status = "TIMED_OUT"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusFailed},
	StatusRunning:   {StatusCompleted, StatusPartial, StatusFailed, StatusTimedOut},
	StatusCompleted: {},
	StatusPartial:   {},
	StatusFailed:    {},
	StatusTimedOut:  {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Job represents one transcription request aggregate.
// It carries the chunk progress counters the pipeline publishes after
// every chunk and, once terminal, the final transcript.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Status is the current job state.
	Status Status
	// Language is the optional language hint for the engine.
	Language string
	// InputAudioPath is the path to the uploaded source audio.
	InputAudioPath string
	// DurationSec is the probed audio duration in seconds.
	DurationSec float64
	// ChunksTotal is the number of planned chunk windows.
	ChunksTotal int
	// ChunksProcessed counts chunks the pipeline has finished with,
	// successfully or not. Monotonically increasing.
	ChunksProcessed int
	// Transcript is the merged transcript once the job is terminal.
	Transcript string
	// Confidence is the aggregate confidence once the job is terminal.
	Confidence float64
	// ProcessingTimeSec is the wall-clock pipeline time in seconds.
	ProcessingTimeSec float64
	// Error contains any error message if the job failed.
	Error string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a new Job with a generated ID and initial IN_QUEUE status.
func New() *Job {
	now := time.Now()
	return &Job{
		ID:        id.Generate(),
		Status:    StatusInQueue,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewWithID creates a new Job with the specified ID and initial IN_QUEUE status.
// Useful for testing or when the ID needs to be externally generated.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Status:    StatusInQueue,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	// Set timestamps based on state
	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusPartial, StatusFailed, StatusTimedOut:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Fail transitions the job to FAILED state with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// SetPlan records the probed duration and the planned chunk count.
func (j *Job) SetPlan(durationSec float64, chunksTotal int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.DurationSec = durationSec
	j.ChunksTotal = chunksTotal
	j.UpdatedAt = time.Now()
}

// SetChunksProcessed updates the processed-chunk counter. The counter only
// moves forward; stale updates are ignored.
func (j *Job) SetChunksProcessed(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if n <= j.ChunksProcessed {
		return
	}
	j.ChunksProcessed = n
	j.UpdatedAt = time.Now()
}

// SetError records an error message without changing state.
func (j *Job) SetError(errMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Error = errMsg
	j.UpdatedAt = time.Now()
}

// SetResult stores the terminal transcript fields.
func (j *Job) SetResult(transcript string, confidence, processingTimeSec float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Transcript = transcript
	j.Confidence = confidence
	j.ProcessingTimeSec = processingTimeSec
	j.UpdatedAt = time.Now()
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Progress returns the percentage of chunks processed (0-100).
func (j *Job) Progress() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.ChunksTotal == 0 {
		return 0
	}
	return j.ChunksProcessed * 100 / j.ChunksTotal
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusCompleted ||
		j.Status == StatusPartial ||
		j.Status == StatusFailed ||
		j.Status == StatusTimedOut
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:                j.ID,
		Status:            j.Status,
		Language:          j.Language,
		InputAudioPath:    j.InputAudioPath,
		DurationSec:       j.DurationSec,
		ChunksTotal:       j.ChunksTotal,
		ChunksProcessed:   j.ChunksProcessed,
		Transcript:        j.Transcript,
		Confidence:        j.Confidence,
		ProcessingTimeSec: j.ProcessingTimeSec,
		Error:             j.Error,
		CreatedAt:         j.CreatedAt,
		UpdatedAt:         j.UpdatedAt,
		StartedAt:         j.StartedAt,
		CompletedAt:       j.CompletedAt,
	}
}
