// Package pipeline implements the chunked transcription core: it decides
// whether a clip needs splitting, drives the engine sequentially across
// chunk windows, merges per-chunk results, and enforces the adaptive
// operation deadline. Everything external — probing, extraction, the
// engine, temp storage — enters through ports injected at construction.
package pipeline

import (
	"errors"
	"fmt"
)

// Static errors for pipeline operations.
var (
	// ErrDiskSpace is returned when the workspace has too little free space
	// to hold chunk segments. Checked once before the chunk loop.
	ErrDiskSpace = errors.New("pipeline: insufficient disk space for chunking")
	// ErrProbe wraps duration probing failures.
	ErrProbe = errors.New("pipeline: could not determine audio duration")
)

// Status is the terminal status of one transcription operation.
type Status string

const (
	// StatusSuccess means every chunk transcribed successfully.
	StatusSuccess Status = "success"
	// StatusPartial means the transcript is usable but one or more chunks failed.
	StatusPartial Status = "partial"
	// StatusTimeout means the operation deadline expired before completion.
	StatusTimeout Status = "timeout"
	// StatusFailed means no usable transcript was produced.
	StatusFailed Status = "failed"
)

// ChunkStatus is the outcome of processing one chunk window.
type ChunkStatus string

const (
	// ChunkOk means the chunk produced text.
	ChunkOk ChunkStatus = "ok"
	// ChunkFailed means extraction or transcription failed for the chunk.
	ChunkFailed ChunkStatus = "failed"
)

// ChunkResult is the result of one chunk window. One exists per planned
// window once the loop completes; failed chunks carry their error.
type ChunkResult struct {
	// Index matches the window index in the plan.
	Index int
	// Text is the recognized text; empty for failed chunks.
	Text string
	// Confidence is the engine confidence for this chunk.
	Confidence float64
	// Status tells whether the chunk produced text.
	Status ChunkStatus
	// Err is the chunk's failure cause, nil when Status is ChunkOk.
	Err error
}

// Outcome is the terminal artifact of one transcription operation.
// It is constructed once and handed to the caller; every failure mode is
// expressed here rather than as an error crossing the boundary.
type Outcome struct {
	// Status is one of success, partial, timeout, failed.
	Status Status `json:"status"`
	// Transcript is the merged text of all successful chunks.
	Transcript string `json:"transcript"`
	// Duration is the probed audio duration in seconds.
	Duration float64 `json:"duration"`
	// Confidence is the mean confidence over successful chunks.
	Confidence float64 `json:"confidence"`
	// ProcessingTime is the wall-clock operation time in seconds.
	ProcessingTime float64 `json:"processing_time"`
	// ChunksProcessed is how many chunks the loop finished with.
	ChunksProcessed int `json:"chunks_processed"`
	// ChunksTotal is how many chunks were planned.
	ChunksTotal int `json:"chunks_total"`
	// Error describes the failure for failed and timeout outcomes.
	Error string `json:"error,omitempty"`
}

// String returns a compact representation for logging.
func (o Outcome) String() string {
	return fmt.Sprintf("outcome{%s, chunks %d/%d, %.2fs audio, %.2fs processing}",
		o.Status, o.ChunksProcessed, o.ChunksTotal, o.Duration, o.ProcessingTime)
}
