// Package server provides the HTTP server for the transcription API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// TranscriptionRequest carries the optional form fields of a
// transcription upload. The audio itself arrives as a multipart file part.
type TranscriptionRequest struct {
	// Language is an optional language hint for the engine ("auto", "en", ...).
	Language string `validate:"omitempty,min=2,max=16"`
}

// CreateTranscriptionResponse is the HTTP response after creating a job.
type CreateTranscriptionResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// TranscriptionResponse is the HTTP response for getting job details.
type TranscriptionResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// Status is the current job status.
	Status string `json:"status"`
	// Progress is the percentage of chunks processed (0-100).
	Progress int `json:"progress"`
	// ChunksProcessed is how many chunk windows finished so far.
	ChunksProcessed int `json:"chunks_processed"`
	// ChunksTotal is how many chunk windows were planned.
	ChunksTotal int `json:"chunks_total"`
	// Duration is the probed audio duration in seconds.
	Duration float64 `json:"duration,omitempty"`
	// Transcript is the merged transcript (completed and partial jobs).
	Transcript string `json:"transcript,omitempty"`
	// Confidence is the aggregate confidence over successful chunks.
	Confidence float64 `json:"confidence,omitempty"`
	// ProcessingTime is the wall-clock pipeline time in seconds.
	ProcessingTime float64 `json:"processing_time,omitempty"`
	// Error contains any error message if the job failed or timed out.
	Error string `json:"error,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
