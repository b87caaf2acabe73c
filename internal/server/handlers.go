package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/voxline/transcribe-api/internal/job"
	"github.com/voxline/transcribe-api/internal/storage"
)

// maxUploadBytes limits how much of a multipart upload is buffered in
// memory before spilling to disk. The file itself may be larger.
const maxUploadBytes = 32 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *job.TranscribeService
	store              storage.Storage
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateTranscription only creates the job and returns
// immediately without starting background processing.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.TranscribeService, store storage.Storage, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		store:              store,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true, // Default to enabled
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateTranscription handles POST /transcriptions requests. The body is
// multipart form data with an "audio" file part and an optional
// "language" field.
func (h *Handlers) CreateTranscription(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.logger.Warn("failed to parse multipart form",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid multipart form", "INVALID_FORM")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file part is required", "MISSING_AUDIO")
		return
	}
	defer file.Close()

	req := TranscriptionRequest{Language: r.FormValue("language")}
	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = "upload.audio"
	}
	audioPath, err := h.store.SaveTemp(r.Context(), name, file)
	if err != nil {
		h.logger.Error("failed to save upload",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to save upload", "UPLOAD_SAVE_FAILED")
		return
	}

	createdJob, err := h.service.CreateJob(r.Context(), audioPath, req.Language)
	if err != nil {
		h.logger.Error("failed to create job",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	// Start processing in background with a detached context
	// Use context.WithoutCancel to prevent cancellation when the request ends
	if h.enableAsyncProcess {
		go func(ctx context.Context, j *job.Job) {
			if processErr := h.service.Process(ctx, j); processErr != nil {
				h.logger.Error("background processing failed",
					slog.String("job_id", j.ID),
					slog.String("error", processErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), createdJob)
	}

	h.logger.Info("transcription job created",
		slog.String("job_id", createdJob.ID),
		slog.String("filename", header.Filename),
		slog.String("language", req.Language),
	)

	writeJSON(w, http.StatusAccepted, CreateTranscriptionResponse{
		ID:     createdJob.ID,
		Status: string(createdJob.GetStatus()),
	})
}

// GetTranscription handles GET /transcriptions/{id} requests.
func (h *Handlers) GetTranscription(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	foundJob, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	resp := TranscriptionResponse{
		ID:              foundJob.ID,
		Status:          string(foundJob.GetStatus()),
		Progress:        foundJob.Progress(),
		ChunksProcessed: foundJob.ChunksProcessed,
		ChunksTotal:     foundJob.ChunksTotal,
		Duration:        foundJob.DurationSec,
		Error:           foundJob.Error,
	}

	// Include the transcript only once the job is terminal. Partial jobs
	// carry the transcript of the chunks that did succeed.
	switch foundJob.GetStatus() {
	case job.StatusCompleted, job.StatusPartial:
		resp.Transcript = foundJob.Transcript
		resp.Confidence = foundJob.Confidence
		resp.ProcessingTime = foundJob.ProcessingTimeSec
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
