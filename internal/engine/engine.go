// Package engine provides the transcription engine boundary.
// It defines the Engine port and two implementations: an in-process
// whisper.cpp binding and a subprocess fallback running the whisper.cpp
// command-line binary. The active implementation is selected by
// configuration; callers never depend on a concrete backend.
package engine

import (
	"context"
	"errors"
	"time"
)

// Static errors for engine operations.
var (
	// ErrNotOpen is returned when Transcribe is called before Open or after Close.
	ErrNotOpen = errors.New("engine: not open")
	// ErrModelNotFound is returned when the model file cannot be read.
	ErrModelNotFound = errors.New("engine: model file not found")
	// ErrTranscription is returned when the engine fails on a given segment.
	ErrTranscription = errors.New("engine: transcription failed")
)

// Result is the outcome of transcribing one audio segment.
type Result struct {
	// Text is the recognized text for the segment.
	Text string
	// Confidence is the mean token probability in [0, 1]; zero when the
	// backend does not report probabilities.
	Confidence float64
	// ProcessingTime is how long the engine call took.
	ProcessingTime time.Duration
}

// Engine is the port to the speech-recognition capability. An Engine owns
// exactly one loaded inference context per process: it is opened once,
// reused across all segments and all requests, and closed at shutdown.
// Implementations serialize calls internally; the context is never shared
// concurrently.
type Engine interface {
	// Open loads the model and prepares the inference context.
	Open() error

	// Close releases the inference context. The engine cannot be reused
	// after Close.
	Close() error

	// Transcribe recognizes speech in a 16 kHz mono PCM WAV file.
	// language is a hint like "en"; empty means auto-detect.
	Transcribe(ctx context.Context, wavPath, language string) (Result, error)
}
