// Package plan provides the pure planning primitives for chunked
// transcription: chunk window computation and the adaptive operation
// deadline. Both are deterministic and perform no I/O.
package plan

import (
	"errors"
	"fmt"
	"time"
)

// Static errors for planning validation.
var (
	// ErrNonPositiveDuration is returned when the audio duration is zero or negative.
	ErrNonPositiveDuration = errors.New("plan: duration must be positive")
	// ErrNonPositiveChunkLength is returned when the chunk length is zero or negative.
	ErrNonPositiveChunkLength = errors.New("plan: chunk length must be positive")
	// ErrOverlapTooLarge is returned when the overlap is not smaller than the chunk length.
	ErrOverlapTooLarge = errors.New("plan: overlap must be smaller than chunk length")
	// ErrNegativeOverlap is returned when the overlap is negative.
	ErrNegativeOverlap = errors.New("plan: overlap must not be negative")
)

// Window is a single time-bounded slice of the source audio, in seconds.
// Windows are ordered by Index and by Start; consecutive windows share the
// configured overlap except the final window, which ends at the total
// duration and may be shorter than the nominal chunk length.
type Window struct {
	// Index is the position of this window in the plan.
	Index int
	// Start is the window start offset in seconds from the beginning of the audio.
	Start float64
	// End is the window end offset in seconds.
	End float64
}

// Length returns the window length in seconds.
func (w Window) Length() float64 {
	return w.End - w.Start
}

// String returns a human-readable representation for logging.
func (w Window) String() string {
	return fmt.Sprintf("window %d: %.2fs-%.2fs", w.Index, w.Start, w.End)
}

// Windows computes the ordered chunk windows for an audio clip.
//
// When duration fits in a single chunk it returns exactly one window
// covering (0, duration) — the fast path. Otherwise windows are emitted
// iteratively: each starts where the previous one ended minus the overlap,
// and the last one ends exactly at duration.
func Windows(duration, chunkLength, overlap float64) ([]Window, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: got %.2f", ErrNonPositiveDuration, duration)
	}
	if chunkLength <= 0 {
		return nil, fmt.Errorf("%w: got %.2f", ErrNonPositiveChunkLength, chunkLength)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: got %.2f", ErrNegativeOverlap, overlap)
	}
	if overlap >= chunkLength {
		return nil, fmt.Errorf("%w: overlap %.2f, chunk length %.2f", ErrOverlapTooLarge, overlap, chunkLength)
	}

	if duration <= chunkLength {
		return []Window{{Index: 0, Start: 0, End: duration}}, nil
	}

	var windows []Window
	start := 0.0
	for {
		end := start + chunkLength
		if end > duration {
			end = duration
		}
		windows = append(windows, Window{Index: len(windows), Start: start, End: end})
		if end == duration {
			break
		}
		start = end - overlap
	}

	return windows, nil
}

// Deadline computes the operation-wide timeout for an audio clip:
// max(baseTimeout, duration*multiplier), all in seconds. Long clips get a
// deadline scaled to their length instead of a fixed ceiling.
func Deadline(duration, baseTimeout, multiplier float64) float64 {
	scaled := duration * multiplier
	if scaled > baseTimeout {
		return scaled
	}
	return baseTimeout
}

// DeadlineDuration is Deadline converted to a time.Duration for use with
// context.WithTimeout.
func DeadlineDuration(duration, baseTimeout, multiplier float64) time.Duration {
	return time.Duration(Deadline(duration, baseTimeout, multiplier) * float64(time.Second))
}
