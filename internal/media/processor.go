// Package media provides audio probing and segment extraction capabilities.
package media

import "context"

// Prober inspects a local audio file and reports its total duration.
type Prober interface {
	// Duration returns the total duration of the audio file in seconds.
	Duration(ctx context.Context, path string) (float64, error)
}

// Segmenter extracts a time window from a source audio file into an
// isolated 16 kHz mono PCM WAV file, resampling and downmixing regardless
// of the source format.
type Segmenter interface {
	// ExtractWindow writes the (start, end) window of src to dst.
	// start and end are offsets in seconds from the beginning of the audio.
	ExtractWindow(ctx context.Context, src, dst string, start, end float64) error

	// Available reports whether the extraction capability can be used at
	// all (the ffmpeg binary is resolvable). Checked once before a chunk
	// loop starts; a per-chunk extraction failure is a separate condition.
	Available() bool
}
