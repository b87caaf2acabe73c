package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Static errors for media operations.
var (
	// ErrSourceUnreadable is returned when the source file does not exist or cannot be read.
	ErrSourceUnreadable = errors.New("media: source file unreadable")
	// ErrWindowOutOfRange is returned when the requested window is invalid for the source.
	ErrWindowOutOfRange = errors.New("media: requested window out of range")
	// ErrFFmpegNotFound is returned when the ffmpeg binary cannot be resolved.
	ErrFFmpegNotFound = errors.New("media: ffmpeg binary not found")
	// ErrFFprobeExecution is returned when the ffprobe command fails.
	ErrFFprobeExecution = errors.New("media: ffprobe execution failed")
)

// FFmpegProcessor implements Prober and Segmenter using the ffmpeg and
// ffprobe CLIs.
type FFmpegProcessor struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH);
// ffprobe is resolved next to it.
func NewFFmpegProcessor(ffmpegPath string) *FFmpegProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegProcessor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: "ffprobe",
	}
}

// Available reports whether the ffmpeg binary can be resolved.
func (p *FFmpegProcessor) Available() bool {
	_, err := exec.LookPath(p.ffmpegPath)
	return err == nil
}

// Duration returns the duration in seconds of an audio or video file.
// It uses ffprobe to extract the duration metadata.
func (p *FFmpegProcessor) Duration(ctx context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrSourceUnreadable, path)
	}

	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	var duration float64
	_, err = fmt.Sscanf(strings.TrimSpace(stdout.String()), "%f", &duration)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}

	return duration, nil
}

// ExtractWindow extracts the (start, end) window of src into dst as a
// 16 kHz mono signed 16-bit PCM WAV, the input format the transcription
// engine expects, regardless of the source codec or channel layout.
func (p *FFmpegProcessor) ExtractWindow(ctx context.Context, src, dst string, start, end float64) error {
	if start < 0 || end <= start {
		return fmt.Errorf("%w: start=%.3f, end=%.3f", ErrWindowOutOfRange, start, end)
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("%w: %s", ErrSourceUnreadable, src)
	}

	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", end-start),
		"-i", src,
		"-ar", "16000",
		"-ac", "1",
		"-acodec", "pcm_s16le",
		dst,
	}

	return p.runFFmpeg(ctx, args)
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (p *FFmpegProcessor) runFFmpeg(ctx context.Context, args []string) error {
	if _, err := exec.LookPath(p.ffmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, p.ffmpegPath)
	}

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Compile-time checks that FFmpegProcessor implements the media ports.
var (
	_ Prober    = (*FFmpegProcessor)(nil)
	_ Segmenter = (*FFmpegProcessor)(nil)
)
