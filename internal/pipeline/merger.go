package pipeline

import "strings"

// Merge combines ordered per-chunk results into one transcript and an
// aggregate confidence.
//
// Texts of successful chunks are joined with a single space in index
// order; failed chunks are silently omitted (their absence is signalled
// through the outcome status and counters, not through the text). The
// aggregate confidence is the arithmetic mean over successful chunks, or
// zero when none succeeded.
func Merge(results []ChunkResult) (string, float64) {
	var texts []string
	var confSum float64
	var okCount int

	for _, r := range results {
		if r.Status != ChunkOk {
			continue
		}
		if r.Text != "" {
			texts = append(texts, r.Text)
		}
		confSum += r.Confidence
		okCount++
	}

	if okCount == 0 {
		return "", 0.0
	}

	return strings.Join(texts, " "), confSum / float64(okCount)
}

// okChunks counts results with ChunkOk status.
func okChunks(results []ChunkResult) int {
	n := 0
	for _, r := range results {
		if r.Status == ChunkOk {
			n++
		}
	}
	return n
}

// failedChunks counts results with ChunkFailed status.
func failedChunks(results []ChunkResult) int {
	n := 0
	for _, r := range results {
		if r.Status == ChunkFailed {
			n++
		}
	}
	return n
}
