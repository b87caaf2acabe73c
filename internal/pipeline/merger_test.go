package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge_Empty(t *testing.T) {
	transcript, confidence := Merge(nil)
	assert.Empty(t, transcript)
	assert.Zero(t, confidence)

	transcript, confidence = Merge([]ChunkResult{})
	assert.Empty(t, transcript)
	assert.Zero(t, confidence)
}

func TestMerge_ConcatenatesInOrder(t *testing.T) {
	results := []ChunkResult{
		{Index: 0, Text: "Hello world", Confidence: 0.9, Status: ChunkOk},
		{Index: 1, Text: "this is", Confidence: 0.8, Status: ChunkOk},
	}

	transcript, confidence := Merge(results)
	assert.Equal(t, "Hello world this is", transcript)
	assert.InDelta(t, 0.85, confidence, 1e-9)
}

func TestMerge_SkipsFailedChunksSilently(t *testing.T) {
	results := []ChunkResult{
		{Index: 0, Text: "first", Confidence: 0.9, Status: ChunkOk},
		{Index: 1, Status: ChunkFailed, Err: errors.New("engine failure")},
		{Index: 2, Text: "third", Confidence: 0.7, Status: ChunkOk},
	}

	transcript, confidence := Merge(results)
	assert.Equal(t, "first third", transcript, "failed chunk must be omitted without a marker")
	assert.InDelta(t, 0.8, confidence, 1e-9, "confidence averages over ok chunks only")
}

func TestMerge_AllFailed(t *testing.T) {
	results := []ChunkResult{
		{Index: 0, Status: ChunkFailed, Err: errors.New("boom")},
		{Index: 1, Status: ChunkFailed, Err: errors.New("boom")},
	}

	transcript, confidence := Merge(results)
	assert.Empty(t, transcript)
	assert.Zero(t, confidence)
}

func TestMerge_EmptyOkTextDoesNotDoubleSpace(t *testing.T) {
	results := []ChunkResult{
		{Index: 0, Text: "speech", Confidence: 0.9, Status: ChunkOk},
		{Index: 1, Text: "", Confidence: 0.5, Status: ChunkOk}, // silence-only chunk
		{Index: 2, Text: "more", Confidence: 0.7, Status: ChunkOk},
	}

	transcript, confidence := Merge(results)
	assert.Equal(t, "speech more", transcript)
	assert.InDelta(t, 0.7, confidence, 1e-9)
}

func TestChunkCounters(t *testing.T) {
	results := []ChunkResult{
		{Index: 0, Status: ChunkOk},
		{Index: 1, Status: ChunkFailed},
		{Index: 2, Status: ChunkOk},
	}

	assert.Equal(t, 2, okChunks(results))
	assert.Equal(t, 1, failedChunks(results))
}
