package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"github.com/voxline/transcribe-api/internal/engine"
)

// fakeProber returns a fixed duration or error.
type fakeProber struct {
	duration float64
	err      error
}

func (p *fakeProber) Duration(_ context.Context, _ string) (float64, error) {
	return p.duration, p.err
}

// fakeSegmenter writes a placeholder segment file for every extraction and
// tracks how many segment files coexist on disk at any moment.
type fakeSegmenter struct {
	mu sync.Mutex

	unavailable bool
	// failStarts maps a window start offset to the error returned for it.
	failStarts map[float64]error

	extractions int
	maxCoexist  int
	watchDir    string
}

func (s *fakeSegmenter) Available() bool {
	return !s.unavailable
}

func (s *fakeSegmenter) ExtractWindow(_ context.Context, _, dst string, start, _ float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.extractions++
	if s.watchDir == "" {
		s.watchDir = filepath.Dir(dst)
	}

	if err, ok := s.failStarts[start]; ok {
		return err
	}

	if err := os.WriteFile(dst, []byte("pcm"), 0o600); err != nil {
		return err
	}

	if n := countSegmentFiles(s.watchDir); n > s.maxCoexist {
		s.maxCoexist = n
	}
	return nil
}

// countSegmentFiles counts chunk segment files currently on disk.
func countSegmentFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".wav" {
			n++
		}
	}
	return n
}

// fakeEngine delegates to a per-test function. The default transcribes
// every segment as "chunk-<index>" with confidence 0.9.
type fakeEngine struct {
	mu         sync.Mutex
	calls      int
	transcribe func(wavPath, language string) (engine.Result, error)
}

func (e *fakeEngine) Open() error  { return nil }
func (e *fakeEngine) Close() error { return nil }

func (e *fakeEngine) Transcribe(ctx context.Context, wavPath, language string) (engine.Result, error) {
	e.mu.Lock()
	e.calls++
	fn := e.transcribe
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return engine.Result{}, err
	}
	if fn != nil {
		return fn(wavPath, language)
	}
	return engine.Result{Text: fmt.Sprintf("chunk-%d", chunkIndexFromPath(wavPath)), Confidence: 0.9}, nil
}

var chunkIndexRe = regexp.MustCompile(`chunk_(\d+)`)

// chunkIndexFromPath recovers the window index embedded in a segment path.
func chunkIndexFromPath(path string) int {
	m := chunkIndexRe.FindStringSubmatch(filepath.Base(path))
	if len(m) != 2 {
		return -1
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// fakeStorage implements storage.Storage over a test directory with a
// configurable free-space report.
type fakeStorage struct {
	dir       string
	freeBytes uint64

	mu     sync.Mutex
	minted int
}

func newFakeStorage(dir string) *fakeStorage {
	return &fakeStorage{dir: dir, freeBytes: 1 << 30}
}

func (s *fakeStorage) SaveTemp(_ context.Context, name string, data io.Reader) (string, error) {
	f, err := os.CreateTemp(s.dir, name+"_*")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, data); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func (s *fakeStorage) TempPath(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minted++
	return filepath.Join(s.dir, fmt.Sprintf("%s_%d", name, s.minted))
}

func (s *fakeStorage) CleanupTemp(_ context.Context, paths []string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *fakeStorage) FreeBytes() (uint64, error) {
	return s.freeBytes, nil
}
