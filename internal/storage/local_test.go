package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates the directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "workspace")

		s, err := NewLocalStorage(dir)
		require.NoError(t, err)
		assert.Equal(t, dir, s.TempDir())
		assert.DirExists(t, dir)
	})

	t.Run("empty dir falls back to os temp", func(t *testing.T) {
		s, err := NewLocalStorage("")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(s.TempDir(), os.TempDir()))
	})
}

func TestSaveTemp(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("writes data and returns path", func(t *testing.T) {
		path, err := s.SaveTemp(ctx, "upload", strings.NewReader("audio-bytes"))
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "audio-bytes", string(data))
		assert.Contains(t, filepath.Base(path), "upload_")
	})

	t.Run("cancelled context fails", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := s.SaveTemp(cancelled, "upload", strings.NewReader("x"))
		require.Error(t, err)
	})
}

func TestTempPath(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	first := s.TempPath("segment")
	second := s.TempPath("segment")

	assert.NotEqual(t, first, second, "reserved paths must be unique")
	assert.Equal(t, s.TempDir(), filepath.Dir(first))
	assert.NoFileExists(t, first, "TempPath must not create the file")
}

func TestCleanupTemp(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("removes existing files and tolerates missing ones", func(t *testing.T) {
		path, err := s.SaveTemp(ctx, "chunk", strings.NewReader("pcm"))
		require.NoError(t, err)

		err = s.CleanupTemp(ctx, []string{path, filepath.Join(s.TempDir(), "already-gone.wav")})
		require.NoError(t, err)
		assert.NoFileExists(t, path)
	})
}

func TestFreeBytes(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	free, err := s.FreeBytes()
	require.NoError(t, err)
	assert.Greater(t, free, uint64(0))
}
