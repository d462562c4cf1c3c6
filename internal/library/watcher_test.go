package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForChange(t *testing.T, w *Watcher, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-w.Changes():
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestWatcherNotifiesOnNewFile(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(dir))

	path := filepath.Join(dir, "gen_20240101-000001_aaaa1111_0.png")
	require.NoError(t, os.WriteFile(path, []byte("img"), 0644))

	assert.True(t, waitForChange(t, w, 3*time.Second), "expected a change notification")
}

func TestWatcherCoalescesBursts(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(dir))

	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, ItemName(time.Now(), i, ".png"))
		require.NoError(t, os.WriteFile(name, []byte("img"), 0644))
	}

	require.True(t, waitForChange(t, w, 3*time.Second))

	// The burst lands as one debounced notification; after draining it the
	// channel stays quiet.
	assert.False(t, waitForChange(t, w, 500*time.Millisecond))
}

func TestWatchRejectsMissingDirectory(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	err = w.Watch(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestWatchReplacesPreviousDirectory(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Watch(first))
	require.NoError(t, w.Watch(second))

	require.NoError(t, os.WriteFile(filepath.Join(second, "a.png"), []byte("img"), 0644))
	assert.True(t, waitForChange(t, w, 3*time.Second))
}
