package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitSignal(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case <-w.C:
	case <-time.After(3 * time.Second):
		t.Fatal("no change signal")
	}
}

func TestWatcherSignalsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`{"rig":"bench"}`), 0o644))
	waitSignal(t, w)
}

func TestWatcherSeesCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	waitSignal(t, w)
}

func TestWatcherRelevant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	w, err := NewWatcher(path, time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Stop()

	dir := filepath.Dir(path)
	assert.True(t, w.relevant(fsnotify.Event{Name: path, Op: fsnotify.Write}))
	assert.True(t, w.relevant(fsnotify.Event{Name: path, Op: fsnotify.Rename}))
	assert.False(t, w.relevant(fsnotify.Event{Name: path, Op: fsnotify.Chmod}))
	assert.False(t, w.relevant(fsnotify.Event{Name: filepath.Join(dir, "other.json"), Op: fsnotify.Write}))
}

func TestWatcherMissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope", "config.json"), time.Millisecond, nil)
	assert.Error(t, err)
}

func TestWatcherStopTwice(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "config.json"), time.Millisecond, nil)
	require.NoError(t, err)
	w.Start()
	w.Stop()
	w.Stop()
}
