package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/maxbolgarin/autover/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changeCollector struct {
	mu      sync.Mutex
	changes []model.FileChange
}

func (c *changeCollector) handle(_ context.Context, change model.FileChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, change)
}

func (c *changeCollector) paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.changes))
	for _, change := range c.changes {
		out = append(out, change.Path)
	}
	return out
}

func startWatcher(t *testing.T, root string, collector *changeCollector) *Watcher {
	t.Helper()
	w, err := New(Config{Enabled: true, Debounce: 10 * time.Millisecond}, root, collector.handle)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() {
		cancel()
		w.Stop(context.Background())
	})
	return w
}

func TestWatcherReportsFileChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "rules"), 0o755))

	collector := &changeCollector{}
	startWatcher(t, root, collector)

	require.NoError(t, os.WriteFile(filepath.Join(root, "rules", "naming.md"), []byte("rule\n"), 0o644))

	assert.Eventually(t, func() bool {
		for _, path := range collector.paths() {
			if path == "rules/naming.md" {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)
}

func TestWatcherIgnoresInternalPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".autover"), 0o755))

	collector := &changeCollector{}
	startWatcher(t, root, collector)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".autover", "ledger.jsonl"), []byte("{}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "visible.md"), []byte("x\n"), 0o644))

	assert.Eventually(t, func() bool {
		for _, path := range collector.paths() {
			if path == "visible.md" {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)

	for _, path := range collector.paths() {
		assert.NotContains(t, path, ".git")
		assert.NotContains(t, path, ".autover")
	}
}

func TestWatcherStatus(t *testing.T) {
	root := t.TempDir()
	collector := &changeCollector{}
	w := startWatcher(t, root, collector)

	status := w.Status()
	assert.Equal(t, "watch", status.Name)
	assert.True(t, status.Healthy)
	assert.Equal(t, root, status.Detail)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, model.FileAdded, statusFor(fsnotify.Create))
	assert.Equal(t, model.FileDeleted, statusFor(fsnotify.Remove))
	assert.Equal(t, model.FileDeleted, statusFor(fsnotify.Rename))
	assert.Equal(t, model.FileModified, statusFor(fsnotify.Write))
}
