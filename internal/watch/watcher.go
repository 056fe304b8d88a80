// Package watch turns filesystem notifications into file-change events
// for the change-risk responder. The watch mechanism is an event
// source only; all classification happens downstream.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/autover/internal/model"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
)

// Handler receives one file-change event. It may run concurrently with
// periodic commit scans; downstream classifiers are pure and need no
// synchronization.
type Handler func(ctx context.Context, change model.FileChange)

// Config controls the filesystem watcher.
type Config struct {
	Enabled bool `yaml:"enabled" env:"WATCH_ENABLED"`
	// Debounce suppresses bursts of events for the same path.
	Debounce time.Duration `yaml:"debounce" env:"WATCH_DEBOUNCE"`
}

// SetDefaults sets default values.
func (c *Config) SetDefaults() {
	if c.Debounce == 0 {
		c.Debounce = 500 * time.Millisecond
	}
}

// Watcher recursively watches a repository checkout.
type Watcher struct {
	cfg     Config
	root    string
	handler Handler
	watcher *fsnotify.Watcher
	log     logze.Logger

	lastSeen *abstract.SafeMap[string, time.Time]

	mu      sync.Mutex
	lastErr error
	running bool
}

// New creates a watcher over the repository root.
func New(cfg Config, root string, handler Handler) (*Watcher, error) {
	cfg.SetDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errm.Wrap(err, "create fsnotify watcher")
	}

	return &Watcher{
		cfg:      cfg,
		root:     root,
		handler:  handler,
		watcher:  fsw,
		log:      logze.With("module", "watch"),
		lastSeen: abstract.NewSafeMap[string, time.Time](),
	}, nil
}

// Start registers the directory tree and launches the event loop.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return errm.Wrap(err, "register watch tree")
	}

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()

	go w.loop(ctx)
	w.log.Info("filesystem watcher started", "root", w.root)
	return nil
}

// Stop closes the underlying watcher.
func (w *Watcher) Stop(context.Context) error {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return w.watcher.Close()
}

// Status implements interfaces.StatusReporter.
func (w *Watcher) Status() model.ComponentStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	status := model.ComponentStatus{
		Name:    "watch",
		Healthy: w.running,
		Detail:  w.root,
	}
	if w.lastErr != nil {
		status.LastError = w.lastErr.Error()
	}
	return status
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.lastErr = err
			w.mu.Unlock()
			w.log.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op == fsnotify.Chmod || w.ignored(event.Name) {
		return
	}

	// New directories join the watch tree.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.Error("cannot watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if w.debounced(event.Name) {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		rel = event.Name
	}

	change := model.FileChange{
		Path:   filepath.ToSlash(rel),
		Status: statusFor(event.Op),
	}
	w.log.Debug("file change detected", "path", change.Path, "status", change.Status)
	w.handler(ctx, change)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// ignored skips VCS internals and the engine's own state files so the
// ledger never escalates itself.
func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	if base == ".git" || base == ".autover" {
		return true
	}
	slashed := filepath.ToSlash(path)
	return strings.Contains(slashed, "/.git/") || strings.Contains(slashed, "/.autover/")
}

func (w *Watcher) debounced(path string) bool {
	now := time.Now()
	if last, ok := w.lastSeen.Lookup(path); ok && now.Sub(last) < w.cfg.Debounce {
		return true
	}
	w.lastSeen.Set(path, now)
	return false
}

func statusFor(op fsnotify.Op) model.FileChangeStatus {
	switch {
	case op.Has(fsnotify.Create):
		return model.FileAdded
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return model.FileDeleted
	default:
		return model.FileModified
	}
}
