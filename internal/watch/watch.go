// Package watch analyzes photos as they land in a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/dudu/hairline/internal/imageio"
	"github.com/dudu/hairline/internal/logger"
)

// DefaultSettle is how long a file must stay unchanged before it is handled
const DefaultSettle = 500 * time.Millisecond

// Handler processes one settled image file
type Handler func(ctx context.Context, path string) error

// Watcher calls a Handler for every image file created or rewritten in a
// directory. Repeated events for the same file within the settle delay are
// collapsed into one call.
type Watcher struct {
	dir    string
	settle time.Duration
	handle Handler
	log    logrus.FieldLogger

	mu        sync.Mutex
	pending   map[string]*time.Timer
	started   chan struct{}
	startOnce sync.Once
}

// New creates a watcher for dir
func New(dir string, settle time.Duration, handle Handler, log logrus.FieldLogger) (*Watcher, error) {
	if handle == nil {
		return nil, errors.New("watch: nil handler")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	if settle <= 0 {
		settle = DefaultSettle
	}

	return &Watcher{
		dir:     dir,
		settle:  settle,
		handle:  handle,
		log:     logger.OrDiscard(log),
		pending: make(map[string]*time.Timer),
		started: make(chan struct{}),
	}, nil
}

// Run watches until ctx is canceled. Handler errors are logged and do not
// stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.startOnce.Do(func() { close(w.started) })
	w.log.WithField("dir", w.dir).Info("watching for new photos")

	// done releases settle timers that fire after Run has returned
	ready := make(chan string)
	done := make(chan struct{})
	defer close(done)
	defer w.stopPending()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if path, ok := w.handleFsEvent(event); ok {
				w.schedule(ctx, path, ready, done)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watcher error")

		case path := <-ready:
			w.process(ctx, path)
		}
	}
}

// handleFsEvent returns the path to analyze for create and write events on
// visible image files.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return "", false
	}
	if !imageio.IsImage(event.Name) {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return "", false
	}
	return event.Name, true
}

func (w *Watcher) schedule(ctx context.Context, path string, ready chan<- string, done <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		deliver(ctx, done, ready, path)
	})
}

// deliver hands a settled path to the Run loop. It reports false when the
// loop is gone.
func deliver(ctx context.Context, done <-chan struct{}, ready chan<- string, path string) bool {
	select {
	case ready <- path:
		return true
	case <-ctx.Done():
		return false
	case <-done:
		return false
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	log := w.log.WithField("file", filepath.Base(path))
	if err := w.handle(ctx, path); err != nil {
		log.WithError(err).Warn("failed to process photo")
		return
	}
	log.Debug("photo processed")
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}
