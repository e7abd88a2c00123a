package skill

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow batches rapid successive saves (editors that write a
// temp file then rename, or write in several small chunks) into a
// single reload.
const debounceWindow = 300 * time.Millisecond

// Reloader is invoked once a batch of filesystem changes has settled;
// it should re-run the Loader and publish a new Snapshot via an atomic
// reference swap so any in-flight turn keeps the snapshot it started
// with.
type Reloader func()

// Watcher watches every root directory for SKILL.md changes and calls
// Reloader after events settle past debounceWindow.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	roots       []string
	reload      Reloader
	debounceMap map[string]time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

func NewWatcher(roots []string, reload Reloader) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		roots:       roots,
		reload:      reload,
		debounceMap: make(map[string]time.Time),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start adds every root, and each skill directory directly beneath it,
// to the underlying fsnotify watcher and begins the debounced event
// loop in a background goroutine. Non-blocking. A root that does not
// exist is logged and skipped, not an error; it is not watched if it
// is created later, and neither are skill directories created after
// Start.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, root := range w.roots {
		if err := w.watcher.Add(root); err != nil {
			log.Printf("skill: watcher failed to add root %s: %v", root, err)
			continue
		}
		entries, _ := os.ReadDir(root)
		for _, entry := range entries {
			if entry.IsDir() {
				_ = w.watcher.Add(filepath.Join(root, entry.Name()))
			}
		}
	}

	go w.run(ctx)
	return nil
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("skill: watcher error: %v", err)
		case <-ticker.C:
			w.processDebounced()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, "SKILL.md") {
		return
	}
	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebounced() {
	w.mu.Lock()
	now := time.Now()
	settled := false
	for path, t := range w.debounceMap {
		if now.Sub(t) >= debounceWindow {
			delete(w.debounceMap, path)
			settled = true
		}
	}
	w.mu.Unlock()

	if settled {
		w.reload()
	}
}
