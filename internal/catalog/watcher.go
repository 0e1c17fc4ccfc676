package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches a catalog extension directory and reloads the registry
// when files settle. Rapid editor saves are debounced so a burst of
// writes triggers one reload, not one per event.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	registry    *Registry
	dir         string
	logger      *zap.Logger
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for debugging and tests.
type WatcherStats struct {
	FilesCreated     int
	FilesModified    int
	FilesDeleted     int
	ReloadsTriggered int
	Errors           int
	LastEventTime    time.Time
	LastEventPath    string
	LastEventType    string
}

// NewWatcher creates a watcher over the given extension directory. The
// directory does not need to exist yet. A nil logger is replaced with a
// no-op logger.
func NewWatcher(dir string, registry *Registry, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		watcher:     fsw,
		registry:    registry,
		dir:         dir,
		logger:      logger,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start performs an initial reload and begins watching. Non-blocking; the
// event loop runs in its own goroutine until Stop or context cancel.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.registry.Reload(w.dir); err != nil {
		w.logger.Warn("initial catalog load failed", zap.String("dir", w.dir), zap.Error(err))
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
	}

	if err := w.watcher.Add(w.dir); err != nil {
		// The directory may not exist yet; the registry still serves
		// built-ins.
		w.logger.Warn("catalog watch failed", zap.String("dir", w.dir), zap.Error(err))
	} else {
		w.logger.Info("watching catalog dir", zap.String("dir", w.dir))
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to drain.
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

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("closing catalog watcher", zap.Error(err))
	}
}

// IsWatching reports whether the event loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Stats returns a snapshot of the watcher counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// ResetStats zeroes the watcher counters.
func (w *Watcher) ResetStats() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats = WatcherStats{}
}

// TriggerReload forces an immediate registry reload outside the debounce
// path, for startup and tests.
func (w *Watcher) TriggerReload() error {
	err := w.registry.Reload(w.dir)
	w.mu.Lock()
	w.stats.ReloadsTriggered++
	if err != nil {
		w.stats.Errors++
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
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
			w.logger.Error("catalog watcher error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processDebounced()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".yaml") && !strings.HasSuffix(event.Name, ".yml") {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return
	}

	w.logger.Debug("catalog file event", zap.String("type", eventType), zap.String("path", event.Name))

	w.mu.Lock()
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	w.stats.LastEventType = eventType
	switch eventType {
	case "create":
		w.stats.FilesCreated++
	case "modify":
		w.stats.FilesModified++
	case "delete", "rename":
		w.stats.FilesDeleted++
	}
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// processDebounced reloads once when any changed file has settled past
// the debounce window.
func (w *Watcher) processDebounced() {
	w.mu.Lock()
	now := time.Now()
	settled := 0
	for path, eventTime := range w.debounceMap {
		if now.Sub(eventTime) >= w.debounceDur {
			settled++
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	if settled == 0 {
		return
	}

	err := w.registry.Reload(w.dir)
	w.mu.Lock()
	w.stats.ReloadsTriggered++
	if err != nil {
		w.stats.Errors++
	}
	w.mu.Unlock()
	if err != nil {
		w.logger.Error("catalog reload failed", zap.String("dir", w.dir), zap.Error(err))
	} else {
		rules, templates, patterns := w.registry.Counts()
		w.logger.Info("catalog reloaded",
			zap.Int("scope_rules", rules),
			zap.Int("ellipsis_templates", templates),
			zap.Int("metonymy_patterns", patterns))
	}
}
