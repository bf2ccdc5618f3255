package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"airlift/internal/config"
	"airlift/internal/logging"
	"airlift/internal/pattern"
	"airlift/internal/services"
	"airlift/internal/shows"
)

// Handler is invoked once per detected file after it matches a show pattern
// and its size and mtime have stopped changing. Handler errors are the
// caller's to record; the watcher only reports them to its log.
type Handler func(ctx context.Context, showID, path string) error

// Watcher observes one show's watch directory. Events are serialized through
// a single worker goroutine so files for a show are handed over one at a
// time, in detection order.
type Watcher struct {
	show    shows.ShowProfile
	dir     string
	globs   []string
	handler Handler
	logger  *slog.Logger

	debounce time.Duration
	poll     time.Duration
	rescan   time.Duration

	fsw    *fsnotify.Watcher
	events chan string
	done   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	pending map[string]struct{}
}

// New builds a watcher for the given show. The show must be watchable: at
// least one watch-kind pattern and a resolvable watch directory.
func New(show shows.ShowProfile, cfg *config.Config, logger *slog.Logger, handler Handler) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watcher handler is required")
	}

	dir := show.WatchDir
	if strings.TrimSpace(dir) == "" {
		dir = cfg.Paths.DefaultWatchDir
	}
	if strings.TrimSpace(dir) == "" {
		return nil, services.Wrap(services.ErrWatcher, "watcher", "configure",
			"no watch directory for show "+show.ID, nil)
	}

	globs := show.WatchGlobs()
	if len(globs) == 0 {
		return nil, services.Wrap(services.ErrWatcher, "watcher", "configure",
			"show "+show.ID+" has no watch patterns", nil)
	}

	log := logging.NewComponentLogger(logger, "watcher")
	for _, glob := range globs {
		if _, err := pattern.Compile(glob); err != nil {
			log.Warn("ignoring malformed pattern",
				logging.String("show_id", show.ID),
				logging.String("pattern", glob),
				logging.Error(err))
		}
	}

	return &Watcher{
		show:     show,
		dir:      dir,
		globs:    globs,
		handler:  handler,
		logger:   log,
		debounce: time.Duration(cfg.Intake.DebounceSeconds) * time.Second,
		poll:     time.Duration(cfg.Intake.StabilityPollMs) * time.Millisecond,
		rescan:   time.Duration(cfg.Intake.RescanSeconds) * time.Second,
		events:   make(chan string, 64),
		done:     make(chan struct{}),
		pending:  make(map[string]struct{}),
	}, nil
}

// Dir returns the directory this watcher observes.
func (w *Watcher) Dir() string {
	return w.dir
}

// Start begins observing the watch directory. Files already present are
// scanned first so drops made while the daemon was down are not missed.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return services.Wrap(services.ErrWatcher, "watcher", "create watch directory", w.dir, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return services.Wrap(services.ErrWatcher, "watcher", "init", "", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return services.Wrap(services.ErrWatcher, "watcher", "observe directory", w.dir, err)
	}
	w.fsw = fsw

	w.wg.Add(2)
	go w.dispatchLoop(ctx)
	go w.workLoop(ctx)

	w.scanExisting()

	w.logger.Info("watching directory",
		logging.String("show_id", w.show.ID),
		logging.String("dir", w.dir),
		logging.Int("patterns", len(w.globs)))
	return nil
}

// Stop halts observation and waits for in-flight work. Safe to call more
// than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.mu.Unlock()

	close(w.done)
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	w.wg.Wait()
}

// scanExisting queues files that were already in the directory when the
// watcher started.
func (w *Watcher) scanExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("initial scan failed",
			logging.String("show_id", w.show.ID),
			logging.String("dir", w.dir),
			logging.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.offer(filepath.Join(w.dir, entry.Name()))
	}
}

func (w *Watcher) dispatchLoop(ctx context.Context) {
	defer w.wg.Done()

	// Periodic rescans recover files whose events were dropped, for
	// example when the event queue was full. Disabled when the interval
	// is zero.
	var rescan <-chan time.Time
	if w.rescan > 0 {
		ticker := time.NewTicker(w.rescan)
		defer ticker.Stop()
		rescan = ticker.C
	}

	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case <-rescan:
			w.scanExisting()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.offer(event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error",
				logging.String("show_id", w.show.ID),
				logging.Error(err))
		}
	}
}

// offer filters a candidate path and queues it for the worker. Dotfiles and
// non-matching names are skipped silently, and a path already waiting for
// the worker is not queued twice. A full queue drops the event and logs;
// a later write event or the periodic rescan picks the file up again.
func (w *Watcher) offer(path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return
	}
	if pattern.FindMatch(name, w.globs) < 0 {
		return
	}

	w.mu.Lock()
	if _, inflight := w.pending[path]; inflight {
		w.mu.Unlock()
		return
	}
	w.pending[path] = struct{}{}
	w.mu.Unlock()

	select {
	case w.events <- path:
	default:
		w.forget(path)
		w.logger.Warn("event queue full, dropping event",
			logging.String("show_id", w.show.ID),
			logging.String("path", path))
	}
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()
}

func (w *Watcher) workLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case path := <-w.events:
			if !w.waitUntilStable(ctx, path) {
				w.forget(path)
				continue
			}
			w.forget(path)
			if err := w.handler(ctx, w.show.ID, path); err != nil {
				w.logger.Warn("handler rejected file",
					logging.String("show_id", w.show.ID),
					logging.String("path", path),
					logging.Error(err))
			}
		}
	}
}

// waitUntilStable polls the file until its size and mtime stop changing for
// the configured debounce window. Returns false when the file vanished or
// the watcher is shutting down.
func (w *Watcher) waitUntilStable(ctx context.Context, path string) bool {
	var (
		lastSize  int64 = -1
		lastMtime time.Time
		stableFor time.Duration
	)

	poll := w.poll
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return false
			}
			w.logger.Warn("stability check failed",
				logging.String("path", path),
				logging.Error(err))
			return false
		}
		if !info.Mode().IsRegular() {
			return false
		}

		if info.Size() == lastSize && info.ModTime().Equal(lastMtime) {
			stableFor += poll
			if stableFor >= w.debounce {
				return true
			}
		} else {
			lastSize = info.Size()
			lastMtime = info.ModTime()
			stableFor = 0
		}

		select {
		case <-w.done:
			return false
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
