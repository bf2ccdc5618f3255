package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"airlift/internal/config"
	"airlift/internal/logging"
	"airlift/internal/notifications"
	"airlift/internal/queue"
	"airlift/internal/relocate"
	"airlift/internal/services"
	"airlift/internal/shows"
	"airlift/internal/watcher"
)

// Engine drives the intake pipeline: it owns one watcher per show, turns
// detected files into queue records, and moves each record through its
// lifecycle. The queue store is the only authority on record state; the
// engine reads, decides, and writes back.
type Engine struct {
	cfg       *config.Config
	store     *queue.Store
	source    shows.Source
	relocator *relocate.Relocator
	notifier  notifications.Service
	logger    *slog.Logger
	baseLog   *slog.Logger

	mu       sync.Mutex
	watchers map[string]*showWatcher
	running  bool
}

// showWatcher pairs a watcher with the generation token minted when it was
// installed, so log lines can tell a replaced watcher from its successor.
type showWatcher struct {
	generation string
	watcher    *watcher.Watcher
}

// Status is a snapshot of the engine's watch state.
type Status struct {
	IsRunning      bool
	WatchedShows   []string
	ActiveWatchers int
}

// New assembles an engine over the given collaborators.
func New(cfg *config.Config, store *queue.Store, source shows.Source, notifier notifications.Service, logger *slog.Logger) *Engine {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		cfg:       cfg,
		store:     store,
		source:    source,
		relocator: relocate.New(cfg),
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "engine"),
		baseLog:   logger,
		watchers:  make(map[string]*showWatcher),
	}
}

// Start begins watching every watchable show known to the show source.
func (e *Engine) Start(ctx context.Context) error {
	allShows, err := e.source.GetAllShows()
	if err != nil {
		return fmt.Errorf("load shows: %w", err)
	}

	ids := make([]string, 0, len(allShows))
	for _, show := range allShows {
		if show.Watchable() {
			ids = append(ids, show.ID)
		}
	}

	if err := e.StartWatchingShows(ctx, ids); err != nil {
		return err
	}

	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	e.logger.Info("engine started", logging.Int("watchable_shows", len(ids)))
	return nil
}

// StartWatchingShows installs watchers for the given show ids. A show that
// is unknown or not watchable is skipped with a warning. Installing over an
// existing watcher stops the old one before the replacement starts, so two
// watchers never observe the same show at once.
func (e *Engine) StartWatchingShows(ctx context.Context, showIDs []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, showID := range showIDs {
		show, err := e.source.GetShow(showID)
		if err != nil {
			if errors.Is(err, shows.ErrShowNotFound) {
				e.logger.Warn("skipping unknown show", logging.String("show_id", showID))
				continue
			}
			return fmt.Errorf("load show %s: %w", showID, err)
		}
		if !show.Watchable() {
			e.logger.Warn("skipping show that is not watchable",
				logging.String("show_id", showID),
				logging.Bool("enabled", show.Enabled),
				logging.Bool("auto_process", show.AutoProcess))
			continue
		}

		if existing, ok := e.watchers[show.ID]; ok {
			existing.watcher.Stop()
			delete(e.watchers, show.ID)
			e.logger.Info("replaced watcher",
				logging.String("show_id", show.ID),
				logging.String("old_generation", existing.generation))
		}

		w, err := watcher.New(show, e.cfg, e.baseLog, e.handleFileAppeared)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}

		generation := uuid.NewString()
		e.watchers[show.ID] = &showWatcher{generation: generation, watcher: w}
		e.logger.Info("watching show",
			logging.String("show_id", show.ID),
			logging.String("generation", generation),
			logging.String("dir", w.Dir()))
	}
	return nil
}

// StopWatching removes a show's watcher. Calling it for a show that is not
// watched is a no-op.
func (e *Engine) StopWatching(showID string) {
	e.mu.Lock()
	entry, ok := e.watchers[showID]
	if ok {
		delete(e.watchers, showID)
	}
	e.mu.Unlock()

	if !ok {
		return
	}
	entry.watcher.Stop()
	e.logger.Info("stopped watching show",
		logging.String("show_id", showID),
		logging.String("generation", entry.generation))
}

// Stop halts all watchers and marks the engine stopped.
func (e *Engine) Stop() {
	e.mu.Lock()
	entries := e.watchers
	e.watchers = make(map[string]*showWatcher)
	e.running = false
	e.mu.Unlock()

	for showID, entry := range entries {
		entry.watcher.Stop()
		e.logger.Info("stopped watching show", logging.String("show_id", showID))
	}
}

// CurrentStatus reports which shows are being watched.
func (e *Engine) CurrentStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	watched := make([]string, 0, len(e.watchers))
	for showID := range e.watchers {
		watched = append(watched, showID)
	}
	sort.Strings(watched)

	return Status{
		IsRunning:      e.running,
		WatchedShows:   watched,
		ActiveWatchers: len(watched),
	}
}

// handleFileAppeared is the watcher handler: it records a newly stable file
// as pending and immediately processes it. A file the queue has already
// seen, in any state, is left alone.
func (e *Engine) handleFileAppeared(ctx context.Context, showID, path string) error {
	filename := filepath.Base(path)

	existing, err := e.store.FindByShowAndFilename(ctx, showID, filename)
	if err != nil {
		return err
	}
	if existing != nil {
		e.logger.Debug("file already tracked",
			logging.String("show_id", showID),
			logging.String("filename", filename),
			logging.String("status", string(existing.Status)))
		return nil
	}

	item, err := e.store.NewFile(ctx, showID, filename, path)
	if err != nil {
		if errors.Is(err, queue.ErrDuplicate) {
			return nil
		}
		return err
	}

	e.logger.Info("file queued",
		logging.Int64("item_id", item.ID),
		logging.String("show_id", showID),
		logging.String("filename", filename))
	e.notifyQueued(ctx, showID, filename)

	_, err = e.processFile(ctx, item.ID)
	return err
}

// AddFile manually enqueues a file for a show, bypassing the watcher, and
// processes it immediately. The returned item reflects the final state.
func (e *Engine) AddFile(ctx context.Context, showID, sourcePath string) (*queue.Item, error) {
	show, err := e.source.GetShow(showID)
	if err != nil {
		return nil, err
	}

	expanded, err := config.ExpandPath(sourcePath)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(expanded))
	if !e.extensionAllowed(ext) {
		return nil, services.Wrap(services.ErrUnsupportedExtension, "engine", "add file",
			fmt.Sprintf("extension %q is not allowed", ext), nil)
	}
	info, err := os.Stat(expanded)
	if err != nil || !info.Mode().IsRegular() {
		return nil, services.Wrap(services.ErrSourceNotFound, "engine", "add file", expanded, nil)
	}

	item, err := e.store.NewFile(ctx, show.ID, filepath.Base(expanded), expanded)
	if err != nil {
		return nil, err
	}
	e.notifyQueued(ctx, show.ID, item.Filename)

	return e.processFile(ctx, item.ID)
}

// RetryFile moves a failed item back to pending and processes it again.
// Only failed items are retryable; completed, pending, and processing items
// return ErrInvalidStateForRetry.
func (e *Engine) RetryFile(ctx context.Context, id int64) (*queue.Item, error) {
	item, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, services.Wrap(services.ErrFileNotFound, "engine", "retry",
			fmt.Sprintf("no queue item %d", id), nil)
	}
	if item.Status != queue.StatusFailed {
		return nil, services.Wrap(services.ErrInvalidStateForRetry, "engine", "retry",
			fmt.Sprintf("item %d is %s", id, item.Status), nil)
	}

	reset, err := e.store.ResetForRetry(ctx, id)
	if err != nil {
		return nil, err
	}
	if !reset {
		return nil, services.Wrap(services.ErrInvalidStateForRetry, "engine", "retry",
			fmt.Sprintf("item %d changed state before retry", id), nil)
	}

	e.logger.Info("retrying file", logging.Int64("item_id", id))
	return e.processFile(ctx, id)
}

// ProcessPending drains all pending items in creation order. Items whose
// relocation failed are returned so callers can report them without
// re-querying; a failure never stops the drain.
func (e *Engine) ProcessPending(ctx context.Context) (completed int, failures []*queue.Item, err error) {
	pending, err := e.store.List(ctx, queue.StatusPending)
	if err != nil {
		return 0, nil, err
	}

	for _, item := range pending {
		processed, procErr := e.processFile(ctx, item.ID)
		if procErr != nil {
			return completed, failures, procErr
		}
		if processed == nil {
			continue
		}
		switch processed.Status {
		case queue.StatusCompleted:
			completed++
		case queue.StatusFailed:
			failures = append(failures, processed)
		}
	}

	if len(pending) > 0 {
		if notifyErr := e.notifier.NotifyQueueDrained(ctx, completed, len(failures)); notifyErr != nil {
			e.logger.Warn("queue drained notification failed", logging.Error(notifyErr))
		}
	}
	return completed, failures, nil
}

// processFile runs one record through claim, relocation, and final state.
// The record and its owning show are looked up before the claim; if the show
// is gone the record is left in its current state. Relocation failures are
// recorded on the item, never returned; only store and lookup failures
// escape as errors. Returns nil when the claim was lost or the attempt was
// abandoned.
func (e *Engine) processFile(ctx context.Context, id int64) (*queue.Item, error) {
	item, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, services.Wrap(services.ErrFileNotFound, "engine", "process",
			fmt.Sprintf("no queue item %d", id), nil)
	}

	show, err := e.source.GetShow(item.ShowID)
	if err != nil {
		if errors.Is(err, shows.ErrShowNotFound) {
			e.logger.Warn("queued file references unknown show, leaving record untouched",
				logging.Int64("item_id", id),
				logging.String("show_id", item.ShowID))
			return nil, nil
		}
		return nil, err
	}

	claimed, err := e.store.ClaimForProcessing(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claimed {
		e.logger.Debug("claim lost, skipping",
			logging.Int64("item_id", id),
			logging.String("status", string(item.Status)))
		return nil, nil
	}
	item.Status = queue.StatusProcessing

	started := time.Now()

	result, err := e.relocator.Relocate(ctx, item.SourcePath, show)
	if err != nil {
		return e.finishFailed(ctx, item, show.Name, err.Error(), time.Since(started))
	}

	item.SetCompleted(result.OutputPath, result.BytesProcessed, result.ConflictResolved, time.Since(started))
	if err := e.store.Update(ctx, item); err != nil {
		return nil, err
	}

	e.logger.Info("file completed",
		logging.Int64("item_id", item.ID),
		logging.String("show_id", item.ShowID),
		logging.String("output_path", result.OutputPath),
		logging.Int64("bytes", result.BytesProcessed),
		logging.Duration("elapsed", item.ProcessDuration))
	if result.ConflictResolved {
		e.logger.Info("conflict_resolved",
			logging.Int64("item_id", item.ID),
			logging.String("output_path", result.OutputPath))
	}

	if notifyErr := e.notifier.NotifyFileCompleted(ctx, show.Name, item.Filename, result.OutputPath); notifyErr != nil {
		e.logger.Warn("completion notification failed", logging.Error(notifyErr))
	}
	return item, nil
}

func (e *Engine) finishFailed(ctx context.Context, item *queue.Item, showName, message string, elapsed time.Duration) (*queue.Item, error) {
	item.SetFailed(message, elapsed)
	if err := e.store.Update(ctx, item); err != nil {
		return nil, err
	}

	e.logger.Warn("file failed",
		logging.Int64("item_id", item.ID),
		logging.String("show_id", item.ShowID),
		logging.String("error", message))

	if showName == "" {
		showName = item.ShowID
	}
	if notifyErr := e.notifier.NotifyFileFailed(ctx, showName, item.Filename, message); notifyErr != nil {
		e.logger.Warn("failure notification failed", logging.Error(notifyErr))
	}
	return item, nil
}

func (e *Engine) notifyQueued(ctx context.Context, showID, filename string) {
	showName := showID
	if show, err := e.source.GetShow(showID); err == nil {
		showName = show.Name
	}
	if err := e.notifier.NotifyFileQueued(ctx, showName, filename); err != nil {
		e.logger.Warn("queued notification failed", logging.Error(err))
	}
}

func (e *Engine) extensionAllowed(ext string) bool {
	for _, allowed := range e.cfg.Intake.AllowedExtensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}
