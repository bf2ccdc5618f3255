package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"airlift/internal/config"
	"airlift/internal/engine"
	"airlift/internal/logging"
	"airlift/internal/notifications"
	"airlift/internal/queue"
	"airlift/internal/services"
	"airlift/internal/shows"
)

// Daemon owns the long-running intake process: the queue store, the show
// source, and the engine, behind a file lock that keeps the instance unique.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	source shows.Source
	engine *engine.Engine

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Engine       engine.Status
	Queue        queue.HealthSummary
	QueueDBPath  string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}

	source := shows.NewFileSource(cfg.Paths.ShowsFile)
	notifier := notifications.NewService(cfg)

	lockPath := filepath.Join(cfg.Paths.LogDir, "airliftd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		source:   source,
		engine:   engine.New(cfg, store, source, notifier, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, recovers orphaned records, and begins
// watching all watchable shows. Records left pending from a previous run
// are drained before new detections arrive.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another airlift daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	recovered, err := d.store.ResetStuckProcessing(d.ctx)
	if err != nil {
		d.releaseAfterFailedStart()
		return fmt.Errorf("recover stuck items: %w", err)
	}
	if recovered > 0 {
		d.logger.Info("recovered orphaned items", logging.Int64("count", recovered))
	}

	if err := d.engine.Start(d.ctx); err != nil {
		d.releaseAfterFailedStart()
		return fmt.Errorf("start engine: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("airlift daemon started", logging.String("lock", d.lockPath))

	if completed, failures, err := d.engine.ProcessPending(d.ctx); err != nil {
		d.logger.Warn("draining backlog failed", logging.Error(err))
	} else if completed+len(failures) > 0 {
		d.logger.Info("backlog drained",
			logging.Int("completed", completed),
			logging.Int("failed", len(failures)))
	}
	return nil
}

func (d *Daemon) releaseAfterFailedStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.engine.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("airlift daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// CurrentStatus reports daemon, engine, and queue state.
func (d *Daemon) CurrentStatus(ctx context.Context) (Status, error) {
	health, err := d.store.Health(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:      d.running.Load(),
		Engine:       d.engine.CurrentStatus(),
		Queue:        health,
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}, nil
}

// AddFile manually enqueues and processes a file for a show.
func (d *Daemon) AddFile(ctx context.Context, showID, path string) (*queue.Item, error) {
	return d.engine.AddFile(ctx, showID, path)
}

// RetryFile re-runs a failed queue item.
func (d *Daemon) RetryFile(ctx context.Context, id int64) (*queue.Item, error) {
	return d.engine.RetryFile(ctx, id)
}

// ProcessPending drains pending queue items and returns the ones that
// failed.
func (d *Daemon) ProcessPending(ctx context.Context) (completed int, failures []*queue.Item, err error) {
	return d.engine.ProcessPending(ctx)
}

// StartWatchingShows installs watchers for the given shows.
func (d *Daemon) StartWatchingShows(ctx context.Context, showIDs []string) error {
	return d.engine.StartWatchingShows(ctx, showIDs)
}

// StopWatching removes a show's watcher.
func (d *Daemon) StopWatching(showID string) {
	d.engine.StopWatching(showID)
}

// ListQueue returns queue items filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Item, error) {
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// RemoveQueueItem deletes a single queue item.
func (d *Daemon) RemoveQueueItem(ctx context.Context, id int64) error {
	removed, err := d.store.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return services.Wrap(services.ErrFileNotFound, "daemon", "remove",
			fmt.Sprintf("no queue item %d", id), nil)
	}
	return nil
}

// ClearQueue removes all queue items.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

// ClearCompleted removes only completed queue items.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes only failed queue items.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	return d.store.ClearFailed(ctx)
}

// ListShows returns every configured show profile.
func (d *Daemon) ListShows() ([]shows.ShowProfile, error) {
	return d.source.GetAllShows()
}
