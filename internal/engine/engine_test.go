package engine_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"airlift/internal/config"
	"airlift/internal/engine"
	"airlift/internal/logging"
	"airlift/internal/queue"
	"airlift/internal/services"
	"airlift/internal/shows"
	"airlift/internal/testsupport"
)

const showsFixture = `
[[shows]]
id = "morning-drive"
name = "Morning Drive"
enabled = true
auto_process = true
watch_dir = %q
output_dir = %q
name_template = "{showName}/{originalFilename}"

[[shows.patterns]]
id = "md-mp3"
glob = "drive_*.mp3"
kind = "watch"

[[shows]]
id = "jazz-late"
name = "Jazz Late"
enabled = true
auto_process = true
watch_dir = %q
output_dir = %q
name_template = "{showName}/{originalFilename}"

[[shows.patterns]]
id = "jl-any"
glob = "jazz_*.mp3"
kind = "watch"
`

type harness struct {
	cfg    *config.Config
	store  *queue.Store
	engine *engine.Engine

	driveWatch string
	driveOut   string
	jazzWatch  string
	jazzOut    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	root := filepath.Dir(cfg.Paths.LogDir)

	h := &harness{
		cfg:        cfg,
		driveWatch: filepath.Join(root, "watch-drive"),
		driveOut:   filepath.Join(root, "out-drive"),
		jazzWatch:  filepath.Join(root, "watch-jazz"),
		jazzOut:    filepath.Join(root, "out-jazz"),
	}
	for _, dir := range []string{h.driveWatch, h.driveOut, h.jazzWatch, h.jazzOut} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	contents := fmt.Sprintf(showsFixture, h.driveWatch, h.driveOut, h.jazzWatch, h.jazzOut)
	testsupport.WriteShowsFile(t, cfg, contents)

	h.store = testsupport.MustOpenStore(t, cfg)
	source := shows.NewFileSource(cfg.Paths.ShowsFile)
	h.engine = engine.New(cfg, h.store, source, nil, logging.NewNop())
	t.Cleanup(h.engine.Stop)
	return h
}

func waitForStatus(t *testing.T, h *harness, showID, filename string, want queue.Status) *queue.Item {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		item, err := h.store.FindByShowAndFilename(context.Background(), showID, filename)
		if err != nil {
			t.Fatalf("find item: %v", err)
		}
		if item != nil && item.Status == want {
			return item
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s/%s to reach %s", showID, filename, want)
	return nil
}

func TestDroppedFileIsRelocated(t *testing.T) {
	h := newHarness(t)
	if err := h.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	src := filepath.Join(h.driveWatch, "drive_20260831.mp3")
	if err := os.WriteFile(src, []byte("drive audio"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	item := waitForStatus(t, h, "morning-drive", "drive_20260831.mp3", queue.StatusCompleted)

	want := filepath.Join(h.driveOut, "Morning_Drive", "drive_20260831.mp3")
	if item.OutputPath != want {
		t.Fatalf("output = %q, want %q", item.OutputPath, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	if item.BytesProcessed != int64(len("drive audio")) {
		t.Fatalf("bytes = %d", item.BytesProcessed)
	}
}

func TestFailureIsolatedPerShow(t *testing.T) {
	h := newHarness(t)
	if err := h.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Make the drive show's output unusable: a file where the show
	// directory should be created.
	blocked := filepath.Join(h.driveOut, "Morning_Drive")
	if err := os.WriteFile(blocked, []byte("in the way"), 0o644); err != nil {
		t.Fatalf("block output dir: %v", err)
	}

	driveSrc := filepath.Join(h.driveWatch, "drive_bad.mp3")
	if err := os.WriteFile(driveSrc, []byte("x"), 0o644); err != nil {
		t.Fatalf("write drive: %v", err)
	}
	jazzSrc := filepath.Join(h.jazzWatch, "jazz_ok.mp3")
	if err := os.WriteFile(jazzSrc, []byte("y"), 0o644); err != nil {
		t.Fatalf("write jazz: %v", err)
	}

	failed := waitForStatus(t, h, "morning-drive", "drive_bad.mp3", queue.StatusFailed)
	if failed.ErrorMessage == "" {
		t.Fatal("expected recorded error message")
	}

	waitForStatus(t, h, "jazz-late", "jazz_ok.mp3", queue.StatusCompleted)
}

func TestRetryAfterFixSucceeds(t *testing.T) {
	h := newHarness(t)
	if err := h.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	blocked := filepath.Join(h.driveOut, "Morning_Drive")
	if err := os.WriteFile(blocked, []byte("in the way"), 0o644); err != nil {
		t.Fatalf("block output dir: %v", err)
	}

	src := filepath.Join(h.driveWatch, "drive_retry.mp3")
	if err := os.WriteFile(src, []byte("retry me"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	failed := waitForStatus(t, h, "morning-drive", "drive_retry.mp3", queue.StatusFailed)

	if err := os.Remove(blocked); err != nil {
		t.Fatalf("unblock: %v", err)
	}

	item, err := h.engine.RetryFile(context.Background(), failed.ID)
	if err != nil {
		t.Fatalf("RetryFile: %v", err)
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("status after retry = %s (error %q)", item.Status, item.ErrorMessage)
	}
	if item.ErrorMessage != "" {
		t.Fatalf("stale error message %q", item.ErrorMessage)
	}
}

func TestRetryRejectsNonFailedStates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.RetryFile(ctx, 12345)
	if !errors.Is(err, services.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}

	item, err := h.store.NewFile(ctx, "morning-drive", "drive_pending.mp3", "/nowhere/drive_pending.mp3")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	_, err = h.engine.RetryFile(ctx, item.ID)
	if !errors.Is(err, services.ErrInvalidStateForRetry) {
		t.Fatalf("expected ErrInvalidStateForRetry for pending, got %v", err)
	}

	item.SetCompleted("/out/x.mp3", 1, false, 0)
	if err := h.store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}
	_, err = h.engine.RetryFile(ctx, item.ID)
	if !errors.Is(err, services.ErrInvalidStateForRetry) {
		t.Fatalf("expected ErrInvalidStateForRetry for completed, got %v", err)
	}
}

func TestAddFileEnqueuesAndProcesses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "drive_manual.mp3")
	if err := os.WriteFile(src, []byte("manual"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	item, err := h.engine.AddFile(ctx, "morning-drive", src)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("status = %s (error %q)", item.Status, item.ErrorMessage)
	}

	_, err = h.engine.AddFile(ctx, "morning-drive", src)
	if !errors.Is(err, queue.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	badExt := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(badExt, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err = h.engine.AddFile(ctx, "morning-drive", badExt)
	if !errors.Is(err, services.ErrUnsupportedExtension) {
		t.Fatalf("expected ErrUnsupportedExtension, got %v", err)
	}

	_, err = h.engine.AddFile(ctx, "no-such-show", src)
	if !errors.Is(err, shows.ErrShowNotFound) {
		t.Fatalf("expected ErrShowNotFound, got %v", err)
	}
}

func TestProcessPendingDrainsQueue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	srcDir := t.TempDir()
	for _, name := range []string{"drive_a.mp3", "drive_b.mp3"} {
		path := filepath.Join(srcDir, name)
		if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := h.store.NewFile(ctx, "morning-drive", name, path); err != nil {
			t.Fatalf("NewFile: %v", err)
		}
	}
	if _, err := h.store.NewFile(ctx, "morning-drive", "drive_gone.mp3", filepath.Join(srcDir, "drive_gone.mp3")); err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	completed, failures, err := h.engine.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if completed != 2 || len(failures) != 1 {
		t.Fatalf("completed=%d failures=%d", completed, len(failures))
	}
	if failures[0].Filename != "drive_gone.mp3" {
		t.Fatalf("failed item = %q", failures[0].Filename)
	}
	if failures[0].ErrorMessage == "" {
		t.Fatal("failure must carry its error message")
	}
}

func TestProcessSkipsItemWithMissingShow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	item, err := h.store.NewFile(ctx, "ghost-show", "drive_lost.mp3", "/nowhere/drive_lost.mp3")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	completed, failures, err := h.engine.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if completed != 0 || len(failures) != 0 {
		t.Fatalf("completed=%d failures=%d", completed, len(failures))
	}

	got, err := h.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusPending {
		t.Fatalf("status = %s, want pending", got.Status)
	}
	if got.ErrorMessage != "" {
		t.Fatalf("unexpected error message %q", got.ErrorMessage)
	}
}

func TestStopWatchingIsIdempotent(t *testing.T) {
	h := newHarness(t)
	if err := h.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	status := h.engine.CurrentStatus()
	if !status.IsRunning || status.ActiveWatchers != 2 {
		t.Fatalf("unexpected status %+v", status)
	}

	h.engine.StopWatching("morning-drive")
	h.engine.StopWatching("morning-drive")

	status = h.engine.CurrentStatus()
	if status.ActiveWatchers != 1 {
		t.Fatalf("expected 1 watcher, got %d", status.ActiveWatchers)
	}

	h.engine.Stop()
	h.engine.Stop()

	status = h.engine.CurrentStatus()
	if status.IsRunning || status.ActiveWatchers != 0 {
		t.Fatalf("expected stopped engine, got %+v", status)
	}
}

func TestConflictResolvedFlagSurvivesRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	dirA := t.TempDir()
	dirB := t.TempDir()
	srcA := filepath.Join(dirA, "drive_dup.mp3")
	srcB := filepath.Join(dirB, "drive_dup2.mp3")
	if err := os.WriteFile(srcA, []byte("a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(srcB, []byte("b"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Pre-place a file at both destinations so the copies need suffixes.
	outDir := filepath.Join(h.driveOut, "Morning_Drive")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"drive_dup.mp3", "drive_dup2.mp3"} {
		if err := os.WriteFile(filepath.Join(outDir, name), []byte("old"), 0o644); err != nil {
			t.Fatalf("pre-place: %v", err)
		}
	}

	itemA, err := h.engine.AddFile(ctx, "morning-drive", srcA)
	if err != nil {
		t.Fatalf("AddFile A: %v", err)
	}
	if !itemA.ConflictResolved {
		t.Fatal("expected conflict flag on first item")
	}
	if filepath.Base(itemA.OutputPath) != "drive_dup_1.mp3" {
		t.Fatalf("output = %q", itemA.OutputPath)
	}

	itemB, err := h.engine.AddFile(ctx, "morning-drive", srcB)
	if err != nil {
		t.Fatalf("AddFile B: %v", err)
	}
	if filepath.Base(itemB.OutputPath) != "drive_dup2_1.mp3" {
		t.Fatalf("output = %q", itemB.OutputPath)
	}
}
