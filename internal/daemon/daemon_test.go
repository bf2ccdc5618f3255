package daemon_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"airlift/internal/daemon"
	"airlift/internal/logging"
	"airlift/internal/queue"
	"airlift/internal/testsupport"
)

func writeShow(t *testing.T, cfgShowsFile, watchDir, outDir string) {
	t.Helper()
	contents := fmt.Sprintf(`
[[shows]]
id = "news"
name = "News Hour"
enabled = true
auto_process = true
watch_dir = %q
output_dir = %q

[[shows.patterns]]
id = "n1"
glob = "news_*.mp3"
kind = "watch"
`, watchDir, outDir)
	if err := os.WriteFile(cfgShowsFile, []byte(contents), 0o644); err != nil {
		t.Fatalf("write shows file: %v", err)
	}
}

func TestDaemonLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	watchDir := filepath.Join(t.TempDir(), "watch")
	outDir := filepath.Join(t.TempDir(), "out")
	writeShow(t, cfg.Paths.ShowsFile, watchDir, outDir)

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	status, err := d.CurrentStatus(context.Background())
	if err != nil {
		t.Fatalf("CurrentStatus: %v", err)
	}
	if !status.Running || status.Engine.ActiveWatchers != 1 {
		t.Fatalf("unexpected status %+v", status)
	}

	src := filepath.Join(watchDir, "news_top.mp3")
	if err := os.WriteFile(src, []byte("bulletin"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		items, err := d.ListQueue(context.Background(), []queue.Status{queue.StatusCompleted})
		if err != nil {
			t.Fatalf("ListQueue: %v", err)
		}
		if len(items) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for completion")
		}
		time.Sleep(20 * time.Millisecond)
	}

	d.Stop()
	d.Stop()
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeShow(t, cfg.Paths.ShowsFile, filepath.Join(t.TempDir(), "w"), filepath.Join(t.TempDir(), "o"))

	first, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New first: %v", err)
	}
	t.Cleanup(func() { _ = first.Close() })
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start first: %v", err)
	}

	second, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected second instance to be rejected")
	}
}

func TestDaemonRecoversStuckItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	watchDir := filepath.Join(t.TempDir(), "watch")
	outDir := filepath.Join(t.TempDir(), "out")
	writeShow(t, cfg.Paths.ShowsFile, watchDir, outDir)

	// Simulate a crash: a record left in processing by a previous run.
	store := testsupport.MustOpenStore(t, cfg)
	src := filepath.Join(t.TempDir(), "news_stuck.mp3")
	if err := os.WriteFile(src, []byte("stuck"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	item, err := store.NewFile(context.Background(), "news", "news_stuck.mp3", src)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if claimed, err := store.ClaimForProcessing(context.Background(), item.ID); err != nil || !claimed {
		t.Fatalf("claim: %v %v", claimed, err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close seed store: %v", err)
	}

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := d.ListQueue(context.Background(), []queue.Status{queue.StatusCompleted})
		if err != nil {
			t.Fatalf("ListQueue: %v", err)
		}
		if len(got) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for recovered item to complete")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
