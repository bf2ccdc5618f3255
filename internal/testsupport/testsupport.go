// Package testsupport provides shared helpers for package tests: disposable
// configurations rooted in temp directories, queue stores, and fixture files.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"airlift/internal/config"
	"airlift/internal/queue"
)

// NewConfig builds a validated configuration rooted in a temp directory.
// Debounce and polling intervals are tightened so watcher tests run fast.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ShowsFile = filepath.Join(root, "shows.toml")
	cfg.Paths.DefaultWatchDir = filepath.Join(root, "incoming")
	cfg.Paths.DefaultOutputDir = filepath.Join(root, "processed")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Intake.DebounceSeconds = 0
	cfg.Intake.StabilityPollMs = 10
	cfg.Intake.RescanSeconds = 0
	cfg.Notifications.NtfyTopic = ""

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
	return &cfg
}

// MustOpenStore opens a queue store for the given configuration and closes
// it when the test finishes.
func MustOpenStore(t *testing.T, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open queue store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// WriteShowsFile writes show profile TOML to the configured shows file.
func WriteShowsFile(t *testing.T, cfg *config.Config, contents string) {
	t.Helper()

	if err := os.WriteFile(cfg.Paths.ShowsFile, []byte(contents), 0o644); err != nil {
		t.Fatalf("write shows file: %v", err)
	}
}

// WriteFile drops a fixture file with the given contents and returns its path.
func WriteFile(t *testing.T, dir, name string, contents []byte) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create fixture dir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("write fixture file: %v", err)
	}
	return path
}
