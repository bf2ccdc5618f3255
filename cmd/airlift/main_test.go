package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestEnvironment(t *testing.T) (configPath, watchDir, outDir string) {
	t.Helper()

	root := t.TempDir()
	watchDir = filepath.Join(root, "incoming")
	outDir = filepath.Join(root, "processed")
	logDir := filepath.Join(root, "logs")
	showsFile := filepath.Join(root, "shows.toml")

	for _, dir := range []string{watchDir, outDir, logDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	configPath = filepath.Join(root, "config.toml")
	configContents := fmt.Sprintf(`
[paths]
shows_file = %q
default_watch_dir = %q
default_output_dir = %q
log_dir = %q

[intake]
debounce_seconds = 0
stability_poll_ms = 10
`, showsFile, watchDir, outDir, logDir)
	if err := os.WriteFile(configPath, []byte(configContents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	showsContents := fmt.Sprintf(`
[[shows]]
id = "news"
name = "News Hour"
enabled = true
auto_process = true
watch_dir = %q
output_dir = %q
name_template = "{showName}/{originalFilename}"

[[shows.patterns]]
id = "n1"
glob = "news_*.mp3"
kind = "watch"
`, watchDir, outDir)
	if err := os.WriteFile(showsFile, []byte(showsContents), 0o644); err != nil {
		t.Fatalf("write shows: %v", err)
	}
	return configPath, watchDir, outDir
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestQueueListEmpty(t *testing.T) {
	configPath, _, _ := writeTestEnvironment(t)

	out, err := runCommand(t, "--config", configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "queue is empty") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	configPath, _, _ := writeTestEnvironment(t)

	_, err := runCommand(t, "--config", configPath, "queue", "list", "--status", "bogus")
	if err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("expected unknown status error, got %v", err)
	}
}

func TestAddThenListAndClear(t *testing.T) {
	configPath, _, outDir := writeTestEnvironment(t)

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "news_manual.mp3")
	if err := os.WriteFile(src, []byte("bulletin"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	out, err := runCommand(t, "--config", configPath, "add", "news", src)
	if err != nil {
		t.Fatalf("add: %v (output %q)", err, out)
	}
	wantOutput := filepath.Join(outDir, "News_Hour", "news_manual.mp3")
	if !strings.Contains(out, wantOutput) {
		t.Fatalf("add output %q missing %q", out, wantOutput)
	}
	if _, err := os.Stat(wantOutput); err != nil {
		t.Fatalf("relocated file missing: %v", err)
	}

	out, err = runCommand(t, "--config", configPath, "queue", "list", "--status", "completed")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "news_manual.mp3") {
		t.Fatalf("list output %q missing filename", out)
	}

	out, err = runCommand(t, "--config", configPath, "queue", "clear", "--completed")
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	if !strings.Contains(out, "removed 1 completed items") {
		t.Fatalf("clear output %q", out)
	}
}

func TestStatusShowsQueueHealth(t *testing.T) {
	configPath, _, _ := writeTestEnvironment(t)

	out, err := runCommand(t, "--config", configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Pending") || !strings.Contains(out, "queue db:") {
		t.Fatalf("status output %q", out)
	}
}

func TestShowsCommandListsProfiles(t *testing.T) {
	configPath, _, _ := writeTestEnvironment(t)

	out, err := runCommand(t, "--config", configPath, "shows")
	if err != nil {
		t.Fatalf("shows: %v", err)
	}
	if !strings.Contains(out, "news") || !strings.Contains(out, "news_*.mp3") {
		t.Fatalf("shows output %q", out)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("init output %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, err := runCommand(t, "config", "init", target); err == nil {
		t.Fatal("expected second init to refuse overwrite")
	}
}
