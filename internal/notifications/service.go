package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"airlift/internal/config"
)

const userAgent = "Airlift-Go/0.1.0"

// Service defines the notification surface exposed to the intake engine.
type Service interface {
	NotifyFileQueued(ctx context.Context, showName, filename string) error
	NotifyFileCompleted(ctx context.Context, showName, filename, outputPath string) error
	NotifyFileFailed(ctx context.Context, showName, filename, reason string) error
	NotifyQueueDrained(ctx context.Context, processed, failed int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		sendQueued:    cfg.Notifications.Queued,
		sendCompleted: cfg.Notifications.Completed,
		sendErrors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	sendQueued    bool
	sendCompleted bool
	sendErrors    bool
}

func (n *ntfyService) NotifyFileQueued(ctx context.Context, showName, filename string) error {
	if !n.sendQueued {
		return nil
	}
	showName = strings.TrimSpace(showName)
	filename = strings.TrimSpace(filename)
	data := payload{
		title:   "Airlift - File Queued",
		message: fmt.Sprintf("New file for %s: %s", showName, filename),
		tags:    []string{"airlift", "intake", "queued"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyFileCompleted(ctx context.Context, showName, filename, outputPath string) error {
	if !n.sendCompleted {
		return nil
	}
	showName = strings.TrimSpace(showName)
	filename = strings.TrimSpace(filename)
	message := fmt.Sprintf("Filed for %s: %s", showName, filename)
	if outputPath = strings.TrimSpace(outputPath); outputPath != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, outputPath)
	}
	data := payload{
		title:   "Airlift - File Ready",
		message: message,
		tags:    []string{"airlift", "intake", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyFileFailed(ctx context.Context, showName, filename, reason string) error {
	if !n.sendErrors {
		return nil
	}
	showName = strings.TrimSpace(showName)
	filename = strings.TrimSpace(filename)
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "Airlift - Intake Failed",
		message:  fmt.Sprintf("Failed for %s: %s\nReason: %s", showName, filename, reason),
		tags:     []string{"airlift", "intake", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueDrained(ctx context.Context, processed, failed int) error {
	var title, message string
	if failed == 0 {
		title = "Airlift - Queue Drained"
		message = fmt.Sprintf("Processed %d pending files", processed)
	} else {
		if !n.sendErrors {
			return nil
		}
		title = "Airlift - Queue Drained (with errors)"
		message = fmt.Sprintf("Processed %d pending files, %d failed", processed, failed)
	}
	data := payload{
		title:   title,
		message: message,
		tags:    []string{"airlift", "queue", "drained"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Airlift - Test",
		message:  "Notification system test",
		tags:     []string{"airlift", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyFileQueued(context.Context, string, string) error            { return nil }
func (noopService) NotifyFileCompleted(context.Context, string, string, string) error { return nil }
func (noopService) NotifyFileFailed(context.Context, string, string, string) error    { return nil }
func (noopService) NotifyQueueDrained(context.Context, int, int) error                { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
