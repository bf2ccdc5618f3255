package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queued file.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the record's lifecycle. A failed
// record can still be re-opened through an explicit retry.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Item represents one file's journey through intake, persisted in SQLite.
type Item struct {
	ID               int64
	ShowID           string
	Filename         string
	SourcePath       string
	OutputPath       string
	Status           Status
	ErrorMessage     string
	BytesProcessed   int64
	ConflictResolved bool
	ProcessDuration  time.Duration
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

// SetFailed marks the item as failed with the given error message.
func (i *Item) SetFailed(message string, elapsed time.Duration) {
	now := time.Now().UTC()
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProcessDuration = elapsed
	i.CompletedAt = &now
}

// SetCompleted marks the item as successfully relocated.
func (i *Item) SetCompleted(outputPath string, bytes int64, conflictResolved bool, elapsed time.Duration) {
	now := time.Now().UTC()
	i.Status = StatusCompleted
	i.OutputPath = outputPath
	i.BytesProcessed = bytes
	i.ConflictResolved = conflictResolved
	i.ErrorMessage = ""
	i.ProcessDuration = elapsed
	i.CompletedAt = &now
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}
