// Package notifications sends intake lifecycle events to an ntfy topic.
// Notifications supplement the queue record and never replace it; when no
// topic is configured every notification is a no-op.
package notifications
