// Package engine orchestrates the intake pipeline: per-show directory
// watchers feed the queue, and the engine drives each queued file through
// claim, relocation, and a terminal state. Failures stay on the record and
// are retried only by explicit request.
package engine
