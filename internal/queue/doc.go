// Package queue persists intake records in SQLite and owns every state
// transition between pending, processing, completed, and failed. Processing
// claims and retry resets are conditional updates so that exactly one caller
// can transition a record at a time.
package queue
