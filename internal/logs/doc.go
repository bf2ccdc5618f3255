// Package logs reads the daemon log file for CLI display: trailing lines,
// incremental reads from an offset, and poll-based following with bounded
// memory usage.
package logs
