// Package daemon coordinates the long-running Airlift process. It wires
// configuration, the queue store, the show source, and the intake engine
// into a single lifecycle with flock-based locking to prevent multiple
// instances, and exposes the queue maintenance surface used by the CLI.
package daemon
