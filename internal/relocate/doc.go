// Package relocate validates detected audio files and copies them into a
// show's output directory, applying the show's naming template, filename
// sanitization, and numeric-suffix conflict resolution.
package relocate
