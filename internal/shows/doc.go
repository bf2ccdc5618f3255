// Package shows loads show profiles: the per-show watch patterns, output
// locations, and naming templates consumed by the intake engine.
package shows
