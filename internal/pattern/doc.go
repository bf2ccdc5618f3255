// Package pattern converts show file patterns (glob syntax) into anchored,
// case-insensitive match predicates.
package pattern
