// Package watcher observes show watch directories with fsnotify, filters
// events against show patterns, and hands over files once their contents
// have stopped changing.
package watcher
