// Package watcher follows the records root with fsnotify and reindexes
// attachments when they are added or replaced.
//
// Raw events are debounced per path, because editors and copy tools emit
// several writes for one logical change, and delivered in sorted batches
// to a Handler that drives the indexer one attachment at a time.
package watcher
