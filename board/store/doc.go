// Package store persists dashboard snapshots so counters survive restarts.
//
// Two implementations of SnapshotStore are provided:
//   - FileStore: one indented JSON file inside a directory
//   - RedisStore: one JSON value under a single redis key
//
// Nop discards everything and is used when persistence is disabled.
// Load returns ErrNoSnapshot when nothing has been saved yet.
package store
