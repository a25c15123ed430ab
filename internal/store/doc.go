// Package store persists the movie collection behind an opaque key-value
// boundary.
//
// The whole collection is serialized as a single JSON blob (movie.Encode)
// and written under one fixed key, replacing whatever was there. There are no
// partial updates.
//
// # Backends
//
//   - memory: process-local map, used by tests and one-shot demos
//   - sqlite: single kv table, WAL mode, user_version migrations
//   - badger: embedded LSM key-value store
//   - s3: one object per key in a bucket (AWS S3 or MinIO)
//   - file: one JSON file per key in a directory, with change watching
//
// Store wraps a Backend with the codec, logging and metrics. Load reports
// found=false when the key has never been written; callers substitute the
// default dataset.
package store
