// Package storage is the key/value store behind per-device flags, consent
// blobs and the cached account snapshot.
//
// RedisStore is used when a Redis address is configured; MemoryStore
// otherwise and in tests.
package storage
