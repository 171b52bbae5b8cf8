// Package tagcache persists tag values read from slice files in a SQLite
// database keyed by file content hash. Because the key is derived from the
// bytes themselves, renamed or moved files keep their cached values and
// modified files miss the cache automatically.
package tagcache
