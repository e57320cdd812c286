// Package cache keeps the last known transfer count across sessions.
package cache

import (
	"fmt"
	"path/filepath"
)

// CountKey is the single key the cache stores.
const CountKey = "transactionCount"

// Backend names accepted by Open.
const (
	BackendFile    = "file"
	BackendLevelDB = "leveldb"
)

// Cache is a durable shadow of the on-chain transfer count.
type Cache interface {
	// ReadCount returns the cached count; ok is false if it was never written.
	ReadCount() (n uint64, ok bool, err error)
	// WriteCount overwrites the cached count.
	WriteCount(n uint64) error
	Close() error
}

// Open returns the backend named by backend, storing its data under dir.
// An empty backend means BackendFile.
func Open(backend, dir string) (Cache, error) {
	switch backend {
	case "", BackendFile:
		return NewFileCache(filepath.Join(dir, "cache.json")), nil
	case BackendLevelDB:
		return OpenLevelDB(filepath.Join(dir, "cache.ldb"))
	default:
		return nil, fmt.Errorf("unknown cache backend %q (want %s or %s)", backend, BackendFile, BackendLevelDB)
	}
}
