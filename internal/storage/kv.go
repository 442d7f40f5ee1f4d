// Package storage provides the embedded key-value engine behind the
// persistent preference store.
package storage

import (
	"context"
	"errors"
	"io"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("storage: key not found")
	ErrClosed      = errors.New("storage: engine closed")
)

// KV is the subset of an embedded key-value engine the preference store
// relies on. Implementations must be safe for concurrent use.
type KV interface {
	// Get returns ErrKeyNotFound if key doesn't exist.
	Get(ctx context.Context, key []byte) ([]byte, error)

	Set(ctx context.Context, key, value []byte) error

	Delete(ctx context.Context, key []byte) error

	// Scan visits keys with the given prefix in key order.
	// The callback returns false to stop iteration.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	// DropPrefix removes every key with the given prefix.
	DropPrefix(ctx context.Context, prefix []byte) error

	// Backup streams a full dump of the engine to w.
	Backup(ctx context.Context, w io.Writer) error

	Close() error
}

// KVStats contains storage engine statistics.
type KVStats struct {
	// TotalSize is the total disk usage in bytes.
	TotalSize uint64

	LSMSize      uint64
	ValueLogSize uint64

	// LastGCTime is the last GC run timestamp (Unix milliseconds).
	LastGCTime int64
	GCRuns     uint64
}

// KVConfig configures the embedded engine.
type KVConfig struct {
	// Dir is the storage directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in RAM; used by tests and dry runs.
	InMemory bool

	Badger BadgerConfig
}

// BadgerConfig contains Badger tuning parameters. Preference data is
// small, so the defaults are far below Badger's own.
type BadgerConfig struct {
	// GCInterval is the interval between automatic value log GC runs.
	GCInterval string

	// GCThreshold is the discard ratio passed to RunValueLogGC.
	GCThreshold float64

	CacheSize        int64
	ValueLogFileSize int64
	NumMemtables     int

	// SyncWrites fsyncs every write. Preferences are user state, so this
	// defaults to on.
	SyncWrites bool
}

// DefaultKVConfig returns the default configuration rooted at dir.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "10m",
		GCThreshold:      0.5,
		CacheSize:        8 << 20,  // 8MB
		ValueLogFileSize: 64 << 20, // 64MB
		NumMemtables:     2,
		SyncWrites:       true,
	}
}
