// Package cache stores export payloads and ledger state behind one small
// key/value interface.
//
// # Backends
//
//   - [FileCache]: JSON files under a directory, the CLI default.
//   - [MemoryCache]: process-local map, used by tests and the server when no
//     backend is configured.
//   - [RedisCache]: a Redis server via go-redis.
//   - [MongoCache]: a MongoDB collection with a TTL index.
//   - [SQLiteCache]: a single-table SQLite database.
//   - [NullCache]: stores nothing.
//
// [Open] builds any of them from a [Config].
//
// # Keys
//
// Keys are produced by a [Keyer] so that every component agrees on their
// layout. [NewScopedKeyer] prefixes keys for per-user isolation.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
// A miss is reported as (nil, false, nil), never as an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A ttl of zero means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer generates cache keys.
type Keyer interface {
	// ExportKey addresses a cached payload by the hash of the exported
	// subtree and the options that affect its output.
	ExportKey(rootHash string, opts ExportKeyOpts) string
	// LedgerKey addresses one ledger record (balance, codes, admin flag).
	LedgerKey(name string) string
}

// ExportKeyOpts are the export options that change the produced payload.
type ExportKeyOpts struct {
	TableLayout bool    `json:"table_layout"`
	Scale       float64 `json:"scale,omitempty"`
	FontDirs    string  `json:"font_dirs,omitempty"`
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard key layout.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ExportKey returns "export:<sha256>".
func (DefaultKeyer) ExportKey(rootHash string, opts ExportKeyOpts) string {
	return hashKey("export", rootHash, opts)
}

// LedgerKey returns "ledger:<name>".
func (DefaultKeyer) LedgerKey(name string) string {
	return "ledger:" + name
}
