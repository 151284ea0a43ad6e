package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/mailframe/pkg/observability"
)

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// Config selects and parameterizes a backend.
type Config struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`

	RedisAddr   string `toml:"redis_addr"`
	RedisPrefix string `toml:"redis_prefix"`

	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`

	SQLitePath string `toml:"sqlite_path"`
}

// Open builds the configured backend wrapped with observability hooks.
// An empty backend means file.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch cfg.Backend {
	case "", BackendFile:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file cache: no directory configured")
		}
		c, err = NewFileCache(cfg.Dir)
	case BackendMemory:
		c = NewMemoryCache()
	case BackendRedis:
		c, err = NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPrefix)
	case BackendMongo:
		c, err = NewMongoCache(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	case BackendSQLite:
		c, err = NewSQLiteCache(ctx, cfg.SQLitePath)
	case BackendNone:
		c = NewNullCache()
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%s cache: %w", cfg.Backend, err)
	}
	return Instrument(c), nil
}

// Instrument reports hits, misses and writes of c to the registered
// [observability.CacheHooks].
func Instrument(c Cache) Cache {
	if _, ok := c.(*instrumented); ok {
		return c
	}
	return &instrumented{Cache: c}
}

// Unwrap returns the backend beneath an [Instrument] wrapper.
func Unwrap(c Cache) Cache {
	if i, ok := c.(*instrumented); ok {
		return i.Cache
	}
	return c
}

type instrumented struct {
	Cache
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, keyType(key))
		} else {
			observability.Cache().OnCacheMiss(ctx, keyType(key))
		}
	}
	return data, ok, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	return nil
}
