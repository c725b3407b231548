package snapshot

import (
	"os"
	"strconv"
	"time"
)

// StoreConfig controls snapshot payload storage and read caching.
type StoreConfig struct {
	Dir        string        // Directory for payload database files.
	InMemory   bool          // In-memory payload store (tests). Default false.
	SyncWrites bool          // Synchronous payload writes. Default true.
	CacheSize  int           // Max cached decoded record sets. Default 32.
	CacheTTL   time.Duration // Cache entry TTL. Default 5m.
}

// DefaultStoreConfig returns the default snapshot store configuration.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Dir:        "/var/lib/manifold/snapshots",
		SyncWrites: true,
		CacheSize:  32,
		CacheTTL:   5 * time.Minute,
	}
}

// StoreConfigFromEnv loads config from environment variables.
// ROLLBACK_SNAPSHOT_DIR, ROLLBACK_SNAPSHOT_SYNC_WRITES,
// ROLLBACK_SNAPSHOT_CACHE_SIZE, ROLLBACK_SNAPSHOT_CACHE_TTL_SECONDS
func StoreConfigFromEnv() *StoreConfig {
	cfg := DefaultStoreConfig()

	if v := os.Getenv("ROLLBACK_SNAPSHOT_DIR"); v != "" {
		cfg.Dir = v
	}

	if v := os.Getenv("ROLLBACK_SNAPSHOT_SYNC_WRITES"); v != "" {
		cfg.SyncWrites, _ = strconv.ParseBool(v)
	}

	if v := os.Getenv("ROLLBACK_SNAPSHOT_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheSize = n
		}
	}

	if v := os.Getenv("ROLLBACK_SNAPSHOT_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheTTL = time.Duration(n) * time.Second
		}
	}

	return cfg
}
