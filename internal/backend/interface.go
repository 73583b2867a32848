package backend

import (
	"context"
	"time"

	"txdash/internal/cache"
	"txdash/internal/services"
	"txdash/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store instance and optional cleanup function
type BackendResult struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

// CacheResult holds the report caches and the manager sweeping them.
type CacheResult struct {
	Caches  services.ReportCaches
	Manager *cache.Manager
	Cleanup CleanupFunc
}

// Factory creates stores and report caches based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateReportCaches(ctx context.Context, config CacheConfig) (*CacheResult, error)
}

// Config holds configuration for store creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// MySQL specific
	MySQLDSN string

	// Memory backend specific: optional JSON array preloaded at startup
	MemoryDataFile string
}

// CacheConfig holds configuration for the report caches
type CacheConfig struct {
	Type      CacheType
	Size      int
	TTL       time.Duration
	RedisAddr string
	// Redis key prefix; keeps replicas of different deployments apart
	RedisPrefix string
}

// BackendType represents the type of record store
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MySQLBackend  BackendType = "mysql"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MySQLBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// CacheType represents the report cache implementation
type CacheType string

const (
	LRUCache   CacheType = "lru"
	RedisCache CacheType = "redis"
	NoCache    CacheType = "none"
)

func (ct CacheType) IsValid() bool {
	switch ct {
	case LRUCache, RedisCache, NoCache:
		return true
	default:
		return false
	}
}
