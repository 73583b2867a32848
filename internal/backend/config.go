package backend

import (
	"fmt"

	"txdash/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	cfg := Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		MySQLDSN:     appConfig.MySQLDSN,
	}
	if backendType == MemoryBackend {
		cfg.MemoryDataFile = appConfig.SeedFile
	}
	return cfg, nil
}

// CacheConfigFromAppConfig converts the application config to cache config
func CacheConfigFromAppConfig(appConfig *config.Config) (CacheConfig, error) {
	if appConfig == nil {
		return CacheConfig{}, fmt.Errorf("app config is nil")
	}

	cacheType := CacheType(appConfig.ReportCache)
	if !cacheType.IsValid() {
		return CacheConfig{}, fmt.Errorf("invalid report cache in config: %s", appConfig.ReportCache)
	}

	return CacheConfig{
		Type:        cacheType,
		Size:        appConfig.ReportCacheSize,
		TTL:         appConfig.ReportCacheTTL,
		RedisAddr:   appConfig.RedisAddr,
		RedisPrefix: "txdash:reports:",
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MySQLBackend:
		if c.MySQLDSN == "" {
			return fmt.Errorf("MySQL DSN is required for mysql backend")
		}
	}

	return nil
}

// Validate validates the cache configuration
func (c CacheConfig) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid report cache: %s", c.Type)
	}

	switch c.Type {
	case LRUCache:
		if c.Size < 1 {
			return fmt.Errorf("LRU report cache needs a positive size, got %d", c.Size)
		}
		if c.TTL <= 0 {
			return fmt.Errorf("report cache TTL must be positive, got %v", c.TTL)
		}
	case RedisCache:
		if c.RedisAddr == "" {
			return fmt.Errorf("Redis address is required for redis report cache")
		}
		if c.TTL <= 0 {
			return fmt.Errorf("report cache TTL must be positive, got %v", c.TTL)
		}
	}

	return nil
}
