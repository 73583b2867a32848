package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"txdash/internal/cache"
	"txdash/internal/core"
	"txdash/internal/services"
	"txdash/internal/storage"
	"txdash/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MySQLBackend:
		return f.createMySQLBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMySQLBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewMySQLRepository(config.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MySQL repository: %w", err)
	}

	f.logger.Info("Initialized MySQL backend")

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.New()
	if config.MemoryDataFile != "" {
		var err error
		store, err = memory.NewFromFile(config.MemoryDataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load memory backend data: %w", err)
		}
	}

	f.logger.Info("Initialized memory backend", "data_file", config.MemoryDataFile, "records", store.Len())

	return &BackendResult{
		Store:   store,
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}

// CreateReportCaches implements Factory.CreateReportCaches
func (f *DefaultFactory) CreateReportCaches(ctx context.Context, config CacheConfig) (*CacheResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	manager := cache.NewManager()

	switch config.Type {
	case LRUCache:
		stats := cache.NewLRUCache[core.Statistics](config.Size, config.TTL)
		bar := cache.NewLRUCache[[]core.BarChartEntry](config.Size, config.TTL)
		pie := cache.NewLRUCache[[]core.CategoryCount](config.Size, config.TTL)
		manager.Register(stats)
		manager.Register(bar)
		manager.Register(pie)

		f.logger.Info("Initialized LRU report cache", "size", config.Size, "ttl", config.TTL)

		return &CacheResult{
			Caches:  services.ReportCaches{Statistics: stats, BarChart: bar, PieChart: pie},
			Manager: manager,
		}, nil

	case RedisCache:
		client := redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			PoolSize: 20,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect redis at %s: %w", config.RedisAddr, err)
		}

		f.logger.Info("Initialized Redis report cache", "addr", config.RedisAddr, "ttl", config.TTL)

		return &CacheResult{
			Caches: services.ReportCaches{
				Statistics: cache.NewRedisCache[core.Statistics](client, config.RedisPrefix, config.TTL),
				BarChart:   cache.NewRedisCache[[]core.BarChartEntry](client, config.RedisPrefix, config.TTL),
				PieChart:   cache.NewRedisCache[[]core.CategoryCount](client, config.RedisPrefix, config.TTL),
			},
			Manager: manager,
			Cleanup: client.Close,
		}, nil

	default:
		f.logger.Info("Report cache disabled")
		return &CacheResult{Manager: manager}, nil
	}
}
