package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key string) (T, bool)

	// Set stores a value in the cache
	Set(ctx context.Context, key string, data T)

	// Delete removes a key from the cache
	Delete(ctx context.Context, key string)

	// Purge removes every entry owned by this cache
	Purge(ctx context.Context) error
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
	stopOnce    sync.Once
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{
		caches:      make([]Cleaner, 0),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup. Caches that do not expire
// entries locally (Redis, Noop) are ignored.
func (m *Manager) Register(c any) {
	if cleaner, ok := c.(Cleaner); ok {
		m.caches = append(m.caches, cleaner)
	}
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			totalCleaned := 0
			for _, c := range m.caches {
				totalCleaned += c.CleanExpired()
			}
			if totalCleaned > 0 {
				slog.Debug("Cleaned expired cache entries", "removed", totalCleaned)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		if m.started {
			<-m.cleanupDone
		}
	})
}

// Noop never stores anything. Used when report caching is disabled.
type Noop[T any] struct{}

func (Noop[T]) Get(context.Context, string) (T, bool) {
	var zero T
	return zero, false
}

func (Noop[T]) Set(context.Context, string, T) {}
func (Noop[T]) Delete(context.Context, string) {}
func (Noop[T]) Purge(context.Context) error { return nil }
