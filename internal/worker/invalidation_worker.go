package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"txdash/internal/amqp"
	"txdash/internal/services"
)

const defaultRetention = time.Hour

// InvalidationWorker drops cached reports when another replica reseeds the
// shared store. Batches seeded by this process were already invalidated
// locally and are ignored, as are redeliveries of handled batches.
type InvalidationWorker struct {
	invalidator services.Invalidator
	retention   time.Duration
	now         func() time.Time

	mu   sync.Mutex
	seen map[uuid.UUID]time.Time
}

func NewInvalidationWorker(invalidator services.Invalidator) *InvalidationWorker {
	return &InvalidationWorker{
		invalidator: invalidator,
		retention:   defaultRetention,
		now:         time.Now,
		seen:        make(map[uuid.UUID]time.Time),
	}
}

// HandleDatasetSeeded processes a single dataset event from AMQP
func (w *InvalidationWorker) HandleDatasetSeeded(ctx context.Context, msg *amqp.DatasetSeededMessage) error {
	if w.alreadySeen(msg.BatchID) {
		slog.DebugContext(ctx, "Skipping known dataset batch", "batch_id", msg.BatchID)
		return nil
	}

	slog.InfoContext(ctx, "Processing dataset event",
		"batch_id", msg.BatchID,
		"policy", msg.Policy,
		"count", msg.Count)

	if err := w.invalidator.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate report cache: %w", err)
	}
	w.remember(msg.BatchID)
	return nil
}

// Publisher wraps pub so that batches published from this process are
// remembered before they come back through the fanout exchange.
func (w *InvalidationWorker) Publisher(pub services.EventPublisher) services.EventPublisher {
	return publisherFunc(func(ctx context.Context, msg *amqp.DatasetSeededMessage) error {
		w.remember(msg.BatchID)
		return pub.PublishDatasetSeeded(ctx, msg)
	})
}

func (w *InvalidationWorker) alreadySeen(id uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.seen[id]
	return ok
}

func (w *InvalidationWorker) remember(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for k, at := range w.seen {
		if now.Sub(at) > w.retention {
			delete(w.seen, k)
		}
	}
	w.seen[id] = now
}

type publisherFunc func(ctx context.Context, msg *amqp.DatasetSeededMessage) error

func (f publisherFunc) PublishDatasetSeeded(ctx context.Context, msg *amqp.DatasetSeededMessage) error {
	return f(ctx, msg)
}
