package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"txdash/internal/amqp"
	"txdash/internal/core"
	"txdash/internal/query"
	"txdash/internal/seed"
	"txdash/internal/storage"
)

// SeedPolicy decides what happens to existing records when seeding.
type SeedPolicy string

const (
	// PolicyReplace truncates the store and inserts the fetched records in one step.
	PolicyReplace SeedPolicy = "replace"
	// PolicySkipIfPopulated leaves a non-empty store untouched.
	PolicySkipIfPopulated SeedPolicy = "skip-if-populated"
	// PolicyAppend inserts on top of whatever is stored, duplicating on repeat.
	PolicyAppend SeedPolicy = "append"
)

var ErrUnknownPolicy = errors.New("unknown seed policy")

// ErrEmptyDataset is returned when the replace policy would empty the store.
var ErrEmptyDataset = errors.New("seed source returned no records")

func ParseSeedPolicy(s string) (SeedPolicy, error) {
	switch p := SeedPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyReplace, nil
	case PolicyReplace, PolicySkipIfPopulated, PolicyAppend:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// SeedResult summarises one Initialize call.
type SeedResult struct {
	BatchID  uuid.UUID
	Policy   SeedPolicy
	Fetched  int
	Inserted int
	Skipped  bool
}

// SeedStore is the part of the record store the seed operation needs.
type SeedStore interface {
	storage.Writer
	Count(ctx context.Context, f query.Filter) (int64, error)
}

// Invalidator drops derived data once the dataset changes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// EventPublisher announces completed seeds to other replicas.
type EventPublisher interface {
	PublishDatasetSeeded(ctx context.Context, msg *amqp.DatasetSeededMessage) error
}

type SeedOptions struct {
	Policy SeedPolicy
	// Strict rejects the whole batch when any record fails validation.
	Strict      bool
	Invalidator Invalidator
	Publisher   EventPublisher
}

// SeedService loads the dataset from a source into the store.
type SeedService struct {
	store  SeedStore
	source seed.Source
	opts   SeedOptions

	mu sync.Mutex
}

func NewSeedService(store SeedStore, source seed.Source, opts SeedOptions) *SeedService {
	if opts.Policy == "" {
		opts.Policy = PolicyReplace
	}
	return &SeedService{
		store:  store,
		source: source,
		opts:   opts,
	}
}

func (s *SeedService) Policy() SeedPolicy {
	return s.opts.Policy
}

// Initialize fetches the dataset and stores it according to the policy.
// Calls are serialized.
func (s *SeedService) Initialize(ctx context.Context) (SeedResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := SeedResult{BatchID: uuid.New(), Policy: s.opts.Policy}
	logger := slog.With("batch_id", result.BatchID, "policy", result.Policy)

	if s.opts.Policy == PolicySkipIfPopulated {
		n, err := s.store.Count(ctx, query.All())
		if err != nil {
			return result, fmt.Errorf("count existing records: %w", err)
		}
		if n > 0 {
			result.Skipped = true
			logger.InfoContext(ctx, "Store already populated, skipping seed", "existing", n)
			return result, nil
		}
	}

	txs, err := s.source.Fetch(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch seed data: %w", err)
	}
	result.Fetched = len(txs)

	if len(txs) == 0 {
		if s.opts.Policy == PolicyReplace {
			return result, fmt.Errorf("refusing to replace stored records: %w", ErrEmptyDataset)
		}
		logger.WarnContext(ctx, "Seed source returned no records")
	}

	if s.opts.Strict {
		if err := validateAll(txs); err != nil {
			return result, err
		}
	}

	switch s.opts.Policy {
	case PolicyAppend:
		result.Inserted, err = s.store.InsertMany(ctx, txs)
	default:
		result.Inserted, err = s.store.Replace(ctx, txs)
	}
	if err != nil {
		return result, fmt.Errorf("store seed data: %w", err)
	}

	logger.InfoContext(ctx, "Seeded transactions",
		"fetched", result.Fetched,
		"inserted", result.Inserted,
		"duration_ms", time.Since(start).Milliseconds())

	s.afterSeed(ctx, result)
	return result, nil
}

func (s *SeedService) afterSeed(ctx context.Context, result SeedResult) {
	if s.opts.Invalidator != nil {
		if err := s.opts.Invalidator.Invalidate(ctx); err != nil {
			slog.ErrorContext(ctx, "Failed to invalidate report cache", "error", err)
		}
	}

	if s.opts.Publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping dataset event")
		return
	}
	msg := amqp.NewDatasetSeededMessage(result.BatchID, result.Inserted, string(result.Policy))
	if err := s.opts.Publisher.PublishDatasetSeeded(ctx, msg); err != nil {
		// The seed itself succeeded; other replicas fall back to cache TTL.
		slog.ErrorContext(ctx, "Failed to publish dataset seeded message",
			"batch_id", result.BatchID, "error", err)
	}
}

func validateAll(txs []core.Transaction) error {
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("validate record %d (product %q): %w", i, tx.ProductID, err)
		}
	}
	return nil
}
