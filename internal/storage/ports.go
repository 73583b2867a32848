package storage

import (
	"context"

	"txdash/internal/core"
	"txdash/internal/query"
)

// Ports implemented by the record store backends.
type (
	// Reader answers filter, count and aggregate queries over transactions.
	Reader interface {
		// Find returns matching records in insertion order, paginated.
		Find(ctx context.Context, f query.Filter, page query.Page) ([]core.Transaction, error)
		// Count returns the number of matching records.
		Count(ctx context.Context, f query.Filter) (int64, error)
		// SumPrice returns the sum of price over matching records, 0 if none.
		SumPrice(ctx context.Context, f query.Filter) (float64, error)
		// CountByCategory groups matching records by category, sorted by name.
		CountByCategory(ctx context.Context, f query.Filter) ([]core.CategoryCount, error)
	}

	// Writer is used only by the seed operation.
	Writer interface {
		// InsertMany appends all records and returns how many were stored.
		InsertMany(ctx context.Context, txs []core.Transaction) (int, error)
		// Replace atomically removes every record and inserts txs.
		Replace(ctx context.Context, txs []core.Transaction) (int, error)
	}

	// Store is a complete record store.
	Store interface {
		Reader
		Writer
		Ping(ctx context.Context) error
		Close() error
	}
)
