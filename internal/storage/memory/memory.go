package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"txdash/internal/core"
	"txdash/internal/query"
)

// Store keeps transactions in insertion order behind a RWMutex.
type Store struct {
	mu    sync.RWMutex
	items []core.Transaction
}

func New(items ...core.Transaction) *Store {
	return &Store{items: append([]core.Transaction(nil), items...)}
}

// NewFromFile loads a JSON array of transactions, the same shape the seed
// source serves. A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(), nil
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var items []core.Transaction
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return New(items...), nil
}

func (s *Store) Find(_ context.Context, f query.Filter, page query.Page) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Transaction, 0, page.Limit())
	skipped := 0
	for _, tx := range s.items {
		if !f.Match(tx) {
			continue
		}
		if skipped < page.Offset() {
			skipped++
			continue
		}
		if len(out) == page.Limit() {
			break
		}
		out = append(out, tx)
	}
	return out, nil
}

func (s *Store) Count(_ context.Context, f query.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, tx := range s.items {
		if f.Match(tx) {
			n++
		}
	}
	return n, nil
}

func (s *Store) SumPrice(_ context.Context, f query.Filter) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var prices []float64
	for _, tx := range s.items {
		if f.Match(tx) {
			prices = append(prices, tx.Price)
		}
	}
	return core.SumPrices(prices), nil
}

func (s *Store) CountByCategory(_ context.Context, f query.Filter) ([]core.CategoryCount, error) {
	s.mu.RLock()
	counts := map[string]int64{}
	for _, tx := range s.items {
		if f.Match(tx) {
			counts[tx.Category]++
		}
	}
	s.mu.RUnlock()

	out := make([]core.CategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, core.CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) InsertMany(_ context.Context, txs []core.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, txs...)
	return len(txs), nil
}

func (s *Store) Replace(_ context.Context, txs []core.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.Transaction(nil), txs...)
	return len(txs), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
