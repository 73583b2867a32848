package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"txdash/internal/cache"
	"txdash/internal/core"
	"txdash/internal/export"
	"txdash/internal/query"
	"txdash/internal/storage"
)

// DefaultStoreTimeout bounds each individual store call.
const DefaultStoreTimeout = 7 * time.Second

// MaxExportRows caps the listing included in a workbook export.
const MaxExportRows = 10000

// ReportCaches holds one cache per cached report kind. Nil members disable
// caching for that report.
type ReportCaches struct {
	Statistics cache.Cache[core.Statistics]
	BarChart   cache.Cache[[]core.BarChartEntry]
	PieChart   cache.Cache[[]core.CategoryCount]
}

// ReportService answers the listing and aggregate queries over the store.
type ReportService struct {
	store   storage.Reader
	caches  ReportCaches
	timeout time.Duration
	buckets []query.PriceBucket

	// generation is bumped by Invalidate so results computed against an
	// older dataset are not written back to the cache.
	generation atomic.Uint64
}

func NewReportService(store storage.Reader, caches ReportCaches, timeout time.Duration) *ReportService {
	if caches.Statistics == nil {
		caches.Statistics = cache.Noop[core.Statistics]{}
	}
	if caches.BarChart == nil {
		caches.BarChart = cache.Noop[[]core.BarChartEntry]{}
	}
	if caches.PieChart == nil {
		caches.PieChart = cache.Noop[[]core.CategoryCount]{}
	}
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &ReportService{
		store:   store,
		caches:  caches,
		timeout: timeout,
		buckets: query.PriceBuckets(),
	}
}

// ListTransactions returns one page of the month's records matching search,
// in insertion order.
func (s *ReportService) ListTransactions(ctx context.Context, month time.Month, search string, page query.Page) ([]core.Transaction, error) {
	f := query.All(query.MonthClause{Month: month}, query.SearchPredicate(search))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	txs, err := s.store.Find(ctx, f, page)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

// GetStatistics sums the month's sale amount and counts sold and unsold items.
func (s *ReportService) GetStatistics(ctx context.Context, month time.Month) (core.Statistics, error) {
	return cached(ctx, s, s.caches.Statistics, "stats:"+monthKey(month), func(ctx context.Context) (core.Statistics, error) {
		base := query.All(query.MonthClause{Month: month})

		var stats core.Statistics
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			total, err := s.sumPrice(gctx, base)
			if err != nil {
				return fmt.Errorf("sum sale amount: %w", err)
			}
			stats.TotalSaleAmount = total
			return nil
		})
		g.Go(func() error {
			n, err := s.count(gctx, base.And(query.SoldPredicate(true)))
			if err != nil {
				return fmt.Errorf("count sold items: %w", err)
			}
			stats.TotalSoldItems = n
			return nil
		})
		g.Go(func() error {
			n, err := s.count(gctx, base.And(query.SoldPredicate(false)))
			if err != nil {
				return fmt.Errorf("count unsold items: %w", err)
			}
			stats.TotalNotSoldItems = n
			return nil
		})
		if err := g.Wait(); err != nil {
			return core.Statistics{}, err
		}
		return stats, nil
	})
}

// GetBarChart counts the month's records per fixed price bucket.
func (s *ReportService) GetBarChart(ctx context.Context, month time.Month) ([]core.BarChartEntry, error) {
	return cached(ctx, s, s.caches.BarChart, "bar:"+monthKey(month), func(ctx context.Context) ([]core.BarChartEntry, error) {
		base := query.All(query.MonthClause{Month: month})
		entries := make([]core.BarChartEntry, len(s.buckets))

		g, gctx := errgroup.WithContext(ctx)
		for i, b := range s.buckets {
			entries[i].Range = b.Label
			g.Go(func() error {
				n, err := s.count(gctx, base.And(b.Range))
				if err != nil {
					return fmt.Errorf("count bucket %s: %w", b.Label, err)
				}
				entries[i].Count = n
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return entries, nil
	})
}

// GetPieChart groups the month's records by category.
func (s *ReportService) GetPieChart(ctx context.Context, month time.Month) ([]core.CategoryCount, error) {
	return cached(ctx, s, s.caches.PieChart, "pie:"+monthKey(month), func(ctx context.Context) ([]core.CategoryCount, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		counts, err := s.store.CountByCategory(ctx, query.All(query.MonthClause{Month: month}))
		if err != nil {
			return nil, fmt.Errorf("count by category: %w", err)
		}
		if counts == nil {
			counts = []core.CategoryCount{}
		}
		return counts, nil
	})
}

// GetAllData computes the three reports concurrently. Any failure fails the
// whole call.
func (s *ReportService) GetAllData(ctx context.Context, month time.Month) (core.AllData, error) {
	var out core.AllData

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.GetStatistics(gctx, month)
		out.Statistics = stats
		return err
	})
	g.Go(func() error {
		bars, err := s.GetBarChart(gctx, month)
		out.BarChart = bars
		return err
	})
	g.Go(func() error {
		pie, err := s.GetPieChart(gctx, month)
		out.PieChart = pie
		return err
	})
	if err := g.Wait(); err != nil {
		return core.AllData{}, fmt.Errorf("all data: %w", err)
	}
	return out, nil
}

// ExportReport gathers the month's matching records (up to MaxExportRows)
// together with the three reports.
func (s *ReportService) ExportReport(ctx context.Context, month time.Month, search string) (export.Report, error) {
	report := export.Report{Month: month, Search: search}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page := query.Page{Number: 1, Size: query.MaxPerPage}
		for len(report.Transactions) < MaxExportRows {
			batch, err := s.ListTransactions(gctx, month, search, page)
			if err != nil {
				return err
			}
			report.Transactions = append(report.Transactions, batch...)
			if len(batch) < page.Size {
				break
			}
			page.Number++
		}
		if len(report.Transactions) > MaxExportRows {
			report.Transactions = report.Transactions[:MaxExportRows]
		}
		return nil
	})
	g.Go(func() error {
		data, err := s.GetAllData(gctx, month)
		report.Data = data
		return err
	})
	if err := g.Wait(); err != nil {
		return export.Report{}, fmt.Errorf("export report: %w", err)
	}
	return report, nil
}

// Invalidate drops every cached report. Called after the dataset changes.
func (s *ReportService) Invalidate(ctx context.Context) error {
	s.generation.Add(1)

	err := errors.Join(
		s.caches.Statistics.Purge(ctx),
		s.caches.BarChart.Purge(ctx),
		s.caches.PieChart.Purge(ctx),
	)
	if err != nil {
		return fmt.Errorf("invalidate report cache: %w", err)
	}
	slog.InfoContext(ctx, "Report cache invalidated")
	return nil
}

func (s *ReportService) count(ctx context.Context, f query.Filter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.Count(ctx, f)
}

func (s *ReportService) sumPrice(ctx context.Context, f query.Filter) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.SumPrice(ctx, f)
}

func cached[T any](ctx context.Context, s *ReportService, c cache.Cache[T], key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(ctx, key); ok {
		slog.DebugContext(ctx, "Report cache hit", "key", key)
		return v, nil
	}

	gen := s.generation.Load()
	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if s.generation.Load() == gen {
		c.Set(ctx, key, v)
	}
	return v, nil
}

func monthKey(m time.Month) string {
	return strconv.Itoa(int(m))
}
