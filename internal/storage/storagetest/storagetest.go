// Package storagetest holds a fixture dataset and a behavioural test suite
// shared by every storage.Store implementation.
package storagetest

import (
	"context"
	"math"
	"testing"
	"time"

	"txdash/internal/core"
	"txdash/internal/query"
	"txdash/internal/storage"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

// Fixtures returns a small dataset spanning two years. March holds twelve
// records (seven sold), with prices on both sides of bucket boundaries.
func Fixtures() []core.Transaction {
	return []core.Transaction{
		{ProductID: "1", Title: "Fjallraven Backpack", Description: "Perfect pack for everyday use", Price: 109.95, Category: "men's clothing", DateOfSale: date(2021, time.March, 1), Sold: true},
		{ProductID: "2", Title: "Mens Casual T-Shirt", Description: "Slim-fitting style", Price: 22.3, Category: "men's clothing", DateOfSale: date(2022, time.March, 2), Sold: false},
		{ProductID: "3", Title: "Mens Cotton Jacket", Description: "Great outerwear jackets", Price: 55.99, Category: "men's clothing", DateOfSale: date(2021, time.March, 3), Sold: true},
		{ProductID: "4", Title: "Solid Gold Petite Micropave", Description: "Satisfaction guaranteed", Price: 168, Category: "jewelery", DateOfSale: date(2022, time.March, 4), Sold: false},
		{ProductID: "5", Title: "White Gold Plated Princess", Description: "Classic wedding ring", Price: 9.99, Category: "jewelery", DateOfSale: date(2021, time.March, 5), Sold: true},
		{ProductID: "6", Title: "WD 2TB Elements Portable Drive", Description: "USB 3.0 and USB 2.0 compatibility", Price: 64, Category: "electronics", DateOfSale: date(2022, time.March, 6), Sold: true},
		{ProductID: "7", Title: "Samsung 49-Inch Gaming Monitor", Description: "49 inch super ultrawide", Price: 999.99, Category: "electronics", DateOfSale: date(2021, time.March, 7), Sold: false},
		{ProductID: "8", Title: "Acer SB220Q Monitor", Description: "21.5 inches Full HD widescreen", Price: 599, Category: "electronics", DateOfSale: date(2022, time.March, 8), Sold: true},
		{ProductID: "9", Title: "Silicon Power SSD", Description: "3D NAND flash", Price: 100, Category: "electronics", DateOfSale: date(2021, time.March, 9), Sold: false},
		{ProductID: "10", Title: "SanDisk SSD PLUS", Description: "Easy upgrade for faster boot", Price: 100.5, Category: "electronics", DateOfSale: date(2022, time.March, 10), Sold: true},
		{ProductID: "11", Title: "Rain Jacket Women", Description: "Lightweight perfect for trip", Price: 39.99, Category: "women's clothing", DateOfSale: date(2021, time.March, 11), Sold: true},
		{ProductID: "12", Title: "Opna Short Sleeve", Description: "100% polyester, moisture wicking", Price: 7.95, Category: "women's clothing", DateOfSale: date(2022, time.March, 12), Sold: false},
		{ProductID: "13", Title: "Womens Casual Boat Neck", Description: "Lightweight fabric", Price: 9.85, Category: "women's clothing", DateOfSale: date(2021, time.April, 1), Sold: true},
		{ProductID: "14", Title: "Lock and Love Jacket", Description: "Faux leather", Price: 29.95, Category: "women's clothing", DateOfSale: date(2022, time.June, 20), Sold: false},
		{ProductID: "15", Title: "Pierced Owl Rose Gold", Description: "Rose gold plated double flared tunnel", Price: 10.99, Category: "jewelery", DateOfSale: date(2021, time.November, 27), Sold: true},
	}
}

// MonthCount is the number of fixture records sold in the given month.
func MonthCount(m time.Month) int64 {
	var n int64
	for _, tx := range Fixtures() {
		if tx.SaleMonth() == m {
			n++
		}
	}
	return n
}

// RunReaderSuite seeds a fresh store from newStore with Fixtures and checks
// the Reader and Writer contracts.
func RunReaderSuite(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()
	ctx := context.Background()

	seeded := func(t *testing.T) storage.Store {
		t.Helper()
		s := newStore(t)
		n, err := s.InsertMany(ctx, Fixtures())
		if err != nil {
			t.Fatalf("InsertMany: %v", err)
		}
		if n != len(Fixtures()) {
			t.Fatalf("InsertMany stored %d, want %d", n, len(Fixtures()))
		}
		return s
	}

	march := query.All(query.MonthClause{Month: time.March})

	t.Run("month matches across years", func(t *testing.T) {
		s := seeded(t)
		n, err := s.Count(ctx, march)
		if err != nil {
			t.Fatalf("Count: %v", err)
		}
		if n != 12 {
			t.Errorf("Count(March) = %d, want 12", n)
		}
		n, _ = s.Count(ctx, query.All(query.MonthClause{Month: time.February}))
		if n != 0 {
			t.Errorf("Count(February) = %d, want 0", n)
		}
	})

	t.Run("sold partition", func(t *testing.T) {
		s := seeded(t)
		sold, err := s.Count(ctx, march.And(query.SoldPredicate(true)))
		if err != nil {
			t.Fatalf("Count sold: %v", err)
		}
		notSold, err := s.Count(ctx, march.And(query.SoldPredicate(false)))
		if err != nil {
			t.Fatalf("Count not sold: %v", err)
		}
		if sold != 7 || notSold != 5 {
			t.Errorf("sold/notSold = %d/%d, want 7/5", sold, notSold)
		}
	})

	t.Run("sum price", func(t *testing.T) {
		s := seeded(t)
		total, err := s.SumPrice(ctx, march)
		if err != nil {
			t.Fatalf("SumPrice: %v", err)
		}
		if total != 2277.66 {
			t.Errorf("SumPrice(March) = %v, want 2277.66", total)
		}
		empty, err := s.SumPrice(ctx, query.All(query.MonthClause{Month: time.January}))
		if err != nil {
			t.Fatalf("SumPrice empty: %v", err)
		}
		if empty != 0 {
			t.Errorf("SumPrice(January) = %v, want 0", empty)
		}
	})

	t.Run("price range", func(t *testing.T) {
		s := seeded(t)
		n, err := s.Count(ctx, march.And(query.PriceRangePredicate(0, 101)))
		if err != nil {
			t.Fatalf("Count: %v", err)
		}
		// 109.95, 168, 999.99 and 599 are excluded.
		if n != 8 {
			t.Errorf("Count(March, [0,101)) = %d, want 8", n)
		}
		n, _ = s.Count(ctx, march.And(query.PriceRangePredicate(901, math.Inf(1))))
		if n != 1 {
			t.Errorf("Count(March, [901,inf)) = %d, want 1", n)
		}
	})

	t.Run("search", func(t *testing.T) {
		s := seeded(t)
		tests := []struct {
			term string
			want int64
		}{
			{"", 12},
			{"jacket", 2},
			{"MONITOR", 2},
			{"usb", 1},
			{"100.5", 1},
			{"100", 3},
			{"%", 1},
			{"_", 0},
			{"nothing-matches", 0},
		}
		for _, tt := range tests {
			n, err := s.Count(ctx, march.And(query.SearchPredicate(tt.term)))
			if err != nil {
				t.Fatalf("Count(%q): %v", tt.term, err)
			}
			if n != tt.want {
				t.Errorf("Count(March, search=%q) = %d, want %d", tt.term, n, tt.want)
			}
		}
	})

	t.Run("search folds non-ASCII case", func(t *testing.T) {
		s := newStore(t)
		_, err := s.InsertMany(ctx, []core.Transaction{
			{ProductID: "u1", Title: "Écran Ünïcode", Description: "ÉTÉ Édition", Price: 12.5, Category: "electronics", DateOfSale: date(2022, time.March, 14)},
		})
		if err != nil {
			t.Fatalf("InsertMany: %v", err)
		}
		for _, term := range []string{"écran", "ÉCRAN", "ünï", "été édition"} {
			n, err := s.Count(ctx, march.And(query.SearchPredicate(term)))
			if err != nil {
				t.Fatalf("Count(%q): %v", term, err)
			}
			if n != 1 {
				t.Errorf("Count(March, search=%q) = %d, want 1", term, n)
			}
		}
	})

	t.Run("pagination is stable", func(t *testing.T) {
		s := seeded(t)
		all, err := s.Find(ctx, march, query.Page{Number: 1, Size: 10})
		if err != nil {
			t.Fatalf("Find page 1/10: %v", err)
		}
		first, _ := s.Find(ctx, march, query.Page{Number: 1, Size: 5})
		second, _ := s.Find(ctx, march, query.Page{Number: 2, Size: 5})
		if len(first) != 5 || len(second) != 5 {
			t.Fatalf("page sizes = %d/%d, want 5/5", len(first), len(second))
		}
		for i := 0; i < 5; i++ {
			if first[i].ProductID != all[i].ProductID {
				t.Errorf("page1[%d] = %s, want %s", i, first[i].ProductID, all[i].ProductID)
			}
			if second[i].ProductID != all[i+5].ProductID {
				t.Errorf("page2[%d] = %s, want %s", i, second[i].ProductID, all[i+5].ProductID)
			}
		}
		if all[0].ProductID != "1" || all[9].ProductID != "10" {
			t.Errorf("expected insertion order, got first=%s tenth=%s", all[0].ProductID, all[9].ProductID)
		}
	})

	t.Run("past the end is empty", func(t *testing.T) {
		s := seeded(t)
		got, err := s.Find(ctx, march, query.Page{Number: 50, Size: 10})
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", got)
		}
		got, err = s.Find(ctx, march, query.Page{Number: math.MaxInt, Size: query.MaxPerPage})
		if err != nil {
			t.Fatalf("Find at max page: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("max page returned %d records, want 0", len(got))
		}
	})

	t.Run("find round trips fields", func(t *testing.T) {
		s := seeded(t)
		got, err := s.Find(ctx, query.All(query.MonthClause{Month: time.November}), query.DefaultPagination())
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d records, want 1", len(got))
		}
		want := Fixtures()[14]
		g := got[0]
		if g.ProductID != want.ProductID || g.Title != want.Title || g.Price != want.Price ||
			g.Description != want.Description || g.Category != want.Category || g.Sold != want.Sold ||
			!g.DateOfSale.Equal(want.DateOfSale) {
			t.Errorf("Find returned %+v, want %+v", g, want)
		}
	})

	t.Run("count by category", func(t *testing.T) {
		s := seeded(t)
		got, err := s.CountByCategory(ctx, march)
		if err != nil {
			t.Fatalf("CountByCategory: %v", err)
		}
		want := []core.CategoryCount{
			{Category: "electronics", Count: 5},
			{Category: "jewelery", Count: 2},
			{Category: "men's clothing", Count: 3},
			{Category: "women's clothing", Count: 2},
		}
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
			}
		}
	})

	t.Run("replace does not duplicate", func(t *testing.T) {
		s := seeded(t)
		if _, err := s.Replace(ctx, Fixtures()); err != nil {
			t.Fatalf("Replace: %v", err)
		}
		n, err := s.Count(ctx, nil)
		if err != nil {
			t.Fatalf("Count: %v", err)
		}
		if n != int64(len(Fixtures())) {
			t.Errorf("Count after Replace = %d, want %d", n, len(Fixtures()))
		}
	})

	t.Run("insert many appends", func(t *testing.T) {
		s := seeded(t)
		if _, err := s.InsertMany(ctx, Fixtures()); err != nil {
			t.Fatalf("InsertMany: %v", err)
		}
		n, _ := s.Count(ctx, nil)
		if n != int64(2*len(Fixtures())) {
			t.Errorf("Count after second InsertMany = %d, want %d", n, 2*len(Fixtures()))
		}
	})
}
