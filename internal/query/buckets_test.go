package query

import (
	"testing"
	"time"
)

func TestPriceBucketsLabelsAndOrder(t *testing.T) {
	want := []string{"0-100", "101-200", "201-300", "301-400", "401-500", "501-600", "601-700", "701-800", "801-900", "901-above"}
	buckets := PriceBuckets()
	if len(buckets) != len(want) {
		t.Fatalf("got %d buckets, want %d", len(buckets), len(want))
	}
	for i, b := range buckets {
		if b.Label != want[i] {
			t.Errorf("bucket %d label = %q, want %q", i, b.Label, want[i])
		}
	}
	if !buckets[len(buckets)-1].Range.Unbounded() {
		t.Error("last bucket should be unbounded")
	}
}

func TestPriceBucketsPartitionNonNegativePrices(t *testing.T) {
	buckets := PriceBuckets()
	prices := []float64{0, 0.01, 99.99, 100, 100.5, 101, 150, 200, 200.99, 201, 555.55, 900, 900.5, 901, 5000}

	for _, p := range prices {
		record := tx("", "", p, false, time.Now())
		hits := 0
		for _, b := range buckets {
			if b.Range.Match(record) {
				hits++
			}
		}
		if hits != 1 {
			t.Errorf("price %v matched %d buckets, want exactly 1", p, hits)
		}
	}
}

func TestPriceBucketsBoundaries(t *testing.T) {
	buckets := PriceBuckets()
	tests := []struct {
		price float64
		label string
	}{
		{100, "0-100"},
		{100.5, "0-100"},
		{101, "101-200"},
		{200, "101-200"},
		{901, "901-above"},
	}
	for _, tt := range tests {
		record := tx("", "", tt.price, false, time.Now())
		for _, b := range buckets {
			if b.Range.Match(record) && b.Label != tt.label {
				t.Errorf("price %v landed in %q, want %q", tt.price, b.Label, tt.label)
			}
		}
	}
}

func TestNegativePriceFallsOutsideBuckets(t *testing.T) {
	record := tx("", "", -5, false, time.Now())
	for _, b := range PriceBuckets() {
		if b.Range.Match(record) {
			t.Errorf("negative price matched bucket %q", b.Label)
		}
	}
}
