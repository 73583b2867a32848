package query

import "math"

// PriceBucket is one histogram interval with its display label.
type PriceBucket struct {
	Label string
	Range PriceClause
}

var bucketBounds = []struct {
	label string
	min   float64
}{
	{"0-100", 0},
	{"101-200", 101},
	{"201-300", 201},
	{"301-400", 301},
	{"401-500", 401},
	{"501-600", 501},
	{"601-700", 601},
	{"701-800", 701},
	{"801-900", 801},
	{"901-above", 901},
}

// PriceBuckets returns the ten fixed histogram buckets in ascending order.
// Each bucket ends where the next one starts, so 100.5 lands in "0-100" and
// the buckets cover every non-negative price exactly once.
func PriceBuckets() []PriceBucket {
	out := make([]PriceBucket, len(bucketBounds))
	for i, b := range bucketBounds {
		max := math.Inf(1)
		if i+1 < len(bucketBounds) {
			max = bucketBounds[i+1].min
		}
		out[i] = PriceBucket{Label: b.label, Range: PriceRangePredicate(b.min, max)}
	}
	return out
}
