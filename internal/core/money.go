// Package core provides the transaction domain model and amount helpers.
//
// Sale amounts are accumulated as decimals so that summing many two-digit
// prices does not drift, then reported as float64 rounded to cents.
package core

import "github.com/shopspring/decimal"

// SumPrices adds the given prices and rounds the total to cents.
func SumPrices(prices []float64) float64 {
	total := decimal.Zero
	for _, p := range prices {
		total = total.Add(decimal.NewFromFloat(p))
	}
	return total.Round(2).InexactFloat64()
}

// RoundAmount rounds an aggregated amount to cents.
//
// Examples:
//
//	RoundAmount(1234.5600000001) -> 1234.56
//	RoundAmount(0.125)           -> 0.13
func RoundAmount(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
