// Package query builds storage-independent predicates over transactions.
//
// A Filter is a conjunction of clauses. Each clause evaluates itself against a
// core.Transaction for in-memory stores; SQL stores translate the same clauses
// into WHERE fragments, so both backends agree on what a request selects.
package query

import (
	"fmt"
	"math"
	"strings"
	"time"

	"txdash/internal/core"
)

// Clause is a single boolean condition over a transaction.
type Clause interface {
	Match(tx core.Transaction) bool
	String() string
}

// MonthClause matches records sold in a month of any year.
type MonthClause struct {
	Month time.Month
}

// SearchClause matches records whose title, description or price text
// contains Term, ignoring case. An empty term matches everything.
type SearchClause struct {
	Term string
}

// SoldClause matches records by sold status.
type SoldClause struct {
	Sold bool
}

// PriceClause matches prices in [Min, Max). Max may be +Inf.
type PriceClause struct {
	Min float64
	Max float64
}

// Filter is a conjunction of clauses. The zero Filter matches everything.
type Filter []Clause

// MonthPredicate parses a month name into a month-of-year clause.
func MonthPredicate(name string) (MonthClause, error) {
	m, err := ParseMonth(name)
	if err != nil {
		return MonthClause{}, fmt.Errorf("month %q: %w", name, err)
	}
	return MonthClause{Month: m}, nil
}

// SearchPredicate returns a case-insensitive substring clause.
func SearchPredicate(term string) SearchClause {
	return SearchClause{Term: strings.TrimSpace(term)}
}

// SoldPredicate returns a clause on the sold flag.
func SoldPredicate(sold bool) SoldClause {
	return SoldClause{Sold: sold}
}

// PriceRangePredicate returns a clause for price in [min, max).
// Use math.Inf(1) for an open upper bound.
func PriceRangePredicate(min, max float64) PriceClause {
	return PriceClause{Min: min, Max: max}
}

// All combines clauses into a Filter.
func All(clauses ...Clause) Filter {
	return Filter(clauses)
}

// And returns a new Filter with the extra clauses appended.
func (f Filter) And(clauses ...Clause) Filter {
	out := make(Filter, 0, len(f)+len(clauses))
	out = append(out, f...)
	return append(out, clauses...)
}

// Match reports whether every clause matches tx.
func (f Filter) Match(tx core.Transaction) bool {
	for _, c := range f {
		if !c.Match(tx) {
			return false
		}
	}
	return true
}

func (f Filter) String() string {
	if len(f) == 0 {
		return "true"
	}
	parts := make([]string, len(f))
	for i, c := range f {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}

func (c MonthClause) Match(tx core.Transaction) bool {
	return tx.SaleMonth() == c.Month
}

func (c MonthClause) String() string {
	return fmt.Sprintf("month=%d", int(c.Month))
}

// IsEmpty reports whether the clause matches every record.
func (c SearchClause) IsEmpty() bool {
	return c.Term == ""
}

func (c SearchClause) Match(tx core.Transaction) bool {
	if c.IsEmpty() {
		return true
	}
	term := strings.ToLower(c.Term)
	return strings.Contains(strings.ToLower(tx.Title), term) ||
		strings.Contains(strings.ToLower(tx.Description), term) ||
		strings.Contains(strings.ToLower(tx.PriceText()), term)
}

func (c SearchClause) String() string {
	return fmt.Sprintf("search=%q", c.Term)
}

func (c SoldClause) Match(tx core.Transaction) bool {
	return tx.Sold == c.Sold
}

func (c SoldClause) String() string {
	return fmt.Sprintf("sold=%t", c.Sold)
}

// Unbounded reports whether the range has no upper limit.
func (c PriceClause) Unbounded() bool {
	return math.IsInf(c.Max, 1)
}

func (c PriceClause) Match(tx core.Transaction) bool {
	if tx.Price < c.Min {
		return false
	}
	return c.Unbounded() || tx.Price < c.Max
}

func (c PriceClause) String() string {
	if c.Unbounded() {
		return fmt.Sprintf("price>=%s", core.FormatPrice(c.Min))
	}
	return fmt.Sprintf("price in [%s,%s)", core.FormatPrice(c.Min), core.FormatPrice(c.Max))
}
