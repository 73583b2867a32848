package query

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// ErrInvalidPage is returned for non-numeric or non-positive page parameters
// and for a perPage above MaxPerPage.
var ErrInvalidPage = errors.New("invalid page parameter")

// Page describes offset/limit pagination with 1-based page numbers.
type Page struct {
	Number int
	Size   int
}

// DefaultPagination returns page 1 with 10 records per page.
func DefaultPagination() Page {
	return Page{Number: DefaultPage, Size: DefaultPerPage}
}

// ParsePage builds a Page from raw query values; empty values take defaults.
func ParsePage(page, perPage string) (Page, error) {
	p := DefaultPagination()

	n, err := parsePositive("page", page, DefaultPage)
	if err != nil {
		return Page{}, err
	}
	size, err := parsePositive("perPage", perPage, DefaultPerPage)
	if err != nil {
		return Page{}, err
	}
	if size > MaxPerPage {
		return Page{}, fmt.Errorf("perPage %d exceeds %d: %w", size, MaxPerPage, ErrInvalidPage)
	}
	p.Number = n
	p.Size = size
	return p, nil
}

func parsePositive(name, raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s %q: %w", name, raw, ErrInvalidPage)
	}
	return v, nil
}

// Offset is the number of records skipped before this page. It saturates at
// math.MaxInt, so a huge page number still lands past the end of the data.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Size <= 0 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Size
}

// Limit is the maximum number of records on this page.
func (p Page) Limit() int {
	return p.Size
}
