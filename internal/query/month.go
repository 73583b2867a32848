package query

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidMonth is returned for month names that do not name a calendar month.
var ErrInvalidMonth = errors.New("invalid month")

var monthsByName = func() map[string]time.Month {
	m := make(map[string]time.Month, 24)
	for i := time.January; i <= time.December; i++ {
		name := strings.ToLower(i.String())
		m[name] = i
		m[name[:3]] = i
	}
	return m
}()

// ParseMonth maps a month name ("March", "mar", "MARCH") or number ("3") to
// its calendar month. Surrounding whitespace is ignored.
func ParseMonth(name string) (time.Month, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return 0, ErrInvalidMonth
	}
	if m, ok := monthsByName[s]; ok {
		return m, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
		return time.Month(n), nil
	}
	return 0, ErrInvalidMonth
}
