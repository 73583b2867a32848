// Package http provides HTTP server and handler implementations.
//
// This file turns query strings into validated report parameters.

package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"txdash/internal/query"
)

const maxSearchLength = 200

// ErrSearchTooLong is wrapped by the ParamError for an oversized search term.
var ErrSearchTooLong = errors.New("search term too long")

// ReportParams holds the parsed query parameters shared by the report endpoints.
type ReportParams struct {
	Month  time.Month
	Search string
	Page   query.Page
}

// ParamError marks a request parameter the client must fix.
type ParamError struct {
	Message string
	Err     error
}

func (e *ParamError) Error() string { return e.Message }

func (e *ParamError) Unwrap() error { return e.Err }

// ParseMonthParam reads the required month parameter.
func ParseMonthParam(values url.Values) (time.Month, error) {
	m, err := query.ParseMonth(values.Get("month"))
	if err != nil {
		return 0, &ParamError{Message: "Invalid month", Err: err}
	}
	return m, nil
}

// ParseSearchParam returns the cleaned free-text search term, possibly empty.
// Terms longer than maxSearchLength runes are rejected, never truncated.
func ParseSearchParam(values url.Values) (string, error) {
	s := sanitizeInput(values.Get("search"))
	if utf8.RuneCountInString(s) > maxSearchLength {
		return "", &ParamError{Message: "Search term too long", Err: ErrSearchTooLong}
	}
	return s, nil
}

// ParsePageParams reads page and perPage, defaulting to page 1 of 10.
func ParsePageParams(values url.Values) (query.Page, error) {
	p, err := query.ParsePage(values.Get("page"), values.Get("perPage"))
	if err != nil {
		return query.Page{}, &ParamError{Message: "Invalid pagination parameters", Err: err}
	}
	return p, nil
}

// ParseReportParams parses month, search and, when withPage is set, pagination.
func ParseReportParams(r *http.Request, withPage bool) (ReportParams, error) {
	values := r.URL.Query()

	m, err := ParseMonthParam(values)
	if err != nil {
		return ReportParams{}, err
	}
	search, err := ParseSearchParam(values)
	if err != nil {
		return ReportParams{}, err
	}
	params := ReportParams{
		Month:  m,
		Search: search,
		Page:   query.DefaultPagination(),
	}
	if withPage {
		if params.Page, err = ParsePageParams(values); err != nil {
			return ReportParams{}, err
		}
	}
	return params, nil
}

// IsParamError reports whether err came from request parameter validation.
func IsParamError(err error) bool {
	var pe *ParamError
	return errors.As(err, &pe)
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, s)
}
