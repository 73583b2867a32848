// Package seed fetches the product-transaction dataset used to populate the
// record store.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"txdash/internal/core"
)

// DefaultURL serves the reference dataset.
const DefaultURL = "https://s3.amazonaws.com/roxiler.com/product_transaction.json"

// ErrUpstreamStatus is returned when the seed URL answers with a non-2xx status.
var ErrUpstreamStatus = errors.New("unexpected upstream status")

// Source yields the full dataset to load.
type Source interface {
	Fetch(ctx context.Context) ([]core.Transaction, error)
}

// HTTPSource downloads a JSON array of transactions.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource returns a source for url with the given request timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if url == "" {
		url = DefaultURL
	}
	return &HTTPSource{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]core.Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, fmt.Errorf("fetch %s: %w: %d", s.URL, ErrUpstreamStatus, resp.StatusCode)
	}

	txs, err := decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.URL, err)
	}

	slog.InfoContext(ctx, "Fetched seed dataset",
		"url", s.URL,
		"records", len(txs),
		"duration_ms", time.Since(start).Milliseconds())
	return txs, nil
}

// FileSource reads the dataset from a local JSON file.
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(ctx context.Context) ([]core.Transaction, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()

	txs, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	slog.InfoContext(ctx, "Loaded seed dataset from file", "path", s.Path, "records", len(txs))
	return txs, nil
}

func decode(r io.Reader) ([]core.Transaction, error) {
	var txs []core.Transaction
	if err := json.NewDecoder(r).Decode(&txs); err != nil {
		return nil, err
	}
	return txs, nil
}
