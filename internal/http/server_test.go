package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"txdash/internal/core"
	"txdash/internal/export"
	"txdash/internal/log"
	"txdash/internal/query"
	"txdash/internal/services"
	"txdash/internal/storage/memory"
	"txdash/internal/storage/storagetest"
)

type fakeSource struct {
	txs   []core.Transaction
	err   error
	calls int
}

func (f *fakeSource) Fetch(context.Context) ([]core.Transaction, error) {
	f.calls++
	return f.txs, f.err
}

type failingReports struct{ err error }

func (f failingReports) ListTransactions(context.Context, time.Month, string, query.Page) ([]core.Transaction, error) {
	return nil, f.err
}
func (f failingReports) GetStatistics(context.Context, time.Month) (core.Statistics, error) {
	return core.Statistics{}, f.err
}
func (f failingReports) GetBarChart(context.Context, time.Month) ([]core.BarChartEntry, error) {
	return nil, f.err
}
func (f failingReports) GetPieChart(context.Context, time.Month) ([]core.CategoryCount, error) {
	return nil, f.err
}
func (f failingReports) GetAllData(context.Context, time.Month) (core.AllData, error) {
	return core.AllData{}, f.err
}
func (f failingReports) ExportReport(context.Context, time.Month, string) (export.Report, error) {
	return export.Report{}, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func quietLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Handler = slog.NewTextHandler(io.Discard, nil)
	return log.New(cfg)
}

// newTestServer builds a server over a memory store seeded with the fixtures.
func newTestServer(t *testing.T, opts Options) (*Server, *memory.Store, *fakeSource) {
	t.Helper()
	store := memory.New(storagetest.Fixtures()...)
	source := &fakeSource{txs: storagetest.Fixtures()}
	reports := services.NewReportService(store, services.ReportCaches{}, time.Second)
	seeder := services.NewSeedService(store, source, services.SeedOptions{Policy: services.PolicyReplace, Invalidator: reports})
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	srv := NewServer(":0", reports, seeder, store, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store, source
}

func do(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestStatisticsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/statistics?month=March")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	var got core.Statistics
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := core.Statistics{TotalSaleAmount: 2277.66, TotalSoldItems: 7, TotalNotSoldItems: 5}
	if got != want {
		t.Errorf("statistics = %+v, want %+v", got, want)
	}
}

func TestChartEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})
	march := storagetest.MonthCount(time.March)

	t.Run("bar chart", func(t *testing.T) {
		rr := do(t, srv, http.MethodGet, "/api/bar-chart?month=mar")
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		var entries []core.BarChartEntry
		if err := json.Unmarshal(rr.Body.Bytes(), &entries); err != nil {
			t.Fatalf("decode: %v", err)
		}
		buckets := query.PriceBuckets()
		if len(entries) != len(buckets) {
			t.Fatalf("got %d entries, want %d", len(entries), len(buckets))
		}
		var total int64
		for i, e := range entries {
			if e.Range != buckets[i].Label {
				t.Errorf("entry %d range = %q, want %q", i, e.Range, buckets[i].Label)
			}
			total += e.Count
		}
		if total != march {
			t.Errorf("bucket counts sum to %d, want %d", total, march)
		}
	})

	t.Run("pie chart", func(t *testing.T) {
		rr := do(t, srv, http.MethodGet, "/api/pie-chart?month=3")
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		var counts []core.CategoryCount
		if err := json.Unmarshal(rr.Body.Bytes(), &counts); err != nil {
			t.Fatalf("decode: %v", err)
		}
		var total int64
		for _, c := range counts {
			total += c.Count
		}
		if total != march {
			t.Errorf("category counts sum to %d, want %d", total, march)
		}
	})

	t.Run("empty month yields empty arrays", func(t *testing.T) {
		rr := do(t, srv, http.MethodGet, "/api/pie-chart?month=January")
		if strings.TrimSpace(rr.Body.String()) != "[]" {
			t.Errorf("body = %q, want []", rr.Body.String())
		}
	})
}

func TestAllDataEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/all-data?month=March")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var got core.AllData
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	var stats core.Statistics
	_ = json.Unmarshal(do(t, srv, http.MethodGet, "/api/statistics?month=March").Body.Bytes(), &stats)
	if got.Statistics != stats {
		t.Errorf("all-data statistics = %+v, want %+v", got.Statistics, stats)
	}
	if len(got.BarChart) != len(query.PriceBuckets()) {
		t.Errorf("all-data bar chart has %d entries", len(got.BarChart))
	}
	if len(got.PieChart) == 0 {
		t.Error("all-data pie chart is empty")
	}
}

func TestTransactionsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	tests := []struct {
		name    string
		target  string
		wantIDs []string
	}{
		{"second page of five", "/api/transactions?month=March&page=2&perPage=5", []string{"6", "7", "8", "9", "10"}},
		{"empty search is ignored", "/api/transactions?month=March&search=&perPage=3", []string{"1", "2", "3"}},
		{"search matches title", "/api/transactions?month=March&search=monitor", []string{"7", "8"}},
		{"search matches price text", "/api/transactions?month=March&search=100.5", []string{"10"}},
		{"past the end", "/api/transactions?month=March&page=9", []string{}},
		{"page at int max", "/api/transactions?month=March&page=9223372036854775807&perPage=10", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, tt.target)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
			}
			var txs []core.Transaction
			if err := json.Unmarshal(rr.Body.Bytes(), &txs); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if txs == nil {
				t.Fatal("expected a JSON array, got null")
			}
			ids := make([]string, len(txs))
			for i, tx := range txs {
				ids[i] = tx.ProductID
			}
			if strings.Join(ids, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestBadParameters(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	tests := []struct {
		name     string
		target   string
		wantBody string
	}{
		{"missing month", "/api/statistics", "Invalid month"},
		{"unknown month", "/api/bar-chart?month=Smarch", "Invalid month"},
		{"month out of range", "/api/all-data?month=13", "Invalid month"},
		{"zero page", "/api/transactions?month=March&page=0", "Invalid pagination parameters"},
		{"non numeric perPage", "/api/transactions?month=March&perPage=ten", "Invalid pagination parameters"},
		{"perPage above max", "/api/transactions?month=March&page=2&perPage=200", "Invalid pagination parameters"},
		{"search too long", "/api/transactions?month=March&search=" + strings.Repeat("x", 201), "Search term too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, tt.target)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if got := rr.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	for _, path := range []string{"/api/initialize", "/api/statistics?month=March", "/healthz"} {
		rr := do(t, srv, http.MethodPost, path)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want 405", path, rr.Code)
		}
		if allow := rr.Header().Get("Allow"); allow != http.MethodGet {
			t.Errorf("%s: Allow = %q", path, allow)
		}
	}
}

func TestInitializeEndpoint(t *testing.T) {
	t.Run("replace", func(t *testing.T) {
		srv, store, source := newTestServer(t, Options{})
		source.txs = storagetest.Fixtures()[:3]

		rr := do(t, srv, http.MethodGet, "/api/initialize")
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		if rr.Body.String() != msgInitialized {
			t.Errorf("body = %q", rr.Body.String())
		}
		if store.Len() != 3 {
			t.Errorf("store has %d records, want 3", store.Len())
		}
	})

	t.Run("skip if populated", func(t *testing.T) {
		store := memory.New(storagetest.Fixtures()...)
		source := &fakeSource{txs: storagetest.Fixtures()}
		reports := services.NewReportService(store, services.ReportCaches{}, time.Second)
		seeder := services.NewSeedService(store, source, services.SeedOptions{Policy: services.PolicySkipIfPopulated})
		srv := NewServer(":0", reports, seeder, store, Options{Logger: quietLogger()})
		defer srv.Shutdown(context.Background())

		rr := do(t, srv, http.MethodGet, "/api/initialize")
		if rr.Code != http.StatusOK || rr.Body.String() != msgAlreadySeeded {
			t.Errorf("status = %d, body = %q", rr.Code, rr.Body.String())
		}
		if source.calls != 0 {
			t.Errorf("source fetched %d times, want 0", source.calls)
		}
	})

	t.Run("upstream failure", func(t *testing.T) {
		srv, store, source := newTestServer(t, Options{})
		source.err = errors.New("dial tcp: connection refused")

		rr := do(t, srv, http.MethodGet, "/api/initialize")
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rr.Code)
		}
		if rr.Body.String() != msgInitializeError {
			t.Errorf("body = %q", rr.Body.String())
		}
		if store.Len() != len(storagetest.Fixtures()) {
			t.Errorf("failed seed changed the store: %d records", store.Len())
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		srv, _, _ := newTestServer(t, Options{InitializeRatePerMinute: 1})

		if rr := do(t, srv, http.MethodGet, "/api/initialize"); rr.Code != http.StatusOK {
			t.Fatalf("first call status = %d", rr.Code)
		}
		rr := do(t, srv, http.MethodGet, "/api/initialize")
		if rr.Code != http.StatusTooManyRequests {
			t.Fatalf("second call status = %d, want 429", rr.Code)
		}
		if rr.Header().Get("Retry-After") == "" {
			t.Error("missing Retry-After header")
		}
		// Reads are not limited.
		if rr := do(t, srv, http.MethodGet, "/api/statistics?month=March"); rr.Code != http.StatusOK {
			t.Errorf("statistics status = %d", rr.Code)
		}
	})
}

func TestStoreFailuresAreGeneric(t *testing.T) {
	reports := failingReports{err: errors.New("dial tcp 10.0.0.7:3306: connection refused")}
	srv := NewServer(":0", reports, nil, fakePinger{}, Options{Logger: quietLogger()})
	defer srv.Shutdown(context.Background())

	tests := []struct {
		target string
		want   string
	}{
		{"/api/transactions?month=March", msgListError},
		{"/api/statistics?month=March", msgStatisticsError},
		{"/api/bar-chart?month=March", msgBarChartError},
		{"/api/pie-chart?month=March", msgPieChartError},
		{"/api/all-data?month=March", msgAllDataError},
		{"/api/export?month=March", msgExportError},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, tt.target)
			if rr.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rr.Code)
			}
			if rr.Body.String() != tt.want {
				t.Errorf("body = %q, want %q", rr.Body.String(), tt.want)
			}
		})
	}
}

func TestExportEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/export?month=March&search=jacket")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != export.ContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "transactions-march.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	// xlsx files are zip archives.
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Error("body is not a zip archive")
	}
}

func TestHealthAndReadiness(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/healthz")
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rr.Code)
	}
	var health map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &health); err != nil || health["status"] != "ok" {
		t.Errorf("healthz body = %s (%v)", rr.Body.String(), err)
	}

	if rr := do(t, srv, http.MethodGet, "/readyz"); rr.Code != http.StatusOK {
		t.Errorf("readyz status = %d", rr.Code)
	}

	down := NewServer(":0", failingReports{}, nil, fakePinger{err: errors.New("connection reset")}, Options{Logger: quietLogger()})
	defer down.Shutdown(context.Background())
	rr = do(t, down, http.MethodGet, "/readyz")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "connection reset") {
		t.Error("readiness body leaks the store error")
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{AllowedOrigins: []string{"https://dash.example.com"}})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/statistics?month=March", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	req.Header.Set("Origin", "https://dash.example.com")
	srv.Handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q", got)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodOptions, "/api/statistics", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rr.Code)
	}

	if m := srv.RequestMetrics(); m.TotalRequests < 2 {
		t.Errorf("TotalRequests = %d, want at least 2", m.TotalRequests)
	}
}
