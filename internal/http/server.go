package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"txdash/internal/core"
	"txdash/internal/export"
	"txdash/internal/log"
	"txdash/internal/middleware/ratelimit"
	"txdash/internal/middleware/security"
	"txdash/internal/middleware/trace"
	"txdash/internal/query"
	"txdash/internal/services"
)

// ReportProvider serves the read-only report endpoints.
type ReportProvider interface {
	ListTransactions(ctx context.Context, month time.Month, search string, page query.Page) ([]core.Transaction, error)
	GetStatistics(ctx context.Context, month time.Month) (core.Statistics, error)
	GetBarChart(ctx context.Context, month time.Month) ([]core.BarChartEntry, error)
	GetPieChart(ctx context.Context, month time.Month) ([]core.CategoryCount, error)
	GetAllData(ctx context.Context, month time.Month) (core.AllData, error)
	ExportReport(ctx context.Context, month time.Month, search string) (export.Report, error)
}

// Seeder loads the dataset on demand.
type Seeder interface {
	Initialize(ctx context.Context) (services.SeedResult, error)
}

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the server middleware.
type Options struct {
	Logger                  *log.Logger
	InitializeRatePerMinute int
	AllowedOrigins          []string
	TrustedProxies          []string
	ReadyTimeout            time.Duration
}

type Server struct {
	http.Server
	reports      ReportProvider
	seeder       Seeder
	store        Pinger
	logger       *log.StructuredLogger
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	readyTimeout time.Duration
	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer wires the API routes and the middleware chain.
func NewServer(addr string, reports ReportProvider, seeder Seeder, store Pinger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 5 * time.Second
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			opts.Logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, "error", err)
		}
	}

	limiterCfg := ratelimit.DefaultConfig()
	if opts.InitializeRatePerMinute > 0 {
		limiterCfg.RequestsPerMinute = opts.InitializeRatePerMinute
	}

	s := &Server{
		reports:      reports,
		seeder:       seeder,
		store:        store,
		logger:       log.NewStructuredLogger(opts.Logger.WithComponent(log.ComponentHTTP)),
		limiter:      ratelimit.NewLimiter(limiterCfg),
		detector:     detector,
		tracer:       trace.NewMiddleware(detector.ExtractClientIP),
		readyTimeout: opts.ReadyTimeout,
		startedAt:    time.Now(),
	}

	mux := http.NewServeMux()
	mux.Handle("/api/initialize", getOnly(s.limiter.Middleware(detector.ExtractClientIP, s.rateLimited)(http.HandlerFunc(s.handleInitialize))))
	mux.Handle("/api/transactions", getOnly(http.HandlerFunc(s.handleTransactions)))
	mux.Handle("/api/statistics", getOnly(http.HandlerFunc(s.handleStatistics)))
	mux.Handle("/api/bar-chart", getOnly(http.HandlerFunc(s.handleBarChart)))
	mux.Handle("/api/pie-chart", getOnly(http.HandlerFunc(s.handlePieChart)))
	mux.Handle("/api/all-data", getOnly(http.HandlerFunc(s.handleAllData)))
	mux.Handle("/api/export", getOnly(http.HandlerFunc(s.handleExport)))
	mux.Handle("/healthz", getOnly(http.HandlerFunc(s.handleHealth)))
	mux.Handle("/readyz", getOnly(http.HandlerFunc(s.handleReady)))

	// Outermost first: logger, trace, request-scoped logger, headers, CORS, detection.
	var handler http.Handler = mux
	handler = detector.Middleware(handler)
	handler = security.CORSMiddleware(opts.AllowedOrigins)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = log.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(opts.Logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// RequestMetrics exposes the tracing counters.
func (s *Server) RequestMetrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func getOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			MethodNotAllowedError(http.MethodGet).Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}
