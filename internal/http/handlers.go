package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"txdash/internal/export"
	"txdash/internal/log"
	"txdash/internal/middleware/trace"
)

const (
	msgInitialized     = "Database initialized with seed data"
	msgAlreadySeeded   = "Database already populated, seed skipped"
	msgInitializeError = "Error initializing database"
	msgListError       = "Error fetching transactions"
	msgStatisticsError = "Error fetching statistics"
	msgBarChartError   = "Error fetching bar chart data"
	msgPieChartError   = "Error fetching pie chart data"
	msgAllDataError    = "Error fetching combined data"
	msgExportError     = "Error exporting report"
)

// handleInitialize seeds the record store from the configured source.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := s.seeder.Initialize(ctx)
	if err != nil {
		s.logger.LogError(ctx, "Seeding failed", err, log.ComponentSeed, log.OpSeed, nil)
		InternalServerError(msgInitializeError).Write(w)
		return
	}

	s.logger.LogSeedCompleted(ctx, result.BatchID.String(), string(result.Policy), result.Fetched, result.Inserted, result.Skipped)
	if result.Skipped {
		NewResponse().Text(msgAlreadySeeded).Write(w)
		return
	}
	NewResponse().Text(msgInitialized).Write(w)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	params, ok := s.parseParams(w, r, true)
	if !ok {
		return
	}

	txs, err := s.reports.ListTransactions(r.Context(), params.Month, params.Search, params.Page)
	if err != nil {
		s.fail(w, r, err, log.OpList, msgListError, params)
		return
	}
	s.logger.LogReportServed(r.Context(), log.OpList, params.Month.String(), params.Search)
	WriteJSON(w, txs)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	params, ok := s.parseParams(w, r, false)
	if !ok {
		return
	}

	stats, err := s.reports.GetStatistics(r.Context(), params.Month)
	if err != nil {
		s.fail(w, r, err, log.OpStatistics, msgStatisticsError, params)
		return
	}
	s.logger.LogReportServed(r.Context(), log.OpStatistics, params.Month.String(), "")
	WriteJSON(w, stats)
}

func (s *Server) handleBarChart(w http.ResponseWriter, r *http.Request) {
	params, ok := s.parseParams(w, r, false)
	if !ok {
		return
	}

	entries, err := s.reports.GetBarChart(r.Context(), params.Month)
	if err != nil {
		s.fail(w, r, err, log.OpBarChart, msgBarChartError, params)
		return
	}
	s.logger.LogReportServed(r.Context(), log.OpBarChart, params.Month.String(), "")
	WriteJSON(w, entries)
}

func (s *Server) handlePieChart(w http.ResponseWriter, r *http.Request) {
	params, ok := s.parseParams(w, r, false)
	if !ok {
		return
	}

	counts, err := s.reports.GetPieChart(r.Context(), params.Month)
	if err != nil {
		s.fail(w, r, err, log.OpPieChart, msgPieChartError, params)
		return
	}
	s.logger.LogReportServed(r.Context(), log.OpPieChart, params.Month.String(), "")
	WriteJSON(w, counts)
}

func (s *Server) handleAllData(w http.ResponseWriter, r *http.Request) {
	params, ok := s.parseParams(w, r, false)
	if !ok {
		return
	}

	data, err := s.reports.GetAllData(r.Context(), params.Month)
	if err != nil {
		s.fail(w, r, err, log.OpAllData, msgAllDataError, params)
		return
	}
	s.logger.LogReportServed(r.Context(), log.OpAllData, params.Month.String(), "")
	WriteJSON(w, data)
}

// handleExport streams the month's listing and reports as an xlsx workbook.
// The workbook is rendered in memory so a failure can still produce a 500.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	params, ok := s.parseParams(w, r, false)
	if !ok {
		return
	}

	report, err := s.reports.ExportReport(r.Context(), params.Month, params.Search)
	if err != nil {
		s.fail(w, r, err, log.OpExport, msgExportError, params)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, report); err != nil {
		s.fail(w, r, fmt.Errorf("render workbook: %w", err), log.OpExport, msgExportError, params)
		return
	}

	s.logger.LogReportServed(r.Context(), log.OpExport, params.Month.String(), params.Search)
	NewResponse().
		Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename())).
		Header("Cache-Control", "no-store").
		Body(export.ContentType, buf.Bytes()).
		Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	metrics := s.RequestMetrics()
	WriteJSON(w, map[string]any{
		"status":               "ok",
		"timestamp":            time.Now().UTC().Format(time.RFC3339),
		"uptime":               time.Since(s.startedAt).Round(time.Second).String(),
		"requests":             metrics.TotalRequests,
		"avg_response_time_us": metrics.AverageResponseTime,
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]string{"store": "ok"}

	if s.store == nil {
		checks["store"] = "failed: not configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if err := s.store.Ping(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err.Error())
		checks["store"] = "failed: unreachable"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	NewResponse().
		Status(httpStatus).
		JSON(map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks":    checks,
		}).
		Write(w)
}

func (s *Server) parseParams(w http.ResponseWriter, r *http.Request, withPage bool) (ReportParams, bool) {
	params, err := ParseReportParams(r, withPage)
	if err != nil {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Rejected report parameters",
			log.FieldQuery, r.URL.RawQuery,
			log.FieldError, err.Error())
		BadRequestError(err.Error()).Write(w)
		return ReportParams{}, false
	}
	return params, true
}

// fail logs the underlying error and answers with a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op, msg string, params ReportParams) {
	fields := log.NewFields().
		WithReportQuery(params.Month.String(), params.Search).
		WithRequestID(trace.GetRequestID(r.Context()))
	if op == log.OpList {
		fields = fields.WithPagination(params.Page.Number, params.Page.Size)
	}
	s.logger.LogError(r.Context(), "Report request failed", err, log.ComponentReports, op, fields)
	InternalServerError(msg).Write(w)
}
