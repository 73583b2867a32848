package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldReferer    = "referer"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldMonth      = "month"
	FieldSearch     = "search"
	FieldPage       = "page"
	FieldPerPage    = "per_page"
	FieldBatchID    = "batch_id"
	FieldPolicy     = "policy"
	FieldFetched    = "fetched"
	FieldInserted   = "inserted"
	FieldSkipped    = "skipped"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentReports   = "reports"
	ComponentSeed      = "seed"
	ComponentExport    = "export"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpList       = "list"
	OpStatistics = "statistics"
	OpBarChart   = "bar_chart"
	OpPieChart   = "pie_chart"
	OpAllData    = "all_data"
	OpExport     = "export"
	OpSeed       = "seed"
	OpInvalidate = "invalidate"
	OpParse      = "parse"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithReportQuery adds the month and search term of a report request
func (f LogFields) WithReportQuery(month, search string) LogFields {
	f[FieldMonth] = month
	if search != "" {
		f[FieldSearch] = search
	}
	return f
}

// WithPagination adds page fields
func (f LogFields) WithPagination(page, perPage int) LogFields {
	f[FieldPage] = page
	f[FieldPerPage] = perPage
	return f
}

// WithSeed adds the outcome of a seed run
func (f LogFields) WithSeed(batchID, policy string, fetched, inserted int, skipped bool) LogFields {
	f[FieldBatchID] = batchID
	f[FieldPolicy] = policy
	f[FieldFetched] = fetched
	f[FieldInserted] = inserted
	f[FieldSkipped] = skipped
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	if referer != "" {
		f[FieldReferer] = referer
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
