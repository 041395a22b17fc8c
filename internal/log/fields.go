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
	FieldTxID       = "transaction_id"
	FieldTxType     = "transaction_type"
	FieldAmount     = "amount"
	FieldAccount    = "account"
	FieldEventKeys  = "event_keys"
	FieldCount      = "count"
	FieldTarget     = "target"
	FieldSeq        = "seq"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentStore      = "store"
	ComponentAutomation = "automation"
	ComponentSync       = "sync"
	ComponentAdvisory   = "advisory"
	ComponentAMQP       = "amqp"
	ComponentSheets     = "sheets"
	ComponentCache      = "cache"
	ComponentSecurity   = "security"
	ComponentRateLimit  = "rate_limit"
	ComponentTrace      = "trace"
	ComponentBackend    = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpLoad     = "load"
	OpPersist  = "persist"
	OpAutomate = "automate"
	OpSync     = "sync"
	OpAdvise   = "advise"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
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

// WithTransaction adds transaction-related fields
func (f LogFields) WithTransaction(id, txType string, amount float64, account string) LogFields {
	f[FieldTxID] = id
	f[FieldTxType] = txType
	f[FieldAmount] = amount
	f[FieldAccount] = account
	return f
}

// WithEventKeys adds the automation keys that fired
func (f LogFields) WithEventKeys(keys []string) LogFields {
	f[FieldEventKeys] = keys
	f[FieldCount] = len(keys)
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	f[FieldReferer] = referer
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
