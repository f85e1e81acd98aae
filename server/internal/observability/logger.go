package observability

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRequestID is the field name for request ID.
	LogFieldRequestID = "request_id"
	// LogFieldOperation is the field name for the tag operation.
	LogFieldOperation = "operation"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldErrorCode is the field name for error code.
	LogFieldErrorCode = "error_code"
	// LogFieldTagID is the field name for the tag id.
	LogFieldTagID = "tag_id"
	// LogFieldTagName is the field name for the tag display name.
	LogFieldTagName = "tag_name"
	// LogFieldTagSlug is the field name for the tag slug.
	LogFieldTagSlug = "tag_slug"
)

// RequestContext carries structured logging state for a single operation.
type RequestContext struct {
	RequestID string
	Operation string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewRequestContext creates a new request context with a generated request ID.
func NewRequestContext(logger *slog.Logger, operation string) *RequestContext {
	return &RequestContext{
		RequestID: generateRequestID(),
		Operation: operation,
		StartTime: time.Now(),
		Logger:    logger,
	}
}

// WithFields returns a logger carrying the request's base fields plus attrs.
func (r *RequestContext) WithFields(attrs ...slog.Attr) *slog.Logger {
	base := []slog.Attr{
		slog.String(LogFieldRequestID, r.RequestID),
		slog.String(LogFieldOperation, r.Operation),
	}
	result := make([]any, 0, len(base)+len(attrs))
	for _, attr := range base {
		result = append(result, attr)
	}
	for _, attr := range attrs {
		result = append(result, attr)
	}
	return r.Logger.With(result...)
}

// Elapsed returns the time since the request started.
func (r *RequestContext) Elapsed() time.Duration {
	return time.Since(r.StartTime)
}

func generateRequestID() string {
	return uuid.NewString()
}
