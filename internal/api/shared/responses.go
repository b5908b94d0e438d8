package shared

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/skillmatch-api/internal/platform/logger"
	"github.com/phrazzld/skillmatch-api/internal/redact"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"-"`
	TraceID string `json:"trace_id,omitempty"`
}

// ResponseOption customizes RespondWithErrorAndLog.
type ResponseOption func(*responseOptions)

type responseOptions struct {
	elevateLogLevel bool
}

// WithElevatedLogLevel logs a 4xx response at WARN instead of DEBUG.
func WithElevatedLogLevel() ResponseOption {
	return func(opts *responseOptions) {
		opts.elevateLogLevel = true
	}
}

// RespondWithJSON writes data as JSON with the given status.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		requestLogger(r).Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// RespondWithError writes an ErrorResponse carrying the request's trace ID.
func RespondWithError(w http.ResponseWriter, r *http.Request, status int, message string) {
	traceID := GetTraceID(r.Context())
	requestLogger(r).Debug("sending error response",
		slog.Int("status_code", status),
		slog.String("message", message),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method))

	RespondWithJSON(w, r, status, ErrorResponse{Error: message, Code: status, TraceID: traceID})
}

// RespondWithErrorAndLog writes userMessage to the client and logs err in
// redacted form. 5xx responses log at ERROR, 429 and elevated 4xx at WARN,
// everything else at DEBUG.
func RespondWithErrorAndLog(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	userMessage string,
	err error,
	opts ...ResponseOption,
) {
	var o responseOptions
	for _, opt := range opts {
		opt(&o)
	}

	attrs := []slog.Attr{
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.Int("status_code", status),
		slog.String("user_message", userMessage),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("error", redact.Error(err)),
			slog.String("error_type", fmt.Sprintf("%T", err)))
	}
	requestLogger(r).LogAttrs(r.Context(), errorLogLevel(status, o.elevateLogLevel), "API error response", attrs...)

	traceID := GetTraceID(r.Context())
	RespondWithJSON(w, r, status, ErrorResponse{Error: userMessage, Code: status, TraceID: traceID})
}

func errorLogLevel(status int, elevated bool) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status == http.StatusTooManyRequests:
		return slog.LevelWarn
	case elevated && status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}

// requestLogger prefers the trace-scoped logger installed by the trace
// middleware.
func requestLogger(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), slog.Default())
}
