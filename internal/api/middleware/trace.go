package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/skillmatch-api/internal/api/shared"
	"github.com/phrazzld/skillmatch-api/internal/platform/logger"
)

// TraceHeader carries the trace ID on requests and responses.
const TraceHeader = "X-Trace-ID"

// NewTraceMiddleware adds a trace ID to the request context and a request
// logger carrying it. A well-formed inbound X-Trace-ID is reused so callers
// can correlate across services. Apply it early so that handlers and error
// responses share the same trace ID.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(TraceHeader)
			if !shared.ValidTraceID(traceID) {
				traceID = shared.NewTraceID()
			}
			ctx := shared.WithTraceID(r.Context(), traceID)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			w.Header().Set(TraceHeader, traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
