package shared

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// ContextKey namespaces request context values set by the API layer.
type ContextKey string

// Context keys
const (
	UserIDContextKey ContextKey = "userID"
	SSOIDContextKey  ContextKey = "ssoID"
	TraceIDKey       ContextKey = "traceID"
)

// TraceIDLength is the length of a trace ID in hex characters.
const TraceIDLength = 32

// SetTraceID stores a freshly generated trace ID in ctx.
func SetTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, NewTraceID())
}

// WithTraceID stores id in ctx.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

// GetTraceID returns the trace ID in ctx, or "".
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(TraceIDKey).(string)
	return id
}

// NewTraceID returns a random 32-character hex trace ID.
func NewTraceID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// ValidTraceID reports whether s looks like a trace ID issued by NewTraceID.
// Inbound IDs that fail this check are replaced rather than propagated.
func ValidTraceID(s string) bool {
	if len(s) != TraceIDLength {
		return false
	}
	_, err := hex.DecodeString(strings.ToLower(s))
	return err == nil
}
