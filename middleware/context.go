package middleware

import (
	"context"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/incident-ai-gateway/internal/observability"
	"github.com/upb/incident-ai-gateway/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// CallerIDKey is the context key for the caller identity
	CallerIDKey contextKey = "caller_id"
)

// CallerIDHeader carries the identity resolved by the business layer
const CallerIDHeader = "X-User-ID"

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if id := observability.RequestIDFrom(ctx); id != "" {
		return id
	}
	return chimw.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return observability.WithRequestID(ctx, requestID)
}

// GetCallerIDFromContext retrieves the caller identity, or the anonymous
// caller when none was supplied
func GetCallerIDFromContext(ctx context.Context) string {
	if val := ctx.Value(CallerIDKey); val != nil {
		if callerID, ok := val.(string); ok && callerID != "" {
			return callerID
		}
	}
	return models.AnonymousCaller
}

// WithCallerID adds a caller identity to the context
func WithCallerID(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, CallerIDKey, callerID)
}

// RequestContext copies the chi request id into the logging context and
// reads the caller identity header. Authentication happens upstream; the
// header is trusted as given.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := chimw.GetReqID(ctx); id != "" {
			ctx = WithRequestID(ctx, id)
			w.Header().Set(chimw.RequestIDHeader, id)
		}
		if caller := strings.TrimSpace(r.Header.Get(CallerIDHeader)); caller != "" {
			ctx = WithCallerID(ctx, caller)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
