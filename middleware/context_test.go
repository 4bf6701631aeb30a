package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/upb/incident-ai-gateway/internal/observability"
	"github.com/upb/incident-ai-gateway/models"
)

func TestCallerIDContext(t *testing.T) {
	assert.Equal(t, models.AnonymousCaller, GetCallerIDFromContext(context.Background()))
	assert.Equal(t, "user-1", GetCallerIDFromContext(WithCallerID(context.Background(), "user-1")))
	assert.Equal(t, models.AnonymousCaller, GetCallerIDFromContext(WithCallerID(context.Background(), "")))
}

func TestGetRequestIDFromContext(t *testing.T) {
	t.Run("explicit request id", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-1")
		assert.Equal(t, "req-1", GetRequestIDFromContext(ctx))
	})

	t.Run("falls back to chi request id", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), chimw.RequestIDKey, "chi-1")
		assert.Equal(t, "chi-1", GetRequestIDFromContext(ctx))
	})

	t.Run("empty context", func(t *testing.T) {
		assert.Empty(t, GetRequestIDFromContext(context.Background()))
	})
}

func TestRequestContext(t *testing.T) {
	var gotCaller, gotRequestID string
	handler := chimw.RequestID(RequestContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCaller = GetCallerIDFromContext(r.Context())
		gotRequestID = observability.RequestIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	t.Run("caller header and request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(CallerIDHeader, " user-42 ")
		req.Header.Set(chimw.RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "user-42", gotCaller)
		assert.Equal(t, "abc-123", gotRequestID)
		assert.Equal(t, "abc-123", w.Header().Get(chimw.RequestIDHeader))
	})

	t.Run("missing caller header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, models.AnonymousCaller, gotCaller)
		assert.NotEmpty(t, gotRequestID)
	})
}
