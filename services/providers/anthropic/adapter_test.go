package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/incident-ai-gateway/models"
	"github.com/upb/incident-ai-gateway/services/providers"
)

func newTestAdapter(baseURL string) *Adapter {
	return NewAdapter(providers.ProviderConfig{
		APIKey:           "sk-ant-test",
		BaseURL:          baseURL,
		Models:           []string{"anthropic/claude-3-5-haiku-20241022"},
		Priority:         3,
		Enabled:          true,
		StripModelVendor: true,
	}, nil)
}

func TestAdapter_SendRequest_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("Anthropic-Version"))

		var body messagesRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-3-5-haiku-20241022", body.Model)
		assert.Equal(t, 1000, body.MaxTokens)

		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"content": [{"type": "text", "text": "Three follow-up questions."}],
			"usage": {"input_tokens": 200, "output_tokens": 50}
		}`))
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	assert.Equal(t, "anthropic", adapter.Name())

	resp := adapter.SendRequest(context.Background(), models.NewAIRequest("anthropic/claude-3-5-haiku-20241022", "Ask questions"))

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "Three follow-up questions.", resp.Text)
	assert.Equal(t, "anthropic/claude-3-5-haiku-20241022", resp.Model)
	require.NotNil(t, resp.TokensUsed)
	assert.Equal(t, 250, *resp.TokensUsed)
	require.NotNil(t, resp.Cost)
	assert.InDelta(t, (200*0.80+50*4.00)/1_000_000, *resp.Cost, 1e-12)
}

func TestAdapter_SendRequest_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer server.Close()

	resp := newTestAdapter(server.URL).SendRequest(context.Background(), models.NewAIRequest("anthropic/claude-3-5-haiku-20241022", "p"))

	assert.False(t, resp.Success)
	assert.Equal(t, "HTTP 503: Overloaded", resp.Error)
	assert.Equal(t, models.ErrorKindUpstream, resp.ErrorKind)
	assert.Equal(t, "anthropic", resp.Provider)
}

func TestAdapter_SendRequest_MissingContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content": [{"type": "tool_use", "id": "x"}]}`))
	}))
	defer server.Close()

	resp := newTestAdapter(server.URL).SendRequest(context.Background(), models.NewAIRequest("anthropic/claude-3-5-haiku-20241022", "p"))

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "missing completion content")
}

func TestAdapter_SendRequest_OversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content": [{"type": "text", "text": "` + strings.Repeat("x", 4096) + `"}]}`))
	}))
	defer server.Close()

	adapter := NewAdapter(providers.ProviderConfig{
		APIKey:           "sk-ant-test",
		BaseURL:          server.URL,
		Models:           []string{"anthropic/claude-3-5-haiku-20241022"},
		StripModelVendor: true,
		MaxResponseBytes: 1024,
	}, nil)
	resp := adapter.SendRequest(context.Background(), models.NewAIRequest("anthropic/claude-3-5-haiku-20241022", "p"))

	assert.False(t, resp.Success)
	assert.Equal(t, models.ErrorKindUpstream, resp.ErrorKind)
	assert.Contains(t, resp.Error, "response body too large")
}

func TestAdapter_SupportsModel(t *testing.T) {
	adapter := newTestAdapter(defaultBaseURL)

	assert.True(t, adapter.SupportsModel("anthropic/claude-3-5-haiku-20241022"))
	assert.False(t, adapter.SupportsModel("openai/gpt-4o"))
}
