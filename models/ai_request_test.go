package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAIRequest_Defaults(t *testing.T) {
	req := NewAIRequest(" openai/gpt-4o-mini ", "describe the incident")

	assert.NotEmpty(t, req.RequestID)
	assert.Equal(t, "openai/gpt-4o-mini", req.Model)
	assert.Equal(t, "describe the incident", req.Prompt)
	assert.Equal(t, DefaultTemperature, req.Temperature)
	assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
	assert.NotNil(t, req.Metadata)
}

func TestNewAIRequest_Options(t *testing.T) {
	md := map[string]interface{}{MetadataUserID: "user-42"}
	req := NewAIRequest("anthropic/claude-3-haiku", "p",
		WithRequestID("corr-1"),
		WithTemperature(0.2),
		WithMaxTokens(256),
		WithMetadata(md),
	)

	assert.Equal(t, "corr-1", req.RequestID)
	assert.Equal(t, 0.2, req.Temperature)
	assert.Equal(t, 256, req.MaxTokens)
	assert.Equal(t, "user-42", req.CallerKey())

	md[MetadataUserID] = "mutated"
	assert.Equal(t, "user-42", req.CallerKey(), "metadata must be copied on construction")
}

func TestNewAIRequest_IgnoresEmptyOptions(t *testing.T) {
	req := NewAIRequest("m", "p", WithRequestID(""), WithMaxTokens(0))

	assert.NotEmpty(t, req.RequestID)
	assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
}

func TestAIRequest_WithModel(t *testing.T) {
	orig := NewAIRequest("openai/gpt-4o", "p", WithMetadata(map[string]interface{}{"k": "v"}))

	derived := orig.WithModel("openai/gpt-4o-mini")
	derived.Metadata["k"] = "changed"

	assert.Equal(t, "openai/gpt-4o", orig.Model)
	assert.Equal(t, "openai/gpt-4o-mini", derived.Model)
	assert.Equal(t, orig.RequestID, derived.RequestID)
	assert.Equal(t, "v", orig.Metadata["k"])
}

func TestAIRequest_CallerKey(t *testing.T) {
	tests := []struct {
		name string
		md   map[string]interface{}
		want string
	}{
		{name: "no metadata", md: nil, want: AnonymousCaller},
		{name: "blank user", md: map[string]interface{}{MetadataUserID: "  "}, want: AnonymousCaller},
		{name: "non-string user", md: map[string]interface{}{MetadataUserID: 12}, want: AnonymousCaller},
		{name: "user present", md: map[string]interface{}{MetadataUserID: "u-1"}, want: "u-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &AIRequest{Metadata: tt.md}
			assert.Equal(t, tt.want, req.CallerKey())
		})
	}
}

func TestNewFailedResponse(t *testing.T) {
	req := NewAIRequest("openai/gpt-4o", "p", WithRequestID("r-1"))

	resp := NewFailedResponse(req, ErrorKindUpstream, "boom", 1500*time.Millisecond)

	require.NotNil(t, resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "r-1", resp.RequestID)
	assert.Equal(t, "openai/gpt-4o", resp.Model)
	assert.Equal(t, "boom", resp.Error)
	assert.Equal(t, ErrorKindUpstream, resp.ErrorKind)
	assert.Equal(t, int64(1500), resp.ProcessingTimeMs)
	assert.Nil(t, resp.Cost)
}
