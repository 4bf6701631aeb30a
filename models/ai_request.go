package models

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultTemperature is applied when a request does not set one
	DefaultTemperature = 0.7

	// DefaultMaxTokens is applied when a request does not set one
	DefaultMaxTokens = 1000

	// AnonymousCaller is the rate-limit key for requests without a caller identity
	AnonymousCaller = "anonymous"
)

// Metadata keys read by the orchestration layer. Everything else is opaque.
const (
	MetadataUserID          = "user_id"
	MetadataOperation       = "operation"
	MetadataParticipantName = "participant_name"
	MetadataLocation        = "location"
	MetadataIncidentDate    = "incident_date"
	MetadataReporterName    = "reporter_name"
)

// AIRequest is a single prompt submitted by a business workflow.
// Values are treated as immutable once submitted; use WithModel to derive
// a request targeting a different model.
type AIRequest struct {
	RequestID   string                 `json:"request_id"`
	Model       string                 `json:"model"`
	Prompt      string                 `json:"prompt"`
	Temperature float64                `json:"temperature"`
	MaxTokens   int                    `json:"max_tokens"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// RequestOption customizes a new AIRequest
type RequestOption func(*AIRequest)

// WithRequestID sets the correlation id
func WithRequestID(id string) RequestOption {
	return func(r *AIRequest) {
		if id != "" {
			r.RequestID = id
		}
	}
}

// WithTemperature sets the sampling temperature
func WithTemperature(t float64) RequestOption {
	return func(r *AIRequest) {
		r.Temperature = t
	}
}

// WithMaxTokens sets the completion token ceiling
func WithMaxTokens(n int) RequestOption {
	return func(r *AIRequest) {
		if n > 0 {
			r.MaxTokens = n
		}
	}
}

// WithMetadata attaches caller metadata. The map is copied.
func WithMetadata(md map[string]interface{}) RequestOption {
	return func(r *AIRequest) {
		r.Metadata = copyMetadata(md)
	}
}

// NewAIRequest creates a request with defaults applied and a generated
// correlation id.
func NewAIRequest(model, prompt string, opts ...RequestOption) *AIRequest {
	req := &AIRequest{
		RequestID:   uuid.New().String(),
		Model:       strings.TrimSpace(model),
		Prompt:      prompt,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Metadata:    map[string]interface{}{},
	}
	for _, opt := range opts {
		opt(req)
	}
	return req
}

// WithModel returns a copy of the request targeting model
func (r *AIRequest) WithModel(model string) *AIRequest {
	derived := *r
	derived.Model = model
	derived.Metadata = copyMetadata(r.Metadata)
	return &derived
}

// CallerKey returns the rate-limit key for the request
func (r *AIRequest) CallerKey() string {
	if id := r.MetadataString(MetadataUserID); id != "" {
		return id
	}
	return AnonymousCaller
}

// Operation returns the business operation name, if any
func (r *AIRequest) Operation() string {
	return r.MetadataString(MetadataOperation)
}

// MetadataString returns a metadata value as a trimmed string.
// Non-string values yield "".
func (r *AIRequest) MetadataString(key string) string {
	if r.Metadata == nil {
		return ""
	}
	if s, ok := r.Metadata[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func copyMetadata(md map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
