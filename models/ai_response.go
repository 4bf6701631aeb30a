package models

import "time"

// ErrorKind classifies a failed AIResponse
type ErrorKind string

const (
	ErrorKindConfiguration  ErrorKind = "configuration"
	ErrorKindRateLimited    ErrorKind = "rate_limited"
	ErrorKindBudgetExceeded ErrorKind = "budget_exceeded"
	ErrorKindUpstream       ErrorKind = "upstream"
	ErrorKindCancelled      ErrorKind = "cancelled"
)

// FallbackSource is the provider and model name stamped on degraded responses
const FallbackSource = "fallback"

// AIResponse is the outcome of a request. Error and ErrorKind are set if
// and only if Success is false.
//
// ProcessingTimeMs is the duration of the call that produced the response:
// the provider call for upstream results, the elapsed orchestration time
// for failures raised by the gateway itself. Whole-request latency is
// recorded on the RequestLogEntry.
type AIResponse struct {
	RequestID        string    `json:"request_id"`
	Text             string    `json:"text"`
	Model            string    `json:"model"`
	Provider         string    `json:"provider,omitempty"`
	TokensUsed       *int      `json:"tokens_used,omitempty"`
	PromptTokens     int       `json:"prompt_tokens,omitempty"`
	CompletionTokens int       `json:"completion_tokens,omitempty"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	Cost             *float64  `json:"cost,omitempty"`
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
	ErrorKind        ErrorKind `json:"error_kind,omitempty"`
	Degraded         bool      `json:"degraded"`
	Attempts         int       `json:"attempts"`
}

// NewFailedResponse builds a failure result for req
func NewFailedResponse(req *AIRequest, kind ErrorKind, message string, elapsed time.Duration) *AIResponse {
	return &AIResponse{
		RequestID:        req.RequestID,
		Model:            req.Model,
		ProcessingTimeMs: elapsed.Milliseconds(),
		Success:          false,
		Error:            message,
		ErrorKind:        kind,
	}
}

// IntPtr returns a pointer to n
func IntPtr(n int) *int {
	return &n
}

// Float64Ptr returns a pointer to f
func Float64Ptr(f float64) *float64 {
	return &f
}

// ProviderStatus is a snapshot row describing one registered provider
type ProviderStatus struct {
	Name     string   `json:"name"`
	Enabled  bool     `json:"enabled"`
	Priority int      `json:"priority"`
	Models   []string `json:"models"`
}

// RequestOutcome labels a completed logical request
type RequestOutcome string

const (
	OutcomeSuccess  RequestOutcome = "success"
	OutcomeDegraded RequestOutcome = "degraded"
	OutcomeDenied   RequestOutcome = "denied"
	OutcomeFailed   RequestOutcome = "failed"
)

// RequestLogEntry is the structured record emitted once per logical request
type RequestLogEntry struct {
	RequestID   string         `json:"request_id"`
	Caller      string         `json:"caller"`
	Operation   string         `json:"operation,omitempty"`
	Outcome     RequestOutcome `json:"outcome"`
	ErrorKind   ErrorKind      `json:"error_kind,omitempty"`
	Error       string         `json:"error,omitempty"`
	Model       string         `json:"model,omitempty"`
	Provider    string         `json:"provider,omitempty"`
	ModelsTried []string       `json:"models_tried,omitempty"`
	Attempts    int            `json:"attempts"`
	TokensUsed  int            `json:"tokens_used,omitempty"`
	Cost        float64        `json:"cost,omitempty"`
	DurationMs  int64          `json:"duration_ms"`
	CompletedAt time.Time      `json:"completed_at"`
}
