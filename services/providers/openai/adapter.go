// Package openai implements an adapter for OpenAI-compatible chat completion
// APIs. The same adapter serves OpenAI itself and OpenRouter.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/upb/incident-ai-gateway/models"
	"github.com/upb/incident-ai-gateway/services/providers"
	"go.uber.org/zap"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	OpenRouterBaseURL  = "https://openrouter.ai/api/v1"
	completionsPath    = "/chat/completions"
	maxErrorBodyLength = 512
)

// Adapter implements providers.Provider for OpenAI-compatible APIs
type Adapter struct {
	config     providers.ProviderConfig
	httpClient *http.Client
	prices     providers.PriceTable
	logger     *zap.Logger
}

// Option customizes an Adapter
type Option func(*Adapter)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(a *Adapter) {
		a.httpClient = client
	}
}

// WithPrices replaces the price table used for cost estimation
func WithPrices(prices providers.PriceTable) Option {
	return func(a *Adapter) {
		a.prices = prices
	}
}

// NewAdapter creates a new OpenAI-compatible adapter
func NewAdapter(config providers.ProviderConfig, logger *zap.Logger, opts ...Option) *Adapter {
	if config.Name == "" {
		config.Name = "openai"
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = providers.DefaultTimeout
	}
	if config.MaxResponseBytes <= 0 {
		config.MaxResponseBytes = providers.DefaultMaxResponseBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	adapter := &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		prices: providers.DefaultPrices,
		logger: logger,
	}
	for _, opt := range opts {
		opt(adapter)
	}
	return adapter
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return a.config.Name
}

// Config returns the provider configuration
func (a *Adapter) Config() providers.ProviderConfig {
	return a.config
}

// SupportsModel reports whether the model is configured for this provider
func (a *Adapter) SupportsModel(model string) bool {
	_, ok := providers.MatchModel(a.config.Models, model)
	return ok
}

// SendRequest performs one chat completion call
func (a *Adapter) SendRequest(ctx context.Context, req *models.AIRequest) *models.AIResponse {
	start := time.Now()

	body, err := json.Marshal(chatRequest{
		Model:       a.config.UpstreamModel(req.Model),
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return providers.Failure(req, a.Name(), fmt.Sprintf("failed to marshal request: %v", err), start)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return providers.Failure(req, a.Name(), fmt.Sprintf("failed to create request: %v", err), start)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		a.logger.Warn("provider request failed",
			zap.String("provider", a.Name()),
			zap.String("request_id", req.RequestID),
			zap.Error(err))
		return providers.Failure(req, a.Name(), fmt.Sprintf("HTTP request failed: %v", err), start)
	}
	defer httpResp.Body.Close()

	respBody, err := providers.ReadBody(httpResp.Body, a.config.MaxResponseBytes)
	if err != nil {
		return providers.Failure(req, a.Name(), fmt.Sprintf("failed to read response: %v", err), start)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return providers.Failure(req, a.Name(), errorMessage(httpResp.StatusCode, respBody), start)
	}

	return a.parseResponse(req, respBody, start)
}

// parseResponse extracts the completion and usage from a 2xx body
func (a *Adapter) parseResponse(req *models.AIRequest, body []byte, start time.Time) *models.AIResponse {
	if !gjson.ValidBytes(body) {
		return providers.Failure(req, a.Name(), "invalid JSON in provider response", start)
	}

	parsed := gjson.ParseBytes(body)
	content := parsed.Get("choices.0.message.content")
	if !content.Exists() || content.Type != gjson.String {
		return providers.Failure(req, a.Name(), "provider response missing completion content", start)
	}

	resp := &models.AIResponse{
		RequestID:        req.RequestID,
		Text:             content.String(),
		Model:            req.Model,
		Provider:         a.Name(),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Success:          true,
		Attempts:         1,
	}

	usage := parsed.Get("usage")
	if usage.Exists() {
		resp.PromptTokens = int(usage.Get("prompt_tokens").Int())
		resp.CompletionTokens = int(usage.Get("completion_tokens").Int())
		total := int(usage.Get("total_tokens").Int())
		if total == 0 {
			total = resp.PromptTokens + resp.CompletionTokens
		}
		resp.TokensUsed = models.IntPtr(total)
		resp.Cost = models.Float64Ptr(a.prices.Cost(req.Model, resp.PromptTokens, resp.CompletionTokens, total))
	}

	return resp
}

// errorMessage builds a readable message from a non-2xx response
func errorMessage(status int, body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() && msg.String() != "" {
		return fmt.Sprintf("HTTP %d: %s", status, msg.String())
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBodyLength {
		text = text[:maxErrorBodyLength]
	}
	if text == "" {
		text = http.StatusText(status)
	}
	return fmt.Sprintf("HTTP %d: %s", status, text)
}

// OpenAI-compatible request types

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
