package anthropic

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
	defaultBaseURL = "https://api.anthropic.com"
	messagesPath   = "/v1/messages"
	apiVersion     = "2023-06-01"
)

// Adapter implements providers.Provider for the Anthropic Messages API
type Adapter struct {
	config     providers.ProviderConfig
	httpClient *http.Client
	prices     providers.PriceTable
	logger     *zap.Logger
}

// NewAdapter creates a new Anthropic adapter
func NewAdapter(config providers.ProviderConfig, logger *zap.Logger) *Adapter {
	if config.Name == "" {
		config.Name = "anthropic"
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

	return &Adapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		prices:     providers.DefaultPrices,
		logger:     logger,
	}
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

// SendRequest performs one Messages API call
func (a *Adapter) SendRequest(ctx context.Context, req *models.AIRequest) *models.AIResponse {
	start := time.Now()

	body, err := json.Marshal(messagesRequest{
		Model:       a.config.UpstreamModel(req.Model),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return providers.Failure(req, a.Name(), fmt.Sprintf("failed to marshal request: %v", err), start)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return providers.Failure(req, a.Name(), fmt.Sprintf("failed to create request: %v", err), start)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", a.config.APIKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)
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
		msg := gjson.GetBytes(respBody, "error.message").String()
		if msg == "" {
			msg = http.StatusText(httpResp.StatusCode)
		}
		return providers.Failure(req, a.Name(), fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode, msg), start)
	}

	if !gjson.ValidBytes(respBody) {
		return providers.Failure(req, a.Name(), "invalid JSON in provider response", start)
	}
	parsed := gjson.ParseBytes(respBody)

	// Messages API returns a list of content blocks; the first text block is the completion.
	text := parsed.Get(`content.#(type=="text").text`)
	if !text.Exists() {
		return providers.Failure(req, a.Name(), "provider response missing completion content", start)
	}

	resp := &models.AIResponse{
		RequestID:        req.RequestID,
		Text:             text.String(),
		Model:            req.Model,
		Provider:         a.Name(),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Success:          true,
		Attempts:         1,
	}

	if usage := parsed.Get("usage"); usage.Exists() {
		resp.PromptTokens = int(usage.Get("input_tokens").Int())
		resp.CompletionTokens = int(usage.Get("output_tokens").Int())
		total := resp.PromptTokens + resp.CompletionTokens
		resp.TokensUsed = models.IntPtr(total)
		resp.Cost = models.Float64Ptr(a.prices.Cost(req.Model, resp.PromptTokens, resp.CompletionTokens, total))
	}

	return resp
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
