package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/upb/incident-ai-gateway/middleware"
	"github.com/upb/incident-ai-gateway/models"
	"github.com/upb/incident-ai-gateway/services"
	"github.com/upb/incident-ai-gateway/utils"
	"go.uber.org/zap"
)

const (
	// DegradedHeader marks responses built from fallback content
	DegradedHeader = "X-AI-Degraded"

	maxRequestBodyBytes = 1 << 20
)

// CreateAIRequest is the body of POST /api/v1/ai/requests
type CreateAIRequest struct {
	RequestID   string                 `json:"request_id,omitempty" validate:"omitempty,max=128"`
	Model       string                 `json:"model,omitempty" validate:"omitempty,max=200"`
	Prompt      string                 `json:"prompt" validate:"required,max=100000"`
	Temperature *float64               `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   *int                   `json:"max_tokens,omitempty" validate:"omitempty,gt=0,lte=32000"`
	Operation   string                 `json:"operation,omitempty" validate:"omitempty,max=100"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// AIService defines the orchestration operations the handler needs
type AIService interface {
	SendRequest(ctx context.Context, req *models.AIRequest) *models.AIResponse
	GetProviderStatus() []models.ProviderStatus
}

// AIHandler handles AI request HTTP endpoints
type AIHandler struct {
	service      AIService
	defaultModel string
	logger       *zap.Logger
}

// NewAIHandler creates a new AIHandler. defaultModel is used when the
// body names no model.
func NewAIHandler(service AIService, defaultModel string, logger *zap.Logger) *AIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AIHandler{
		service:      service,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// HandleCreateRequest handles POST /api/v1/ai/requests
func (h *AIHandler) HandleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)
	caller := middleware.GetCallerIDFromContext(ctx)

	// Parse request body
	var body CreateAIRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&body); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	// Validate request
	if err := utils.ValidateStruct(&body); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}
	if strings.TrimSpace(body.Prompt) == "" {
		HandleServiceError(w, services.ErrEmptyPrompt, h.logger)
		return
	}

	req := h.buildRequest(&body, caller)

	h.logger.Debug("processing ai request",
		zap.String("request_id", requestID),
		zap.String("ai_request_id", req.RequestID),
		zap.String("caller", caller),
		zap.String("model", req.Model),
		zap.String("operation", req.Operation()))

	resp := h.service.SendRequest(ctx, req)
	if err := services.ErrorFromResponse(resp); err != nil {
		h.logger.Warn("ai request failed",
			zap.String("request_id", requestID),
			zap.String("ai_request_id", req.RequestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	if resp.Degraded {
		w.Header().Set(DegradedHeader, "true")
	}
	if err := utils.WriteOK(w, resp); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// HandleListProviders handles GET /api/v1/ai/providers
func (h *AIHandler) HandleListProviders(w http.ResponseWriter, r *http.Request) {
	if err := utils.WriteOK(w, h.service.GetProviderStatus()); err != nil {
		h.logger.Error("failed to write providers response", zap.Error(err))
	}
}

// buildRequest converts the body into an AIRequest. The caller identity
// comes from the request context, never from the body.
func (h *AIHandler) buildRequest(body *CreateAIRequest, caller string) *models.AIRequest {
	metadata := make(map[string]interface{}, len(body.Metadata)+2)
	for k, v := range body.Metadata {
		metadata[k] = v
	}
	metadata[models.MetadataUserID] = caller
	if body.Operation != "" {
		metadata[models.MetadataOperation] = body.Operation
	}

	model := strings.TrimSpace(body.Model)
	if model == "" {
		model = h.defaultModel
	}

	opts := []models.RequestOption{
		models.WithRequestID(body.RequestID),
		models.WithMetadata(metadata),
	}
	if body.Temperature != nil {
		opts = append(opts, models.WithTemperature(*body.Temperature))
	}
	if body.MaxTokens != nil {
		opts = append(opts, models.WithMaxTokens(*body.MaxTokens))
	}
	return models.NewAIRequest(model, body.Prompt, opts...)
}
