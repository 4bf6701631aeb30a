package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/incident-ai-gateway/services"
	"github.com/upb/incident-ai-gateway/utils"
	"go.uber.org/zap"
)

type errorWriter func(w http.ResponseWriter, message string, details map[string]interface{}) error

// errorWriters maps each client-visible error type to its response.
// Internal and untyped errors are answered generically.
var errorWriters = map[services.ErrorType]errorWriter{
	services.ErrorTypeValidation:    utils.WriteBadRequest,
	services.ErrorTypeRateLimit:     utils.WriteTooManyRequests,
	services.ErrorTypeBudget:        utils.WriteBudgetExceeded,
	services.ErrorTypeExternal:      utils.WriteBadGateway,
	services.ErrorTypeCancelled:     utils.WriteBadGateway,
	services.ErrorTypeConfiguration: utils.WriteConfigurationError,
}

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	errType := services.GetErrorType(err)
	details := services.GetErrorDetails(err)
	logger.Debug("handling service error",
		zap.String("type", string(errType)),
		zap.Any("details", details))

	write, ok := errorWriters[errType]
	if !ok {
		logger.Error("internal server error",
			zap.Error(err),
			zap.String("error_type", string(errType)))
		if werr := utils.WriteInternalServerError(w, "An internal error occurred"); werr != nil {
			logger.Error("failed to write internal error response", zap.Error(werr))
		}
		return
	}

	if errType == services.ErrorTypeConfiguration {
		logger.Error("service misconfigured", zap.Error(err))
	}
	if werr := write(w, clientMessage(err), details); werr != nil {
		logger.Error("failed to write error response",
			zap.String("type", string(errType)),
			zap.Error(werr))
	}
}

// clientMessage is the message of the wrapped domain error without its type
// prefix, or err's text for anything else
func clientMessage(err error) string {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	return err.Error()
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var werr error
	if verr, ok := utils.AsValidationError(err); ok {
		werr = utils.WriteBadRequest(w, verr.Message, verr.Details())
	} else {
		werr = utils.WriteBadRequest(w, err.Error(), nil)
	}
	if werr != nil {
		logger.Error("failed to write validation error response", zap.Error(werr))
	}
}
