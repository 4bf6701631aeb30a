package utils

import (
	"encoding/json"
	"net/http"
)

// Error codes carried in ErrorResponse.Error
const (
	CodeBadRequest          = "bad_request"
	CodeNotFound            = "not_found"
	CodeMethodNotAllowed    = "method_not_allowed"
	CodeRateLimitExceeded   = "rate_limit_exceeded"
	CodeDailyBudgetExceeded = "daily_budget_exceeded"
	CodeBadGateway          = "bad_gateway"
	CodeServiceUnavailable  = "service_unavailable"
	CodeConfigurationError  = "configuration_error"
	CodeInternalError       = "internal_error"
)

// statusCodes maps a status to its default error code for WriteError
var statusCodes = map[int]string{
	http.StatusBadRequest:         CodeBadRequest,
	http.StatusNotFound:           CodeNotFound,
	http.StatusMethodNotAllowed:   CodeMethodNotAllowed,
	http.StatusTooManyRequests:    CodeRateLimitExceeded,
	http.StatusBadGateway:         CodeBadGateway,
	http.StatusServiceUnavailable: CodeServiceUnavailable,
}

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps successful payloads as {"data": ...}
type SuccessResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	return json.NewEncoder(w).Encode(data)
}

// WriteOK writes a 200 OK response with optional data
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

// writeError writes an ErrorResponse, substituting defaultMessage for an
// empty message
func writeError(w http.ResponseWriter, status int, code, message, defaultMessage string, details map[string]interface{}) error {
	if message == "" {
		message = defaultMessage
	}
	return WriteJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
		Details: details,
	})
}

// WriteBadRequest writes a 400 Bad Request response with error details
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]interface{}) error {
	return writeError(w, http.StatusBadRequest, CodeBadRequest, message, "Bad request", details)
}

// WriteNotFound writes a 404 Not Found response
func WriteNotFound(w http.ResponseWriter, message string) error {
	return writeError(w, http.StatusNotFound, CodeNotFound, message, "Resource not found", nil)
}

// WriteTooManyRequests writes a 429 for a per-caller rate limit
func WriteTooManyRequests(w http.ResponseWriter, message string, details map[string]interface{}) error {
	return writeError(w, http.StatusTooManyRequests, CodeRateLimitExceeded, message, "Rate limit exceeded", details)
}

// WriteBudgetExceeded writes a 429 for the global daily budget. The code
// differs from WriteTooManyRequests so clients can tell the two apart.
func WriteBudgetExceeded(w http.ResponseWriter, message string, details map[string]interface{}) error {
	return writeError(w, http.StatusTooManyRequests, CodeDailyBudgetExceeded, message, "Daily cost limit exceeded", details)
}

// WriteBadGateway writes a 502 when no upstream provider produced a result
func WriteBadGateway(w http.ResponseWriter, message string, details map[string]interface{}) error {
	return writeError(w, http.StatusBadGateway, CodeBadGateway, message, "Upstream provider error", details)
}

// WriteConfigurationError writes a 500 for a gateway that cannot serve
// requests as configured
func WriteConfigurationError(w http.ResponseWriter, message string, details map[string]interface{}) error {
	return writeError(w, http.StatusInternalServerError, CodeConfigurationError, message, "Service is not configured", details)
}

// WriteInternalServerError writes a 500 Internal Server Error response
func WriteInternalServerError(w http.ResponseWriter, message string) error {
	return writeError(w, http.StatusInternalServerError, CodeInternalError, message, "Internal server error", nil)
}

// WriteError writes an error response with the default code for status
func WriteError(w http.ResponseWriter, status int, message string, details map[string]interface{}) error {
	code, ok := statusCodes[status]
	if !ok {
		code = CodeInternalError
	}
	return writeError(w, status, code, message, http.StatusText(status), details)
}
