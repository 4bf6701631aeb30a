package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/upb/incident-ai-gateway/models"
)

// DefaultTimeout bounds a single upstream call when the provider config sets none
const DefaultTimeout = 30 * time.Second

// DefaultMaxResponseBytes caps an upstream body when the provider config sets no limit
const DefaultMaxResponseBytes = 8 << 20

// ErrResponseTooLarge is returned by ReadBody for a body over the limit
var ErrResponseTooLarge = errors.New("response body too large")

// Provider is the uniform contract over one upstream AI vendor.
//
// SendRequest never returns a Go error: every failure (transport, non-2xx,
// malformed body) comes back as an AIResponse with Success=false. Adapters
// do not retry; the orchestrator owns retry and fallback policy.
type Provider interface {
	// Name returns the provider name (e.g., "openrouter", "openai", "anthropic")
	Name() string

	// Config returns the provider's configuration
	Config() ProviderConfig

	// SupportsModel reports whether the provider can serve model
	SupportsModel(model string) bool

	// SendRequest performs exactly one upstream call
	SendRequest(ctx context.Context, req *models.AIRequest) *models.AIResponse
}

// ProviderConfig holds the configuration of one upstream provider.
// A provider with no APIKey is never constructed.
type ProviderConfig struct {
	// Name identifies the provider
	Name string

	// APIKey for authentication
	APIKey string

	// BaseURL for the API
	BaseURL string

	// Models lists the model ids this provider serves, in preference order
	Models []string

	// Priority orders providers; lower values are tried first
	Priority int

	// Enabled providers participate in routing
	Enabled bool

	// Timeout for a single upstream call
	Timeout time.Duration

	// Headers are added to every upstream call
	Headers map[string]string

	// StripModelVendor sends "model" instead of "vendor/model" upstream
	StripModelVendor bool

	// MaxResponseBytes caps how much of an upstream body is read
	MaxResponseBytes int64
}

// MatchModel resolves requested against the configured model list.
// An exact match wins; otherwise the longest configured id contained in
// requested is returned. The substring step is best-effort aliasing.
func MatchModel(configured []string, requested string) (string, bool) {
	if requested == "" {
		return "", false
	}
	for _, m := range configured {
		if m == requested {
			return m, true
		}
	}

	best := ""
	for _, m := range configured {
		if m != "" && strings.Contains(requested, m) && len(m) > len(best) {
			best = m
		}
	}
	return best, best != ""
}

// UpstreamModel returns the model id to send to the vendor
func (c ProviderConfig) UpstreamModel(model string) string {
	if !c.StripModelVendor {
		return model
	}
	if i := strings.LastIndex(model, "/"); i >= 0 {
		return model[i+1:]
	}
	return model
}

// ReadBody reads r up to limit bytes. A longer body is an error rather
// than a silently truncated document.
func ReadBody(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrResponseTooLarge, limit)
	}
	return body, nil
}

// Failure builds the failed result an adapter returns for req
func Failure(req *models.AIRequest, provider, message string, start time.Time) *models.AIResponse {
	resp := models.NewFailedResponse(req, models.ErrorKindUpstream, message, time.Since(start))
	resp.Provider = provider
	resp.Attempts = 1
	return resp
}
