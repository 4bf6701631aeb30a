package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Providers     ProvidersConfig
	AI            AIConfig
	RateLimit     RateLimitConfig
	Budget        BudgetConfig
	Breaker       BreakerConfig
	RequestLog    RequestLogConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TLS             struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// ProvidersConfig holds the upstream AI provider configurations.
// A provider without an API key is not registered at all.
type ProvidersConfig struct {
	OpenRouter ProviderConfig
	OpenAI     ProviderConfig
	Anthropic  ProviderConfig
}

// ProviderConfig holds one provider's credentials and routing settings
type ProviderConfig struct {
	APIKey   string
	BaseURL  string
	Models   []string
	Priority int
	Timeout  time.Duration
}

// Configured reports whether the provider has credentials
func (p ProviderConfig) Configured() bool {
	return p.APIKey != ""
}

// AIConfig holds orchestration settings
type AIConfig struct {
	DefaultModel   string
	FallbackModel  string
	RequestTimeout time.Duration // zero disables the per-request bound
}

// RateLimitConfig holds the per-caller sliding window
type RateLimitConfig struct {
	Window          time.Duration
	MaxRequests     int
	CleanupInterval time.Duration
}

// BudgetConfig holds the global daily spend ceiling
type BudgetConfig struct {
	DailyLimit float64
	Timezone   string
}

// Location resolves the configured timezone
func (b BudgetConfig) Location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(b.Timezone)
}

// BreakerConfig holds circuit breaker thresholds
type BreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
}

// RequestLogConfig holds the request log dispatcher settings
type RequestLogConfig struct {
	BufferSize int
	Workers    int
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			TLS: struct {
				Enabled  bool
				CertFile string
				KeyFile  string
			}{
				Enabled:  getEnvAsBool("TLS_ENABLED", false),
				CertFile: getEnv("TLS_CERT_FILE", "certs/cert.pem"),
				KeyFile:  getEnv("TLS_KEY_FILE", "certs/key.pem"),
			},
		},
		Providers: ProvidersConfig{
			OpenRouter: ProviderConfig{
				APIKey:   getEnv("OPENROUTER_API_KEY", ""),
				BaseURL:  getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
				Models:   getEnvAsList("OPENROUTER_MODELS", []string{"anthropic/claude-3.5-sonnet", "anthropic/claude-3-haiku", "openai/gpt-4o-mini", "openai/gpt-4o"}),
				Priority: getEnvAsInt("OPENROUTER_PRIORITY", 1),
				Timeout:  getEnvAsDuration("OPENROUTER_TIMEOUT", 30*time.Second),
			},
			OpenAI: ProviderConfig{
				APIKey:   getEnv("OPENAI_API_KEY", ""),
				BaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Models:   getEnvAsList("OPENAI_MODELS", []string{"gpt-4o-mini", "gpt-4o"}),
				Priority: getEnvAsInt("OPENAI_PRIORITY", 2),
				Timeout:  getEnvAsDuration("OPENAI_TIMEOUT", 30*time.Second),
			},
			Anthropic: ProviderConfig{
				APIKey:   getEnv("ANTHROPIC_API_KEY", ""),
				BaseURL:  getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				Models:   getEnvAsList("ANTHROPIC_MODELS", []string{"claude-3-5-sonnet-20241022", "claude-3-haiku-20240307"}),
				Priority: getEnvAsInt("ANTHROPIC_PRIORITY", 3),
				Timeout:  getEnvAsDuration("ANTHROPIC_TIMEOUT", 30*time.Second),
			},
		},
		AI: AIConfig{
			DefaultModel:   getEnv("AI_DEFAULT_MODEL", "anthropic/claude-3.5-sonnet"),
			FallbackModel:  getEnv("AI_FALLBACK_MODEL", "openai/gpt-4o-mini"),
			RequestTimeout: getEnvAsDuration("AI_REQUEST_TIMEOUT", 0),
		},
		RateLimit: RateLimitConfig{
			Window:          getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
			MaxRequests:     getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 10),
			CleanupInterval: getEnvAsDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		},
		Budget: BudgetConfig{
			DailyLimit: getEnvAsFloat("DAILY_COST_LIMIT", 10.0),
			Timezone:   getEnv("COST_TIMEZONE", ""),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
			SuccessThreshold: getEnvAsInt("BREAKER_SUCCESS_THRESHOLD", 3),
			Timeout:          getEnvAsDuration("BREAKER_TIMEOUT", 60*time.Second),
		},
		RequestLog: RequestLogConfig{
			BufferSize: getEnvAsInt("REQUEST_LOG_BUFFER_SIZE", 1000),
			Workers:    getEnvAsInt("REQUEST_LOG_WORKERS", 2),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	// Provider validation (at least one provider API key required in production)
	if c.IsProduction() && !c.Providers.AnyConfigured() {
		return fmt.Errorf("at least one AI provider must be configured in production")
	}

	// Rate limit validation
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate limit max requests must be positive")
	}

	// Budget validation
	if c.Budget.DailyLimit <= 0 {
		return fmt.Errorf("daily cost limit must be positive")
	}
	if _, err := c.Budget.Location(); err != nil {
		return fmt.Errorf("invalid cost timezone %q: %w", c.Budget.Timezone, err)
	}

	// Breaker validation
	if c.Breaker.FailureThreshold <= 0 || c.Breaker.SuccessThreshold <= 0 {
		return fmt.Errorf("breaker thresholds must be positive")
	}
	if c.Breaker.Timeout <= 0 {
		return fmt.Errorf("breaker timeout must be positive")
	}

	if c.AI.RequestTimeout < 0 {
		return fmt.Errorf("ai request timeout cannot be negative")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// AnyConfigured reports whether at least one provider has credentials
func (p ProvidersConfig) AnyConfigured() bool {
	return p.OpenRouter.Configured() || p.OpenAI.Configured() || p.Anthropic.Configured()
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping blank entries
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
