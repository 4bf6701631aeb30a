// Package observability provides structured logging and request metrics
// for the incident AI gateway.
//
// This package implements:
//   - zap logger construction from level and format settings
//   - Request ID propagation into log fields
//   - In-process counters for provider attempts, tokens, and cost
package observability
