package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a provider has no credentials.
var ErrNotConfigured = errors.New("llm provider not configured")

// Provider defines the interface for interacting with LLM services.
type Provider interface {
	// GenerateText sends a prompt and returns the text response.
	// name identifies the intent in prompt logs and tracker stats.
	GenerateText(ctx context.Context, name, prompt string) (string, error)

	// HealthCheck verifies that the provider is configured and reachable.
	HealthCheck(ctx context.Context) error
}
