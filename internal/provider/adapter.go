package provider

import (
	"context"
	"fmt"

	"chatai-router/internal/models"
)

const (
	// DefaultMaxTokens applies when the caller leaves MaxTokens unset.
	DefaultMaxTokens = 2000
	// DefaultTemperature applies when the caller leaves Temperature unset.
	DefaultTemperature = 0.7
)

// Adapter defines the behaviour every provider implementation must offer.
// One adapter instance serves exactly one model identifier.
type Adapter interface {
	ModelID() string
	ModelName() string
	Provider() string
	Capabilities() models.Capabilities
	Pricing() models.Pricing

	// Initialize constructs the provider client. It is idempotent and never
	// re-runs once it has succeeded.
	Initialize(ctx context.Context) error
	// ValidateConfig performs a syntactic check of a caller supplied
	// credential found under the "api_key" key.
	ValidateConfig(raw map[string]any) bool

	SendMessage(ctx context.Context, params models.MessageParams) (*models.Response, error)
	SendStreamingMessage(ctx context.Context, params models.MessageParams) (*Stream, error)
}

// Describe snapshots the static metadata of an adapter.
func Describe(a Adapter) models.ModelInfo {
	return models.ModelInfo{
		ID:           a.ModelID(),
		Name:         a.ModelName(),
		Provider:     a.Provider(),
		Capabilities: a.Capabilities(),
		Pricing:      a.Pricing(),
	}
}

// MaxTokens returns the requested output limit or DefaultMaxTokens.
func MaxTokens(params models.MessageParams) int {
	if params.MaxTokens != nil && *params.MaxTokens > 0 {
		return *params.MaxTokens
	}
	return DefaultMaxTokens
}

// Temperature returns the requested temperature or DefaultTemperature.
func Temperature(params models.MessageParams) float64 {
	if params.Temperature != nil {
		return *params.Temperature
	}
	return DefaultTemperature
}

// ValidateMessages rejects turns whose role is outside the unified enumeration.
func ValidateMessages(msgs []models.Message) error {
	for i, msg := range msgs {
		if !msg.Role.Valid() {
			return NewError(CodeInvalidRequest, fmt.Sprintf("message[%d] has unsupported role %q", i, msg.Role), 0, nil)
		}
	}
	return nil
}
