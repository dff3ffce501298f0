package router

import (
	"context"
	"errors"

	"chatai-router/internal/models"
	"chatai-router/internal/provider"
)

// ErrNilRegistry is returned by New when no registry is supplied.
var ErrNilRegistry = errors.New("registry must not be nil")

// Router dispatches unified requests to the adapter serving each model.
type Router struct {
	registry *provider.Registry
}

// New constructs a router backed by the provided registry.
func New(registry *provider.Registry) (*Router, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	return &Router{registry: registry}, nil
}

// SendMessage resolves modelID and performs a complete, retried call.
func (r *Router) SendMessage(ctx context.Context, modelID string, params models.MessageParams) (*models.Response, error) {
	adapter, err := r.registry.GetAdapter(ctx, modelID)
	if err != nil {
		return nil, err
	}
	return adapter.SendMessage(ctx, cloneParams(params))
}

// SendStreamingMessage resolves modelID and opens a chunk stream. The caller
// must drain or Close the returned stream.
func (r *Router) SendStreamingMessage(ctx context.Context, modelID string, params models.MessageParams) (*provider.Stream, error) {
	adapter, err := r.registry.GetAdapter(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if !adapter.Capabilities().Streaming {
		return nil, provider.NewError(provider.CodeInvalidRequest, "model "+modelID+" does not support streaming", 0, nil)
	}

	params = cloneParams(params)
	params.Stream = true
	return adapter.SendStreamingMessage(ctx, params)
}

// AvailableModels lists every registered model identifier.
func (r *Router) AvailableModels() []string {
	return r.registry.AvailableModels()
}

// HasModel reports whether modelID is registered.
func (r *Router) HasModel(modelID string) bool {
	return r.registry.HasModel(modelID)
}

// CalculateCost estimates the cost of a call to modelID. Pricing is static, so
// no provider credential is needed.
func (r *Router) CalculateCost(modelID string, inputTokens, outputTokens int) (float64, error) {
	adapter, err := r.registry.Inspect(modelID)
	if err != nil {
		return 0, err
	}
	return provider.CalculateCost(adapter.Pricing(), inputTokens, outputTokens), nil
}

// Describe returns the metadata of modelID's adapter.
func (r *Router) Describe(modelID string) (models.ModelInfo, error) {
	adapter, err := r.registry.Inspect(modelID)
	if err != nil {
		return models.ModelInfo{}, err
	}
	return provider.Describe(adapter), nil
}

// ValidateCredential checks the format of a caller supplied key for modelID.
// The key is never sent to the provider and the process credential is not
// required.
func (r *Router) ValidateCredential(modelID, apiKey string) (bool, error) {
	adapter, err := r.registry.Inspect(modelID)
	if err != nil {
		return false, err
	}
	return adapter.ValidateConfig(map[string]any{"api_key": apiKey}), nil
}

func cloneParams(params models.MessageParams) models.MessageParams {
	out := params
	out.Messages = append([]models.Message(nil), params.Messages...)
	if params.StopSequences != nil {
		out.StopSequences = append([]string(nil), params.StopSequences...)
	}
	return out
}
