package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Factory constructs an adapter for the given model identifier. Several
// identifiers may share one factory; the identifier selects name and pricing.
type Factory func(modelID string) (Adapter, error)

// Registry maps model identifiers to factories and caches exactly one
// initialized adapter per identifier.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	instances map[string]Adapter
	// inspected holds constructed but uninitialized adapters used for
	// metadata queries.
	inspected map[string]Adapter
	group     singleflight.Group
	logger    *slog.Logger
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used for lifecycle messages.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry constructs a registry from a factory table.
func NewRegistry(factories map[string]Factory, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		factories: make(map[string]Factory, len(factories)),
		instances: make(map[string]Adapter),
		inspected: make(map[string]Adapter),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for modelID, factory := range factories {
		if err := r.Register(modelID, factory); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a factory for modelID.
func (r *Registry) Register(modelID string, factory Factory) error {
	if modelID == "" {
		return errors.New("model id must not be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory for model %q must not be nil", modelID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[modelID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, modelID)
	}
	r.factories[modelID] = factory
	return nil
}

// GetAdapter returns the cached adapter for modelID, constructing and
// initializing it on first use. Concurrent first requests for the same
// identifier share a single construction.
func (r *Registry) GetAdapter(ctx context.Context, modelID string) (Adapter, error) {
	if adapter, ok := r.cached(modelID); ok {
		return adapter, nil
	}

	r.mu.RLock()
	factory, ok := r.factories[modelID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}

	v, err, _ := r.group.Do(modelID, func() (any, error) {
		if adapter, ok := r.cached(modelID); ok {
			return adapter, nil
		}

		adapter, err := factory(modelID)
		if err != nil {
			return nil, fmt.Errorf("construct adapter for %s: %w", modelID, err)
		}
		if err := adapter.Initialize(ctx); err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.instances[modelID] = adapter
		r.mu.Unlock()

		r.logger.Info("adapter initialized",
			"model", modelID,
			"provider", adapter.Provider(),
			"name", adapter.ModelName(),
		)
		return adapter, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Adapter), nil
}

func (r *Registry) cached(modelID string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.instances[modelID]
	return adapter, ok
}

// Inspect returns an adapter for modelID suitable for static queries such as
// pricing, capabilities and credential format checks. It never calls
// Initialize, so it works without a configured credential. The initialized
// adapter is returned when one is cached.
func (r *Registry) Inspect(modelID string) (Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if adapter, ok := r.instances[modelID]; ok {
		return adapter, nil
	}
	if adapter, ok := r.inspected[modelID]; ok {
		return adapter, nil
	}

	factory, ok := r.factories[modelID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	adapter, err := factory(modelID)
	if err != nil {
		return nil, fmt.Errorf("construct adapter for %s: %w", modelID, err)
	}
	r.inspected[modelID] = adapter
	return adapter, nil
}

// AvailableModels lists registered identifiers in sorted order. It never
// constructs adapters.
func (r *Registry) AvailableModels() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// HasModel reports whether a factory is registered for modelID.
func (r *Registry) HasModel(modelID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[modelID]
	return ok
}
