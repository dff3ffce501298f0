package factory

import (
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"chatai-router/internal/config"
	"chatai-router/internal/models"
	"chatai-router/internal/provider"
	claudeProvider "chatai-router/internal/provider/claude"
	openaiProvider "chatai-router/internal/provider/openai"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// Factories builds the registry factory table for every configured model.
// Models of one family share a single HTTP transport; each adapter still owns
// its own API client.
func Factories(cfg config.Config, logger *slog.Logger) map[string]provider.Factory {
	if logger == nil {
		logger = slog.Default()
	}

	retry := provider.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
	}
	factories := make(map[string]provider.Factory)

	if p := cfg.Providers.OpenAI; p != nil {
		client := newHTTPClient(p.ProviderTimeout())
		overrides := overridesFor(*p)
		providerLogger := logger.With("provider", openaiProvider.ProviderName)

		for _, m := range p.Models {
			factories[m.ID] = func(modelID string) (provider.Adapter, error) {
				return openaiProvider.New(modelID, openaiProvider.Options{
					APIKey:     p.APIKey,
					BaseURL:    p.BaseURL,
					Headers:    p.Headers,
					HTTPClient: client,
					Retry:      retry,
					Logger:     providerLogger,
					Override:   overrides[modelID],
				})
			}
		}
	}

	if p := cfg.Providers.Anthropic; p != nil {
		client := newHTTPClient(p.ProviderTimeout())
		overrides := overridesFor(*p)
		providerLogger := logger.With("provider", claudeProvider.ProviderName)

		for _, m := range p.Models {
			factories[m.ID] = func(modelID string) (provider.Adapter, error) {
				return claudeProvider.New(modelID, claudeProvider.Options{
					APIKey:     p.APIKey,
					BaseURL:    p.BaseURL,
					Headers:    p.Headers,
					HTTPClient: client,
					Retry:      retry,
					Logger:     providerLogger,
					Override:   overrides[modelID],
				})
			}
		}
	}

	return factories
}

// NewRegistry constructs a registry backed by the configured factories.
func NewRegistry(cfg config.Config, logger *slog.Logger) (*provider.Registry, error) {
	return provider.NewRegistry(Factories(cfg, logger), provider.WithRegistryLogger(logger))
}

// Describe resolves catalog metadata for every configured model without
// constructing adapters.
func Describe(cfg config.Config) []models.ModelInfo {
	var infos []models.ModelInfo

	if p := cfg.Providers.OpenAI; p != nil {
		overrides := overridesFor(*p)
		for _, m := range p.Models {
			info, _ := openaiProvider.Catalog.Resolve(m.ID, overrides[m.ID])
			infos = append(infos, info)
		}
	}
	if p := cfg.Providers.Anthropic; p != nil {
		overrides := overridesFor(*p)
		for _, m := range p.Models {
			info, _ := claudeProvider.Catalog.Resolve(m.ID, overrides[m.ID])
			infos = append(infos, info)
		}
	}

	slices.SortFunc(infos, func(a, b models.ModelInfo) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return infos
}

func overridesFor(p config.ProviderConfig) map[string]provider.ModelOverride {
	out := make(map[string]provider.ModelOverride, len(p.Models))
	for _, m := range p.Models {
		out[m.ID] = provider.ModelOverride{
			Name:         m.Name,
			Pricing:      m.Pricing,
			Capabilities: m.Capabilities,
		}
	}
	return out
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
