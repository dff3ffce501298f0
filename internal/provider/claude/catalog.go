package claude

import (
	"chatai-router/internal/models"
	"chatai-router/internal/provider"
)

var claudeCapabilities = models.Capabilities{Streaming: true, Vision: true}

// Catalog maps Claude model identifiers to display name and pricing.
// Prices are USD per 1000 tokens.
var Catalog = provider.Catalog{
	Provider: ProviderName,
	Entries: []provider.CatalogEntry{
		{Pattern: "claude-3-5-sonnet", Name: "Claude 3.5 Sonnet", Pricing: models.Pricing{Input: 0.003, Output: 0.015}, Capabilities: claudeCapabilities},
		{Pattern: "claude-3-5-haiku", Name: "Claude 3.5 Haiku", Pricing: models.Pricing{Input: 0.0008, Output: 0.004}, Capabilities: claudeCapabilities},
		{Pattern: "claude-3-opus", Name: "Claude 3 Opus", Pricing: models.Pricing{Input: 0.015, Output: 0.075}, Capabilities: claudeCapabilities},
		{Pattern: "claude-3-sonnet", Name: "Claude 3 Sonnet", Pricing: models.Pricing{Input: 0.003, Output: 0.015}, Capabilities: claudeCapabilities},
		{Pattern: "claude-3-haiku", Name: "Claude 3 Haiku", Pricing: models.Pricing{Input: 0.00025, Output: 0.00125}, Capabilities: claudeCapabilities},
	},
	Fallback: provider.CatalogEntry{
		Name:         "Claude",
		Pricing:      models.Pricing{Input: 0.003, Output: 0.015},
		Capabilities: claudeCapabilities,
	},
}
