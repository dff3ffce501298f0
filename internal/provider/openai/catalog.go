package openai

import (
	"chatai-router/internal/models"
	"chatai-router/internal/provider"
)

var (
	chatCapabilities   = models.Capabilities{Streaming: true, Vision: true, FunctionCalling: true}
	legacyCapabilities = models.Capabilities{Streaming: true, FunctionCalling: true}
)

// Catalog maps OpenAI model identifiers to display name and pricing.
// Prices are USD per 1000 tokens.
var Catalog = provider.Catalog{
	Provider: ProviderName,
	Entries: []provider.CatalogEntry{
		{Pattern: "gpt-4o-mini", Name: "GPT-4o mini", Pricing: models.Pricing{Input: 0.00015, Output: 0.0006}, Capabilities: chatCapabilities},
		{Pattern: "gpt-4o", Name: "GPT-4o", Pricing: models.Pricing{Input: 0.005, Output: 0.015}, Capabilities: chatCapabilities},
		{Pattern: "gpt-4-turbo", Name: "GPT-4 Turbo", Pricing: models.Pricing{Input: 0.01, Output: 0.03}, Capabilities: chatCapabilities},
		{Pattern: "gpt-4", Name: "GPT-4", Pricing: models.Pricing{Input: 0.03, Output: 0.06}, Capabilities: chatCapabilities},
		{Pattern: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Pricing: models.Pricing{Input: 0.0005, Output: 0.0015}, Capabilities: legacyCapabilities},
	},
	Fallback: provider.CatalogEntry{
		Name:         "OpenAI",
		Pricing:      models.Pricing{Input: 0.03, Output: 0.06},
		Capabilities: chatCapabilities,
	},
}
