package provider

import "chatai-router/internal/models"

// CalculateCost estimates the cost of a call from per-1000-token pricing.
func CalculateCost(pricing models.Pricing, inputTokens, outputTokens int) float64 {
	inputCost := float64(inputTokens) / 1000 * pricing.Input
	outputCost := float64(outputTokens) / 1000 * pricing.Output
	return inputCost + outputCost
}
