package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chatai-router/internal/models"
)

func TestParamDefaults(t *testing.T) {
	assert.Equal(t, DefaultMaxTokens, MaxTokens(models.MessageParams{}))
	assert.InDelta(t, DefaultTemperature, Temperature(models.MessageParams{}), 1e-9)

	maxTokens := 128
	temp := 0.0
	params := models.MessageParams{MaxTokens: &maxTokens, Temperature: &temp}
	assert.Equal(t, 128, MaxTokens(params))
	assert.Zero(t, Temperature(params))
}
