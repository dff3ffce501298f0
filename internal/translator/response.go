package translator

import (
	"time"

	"chatai-router/internal/models"
)

// MessageResponse is the JSON shape of a complete unified response.
type MessageResponse struct {
	Content      string    `json:"content"`
	FinishReason string    `json:"finish_reason"`
	Usage        Usage     `json:"usage"`
	Model        string    `json:"model"`
	Timestamp    time.Time `json:"timestamp"`
	Cost         float64   `json:"cost"`
}

// Usage mirrors models.Usage with JSON names.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FromResponse converts a unified response. The raw provider payload is
// deliberately not exposed.
func FromResponse(resp *models.Response, cost float64) MessageResponse {
	return MessageResponse{
		Content:      resp.Content,
		FinishReason: resp.FinishReason,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Model:     resp.Model,
		Timestamp: resp.Timestamp,
		Cost:      cost,
	}
}

// ChunkEvent is the data of a "chunk" server-sent event.
type ChunkEvent struct {
	Content      string `json:"content"`
	Index        int    `json:"index"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// FromChunk converts a unified chunk.
func FromChunk(chunk models.Chunk) ChunkEvent {
	return ChunkEvent{
		Content:      chunk.Content,
		Index:        chunk.Index,
		FinishReason: chunk.FinishReason,
	}
}

// ErrorBody is the JSON error envelope used by every endpoint.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failure.
type ErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// ModelList is the JSON shape of GET /v1/models.
type ModelList struct {
	Object string   `json:"object"`
	Data   []string `json:"data"`
}

// ModelDetail is the JSON shape of GET /v1/models/:id.
type ModelDetail struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Provider     string              `json:"provider"`
	Capabilities models.Capabilities `json:"capabilities"`
	Pricing      models.Pricing      `json:"pricing"`
}

// FromModelInfo converts model metadata.
func FromModelInfo(info models.ModelInfo) ModelDetail {
	return ModelDetail{
		ID:           info.ID,
		Name:         info.Name,
		Provider:     info.Provider,
		Capabilities: info.Capabilities,
		Pricing:      info.Pricing,
	}
}

// KeyCheckResponse reports whether a caller supplied key has the expected
// format for a model's provider.
type KeyCheckResponse struct {
	Model string `json:"model"`
	Valid bool   `json:"valid"`
}
