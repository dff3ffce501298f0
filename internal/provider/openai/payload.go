package openai

import (
	"encoding/json"
	"time"

	"chatai-router/internal/models"
	"chatai-router/internal/provider"
)

type chatPayload struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Stream      bool            `json:"stream,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
	User        string          `json:"user,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// buildChatPayload keeps system turns in-line. A separate system prompt is
// injected as a leading system turn ahead of the conversation.
func buildChatPayload(model string, params models.MessageParams, stream bool) (chatPayload, error) {
	if err := provider.ValidateMessages(params.Messages); err != nil {
		return chatPayload{}, err
	}

	messages := make([]openAIMessage, 0, len(params.Messages)+1)
	if params.SystemPrompt != "" {
		messages = append(messages, openAIMessage{
			Role:    string(models.RoleSystem),
			Content: params.SystemPrompt,
		})
	}
	for _, msg := range params.Messages {
		messages = append(messages, openAIMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
			Name:    msg.Name,
		})
	}

	maxTokens := provider.MaxTokens(params)
	temperature := provider.Temperature(params)

	return chatPayload{
		Model:       model,
		Messages:    messages,
		Stream:      stream,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		Stop:        params.StopSequences,
		User:        params.UserID,
	}, nil
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *usageBlock  `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int           `json:"index"`
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type usageBlock struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (r chatResponse) toUnified(modelID string, raw json.RawMessage, now time.Time) (*models.Response, error) {
	if len(r.Choices) == 0 {
		return nil, provider.NewError(provider.CodeUnknown, "openai response did not include choices", 0, nil)
	}

	model := r.Model
	if model == "" {
		model = modelID
	}

	choice := r.Choices[0]
	return &models.Response{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: models.NewUsage(
			valueOrZero(r.Usage, func(u *usageBlock) int { return u.PromptTokens }),
			valueOrZero(r.Usage, func(u *usageBlock) int { return u.CompletionTokens }),
		),
		Model:     model,
		Timestamp: now,
		Raw:       raw,
	}, nil
}

func valueOrZero[T any, R any](ptr *T, getter func(*T) R) R {
	var zero R
	if ptr == nil {
		return zero
	}
	return getter(ptr)
}
