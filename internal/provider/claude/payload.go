package claude

import (
	"encoding/json"
	"strings"
	"time"

	"chatai-router/internal/models"
	"chatai-router/internal/provider"
)

// leadingUserPrompt opens conversations that would otherwise not start with
// a user turn.
const leadingUserPrompt = "Please answer the following question."

const warnSyntheticUserTurn = "conversation does not start with a user turn; inserted placeholder user turn"

type messagePayload struct {
	Model         string    `json:"model"`
	Messages      []message `json:"messages"`
	System        string    `json:"system,omitempty"`
	MaxTokens     int       `json:"max_tokens"`
	Temperature   *float64  `json:"temperature,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
	Metadata      *metadata `json:"metadata,omitempty"`
	Stream        bool      `json:"stream,omitempty"`
}

type metadata struct {
	UserID string `json:"user_id,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// buildMessagePayload moves system turns out-of-band: the separate system
// prompt, when set, followed by every system turn, newline-joined in order. The
// remaining turns must begin with a user turn; when they do not a placeholder
// user turn is prepended and a warning is returned.
func buildMessagePayload(model string, params models.MessageParams, stream bool) (messagePayload, []string, error) {
	if err := provider.ValidateMessages(params.Messages); err != nil {
		return messagePayload{}, nil, err
	}

	var (
		systemParts []string
		warnings    []string
	)
	if params.SystemPrompt != "" {
		systemParts = append(systemParts, params.SystemPrompt)
	}

	messages := make([]message, 0, len(params.Messages)+1)
	for _, msg := range params.Messages {
		if msg.Role == models.RoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		messages = append(messages, textMessage(msg.Role, msg.Content))
	}

	if len(messages) == 0 || messages[0].Role != string(models.RoleUser) {
		messages = append([]message{textMessage(models.RoleUser, leadingUserPrompt)}, messages...)
		warnings = append(warnings, warnSyntheticUserTurn)
	}

	temperature := provider.Temperature(params)
	payload := messagePayload{
		Model:         model,
		Messages:      messages,
		System:        strings.Join(systemParts, "\n"),
		MaxTokens:     provider.MaxTokens(params),
		Temperature:   &temperature,
		StopSequences: params.StopSequences,
		Stream:        stream,
	}
	if params.UserID != "" {
		payload.Metadata = &metadata{UserID: params.UserID}
	}

	return payload, warnings, nil
}

func textMessage(role models.Role, text string) message {
	return message{
		Role:    string(role),
		Content: []contentBlock{{Type: "text", Text: text}},
	}
}

type messageResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Usage      usageBlock     `json:"usage"`
	StopReason string         `json:"stop_reason"`
}

type usageBlock struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (r messageResponse) toUnified(modelID string, raw json.RawMessage, now time.Time) *models.Response {
	var text string
	for _, block := range r.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	model := r.Model
	if model == "" {
		model = modelID
	}

	return &models.Response{
		Content:      text,
		FinishReason: r.StopReason,
		Usage:        models.NewUsage(r.Usage.InputTokens, r.Usage.OutputTokens),
		Model:        model,
		Timestamp:    now,
		Raw:          raw,
	}
}
