package translator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"chatai-router/internal/models"
)

var (
	errEmptyModel      = errors.New("model must be provided")
	errEmptyMessages   = errors.New("at least one message is required")
	errUnsupportedStop = errors.New("unsupported stop value")
	errInvalidRole     = errors.New("invalid role")
	errInvalidContent  = errors.New("invalid message content")
	errInvalidTokens   = errors.New("token counts must not be negative")
)

// MessageRequest models the JSON body of POST /v1/messages.
type MessageRequest struct {
	Model  string
	Params models.MessageParams
}

// UnmarshalJSON decodes and validates the request.
func (r *MessageRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Model        string          `json:"model"`
		Messages     []ChatMessage   `json:"messages"`
		SystemPrompt string          `json:"system_prompt"`
		Temperature  *float64        `json:"temperature"`
		MaxTokens    *int            `json:"max_tokens"`
		Stop         json.RawMessage `json:"stop"`
		User         string          `json:"user"`
		Stream       bool            `json:"stream"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode message request: %w", err)
	}

	stop, err := parseStop(raw.Stop)
	if err != nil {
		return err
	}

	r.Model = strings.TrimSpace(raw.Model)
	if r.Model == "" {
		return errEmptyModel
	}
	if len(raw.Messages) == 0 {
		return errEmptyMessages
	}
	if raw.MaxTokens != nil && *raw.MaxTokens <= 0 {
		return errors.New("max_tokens must be positive")
	}
	if raw.Temperature != nil && (*raw.Temperature < 0 || *raw.Temperature > 2) {
		return errors.New("temperature must be between 0 and 2")
	}

	msgs := make([]models.Message, 0, len(raw.Messages))
	for _, m := range raw.Messages {
		msgs = append(msgs, models.Message{
			Role:    models.Role(m.Role),
			Content: m.Content,
			Name:    m.Name,
		})
	}

	r.Params = models.MessageParams{
		Messages:      msgs,
		SystemPrompt:  raw.SystemPrompt,
		Temperature:   raw.Temperature,
		MaxTokens:     raw.MaxTokens,
		StopSequences: stop,
		UserID:        strings.TrimSpace(raw.User),
		Stream:        raw.Stream,
	}
	return nil
}

// ChatMessage captures a single message within the request.
type ChatMessage struct {
	Role    string
	Content string
	Name    string
}

// UnmarshalJSON supports string and array-of-text content formats.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	type alias struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
		Name    string          `json:"name"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	content, err := extractMessageContent(raw.Content)
	if err != nil {
		return err
	}

	m.Role = strings.ToLower(strings.TrimSpace(raw.Role))
	m.Content = content
	m.Name = strings.TrimSpace(raw.Name)

	if !models.Role(m.Role).Valid() {
		return fmt.Errorf("%w: %q", errInvalidRole, raw.Role)
	}
	return nil
}

func extractMessageContent(raw json.RawMessage) (string, error) {
	if raw == nil {
		return "", fmt.Errorf("%w: missing content", errInvalidContent)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}

	var segments []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &segments); err == nil {
		var builder strings.Builder
		for _, segment := range segments {
			if segment.Type != "text" {
				return "", fmt.Errorf("%w: segment type %q not supported", errInvalidContent, segment.Type)
			}
			builder.WriteString(segment.Text)
		}
		return builder.String(), nil
	}

	return "", fmt.Errorf("%w: unsupported content structure", errInvalidContent)
}

func parseStop(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil, errUnsupportedStop
		}
		return []string{single}, nil
	}

	var multi []string
	if err := json.Unmarshal(raw, &multi); err == nil {
		out := make([]string, 0, len(multi))
		for _, item := range multi {
			if item == "" {
				return nil, errUnsupportedStop
			}
			out = append(out, item)
		}
		return out, nil
	}
	return nil, errUnsupportedStop
}

// CostRequest models the JSON body of POST /v1/cost.
type CostRequest struct {
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Validate checks the cost request.
func (r CostRequest) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return errEmptyModel
	}
	if r.InputTokens < 0 || r.OutputTokens < 0 {
		return errInvalidTokens
	}
	return nil
}

// KeyCheckRequest models the JSON body of POST /v1/models/:id/validate-key.
type KeyCheckRequest struct {
	APIKey string `json:"api_key"`
}
