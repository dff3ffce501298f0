package translator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatai-router/internal/models"
)

func TestMessageRequestDecode(t *testing.T) {
	body := `{
		"model": " gpt-4 ",
		"system_prompt": "be brief",
		"messages": [
			{"role": "System", "content": "rules"},
			{"role": "user", "content": [{"type": "text", "text": "hel"}, {"type": "text", "text": "lo"}], "name": "ann"}
		],
		"temperature": 0.3,
		"max_tokens": 100,
		"stop": "END",
		"user": "u-1",
		"stream": true
	}`

	var req MessageRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Equal(t, "gpt-4", req.Model)
	assert.Equal(t, []models.Message{
		{Role: models.RoleSystem, Content: "rules"},
		{Role: models.RoleUser, Content: "hello", Name: "ann"},
	}, req.Params.Messages)
	assert.Equal(t, "be brief", req.Params.SystemPrompt)
	require.NotNil(t, req.Params.Temperature)
	assert.InDelta(t, 0.3, *req.Params.Temperature, 1e-9)
	require.NotNil(t, req.Params.MaxTokens)
	assert.Equal(t, 100, *req.Params.MaxTokens)
	assert.Equal(t, []string{"END"}, req.Params.StopSequences)
	assert.Equal(t, "u-1", req.Params.UserID)
	assert.True(t, req.Params.Stream)
}

func TestMessageRequestValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing model", `{"messages":[{"role":"user","content":"x"}]}`, "model must be provided"},
		{"no messages", `{"model":"gpt-4","messages":[]}`, "at least one message"},
		{"bad role", `{"model":"gpt-4","messages":[{"role":"tool","content":"x"}]}`, "invalid role"},
		{"image segment", `{"model":"gpt-4","messages":[{"role":"user","content":[{"type":"image_url"}]}]}`, "not supported"},
		{"missing content", `{"model":"gpt-4","messages":[{"role":"user"}]}`, "missing content"},
		{"zero max tokens", `{"model":"gpt-4","max_tokens":0,"messages":[{"role":"user","content":"x"}]}`, "max_tokens"},
		{"temperature", `{"model":"gpt-4","temperature":3,"messages":[{"role":"user","content":"x"}]}`, "temperature"},
		{"empty stop", `{"model":"gpt-4","stop":[""],"messages":[{"role":"user","content":"x"}]}`, "unsupported stop"},
		{"numeric stop", `{"model":"gpt-4","stop":5,"messages":[{"role":"user","content":"x"}]}`, "unsupported stop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req MessageRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseStopArray(t *testing.T) {
	stop, err := parseStop(json.RawMessage(`["a","b"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, stop)

	stop, err = parseStop(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, stop)
}

func TestCostRequestValidate(t *testing.T) {
	assert.NoError(t, CostRequest{Model: "gpt-4", InputTokens: 1}.Validate())
	assert.ErrorIs(t, CostRequest{}.Validate(), errEmptyModel)
	assert.ErrorIs(t, CostRequest{Model: "gpt-4", OutputTokens: -1}.Validate(), errInvalidTokens)
}
