package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatai-router/internal/config"
	"chatai-router/internal/models"
	"chatai-router/internal/provider"
	"chatai-router/internal/router"
	"chatai-router/internal/translator"
)

type stubAdapter struct {
	id        string
	initErr   error
	sendErr   error
	streamErr error
}

func (s *stubAdapter) ModelID() string   { return s.id }
func (s *stubAdapter) ModelName() string { return "Stub " + s.id }
func (s *stubAdapter) Provider() string  { return "stub" }
func (s *stubAdapter) Capabilities() models.Capabilities {
	return models.Capabilities{Streaming: true}
}
func (s *stubAdapter) Pricing() models.Pricing { return models.Pricing{Input: 0.03, Output: 0.06} }

func (s *stubAdapter) Initialize(context.Context) error { return s.initErr }

func (s *stubAdapter) ValidateConfig(raw map[string]any) bool {
	key, _ := raw["api_key"].(string)
	return strings.HasPrefix(key, "sk-") && len(key) > len("sk-")
}

func (s *stubAdapter) SendMessage(_ context.Context, params models.MessageParams) (*models.Response, error) {
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &models.Response{
		Content:      "echo: " + params.Messages[len(params.Messages)-1].Content,
		FinishReason: "stop",
		Usage:        models.NewUsage(1000, 500),
		Model:        s.id,
	}, nil
}

func (s *stubAdapter) SendStreamingMessage(context.Context, models.MessageParams) (*provider.Stream, error) {
	seq := func(yield func(models.Chunk, error) bool) {
		var chunks provider.ChunkSequencer
		if !yield(chunks.Text("Hel", nil), nil) || !yield(chunks.Text("lo", nil), nil) {
			return
		}
		if s.streamErr != nil {
			yield(models.Chunk{}, s.streamErr)
			return
		}
		final, _ := chunks.Finish("stop", nil)
		yield(final, nil)
	}
	return provider.NewStream(s.id, seq, nil), nil
}

func newTestServer(t *testing.T, adapters ...*stubAdapter) http.Handler {
	t.Helper()

	factories := make(map[string]provider.Factory)
	for _, a := range adapters {
		factories[a.id] = func(string) (provider.Adapter, error) { return a, nil }
	}
	registry, err := provider.NewRegistry(factories)
	require.NoError(t, err)
	rt, err := router.New(registry)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(config.Default(), rt, WithLogger(logger))
	require.NoError(t, err)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) translator.ErrorDetail {
	t.Helper()
	var body translator.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListAndGetModels(t *testing.T) {
	h := newTestServer(t, &stubAdapter{id: "stub-b"}, &stubAdapter{id: "stub-a"})

	rec := do(t, h, http.MethodGet, "/v1/models", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"object":"list","data":["stub-a","stub-b"]}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/models/stub-a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail translator.ModelDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Stub stub-a", detail.Name)
	assert.Equal(t, models.Pricing{Input: 0.03, Output: 0.06}, detail.Pricing)

	rec = do(t, h, http.MethodGet, "/v1/models/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "model_not_found", decodeError(t, rec).Code)
}

func TestMessages(t *testing.T) {
	h := newTestServer(t, &stubAdapter{id: "stub-a"})

	rec := do(t, h, http.MethodPost, "/v1/messages", `{"model":"stub-a","messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp translator.MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "echo: hi", resp.Content)
	assert.Equal(t, 1500, resp.Usage.TotalTokens)
	assert.InDelta(t, 0.06, resp.Cost, 1e-9)
}

func TestMessagesErrors(t *testing.T) {
	h := newTestServer(t,
		&stubAdapter{id: "limited", sendErr: provider.NewError(provider.CodeRateLimitExceeded, "rate limit exceeded", 429, nil)},
		&stubAdapter{id: "broke", sendErr: provider.NewError(provider.CodeInsufficientQuota, "quota exhausted", 429, nil)},
	)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"unknown model", `{"model":"nope","messages":[{"role":"user","content":"hi"}]}`, http.StatusNotFound, "model_not_found"},
		{"rate limited", `{"model":"limited","messages":[{"role":"user","content":"hi"}]}`, http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"quota", `{"model":"broke","messages":[{"role":"user","content":"hi"}]}`, http.StatusPaymentRequired, "insufficient_quota"},
		{"invalid body", `{"model":"limited","messages":[]}`, http.StatusBadRequest, ""},
		{"empty body", ``, http.StatusBadRequest, ""},
		{"trailing data", `{"model":"limited","messages":[{"role":"user","content":"hi"}]} {}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/messages", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			detail := decodeError(t, rec)
			assert.Equal(t, tt.code, detail.Code)
			assert.NotEmpty(t, detail.Message)
		})
	}
}

func TestStreamingMessages(t *testing.T) {
	h := newTestServer(t, &stubAdapter{id: "stub-a"})

	rec := do(t, h, http.MethodPost, "/v1/messages", `{"model":"stub-a","stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	assert.Equal(t, strings.Join([]string{
		"event: chunk",
		`data: {"content":"Hel","index":0}`,
		"",
		"event: chunk",
		`data: {"content":"lo","index":1}`,
		"",
		"event: chunk",
		`data: {"content":"","index":2,"finish_reason":"stop"}`,
		"",
		"",
	}, "\n"), rec.Body.String())
}

func TestStreamingMessagesMidStreamError(t *testing.T) {
	h := newTestServer(t, &stubAdapter{
		id:        "stub-a",
		streamErr: provider.NewError(provider.CodeServiceUnavailable, "overloaded", 0, nil),
	})

	rec := do(t, h, http.MethodPost, "/v1/messages", `{"model":"stub-a","stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event: chunk"))
	assert.Contains(t, body, "event: error\n")
	assert.Contains(t, body, `"code":"service_unavailable"`)
	assert.Contains(t, body, `"retryable":true`)
}

func TestCost(t *testing.T) {
	h := newTestServer(t, &stubAdapter{id: "stub-a"})

	rec := do(t, h, http.MethodPost, "/v1/cost", `{"model":"stub-a","input_tokens":2000,"output_tokens":1000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"model":"stub-a","cost":0.12}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/v1/cost", `{"model":"stub-a","input_tokens":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/cost", `{"model":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusForCode(provider.CodeContextTooLong))
	assert.Equal(t, http.StatusServiceUnavailable, statusForCode(provider.CodeServiceUnavailable))
	assert.Equal(t, http.StatusGatewayTimeout, statusForCode(provider.CodeTimeout))
	assert.Equal(t, http.StatusBadGateway, statusForCode(provider.CodeInvalidAPIKey))
	assert.Equal(t, http.StatusBadGateway, statusForCode(provider.CodeNetworkError))
}

func TestStaticEndpointsWorkWithoutCredentials(t *testing.T) {
	h := newTestServer(t, &stubAdapter{
		id:      "no-key",
		initErr: provider.NewError(provider.CodeInvalidAPIKey, "API key not configured", 0, nil),
	})

	rec := do(t, h, http.MethodPost, "/v1/cost", `{"model":"no-key","input_tokens":1000,"output_tokens":1000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var cost struct {
		Model string  `json:"model"`
		Cost  float64 `json:"cost"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cost))
	assert.Equal(t, "no-key", cost.Model)
	assert.InDelta(t, 0.09, cost.Cost, 1e-9)

	rec = do(t, h, http.MethodGet, "/v1/models/no-key", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Stub no-key"`)

	rec = do(t, h, http.MethodPost, "/v1/models/no-key/validate-key", `{"api_key":"sk-caller"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"model":"no-key","valid":true}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/v1/messages", `{"model":"no-key","messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "invalid_api_key", decodeError(t, rec).Code)
}

func TestValidateKey(t *testing.T) {
	h := newTestServer(t, &stubAdapter{id: "stub-a"})

	rec := do(t, h, http.MethodPost, "/v1/models/stub-a/validate-key", `{"api_key":"pk-wrong"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"model":"stub-a","valid":false}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/v1/models/nope/validate-key", `{"api_key":"sk-caller"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
