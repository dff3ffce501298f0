package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chatai-router/internal/models"
	"chatai-router/internal/provider"
)

const (
	// ProviderName identifies the family in logs and model metadata.
	ProviderName = "openai"

	// DefaultBaseURL is used when the configuration leaves base_url empty.
	DefaultBaseURL = "https://api.openai.com/v1"

	contentTypeJSON = "application/json"
	userAgent       = "chatai-router/0.1"
	chatPath        = "/chat/completions"
	keyPrefix       = "sk-"
	defaultTimeout  = 60 * time.Second
)

// Options configures an Adapter.
type Options struct {
	APIKey     string
	BaseURL    string
	Headers    map[string]string
	HTTPClient *http.Client
	Retry      provider.RetryPolicy
	Logger     *slog.Logger
	Override   provider.ModelOverride
	// Now stamps responses; defaults to time.Now.
	Now func() time.Time
}

// Adapter serves one OpenAI chat model. System turns stay in-line and a
// separate system prompt becomes a leading system turn.
type Adapter struct {
	info    models.ModelInfo
	apiKey  string
	baseURL string
	headers map[string]string
	http    *http.Client
	retry   provider.RetryPolicy
	logger  *slog.Logger
	now     func() time.Time

	init   provider.InitOnce
	client *apiClient
}

var _ provider.Adapter = (*Adapter)(nil)

// New constructs an adapter for modelID. No network call is made.
func New(modelID string, opts Options) (*Adapter, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return nil, errors.New("model id must not be empty")
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	info, priced := Catalog.Resolve(modelID, opts.Override)
	if !priced {
		logger.Warn("model pricing not recognised, using family default; configure pricing explicitly",
			"model", modelID,
			"provider", ProviderName,
			"input", info.Pricing.Input,
			"output", info.Pricing.Output,
		)
	}

	return &Adapter{
		info:    info,
		apiKey:  strings.TrimSpace(opts.APIKey),
		baseURL: baseURL,
		headers: opts.Headers,
		http:    opts.HTTPClient,
		retry:   opts.Retry,
		logger:  logger,
		now:     now,
	}, nil
}

func (a *Adapter) ModelID() string                   { return a.info.ID }
func (a *Adapter) ModelName() string                 { return a.info.Name }
func (a *Adapter) Provider() string                  { return ProviderName }
func (a *Adapter) Capabilities() models.Capabilities { return a.info.Capabilities }
func (a *Adapter) Pricing() models.Pricing           { return a.info.Pricing }

// Initialize checks the credential and constructs the API client.
func (a *Adapter) Initialize(ctx context.Context) error {
	return a.init.Do(func() error {
		if a.apiKey == "" {
			return provider.NewError(provider.CodeInvalidAPIKey, "OpenAI API key not configured", 0, nil)
		}

		httpClient := a.http
		if httpClient == nil {
			httpClient = &http.Client{Timeout: defaultTimeout}
		}
		a.client = &apiClient{
			http:    httpClient,
			apiKey:  a.apiKey,
			baseURL: a.baseURL,
			headers: a.headers,
		}
		return nil
	})
}

// ValidateConfig checks that raw["api_key"] looks like an OpenAI key.
func (a *Adapter) ValidateConfig(raw map[string]any) bool {
	key, ok := extractString(raw, "api_key")
	return ok && strings.HasPrefix(key, keyPrefix) && len(key) > len(keyPrefix)
}

// SendMessage performs a non-streaming chat completion with retries.
func (a *Adapter) SendMessage(ctx context.Context, params models.MessageParams) (*models.Response, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}

	payload, err := buildChatPayload(a.info.ID, params, false)
	if err != nil {
		return nil, err
	}

	return provider.Retry(ctx, a.retry, func(ctx context.Context) (*models.Response, error) {
		return a.complete(ctx, payload)
	})
}

func (a *Adapter) complete(ctx context.Context, payload chatPayload) (*models.Response, error) {
	httpResp, err := a.client.post(ctx, chatPath, payload)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, provider.NormalizeTransport(ProviderName, err)
	}

	var providerResp chatResponse
	if err := json.Unmarshal(body, &providerResp); err != nil {
		return nil, provider.NewError(provider.CodeUnknown, "decode openai response", httpResp.StatusCode, err)
	}

	return providerResp.toUnified(a.info.ID, body, a.now())
}

// SendStreamingMessage opens a streaming chat completion. Streams are never
// retried; failures surface as the terminal element of the sequence.
func (a *Adapter) SendStreamingMessage(ctx context.Context, params models.MessageParams) (*provider.Stream, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}

	payload, err := buildChatPayload(a.info.ID, params, true)
	if err != nil {
		return nil, err
	}

	httpResp, err := a.client.post(ctx, chatPath, payload)
	if err != nil {
		return nil, err
	}

	return provider.NewStream(a.info.ID, readStream(httpResp.Body), httpResp.Body), nil
}

type apiClient struct {
	http    *http.Client
	apiKey  string
	baseURL string
	headers map[string]string
}

// post sends payload and returns the response for 2xx statuses. Every other
// outcome is returned as a normalized error.
func (c *apiClient) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, provider.NewError(provider.CodeInvalidRequest, "marshal payload", 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, provider.NewError(provider.CodeInvalidRequest, "construct request", 0, err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, provider.NormalizeTransport(ProviderName, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, parseAPIError(resp)
	}
	return resp, nil
}

type apiErrorResponse struct {
	Error apiErrorObject `json:"error"`
}

type apiErrorObject struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func parseAPIError(resp *http.Response) error {
	failure := provider.HTTPFailure{Provider: ProviderName, Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err == nil {
		var apiErr apiErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			failure.Message = apiErr.Error.Message
			failure.ErrorType = apiErr.Error.Type
			if code, ok := apiErr.Error.Code.(string); ok {
				failure.ErrorCode = code
			}
		} else {
			failure.Message = strings.TrimSpace(string(body))
		}
	}

	return provider.NormalizeHTTP(failure)
}

func extractString(options map[string]any, key string) (string, bool) {
	if options == nil {
		return "", false
	}
	if value, ok := options[key]; ok {
		if str, ok := value.(string); ok {
			return str, true
		}
	}
	return "", false
}

func errStreamIncomplete() error {
	return provider.NewError(provider.CodeNetworkError, fmt.Sprintf("%s stream ended before completion", ProviderName), 0, io.ErrUnexpectedEOF)
}
