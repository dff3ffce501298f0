package router

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatai-router/internal/models"
	"chatai-router/internal/provider"
)

type fakeAdapter struct {
	id        string
	streaming bool
	lastParam models.MessageParams
}

func (f *fakeAdapter) ModelID() string   { return f.id }
func (f *fakeAdapter) ModelName() string { return "Fake" }
func (f *fakeAdapter) Provider() string  { return "fake" }
func (f *fakeAdapter) Capabilities() models.Capabilities {
	return models.Capabilities{Streaming: f.streaming}
}
func (f *fakeAdapter) Pricing() models.Pricing { return models.Pricing{Input: 0.03, Output: 0.06} }

func (f *fakeAdapter) Initialize(context.Context) error { return nil }

func (f *fakeAdapter) ValidateConfig(raw map[string]any) bool {
	key, _ := raw["api_key"].(string)
	return key == "valid"
}

func (f *fakeAdapter) SendMessage(_ context.Context, params models.MessageParams) (*models.Response, error) {
	f.lastParam = params
	return &models.Response{Content: "pong", FinishReason: "stop", Model: f.id}, nil
}

func (f *fakeAdapter) SendStreamingMessage(_ context.Context, params models.MessageParams) (*provider.Stream, error) {
	f.lastParam = params
	var seq iter.Seq2[models.Chunk, error] = func(yield func(models.Chunk, error) bool) {
		var s provider.ChunkSequencer
		if !yield(s.Text("po", nil), nil) {
			return
		}
		final, _ := s.Finish("stop", nil)
		yield(final, nil)
	}
	return provider.NewStream(f.id, seq, nil), nil
}

func newTestRouter(t *testing.T, adapters ...*fakeAdapter) *Router {
	t.Helper()
	factories := make(map[string]provider.Factory)
	for _, a := range adapters {
		factories[a.id] = func(string) (provider.Adapter, error) { return a, nil }
	}
	registry, err := provider.NewRegistry(factories)
	require.NoError(t, err)

	rt, err := New(registry)
	require.NoError(t, err)
	return rt
}

func TestNewRequiresRegistry(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilRegistry)
}

func TestSendMessage(t *testing.T) {
	adapter := &fakeAdapter{id: "fake-1"}
	rt := newTestRouter(t, adapter)

	msgs := []models.Message{{Role: models.RoleUser, Content: "ping"}}
	resp, err := rt.SendMessage(context.Background(), "fake-1", models.MessageParams{Messages: msgs})
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Content)

	adapter.lastParam.Messages[0].Content = "mutated"
	assert.Equal(t, "ping", msgs[0].Content)

	_, err = rt.SendMessage(context.Background(), "missing", models.MessageParams{})
	assert.ErrorIs(t, err, provider.ErrUnknownModel)
}

func TestSendStreamingMessage(t *testing.T) {
	adapter := &fakeAdapter{id: "fake-1", streaming: true}
	rt := newTestRouter(t, adapter, &fakeAdapter{id: "fake-batch"})

	stream, err := rt.SendStreamingMessage(context.Background(), "fake-1", models.MessageParams{})
	require.NoError(t, err)
	assert.True(t, adapter.lastParam.Stream)

	resp, err := stream.Collect()
	require.NoError(t, err)
	assert.Equal(t, "po", resp.Content)

	_, err = rt.SendStreamingMessage(context.Background(), "fake-batch", models.MessageParams{})
	var perr *provider.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, provider.CodeInvalidRequest, perr.Code)
}

func TestCatalogOperations(t *testing.T) {
	rt := newTestRouter(t, &fakeAdapter{id: "fake-2"}, &fakeAdapter{id: "fake-1"})

	assert.Equal(t, []string{"fake-1", "fake-2"}, rt.AvailableModels())
	assert.True(t, rt.HasModel("fake-1"))
	assert.False(t, rt.HasModel("fake-3"))

	cost, err := rt.CalculateCost("fake-1", 1000, 500)
	require.NoError(t, err)
	assert.InDelta(t, 0.06, cost, 1e-9)

	_, err = rt.CalculateCost("fake-3", 1, 1)
	assert.ErrorIs(t, err, provider.ErrUnknownModel)

	info, err := rt.Describe("fake-2")
	require.NoError(t, err)
	assert.Equal(t, "fake-2", info.ID)
	assert.Equal(t, "fake", info.Provider)

	ok, err := rt.ValidateCredential("fake-1", "valid")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rt.ValidateCredential("fake-1", "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

// echoAdapter answers with the last turn and reports the total input length
// as completion tokens.
type echoAdapter struct {
	fakeAdapter
	initErr error
}

func (e *echoAdapter) Initialize(context.Context) error { return e.initErr }

func (e *echoAdapter) SendMessage(_ context.Context, params models.MessageParams) (*models.Response, error) {
	if err := provider.ValidateMessages(params.Messages); err != nil {
		return nil, err
	}
	inputLen := 0
	for _, msg := range params.Messages {
		inputLen += len(msg.Content)
	}
	return &models.Response{
		Content:      params.Messages[len(params.Messages)-1].Content,
		FinishReason: "stop",
		Usage:        models.NewUsage(len(params.Messages), inputLen),
		Model:        e.id,
	}, nil
}

func TestSendMessageEndToEnd(t *testing.T) {
	var constructed atomic.Int32
	registry, err := provider.NewRegistry(map[string]provider.Factory{
		"demo-a": func(modelID string) (provider.Adapter, error) {
			constructed.Add(1)
			return &echoAdapter{fakeAdapter: fakeAdapter{id: modelID}}, nil
		},
	})
	require.NoError(t, err)
	rt, err := New(registry)
	require.NoError(t, err)

	params := models.MessageParams{Messages: []models.Message{
		{Role: models.RoleSystem, Content: "be terse"},
		{Role: models.RoleUser, Content: "hi"},
	}}

	const callers = 50
	responses := make([]*models.Response, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := rt.SendMessage(context.Background(), "demo-a", params)
			assert.NoError(t, err)
			responses[i] = resp
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), constructed.Load())
	for _, resp := range responses {
		require.NotNil(t, resp)
		assert.Equal(t, "demo-a", resp.Model)
		assert.Equal(t, "hi", resp.Content)
		assert.Equal(t, 2, resp.Usage.PromptTokens)
		assert.Equal(t, len("be terse")+len("hi"), resp.Usage.CompletionTokens)
		assert.Equal(t, resp.Usage.PromptTokens+resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
	}
}

func TestStaticQueriesSkipInitialization(t *testing.T) {
	initErr := provider.NewError(provider.CodeInvalidAPIKey, "API key not configured", 0, nil)
	rt := newTestRouterFromAdapter(t, &echoAdapter{fakeAdapter: fakeAdapter{id: "no-key"}, initErr: initErr})

	cost, err := rt.CalculateCost("no-key", 1000, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 0.09, cost, 1e-9)

	info, err := rt.Describe("no-key")
	require.NoError(t, err)
	assert.Equal(t, "no-key", info.ID)

	ok, err := rt.ValidateCredential("no-key", "valid")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = rt.SendMessage(context.Background(), "no-key", models.MessageParams{
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
	})
	assert.ErrorIs(t, err, initErr)
}

func newTestRouterFromAdapter(t *testing.T, adapter provider.Adapter) *Router {
	t.Helper()
	registry, err := provider.NewRegistry(map[string]provider.Factory{
		adapter.ModelID(): func(string) (provider.Adapter, error) { return adapter, nil },
	})
	require.NoError(t, err)
	rt, err := New(registry)
	require.NoError(t, err)
	return rt
}
