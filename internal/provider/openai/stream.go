package openai

import (
	"encoding/json"
	"errors"
	"io"
	"iter"

	"chatai-router/internal/models"
	"chatai-router/internal/provider"
	"chatai-router/internal/provider/sse"
)

type streamChunk struct {
	Choices []streamChoice  `json:"choices"`
	Error   *apiErrorObject `json:"error,omitempty"`
}

type streamChoice struct {
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

type streamDelta struct {
	Content string `json:"content"`
}

// readStream turns the chat completion event stream into chunks. Only deltas
// carrying text produce a chunk; the choice's finish_reason produces the
// single terminal chunk.
func readStream(body io.Reader) iter.Seq2[models.Chunk, error] {
	return func(yield func(models.Chunk, error) bool) {
		reader := sse.NewReader(body)
		var seq provider.ChunkSequencer

		for {
			event, err := reader.Next()
			if errors.Is(err, io.EOF) {
				if !seq.Finished() {
					yield(models.Chunk{}, errStreamIncomplete())
				}
				return
			}
			if err != nil {
				yield(models.Chunk{}, provider.NormalizeTransport(ProviderName, err))
				return
			}

			if event.Done() {
				if chunk, ok := seq.Finish("", nil); ok {
					yield(chunk, nil)
				}
				return
			}

			var payload streamChunk
			if err := json.Unmarshal([]byte(event.Data), &payload); err != nil {
				yield(models.Chunk{}, provider.NewError(provider.CodeUnknown, "decode openai stream event", 0, err))
				return
			}
			if payload.Error != nil {
				errType := payload.Error.Type
				if code, ok := payload.Error.Code.(string); ok && code != "" {
					errType = code
				}
				yield(models.Chunk{}, provider.NormalizeStreamError(ProviderName, errType, payload.Error.Message))
				return
			}
			if len(payload.Choices) == 0 {
				continue
			}

			raw := json.RawMessage(event.Data)
			choice := payload.Choices[0]
			if choice.Delta.Content != "" {
				if !yield(seq.Text(choice.Delta.Content, raw), nil) {
					return
				}
			}
			if choice.FinishReason != nil && *choice.FinishReason != "" {
				if chunk, ok := seq.Finish(*choice.FinishReason, raw); ok {
					yield(chunk, nil)
				}
				return
			}
		}
	}
}
