package claude

import (
	"encoding/json"
	"errors"
	"io"
	"iter"

	"chatai-router/internal/models"
	"chatai-router/internal/provider"
	"chatai-router/internal/provider/sse"
)

// streamEvent is the envelope shared by every Anthropic streaming event:
//
//	message_start → content_block_start → content_block_delta(s) →
//	content_block_stop → message_delta → message_stop
type streamEvent struct {
	Type  string       `json:"type"`
	Delta *streamDelta `json:"delta,omitempty"`
	Error *apiError    `json:"error,omitempty"`
}

type streamDelta struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	StopReason string `json:"stop_reason"`
}

func readStream(body io.Reader) iter.Seq2[models.Chunk, error] {
	return func(yield func(models.Chunk, error) bool) {
		reader := sse.NewReader(body)
		var (
			seq        provider.ChunkSequencer
			stopReason string
		)

		for {
			ev, err := reader.Next()
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

			var event streamEvent
			if err := json.Unmarshal([]byte(ev.Data), &event); err != nil {
				yield(models.Chunk{}, provider.NewError(provider.CodeUnknown, "decode anthropic stream event", 0, err))
				return
			}

			raw := json.RawMessage(ev.Data)
			switch event.Type {
			case "content_block_delta":
				if event.Delta == nil || event.Delta.Type != "text_delta" || event.Delta.Text == "" {
					continue
				}
				if !yield(seq.Text(event.Delta.Text, raw), nil) {
					return
				}
			case "message_delta":
				if event.Delta != nil && event.Delta.StopReason != "" {
					stopReason = event.Delta.StopReason
				}
			case "message_stop":
				if chunk, ok := seq.Finish(stopReason, raw); ok {
					yield(chunk, nil)
				}
				return
			case "error":
				var errType, message string
				if event.Error != nil {
					errType, message = event.Error.Type, event.Error.Message
				}
				yield(models.Chunk{}, provider.NormalizeStreamError(ProviderName, errType, message))
				return
			}
		}
	}
}
