package provider

import (
	"encoding/json"
	"errors"
	"io"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"chatai-router/internal/models"
)

// ErrStreamConsumed is yielded when a stream is iterated more than once.
var ErrStreamConsumed = errors.New("stream already consumed")

// DefaultFinishReason is reported when a provider ends a stream without one.
const DefaultFinishReason = "stop"

// Stream is a single-pass, forward-only sequence of chunks. Iteration ends
// after the terminal chunk or after the first error. The underlying provider
// connection is released when iteration finishes, when the consumer breaks out
// of the loop, or when Close is called.
type Stream struct {
	model   string
	seq     iter.Seq2[models.Chunk, error]
	closer  io.Closer
	started atomic.Bool
	once    sync.Once
	err     error
}

// NewStream wraps seq. closer may be nil.
func NewStream(model string, seq iter.Seq2[models.Chunk, error], closer io.Closer) *Stream {
	return &Stream{model: model, seq: seq, closer: closer}
}

// Model returns the model identifier the stream was requested for.
func (s *Stream) Model() string {
	return s.model
}

// Iter returns the chunk sequence for use with range-over-func loops.
//
//	for chunk, err := range stream.Iter() {
//	    if err != nil { ... }
//	    fmt.Print(chunk.Content)
//	}
func (s *Stream) Iter() iter.Seq2[models.Chunk, error] {
	return func(yield func(models.Chunk, error) bool) {
		if !s.started.CompareAndSwap(false, true) {
			yield(models.Chunk{}, ErrStreamConsumed)
			return
		}
		defer s.Close()

		for chunk, err := range s.seq {
			if !yield(chunk, err) || err != nil {
				return
			}
			if chunk.Final() {
				return
			}
		}
	}
}

// Close releases the provider connection. It is safe to call more than once.
func (s *Stream) Close() error {
	s.once.Do(func() {
		if s.closer != nil {
			s.err = s.closer.Close()
		}
	})
	return s.err
}

// Collect drains the stream and accumulates it into a Response. Usage is not
// reported on the streaming path and stays zero. On error the partial
// response is returned alongside it.
func (s *Stream) Collect() (*models.Response, error) {
	var text strings.Builder
	resp := &models.Response{Model: s.model}

	for chunk, err := range s.Iter() {
		if err != nil {
			resp.Content = text.String()
			return resp, err
		}
		text.WriteString(chunk.Content)
		if chunk.Final() {
			resp.FinishReason = chunk.FinishReason
		}
	}

	resp.Content = text.String()
	resp.Timestamp = time.Now()
	return resp, nil
}

// ChunkSequencer assigns strictly increasing indices to the chunks of one
// stream and guarantees at most one terminal chunk.
type ChunkSequencer struct {
	next     int
	finished bool
}

// Text builds the next text-bearing chunk.
func (s *ChunkSequencer) Text(content string, raw json.RawMessage) models.Chunk {
	chunk := models.Chunk{Content: content, Index: s.next, Raw: raw}
	s.next++
	return chunk
}

// Finish builds the terminal chunk. ok is false if the stream already finished.
func (s *ChunkSequencer) Finish(reason string, raw json.RawMessage) (chunk models.Chunk, ok bool) {
	if s.finished {
		return models.Chunk{}, false
	}
	if reason == "" {
		reason = DefaultFinishReason
	}
	s.finished = true
	chunk = models.Chunk{Index: s.next, FinishReason: reason, Raw: raw}
	s.next++
	return chunk, true
}

// Finished reports whether the terminal chunk has been produced.
func (s *ChunkSequencer) Finished() bool {
	return s.finished
}
