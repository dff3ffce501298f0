package provider

import (
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatai-router/internal/models"
)

type countingCloser struct{ closed int }

func (c *countingCloser) Close() error {
	c.closed++
	return nil
}

func sequence(chunks []models.Chunk, tail error) iter.Seq2[models.Chunk, error] {
	return func(yield func(models.Chunk, error) bool) {
		for _, chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if tail != nil {
			yield(models.Chunk{}, tail)
		}
	}
}

func textChunks(parts ...string) []models.Chunk {
	var seq ChunkSequencer
	out := make([]models.Chunk, 0, len(parts)+1)
	for _, p := range parts {
		out = append(out, seq.Text(p, nil))
	}
	final, _ := seq.Finish("stop", nil)
	return append(out, final)
}

func TestStreamIterSinglePass(t *testing.T) {
	closer := &countingCloser{}
	stream := NewStream("demo", sequence(textChunks("Hel", "lo"), nil), closer)

	var got []models.Chunk
	for chunk, err := range stream.Iter() {
		require.NoError(t, err)
		got = append(got, chunk)
	}

	require.Len(t, got, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{got[0].Index, got[1].Index, got[2].Index})
	assert.True(t, got[2].Final())
	assert.Equal(t, 1, closer.closed)

	for _, err := range stream.Iter() {
		assert.ErrorIs(t, err, ErrStreamConsumed)
	}
}

func TestStreamStopsAtFinalChunk(t *testing.T) {
	chunks := textChunks("a")
	chunks = append(chunks, models.Chunk{Content: "ignored", Index: 99})

	resp, err := NewStream("demo", sequence(chunks, nil), nil).Collect()
	require.NoError(t, err)
	assert.Equal(t, "a", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, "demo", resp.Model)
}

func TestStreamCollectReturnsPartialOnError(t *testing.T) {
	failure := errors.New("connection reset")
	var seq ChunkSequencer
	chunks := []models.Chunk{seq.Text("par", nil), seq.Text("tial", nil)}

	closer := &countingCloser{}
	resp, err := NewStream("demo", sequence(chunks, failure), closer).Collect()

	assert.ErrorIs(t, err, failure)
	assert.Equal(t, "partial", resp.Content)
	assert.Equal(t, 1, closer.closed)
}

func TestStreamCloseOnEarlyBreak(t *testing.T) {
	closer := &countingCloser{}
	stream := NewStream("demo", sequence(textChunks("a", "b", "c"), nil), closer)

	for range stream.Iter() {
		break
	}
	assert.Equal(t, 1, closer.closed)

	require.NoError(t, stream.Close())
	assert.Equal(t, 1, closer.closed)
}

func TestChunkSequencer(t *testing.T) {
	var seq ChunkSequencer

	first := seq.Text("x", nil)
	second := seq.Text("y", nil)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, 1, second.Index)
	assert.False(t, seq.Finished())

	final, ok := seq.Finish("", nil)
	require.True(t, ok)
	assert.Equal(t, 2, final.Index)
	assert.Equal(t, DefaultFinishReason, final.FinishReason)
	assert.Empty(t, final.Content)
	assert.True(t, seq.Finished())

	_, ok = seq.Finish("length", nil)
	assert.False(t, ok)
}
