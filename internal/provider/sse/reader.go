// Package sse reads server-sent event streams produced by provider APIs.
package sse

import (
	"bufio"
	"io"
	"strings"
)

const maxLineBytes = 1 << 20

// DoneMarker is the data payload OpenAI-style APIs send to end a stream.
const DoneMarker = "[DONE]"

// Event is a single server-sent event.
type Event struct {
	Name string
	Data string
}

// Done reports whether the event is the OpenAI-style terminator.
func (e Event) Done() bool {
	return e.Data == DoneMarker
}

// Reader parses events from an io.Reader.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader creates an event reader over r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Reader{scanner: scanner}
}

// Next returns the next event, or io.EOF once the stream is exhausted.
func (r *Reader) Next() (Event, error) {
	var (
		event     Event
		dataLines []string
	)

	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" {
			if len(dataLines) > 0 {
				event.Data = strings.Join(dataLines, "\n")
				return event, nil
			}
			event = Event{}
			continue
		}

		// comment
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			event.Name = value
		case "data":
			dataLines = append(dataLines, value)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	if len(dataLines) > 0 {
		event.Data = strings.Join(dataLines, "\n")
		return event, nil
	}
	return Event{}, io.EOF
}
