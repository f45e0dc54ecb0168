package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxLineBytes bounds a single SSE line.
const maxLineBytes = 1 << 20

// Event is one dispatched server-sent event.
type Event struct {
	Name string // "message" when the frame has no event field
	ID   string
	Data []byte
}

// Decode unmarshals the event data as JSON.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s event: %w", e.Name, err)
	}
	return nil
}

// Stream reads server-sent events from a response body.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	lastID  string
}

// NewStream wraps an event-stream body. Close closes body.
func NewStream(body io.ReadCloser) *Stream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	sc.Split(scanLines)
	return &Stream{body: body, scanner: sc}
}

// Next blocks until the next event is dispatched. Comment lines and frames
// without data are skipped. It returns io.EOF when the stream ends; a
// trailing frame that was never terminated by a blank line is discarded.
func (s *Stream) Next() (Event, error) {
	var (
		name    string
		data    strings.Builder
		hasData bool
	)
	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if !hasData {
				name = ""
				continue
			}
			if name == "" {
				name = "message"
			}
			return Event{Name: name, ID: s.lastID, Data: []byte(data.String())}, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				s.lastID = value
			}
		}
	}
	if err := s.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("read event stream: %w", err)
	}
	return Event{}, io.EOF
}

// Close releases the connection.
func (s *Stream) Close() error {
	return s.body.Close()
}

// CollectBrief drains a brief stream and returns the finished brief. Deltas
// are passed to onDelta when it is not nil.
func CollectBrief(s *Stream, onDelta func(string)) (Brief, error) {
	for {
		ev, err := s.Next()
		if errors.Is(err, io.EOF) {
			return Brief{}, fmt.Errorf("brief stream ended without a result: %w", io.ErrUnexpectedEOF)
		}
		if err != nil {
			return Brief{}, err
		}

		switch ev.Name {
		case "delta":
			if onDelta != nil {
				var d briefDelta
				if err := ev.Decode(&d); err != nil {
					return Brief{}, err
				}
				onDelta(d.Text)
			}
		case "done":
			var b Brief
			if err := ev.Decode(&b); err != nil {
				return Brief{}, err
			}
			return b, nil
		case "error":
			apiErr := &APIError{}
			if err := ev.Decode(apiErr); err != nil {
				return Brief{}, err
			}
			return Brief{}, apiErr
		}
	}
}

// scanLines splits on LF, CRLF or a lone CR.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		switch b {
		case '\n':
			return i + 1, data[:i], nil
		case '\r':
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if atEOF {
				return i + 1, data[:i], nil
			}
			// Need one more byte to tell CR from CRLF.
			return 0, nil, nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
