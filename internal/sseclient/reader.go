// Package sseclient implements the reconnecting consumer side of the event
// stream: it opens a connection to the stream endpoint, parses SSE frames,
// dispatches decoded events to an application handler, and reconnects with
// exponential backoff when the transport drops.
package sseclient

import (
	"bufio"
	"io"
	"strings"
)

// frame is a single parsed server-sent event.
type frame struct {
	// Event is the SSE event type (from an "event:" line). Empty for
	// data-only frames, which is all the stream endpoint produces.
	Event string
	// Data is the frame payload from the "data:" line(s). Multi-line data
	// is joined with newlines.
	Data string
}

// frameReader reads server-sent events from a stream. Comment frames
// (keep-alives) are skipped.
type frameReader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
}

func newFrameReader(body io.ReadCloser) *frameReader {
	return &frameReader{
		scanner: bufio.NewScanner(body),
		body:    body,
	}
}

// Next returns the next frame. Returns io.EOF when the stream ends.
func (r *frameReader) Next() (*frame, error) {
	var f frame
	var hasData bool

	for r.scanner.Scan() {
		line := r.scanner.Text()

		// Blank line signals end of frame
		if line == "" {
			if hasData {
				return &f, nil
			}
			continue
		}

		// Comment lines are keep-alives; the wire contract says ignore them.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseLine(line)
		switch field {
		case "data":
			if hasData {
				f.Data += "\n" + value
			} else {
				f.Data = value
				hasData = true
			}
		case "event":
			f.Event = value
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// Stream ended mid-frame: surface the trailing frame if complete.
	if hasData {
		return &f, nil
	}
	return nil, io.EOF
}

// Close releases the underlying stream.
func (r *frameReader) Close() error {
	return r.body.Close()
}

// parseLine splits an SSE line into field and value, stripping the single
// leading space after the colon per the SSE convention.
func parseLine(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	field = line[:idx]
	value = line[idx+1:]
	if value != "" && value[0] == ' ' {
		value = value[1:]
	}
	return field, value
}
