package stream

import (
	"encoding/json"
	"strings"

	"github.com/jamerly/chatbox/pkg/chatbox"
)

const (
	dataPrefix = "data:"
	doneMarker = "[DONE]"
)

// FrameKind tells a chunk frame from a surfaced parse error.
type FrameKind int

const (
	FrameChunk FrameKind = iota
	FrameParseError
)

// Frame is one decoded "data:" line carrying a chunk of response text, or a
// payload that failed to parse.
type Frame struct {
	Kind  FrameKind
	Chunk string
	Err   error
}

// Decode splits buffer+text into complete lines. The trailing element, which
// may be a partial line, is returned as the remainder for the next call.
// Complete lines are trimmed and empty lines are dropped.
func Decode(buffer, text string) ([]string, string) {
	parts := strings.Split(buffer+text, "\n")
	remainder := parts[len(parts)-1]
	lines := make([]string, 0, len(parts)-1)
	for _, p := range parts[:len(parts)-1] {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		lines = append(lines, p)
	}
	return lines, remainder
}

// ParseLine interprets a single line. ok is false when the line carries
// nothing for the consumer: not a data line, an empty payload, or JSON
// that is not an object with a string chunk. Only malformed JSON is a parse
// error. done is true for the end-of-stream marker.
func ParseLine(line string) (frame Frame, ok bool, done bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, dataPrefix) {
		return Frame{}, false, false
	}
	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == "" {
		return Frame{}, false, false
	}
	if payload == doneMarker {
		return Frame{}, false, true
	}

	var v any
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return Frame{
			Kind: FrameParseError,
			Err:  &chatbox.FrameParseError{Payload: payload, Err: err},
		}, true, false
	}
	obj, isObject := v.(map[string]any)
	if !isObject {
		return Frame{}, false, false
	}
	chunk, _ := obj["chunk"].(string)
	if chunk == "" {
		return Frame{}, false, false
	}
	return Frame{Kind: FrameChunk, Chunk: chunk}, true, false
}

// ParseLines interprets lines in order and stops at the end-of-stream marker;
// lines after it are ignored. A parse error does not stop processing.
func ParseLines(lines []string) ([]Frame, bool) {
	var frames []Frame
	for _, line := range lines {
		f, ok, done := ParseLine(line)
		if done {
			return frames, true
		}
		if ok {
			frames = append(frames, f)
		}
	}
	return frames, false
}

// Decoder keeps the partial-line buffer between reads.
type Decoder struct {
	buf  string
	done bool
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Write feeds newly read text and returns the frames it completes. Once the
// end-of-stream marker has been seen, Write returns done and nothing else.
func (d *Decoder) Write(text string) ([]Frame, bool) {
	if d.done {
		return nil, true
	}
	var lines []string
	lines, d.buf = Decode(d.buf, text)
	frames, done := ParseLines(lines)
	if done {
		d.done = true
		d.buf = ""
	}
	return frames, done
}

// Flush treats the buffered remainder as a final line. It is called once the
// underlying stream has ended without a trailing line feed.
func (d *Decoder) Flush() ([]Frame, bool) {
	if d.done {
		return nil, true
	}
	rest := d.buf
	d.buf = ""
	frames, done := ParseLines([]string{rest})
	if done {
		d.done = true
	}
	return frames, done
}

// Done reports whether the end-of-stream marker has been seen.
func (d *Decoder) Done() bool {
	return d.done
}

// Buffered returns the pending partial line.
func (d *Decoder) Buffered() string {
	return d.buf
}
