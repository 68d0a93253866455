package stream

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/jamerly/chatbox/pkg/chatbox"
)

const wellFormed = "data: {\"chunk\":\"Hel\"}\n" +
	"\n" +
	"data: {\"chunk\":\"lo, \"}\r\n" +
	"data: {\"other\":1}\n" +
	"data:{\"chunk\":\"wörld\"}\n" +
	": keepalive\n" +
	"data: {\"chunk\":\"!\"}\n" +
	"data: [DONE]\n"

func decodeAll(chunks []string) ([]Frame, bool) {
	d := NewDecoder()
	var out []Frame
	for _, c := range chunks {
		frames, done := d.Write(c)
		out = append(out, frames...)
		if done {
			return out, true
		}
	}
	frames, done := d.Flush()
	return append(out, frames...), done
}

func TestDecode_SplitsCompleteLinesAndKeepsRemainder(t *testing.T) {
	lines, rest := Decode("data: {\"ch", "unk\":\"a\"}\n  \ndata: [DO")
	require.Equal(t, []string{`data: {"chunk":"a"}`}, lines)
	require.Equal(t, "data: [DO", rest)

	lines, rest = Decode(rest, "NE]\n")
	require.Equal(t, []string{"data: [DONE]"}, lines)
	require.Equal(t, "", rest)
}

func TestDecode_NoLineFeedKeepsEverything(t *testing.T) {
	lines, rest := Decode("", "data: partial")
	require.Empty(t, lines)
	require.Equal(t, "data: partial", rest)
}

func TestDecoder_ChunkBoundaryInvariance(t *testing.T) {
	whole, wholeDone := decodeAll([]string{wellFormed})
	require.True(t, wholeDone)
	require.Len(t, whole, 4)

	// every two-way split
	for i := 0; i <= len(wellFormed); i++ {
		got, done := decodeAll([]string{wellFormed[:i], wellFormed[i:]})
		require.True(t, done, "split at %d", i)
		require.Equal(t, whole, got, "split at %d", i)
	}

	// byte at a time, which also splits the multi-byte rune
	var single []string
	for i := 0; i < len(wellFormed); i++ {
		single = append(single, wellFormed[i:i+1])
	}
	got, done := decodeAll(single)
	require.True(t, done)
	require.Equal(t, whole, got)

	var text strings.Builder
	for _, f := range got {
		text.WriteString(f.Chunk)
	}
	require.Equal(t, "Hello, wörld!", text.String())
}

func TestDecoder_DoneStopsProcessingRestOfBuffer(t *testing.T) {
	d := NewDecoder()
	frames, done := d.Write("data: {\"chunk\":\"a\"}\ndata: [DONE]\ndata: {\"chunk\":\"b\"}\n")
	require.True(t, done)
	require.Len(t, frames, 1)
	require.Equal(t, "a", frames[0].Chunk)

	frames, done = d.Write("data: {\"chunk\":\"c\"}\n")
	require.True(t, done)
	require.Empty(t, frames)
	require.True(t, d.Done())
}

func TestDecoder_ParseErrorSurfacesAndProcessingContinues(t *testing.T) {
	d := NewDecoder()
	frames, done := d.Write("data: {\"chunk\":\"a\"}\ndata: {not json\ndata: {\"chunk\":\"b\"}\n")
	require.False(t, done)
	require.Len(t, frames, 3)

	require.Equal(t, FrameChunk, frames[0].Kind)
	require.Equal(t, FrameParseError, frames[1].Kind)
	require.Equal(t, FrameChunk, frames[2].Kind)
	require.Equal(t, "b", frames[2].Chunk)

	var pe *chatbox.FrameParseError
	require.True(t, errors.As(frames[1].Err, &pe))
	require.Equal(t, "{not json", pe.Payload)
	require.Contains(t, frames[1].Err.Error(), "{not json")
}

func TestParseLine_IgnoredLines(t *testing.T) {
	for _, line := range []string{
		"",
		"event: message",
		"data:",
		"data:    ",
		`data: {"chunk":""}`,
		`data: {"message":"no chunk"}`,
		`data: "hello"`,
		`data: 42`,
		`data: [1,2]`,
		`data: true`,
		`data: null`,
		`data: {"chunk": 5}`,
		`data: {"chunk": {"text":"x"}}`,
	} {
		_, ok, done := ParseLine(line)
		require.False(t, ok, line)
		require.False(t, done, line)
	}
}

func TestDecoder_FlushParsesUnterminatedLastLine(t *testing.T) {
	d := NewDecoder()
	frames, done := d.Write(`data: {"chunk":"x"}`)
	require.False(t, done)
	require.Empty(t, frames)
	require.Equal(t, `data: {"chunk":"x"}`, d.Buffered())

	frames, done = d.Flush()
	require.False(t, done)
	require.Len(t, frames, 1)
	require.Equal(t, "x", frames[0].Chunk)
}
