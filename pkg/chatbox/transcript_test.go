package chatbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTranscript_CoalescesResponsesWithinTurn(t *testing.T) {
	tr := NewTranscript()
	tr.Emit(NewMessage(MessageCommand, "hi"))
	tr.Emit(NewMessage(MessageResponse, "a"))
	tr.Emit(NewMessage(MessageResponse, "ab"))
	tr.Emit(NewMessage(MessageResponse, "abc"))

	require.Equal(t, []Message{
		{Type: MessageCommand, Content: "hi"},
		{Type: MessageResponse, Content: "abc"},
	}, tr.Messages())
}

func TestTranscript_ResponseAfterErrorStartsNewEntry(t *testing.T) {
	tr := NewTranscript()
	tr.Emit(NewMessage(MessageCommand, "hi"))
	tr.Emit(NewMessage(MessageResponse, "a"))
	tr.Emit(NewMessage(MessageError, "bad frame"))
	tr.Emit(NewMessage(MessageResponse, "ab"))
	tr.Emit(NewMessage(MessageResponse, "abc"))

	require.Equal(t, []Message{
		{Type: MessageCommand, Content: "hi"},
		{Type: MessageResponse, Content: "a"},
		{Type: MessageError, Content: "bad frame"},
		{Type: MessageResponse, Content: "abc"},
	}, tr.Messages())
}

func TestTranscript_NewTurnStartsNewResponse(t *testing.T) {
	tr := NewTranscript()
	tr.Emit(NewMessage(MessageCommand, "one"))
	tr.Emit(NewMessage(MessageResponse, "first"))
	tr.Emit(NewMessage(MessageCommand, "two"))
	tr.Emit(NewMessage(MessageResponse, "second"))

	msgs := tr.Messages()
	require.Len(t, msgs, 4)
	require.Equal(t, "first", msgs[1].Content)
	require.Equal(t, "second", msgs[3].Content)
}

func TestTranscript_HistoryIsNotCoalesced(t *testing.T) {
	tr := NewTranscript()
	tr.Reset(NewMessage(MessageInfo, "welcome"))
	tr.AppendHistory([]HistoryItem{
		{UserMessage: "q1", AIResponse: "r1"},
		{UserMessage: "q2", AIResponse: "r2"},
	})

	require.Equal(t, []Message{
		{Type: MessageInfo, Content: "welcome"},
		{Type: MessageCommand, Content: "q1"},
		{Type: MessageResponse, Content: "r1"},
		{Type: MessageCommand, Content: "q2"},
		{Type: MessageResponse, Content: "r2"},
	}, tr.Messages())

	last, ok := tr.LastResponse()
	require.True(t, ok)
	require.Equal(t, "r2", last.Content)
}

func TestTranscript_ClosedDropsWrites(t *testing.T) {
	tr := NewTranscript()
	calls := 0
	tr.OnChange(func() { calls++ })
	tr.Emit(NewMessage(MessageInfo, "x"))
	tr.Close()
	tr.Emit(NewMessage(MessageResponse, "late"))
	tr.Reset()

	require.True(t, tr.Closed())
	require.Equal(t, 1, tr.Len())
	require.Equal(t, 1, calls)
}

func TestMultiSink_FansOutInOrder(t *testing.T) {
	var got []string
	s := MultiSink{
		SinkFunc(func(m Message) { got = append(got, "a:"+m.Content) }),
		nil,
		SinkFunc(func(m Message) { got = append(got, "b:"+m.Content) }),
	}
	s.Emit(NewMessage(MessageInfo, "x"))
	require.Equal(t, []string{"a:x", "b:x"}, got)
}
