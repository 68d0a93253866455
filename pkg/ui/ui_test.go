package ui

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jamerly/chatbox/pkg/bus"
	"github.com/jamerly/chatbox/pkg/chatbox"
	"github.com/jamerly/chatbox/pkg/client"
	"github.com/jamerly/chatbox/pkg/inactivity"
	"github.com/jamerly/chatbox/pkg/mockserver"
	"github.com/jamerly/chatbox/pkg/useraction"
	"github.com/jamerly/chatbox/pkg/widget"
)

func TestRenderer_PlainMessages(t *testing.T) {
	r := NewRenderer(0)
	msgs := []chatbox.Message{
		chatbox.NewMessage(chatbox.MessageCommand, "hello"),
		chatbox.NewMessage(chatbox.MessageResponse, "**hi**"),
	}
	out := r.Transcript(widget.SkinTerminal, msgs)
	require.Contains(t, out, "guest@chatbox:~$ ")
	require.Contains(t, out, "hello")
	require.Contains(t, out, "**hi**")

	out = r.Message(widget.SkinChatbox, msgs[0])
	require.Contains(t, out, "You: ")
}

func TestRenderer_Markdown(t *testing.T) {
	r := NewRenderer(60)
	out := r.Message(widget.SkinTerminal, chatbox.NewMessage(chatbox.MessageResponse, "# Title\n\nbody"))
	require.Contains(t, out, "Title")
	require.NotContains(t, out, "# Title")
}

func TestEvents(t *testing.T) {
	ev := NewEvents(1)
	ev.Forward(bus.Envelope{Seq: 1})
	ev.Forward(bus.Envelope{Seq: 2})

	got := <-ev.Chan()
	require.Equal(t, uint64(1), got.(TranscriptMsg).Envelope.Seq)

	ev.Send(AlertMsg{Text: "x"})
	require.Equal(t, AlertMsg{Text: "x"}, <-ev.Chan())
}

func newTestModel(t *testing.T) (Model, *widget.Widget, *Events) {
	t.Helper()
	srv := httptest.NewServer(mockserver.New())
	t.Cleanup(srv.Close)
	c, err := client.New(srv.URL, "app")
	require.NoError(t, err)

	events := NewEvents(16)
	opts := append(events.WidgetOptions(),
		widget.WithInactivity(inactivity.DefaultConfig(), inactivity.WithScheduler(inactivity.NewManualScheduler())),
	)
	w, err := widget.New(c, opts...)
	require.NoError(t, err)
	t.Cleanup(w.Teardown)
	return NewModel(context.Background(), w, events), w, events
}

func TestModel_MountAndRender(t *testing.T) {
	m, w, _ := newTestModel(t)

	updated, _ := m.Update(m.mount()())
	m = updated.(Model)
	require.Equal(t, widget.StatusReady, w.Status())
	require.Contains(t, m.View(), "Ready")
	require.Contains(t, m.View(), "Welcome to the Mock ChatBox!")
}

func TestModel_SkinToggleAndAlerts(t *testing.T) {
	m, w, _ := newTestModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	m = updated.(Model)
	require.Equal(t, widget.SkinChatbox, w.Skin())
	require.Equal(t, "You: ", m.input.Prompt)

	updated, _ = m.Update(AlertMsg{Text: "closing soon"})
	m = updated.(Model)
	require.Contains(t, m.View(), "closing soon")

	updated, _ = m.Update(ActionMsg{Operation: useraction.Operation{Name: "openPage"}})
	m = updated.(Model)
	require.Contains(t, m.View(), "Executing openPage")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	require.True(t, w.Minimized())
	require.True(t, strings.Contains(m.View(), "minimized"))
}

func TestModel_DestroyedQuits(t *testing.T) {
	m, _, _ := newTestModel(t)
	updated, cmd := m.Update(DestroyedMsg{})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.Equal(t, "", updated.(Model).View())
}

func TestModel_SubmitTurn(t *testing.T) {
	m, w, _ := newTestModel(t)
	updated, _ := m.Update(m.mount()())
	m = updated.(Model)

	m.input.SetValue("ping")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	require.True(t, m.busy)
	require.NotNil(t, cmd)

	updated, _ = m.Update(m.submit("ping")())
	m = updated.(Model)
	require.False(t, m.busy)

	last, ok := w.Transcript().LastResponse()
	require.True(t, ok)
	require.Equal(t, `Mock response to: "ping"`, last.Content)
}
