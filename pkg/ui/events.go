package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamerly/chatbox/pkg/assembler"
	"github.com/jamerly/chatbox/pkg/bus"
	"github.com/jamerly/chatbox/pkg/useraction"
	"github.com/jamerly/chatbox/pkg/widget"
)

// TranscriptMsg signals that the transcript changed.
type TranscriptMsg struct {
	Envelope bus.Envelope
}

type AlertMsg struct {
	Text string
}

type DestroyedMsg struct{}

type ActionMsg struct {
	Operation useraction.Operation
}

type ReadyMsg struct {
	Err error
}

type TurnDoneMsg struct {
	Turn *assembler.Turn
	Err  error
}

// Events carries widget notifications into the bubbletea loop.
type Events struct {
	ch chan tea.Msg
}

func NewEvents(buffer int) *Events {
	if buffer <= 0 {
		buffer = 256
	}
	return &Events{ch: make(chan tea.Msg, buffer)}
}

func (e *Events) Chan() <-chan tea.Msg {
	return e.ch
}

// Send queues msg. Transcript notifications are dropped when the queue is
// full; the next one re-renders the whole transcript anyway.
func (e *Events) Send(msg tea.Msg) {
	if _, ok := msg.(TranscriptMsg); ok {
		select {
		case e.ch <- msg:
		default:
		}
		return
	}
	e.ch <- msg
}

// Forward is a bus.Forwarder callback.
func (e *Events) Forward(env bus.Envelope) {
	e.Send(TranscriptMsg{Envelope: env})
}

// WidgetOptions wires widget callbacks to the event queue.
func (e *Events) WidgetOptions() []widget.Option {
	return []widget.Option{
		widget.OnAlert(func(text string) { e.Send(AlertMsg{Text: text}) }),
		widget.OnDestroy(func() {
			select {
			case e.ch <- DestroyedMsg{}:
			default:
			}
		}),
		widget.OnUserAction(func(op useraction.Operation) { e.Send(ActionMsg{Operation: op}) }),
	}
}

func waitForUIEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return e
	}
}
