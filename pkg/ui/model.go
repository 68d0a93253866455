package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	bspinner "github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jamerly/chatbox/pkg/chatbox"
	"github.com/jamerly/chatbox/pkg/widget"
)

const helpLine = "enter send • ctrl+n new chat • ctrl+e end chat • ctrl+t skin • esc minimize • ctrl+y copy • ctrl+c quit"

type chatResetMsg struct {
	err error
}

// Model is the bubbletea front end of a widget.
type Model struct {
	ctx      context.Context
	widget   *widget.Widget
	events   <-chan tea.Msg
	renderer *Renderer

	spinner  bspinner.Model
	viewport viewport.Model
	input    textinput.Model

	status  string
	alert   string
	busy    bool
	width   int
	closing bool
}

func NewModel(ctx context.Context, w *widget.Widget, events *Events) Model {
	sp := bspinner.New()
	sp.Spinner = bspinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)

	vp := viewport.New(80, 12)
	vp.Style = lipgloss.NewStyle()

	ti := textinput.New()
	ti.Placeholder = "Type a message or /help"
	ti.Prompt = w.Skin().Prompt()
	ti.Focus()

	return Model{
		ctx:      ctx,
		widget:   w,
		events:   events.Chan(),
		renderer: NewRenderer(78),
		spinner:  sp,
		viewport: vp,
		input:    ti,
		status:   "Loading",
		width:    80,
	}
}

func (m Model) mount() tea.Cmd {
	return func() tea.Msg {
		return ReadyMsg{Err: m.widget.Mount(m.ctx)}
	}
}

func (m Model) submit(text string) tea.Cmd {
	return func() tea.Msg {
		turn, err := m.widget.Submit(m.ctx, text)
		return TurnDoneMsg{Turn: turn, Err: err}
	}
}

func (m Model) newChat() tea.Cmd {
	return func() tea.Msg {
		return chatResetMsg{err: m.widget.NewChat(m.ctx)}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, m.mount(), waitForUIEvent(m.events))
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderer.Transcript(m.widget.Skin(), m.widget.Messages()))
	m.viewport.GotoBottom()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch ev := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = ev.Width
		m.viewport.Width = ev.Width
		if h := ev.Height - 5; h > 3 {
			m.viewport.Height = h
		}
		m.input.Width = ev.Width - len(m.input.Prompt) - 1
		m.renderer = NewRenderer(ev.Width - 2)
		m.refresh()
		return m, nil

	case ReadyMsg:
		if ev.Err != nil {
			m.status = "Chatbox initialization failed."
			m.alert = ev.Err.Error()
		} else {
			m.status = "Ready"
		}
		m.refresh()
		return m, nil

	case TranscriptMsg:
		m.refresh()
		return m, waitForUIEvent(m.events)

	case chatResetMsg:
		if ev.err != nil {
			m.alert = ev.err.Error()
		} else {
			m.alert = ""
		}
		m.refresh()
		return m, nil

	case AlertMsg:
		m.alert = ev.Text
		return m, waitForUIEvent(m.events)

	case ActionMsg:
		m.alert = fmt.Sprintf("Executing %s", ev.Operation.Name)
		return m, waitForUIEvent(m.events)

	case DestroyedMsg:
		m.closing = true
		return m, tea.Quit

	case TurnDoneMsg:
		m.busy = false
		if errors.Is(ev.Err, chatbox.ErrTurnInProgress) {
			m.alert = "Please wait for the current reply to finish."
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch ev.String() {
		case "ctrl+c":
			m.closing = true
			m.widget.Teardown()
			return m, tea.Quit
		case "enter":
			text := m.input.Value()
			m.input.SetValue("")
			if m.busy && strings.TrimSpace(text) != "" {
				m.alert = "Please wait for the current reply to finish."
				return m, nil
			}
			if strings.TrimSpace(text) != "" {
				m.busy = true
			}
			return m, tea.Batch(m.submit(text), m.spinner.Tick)
		case "ctrl+n":
			return m, m.newChat()
		case "ctrl+e":
			m.closing = true
			if err := m.widget.EndChat(m.ctx); err != nil {
				log.Warn().Err(err).Str("component", "ui").Msg("end chat failed")
			}
			return m, tea.Quit
		case "ctrl+t":
			skin := m.widget.ToggleSkin()
			m.input.Prompt = skin.Prompt()
			m.refresh()
			return m, nil
		case "esc":
			m.widget.ToggleMinimize()
			return m, nil
		case "ctrl+y":
			if last, ok := m.widget.Transcript().LastResponse(); ok {
				if err := clipboard.WriteAll(last.Content); err != nil {
					m.alert = "Copy failed: " + err.Error()
				} else {
					m.alert = "Copied last reply to clipboard"
				}
			}
			return m, nil
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.closing {
		return ""
	}
	header := headerStyle.Render("ChatBox") + " "
	if style, ok := statusStyles[m.widget.Status()]; ok {
		header += style.Render(m.status)
	} else {
		header += m.status
	}
	if m.busy {
		header += " " + m.spinner.View()
	}
	if m.widget.Minimized() {
		return header + "\n" + helpStyle.Render("(minimized, press esc to restore)")
	}

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	if m.alert != "" {
		sb.WriteString(warnStyle.Render(m.alert))
		sb.WriteString("\n")
	}
	sb.WriteString(m.input.View())
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render(helpLine))
	return sb.String()
}
