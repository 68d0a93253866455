package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jamerly/chatbox/pkg/chatbox"
	"github.com/jamerly/chatbox/pkg/widget"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("118"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	bubbleStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true)
	statusStyles = map[widget.Status]lipgloss.Style{
		widget.StatusLoading:    helpStyle,
		widget.StatusReady:      promptStyle,
		widget.StatusInitFailed: errorStyle,
		widget.StatusClosed:     helpStyle,
	}
)

func styleFor(t chatbox.MessageType) lipgloss.Style {
	switch t {
	case chatbox.MessageInfo:
		return infoStyle
	case chatbox.MessageError:
		return errorStyle
	case chatbox.MessageWarn:
		return warnStyle
	case chatbox.MessageCommand:
		return userStyle
	default:
		return lipgloss.NewStyle()
	}
}
