package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	"github.com/jamerly/chatbox/pkg/chatbox"
	"github.com/jamerly/chatbox/pkg/widget"
)

// Renderer turns transcript messages into terminal text. Responses are
// rendered as markdown when a markdown renderer is available.
type Renderer struct {
	markdown *glamour.TermRenderer
	width    int
}

// NewRenderer builds a renderer wrapping at width. A zero width disables
// markdown rendering.
func NewRenderer(width int) *Renderer {
	r := &Renderer{width: width}
	if width <= 0 {
		return r
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Warn().Err(err).Str("component", "ui").Msg("markdown rendering disabled")
		return r
	}
	r.markdown = md
	return r
}

func (r *Renderer) response(content string) string {
	if r == nil || r.markdown == nil {
		return content
	}
	out, err := r.markdown.Render(content)
	if err != nil {
		return content
	}
	return trimBlankLines(out)
}

func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

func prompt(skin widget.Skin) string {
	p := skin.Prompt()
	trimmed := strings.TrimRight(p, " ")
	style := promptStyle
	if skin == widget.SkinChatbox {
		style = userStyle
	}
	return style.Render(trimmed) + p[len(trimmed):]
}

// Message renders one transcript entry for the given skin.
func (r *Renderer) Message(skin widget.Skin, m chatbox.Message) string {
	switch m.Type {
	case chatbox.MessageCommand:
		return prompt(skin) + m.Content
	case chatbox.MessageResponse:
		body := r.response(m.Content)
		if skin == widget.SkinChatbox {
			return bubbleStyle.Render(body)
		}
		return body
	default:
		return styleFor(m.Type).Render(m.Content)
	}
}

// Transcript renders every message, one block per entry.
func (r *Renderer) Transcript(skin widget.Skin, msgs []chatbox.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, r.Message(skin, m))
	}
	return strings.Join(parts, "\n")
}
