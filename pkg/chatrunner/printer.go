package chatrunner

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jamerly/chatbox/pkg/chatbox"
	"github.com/jamerly/chatbox/pkg/widget"
)

// LinePrinter is a chatbox.Sink that writes the transcript as plain text.
// The growing response of a turn is printed incrementally: only the new
// suffix is written each time.
type LinePrinter struct {
	w             io.Writer
	responsesOnly bool

	mu      sync.Mutex
	muted   bool
	printed string
	inReply bool
}

var _ chatbox.Sink = (*LinePrinter)(nil)

func NewLinePrinter(w io.Writer, responsesOnly bool) *LinePrinter {
	return &LinePrinter{w: w, responsesOnly: responsesOnly}
}

func (p *LinePrinter) Emit(m chatbox.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.muted {
		return
	}

	if m.Type == chatbox.MessageResponse {
		if p.inReply && strings.HasPrefix(m.Content, p.printed) {
			_, _ = io.WriteString(p.w, m.Content[len(p.printed):])
		} else {
			p.breakLine()
			_, _ = io.WriteString(p.w, m.Content)
		}
		p.printed = m.Content
		p.inReply = true
		return
	}
	if p.responsesOnly && m.Type != chatbox.MessageError {
		return
	}
	p.breakLine()
	switch m.Type {
	case chatbox.MessageCommand:
		_, _ = fmt.Fprintf(p.w, "> %s\n", m.Content)
	case chatbox.MessageError:
		_, _ = fmt.Fprintf(p.w, "[error] %s\n", m.Content)
	case chatbox.MessageWarn:
		_, _ = fmt.Fprintf(p.w, "[warn] %s\n", m.Content)
	default:
		_, _ = fmt.Fprintf(p.w, "%s\n", m.Content)
	}
}

func (p *LinePrinter) breakLine() {
	if p.inReply {
		_, _ = io.WriteString(p.w, "\n")
		p.inReply = false
		p.printed = ""
	}
}

// SetMuted suppresses output while set, e.g. during history replay.
func (p *LinePrinter) SetMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = muted
}

// EndTurn terminates a response line still open.
func (p *LinePrinter) EndTurn() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakLine()
}

// Notice prints a line outside the transcript.
func (p *LinePrinter) Notice(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakLine()
	_, _ = fmt.Fprintf(p.w, "-- %s\n", text)
}

// Prompt writes the skin's input prompt without a line feed.
func (p *LinePrinter) Prompt(skin widget.Skin) {
	if p.responsesOnly {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakLine()
	_, _ = io.WriteString(p.w, skin.Prompt())
}
