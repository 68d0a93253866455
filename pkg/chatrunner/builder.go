package chatrunner

import (
	"context"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/jamerly/chatbox/pkg/redisstream"
	"github.com/jamerly/chatbox/pkg/widget"
)

// ChatBuilder provides a fluent API for configuring and running a chat session.
type ChatBuilder struct {
	err            error // To collect errors during build steps
	ctx            context.Context
	backend        widget.Backend
	widgetOptions  []widget.Option
	pubsub         *redisstream.PubSub
	programOptions []tea.ProgramOption
	altScreen      bool
	mode           RunMode
	input          io.Reader
	outputWriter   io.Writer
	message        string
}

// NewChatBuilder creates a new builder with default settings.
func NewChatBuilder() *ChatBuilder {
	return &ChatBuilder{
		ctx:          context.Background(),
		altScreen:    true,
		input:        os.Stdin,
		outputWriter: os.Stdout,
		mode:         RunModeChat,
	}
}

// WithContext sets the context for the chat session.
func (b *ChatBuilder) WithContext(ctx context.Context) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if ctx == nil {
		b.err = errors.New("context cannot be nil")
		return b
	}
	b.ctx = ctx
	return b
}

// WithBackend sets the chat API the widget talks to. (Required)
func (b *ChatBuilder) WithBackend(backend widget.Backend) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if backend == nil {
		b.err = errors.New("backend cannot be nil")
		return b
	}
	b.backend = backend
	return b
}

// WithWidgetOptions adds options applied to every widget the session creates.
func (b *ChatBuilder) WithWidgetOptions(opts ...widget.Option) *ChatBuilder {
	if b.err != nil {
		return b
	}
	b.widgetOptions = append(b.widgetOptions, opts...)
	return b
}

// WithPubSub provides the transport carrying transcript updates to the UI.
// Without one, an in-process channel is used.
func (b *ChatBuilder) WithPubSub(ps *redisstream.PubSub) *ChatBuilder {
	if b.err != nil {
		return b
	}
	b.pubsub = ps
	return b
}

// WithProgramOptions adds options for configuring the bubbletea program.
func (b *ChatBuilder) WithProgramOptions(opts ...tea.ProgramOption) *ChatBuilder {
	if b.err != nil {
		return b
	}
	b.programOptions = append(b.programOptions, opts...)
	return b
}

// WithAltScreen selects whether the UI takes over the alternate screen.
// Defaults to true.
func (b *ChatBuilder) WithAltScreen(enabled bool) *ChatBuilder {
	if b.err != nil {
		return b
	}
	b.altScreen = enabled
	return b
}

// WithMode sets the execution mode (chat, line, interactive, blocking).
func (b *ChatBuilder) WithMode(mode RunMode) *ChatBuilder {
	if b.err != nil {
		return b
	}
	switch mode {
	case RunModeChat, RunModeLine, RunModeInteractive, RunModeBlocking:
		b.mode = mode
	default:
		b.err = errors.Errorf("invalid run mode: %s", mode)
	}
	return b
}

// WithInput sets the reader used by line mode. Defaults to os.Stdin.
func (b *ChatBuilder) WithInput(r io.Reader) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if r == nil {
		b.err = errors.New("input reader cannot be nil")
		return b
	}
	b.input = r
	return b
}

// WithOutputWriter sets the writer for line, blocking and interactive modes.
// Defaults to os.Stdout.
func (b *ChatBuilder) WithOutputWriter(w io.Writer) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if w == nil {
		b.err = errors.New("output writer cannot be nil")
		return b
	}
	b.outputWriter = w
	return b
}

// WithMessage sets the message sent by blocking and interactive modes.
func (b *ChatBuilder) WithMessage(message string) *ChatBuilder {
	if b.err != nil {
		return b
	}
	b.message = message
	return b
}

// Build validates the builder configuration and returns the session.
func (b *ChatBuilder) Build() (*ChatSession, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.backend == nil {
		return nil, errors.New("backend is required (use WithBackend)")
	}
	if (b.mode == RunModeBlocking || b.mode == RunModeInteractive) && strings.TrimSpace(b.message) == "" {
		return nil, errors.New("a message is required for blocking or interactive mode (use WithMessage)")
	}

	programOptions := append([]tea.ProgramOption{}, b.programOptions...)
	if b.altScreen {
		programOptions = append([]tea.ProgramOption{tea.WithAltScreen()}, programOptions...)
	}

	return &ChatSession{
		ctx:            b.ctx,
		backend:        b.backend,
		widgetOptions:  b.widgetOptions,
		pubsub:         b.pubsub,
		programOptions: programOptions,
		mode:           b.mode,
		input:          b.input,
		outputWriter:   b.outputWriter,
		message:        b.message,
	}, nil
}
