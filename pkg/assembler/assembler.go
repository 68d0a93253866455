package assembler

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jamerly/chatbox/pkg/chatbox"
	"github.com/jamerly/chatbox/pkg/stream"
)

const (
	CommandClear = "/clear"
	CommandHelp  = "/help"
)

// HelpText is the body of the /help reply.
const HelpText = "Available commands:\n" +
	"/help - Display this help message\n" +
	"/clear - Clear the terminal\n" +
	"Any other text will be processed by the server."

// Transport opens the streamed reply for one user message.
type Transport interface {
	StreamChat(ctx context.Context, message, sessionID string) (*stream.Reader, error)
}

// Outcome says how a submission was handled.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeCleared
	OutcomeHelp
	OutcomeCompleted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeCleared:
		return "cleared"
	case OutcomeHelp:
		return "help"
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Turn describes a handled submission. Err is set when a remote turn ended
// with a transport or stream error; it has already been emitted as an error
// message.
type Turn struct {
	ID       string
	Input    string
	Outcome  Outcome
	Response string
	Err      error
}

// Assembler turns user input into transcript messages. Remote turns are
// single-flight: a submission arriving while one streams is rejected.
type Assembler struct {
	transport Transport
	sink      chatbox.Sink

	sessionID  func() string
	onClear    func()
	onComplete func(*Turn)

	mu   sync.Mutex
	busy bool
}

type Option func(*Assembler)

// WithSessionProvider sets where the current session id is read from before
// each remote turn.
func WithSessionProvider(fn func() string) Option {
	return func(a *Assembler) { a.sessionID = fn }
}

// WithClearHandler is called for /clear after the acknowledgement has been
// emitted. It is expected to reset the log and drop the session.
func WithClearHandler(fn func()) Option {
	return func(a *Assembler) { a.onClear = fn }
}

// WithTurnCompleteHandler is called after every remote turn, successful or not.
func WithTurnCompleteHandler(fn func(*Turn)) Option {
	return func(a *Assembler) { a.onComplete = fn }
}

func New(transport Transport, sink chatbox.Sink, opts ...Option) *Assembler {
	a := &Assembler{
		transport: transport,
		sink:      sink,
		sessionID: func() string { return "" },
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.sink == nil {
		a.sink = chatbox.SinkFunc(nil)
	}
	return a
}

// Busy reports whether a remote turn is streaming.
func (a *Assembler) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.busy
}

func (a *Assembler) acquire() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.busy {
		return false
	}
	a.busy = true
	return true
}

func (a *Assembler) release() {
	a.mu.Lock()
	a.busy = false
	a.mu.Unlock()
}

// Submit handles one line of user input and blocks until it has been fully
// processed. The only error it returns is chatbox.ErrTurnInProgress; turn
// failures are reported as messages and on the returned Turn.
func (a *Assembler) Submit(ctx context.Context, raw string) (*Turn, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return &Turn{Outcome: OutcomeIgnored}, nil
	}
	if !a.acquire() {
		log.Debug().Str("component", "assembler").Str("input", input).Msg("rejecting submission, turn in progress")
		return nil, chatbox.ErrTurnInProgress
	}
	defer a.release()

	turn := &Turn{ID: uuid.NewString(), Input: input}
	a.sink.Emit(chatbox.NewMessage(chatbox.MessageCommand, input))

	switch input {
	case CommandClear:
		turn.Outcome = OutcomeCleared
		if a.onClear != nil {
			a.onClear()
		}
		return turn, nil
	case CommandHelp:
		turn.Outcome = OutcomeHelp
		a.sink.Emit(chatbox.NewMessage(chatbox.MessageResponse, HelpText))
		return turn, nil
	}

	a.runRemote(ctx, turn)
	if a.onComplete != nil {
		a.onComplete(turn)
	}
	return turn, nil
}

func (a *Assembler) fail(turn *Turn, err error) {
	turn.Outcome = OutcomeFailed
	turn.Err = err
	a.sink.Emit(chatbox.NewMessage(chatbox.MessageError, "Error: "+err.Error()))
}

func (a *Assembler) runRemote(ctx context.Context, turn *Turn) {
	sessionID := a.sessionID()
	if sessionID == "" {
		a.fail(turn, &chatbox.ChatError{Err: chatbox.ErrNoSession})
		return
	}

	logger := log.With().
		Str("component", "assembler").
		Str("turn_id", turn.ID).
		Str("session_id", sessionID).
		Logger()

	reader, err := a.transport.StreamChat(ctx, turn.Input, sessionID)
	if err != nil {
		logger.Warn().Err(err).Msg("chat request failed")
		a.fail(turn, err)
		return
	}
	defer func() { _ = reader.Close() }()

	var acc strings.Builder
	chunks := 0
	for f := range reader.Frames() {
		switch f.Kind {
		case stream.FrameChunk:
			acc.WriteString(f.Chunk)
			chunks++
			a.sink.Emit(chatbox.NewMessage(chatbox.MessageResponse, acc.String()))
		case stream.FrameParseError:
			logger.Warn().Err(f.Err).Msg("skipping malformed frame")
			a.sink.Emit(chatbox.NewMessage(chatbox.MessageError, f.Err.Error()))
		}
	}
	turn.Response = acc.String()

	if err := reader.Err(); err != nil {
		var ce *chatbox.ChatError
		if !errors.As(err, &ce) {
			err = &chatbox.ChatError{Err: err}
		}
		logger.Warn().Err(err).Int("chunks", chunks).Msg("chat stream ended with error")
		a.fail(turn, err)
		return
	}
	turn.Outcome = OutcomeCompleted
	logger.Debug().Int("chunks", chunks).Bool("done_marker", reader.SawDone()).Msg("chat turn completed")
}
