package chatrunner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	input "github.com/tcnksm/go-input"
	"golang.org/x/sync/errgroup"

	"github.com/jamerly/chatbox/pkg/assembler"
	"github.com/jamerly/chatbox/pkg/bus"
	"github.com/jamerly/chatbox/pkg/chatbox"
	"github.com/jamerly/chatbox/pkg/inactivity"
	"github.com/jamerly/chatbox/pkg/redisstream"
	"github.com/jamerly/chatbox/pkg/ui"
	"github.com/jamerly/chatbox/pkg/widget"
)

// RunMode defines the execution mode for the chat session.
type RunMode string

const (
	RunModeChat        RunMode = "chat"
	RunModeLine        RunMode = "line"
	RunModeInteractive RunMode = "interactive"
	RunModeBlocking    RunMode = "blocking"
)

// ChatSession holds the validated configuration and executes the chat logic.
// It's typically created and run by the ChatBuilder.
type ChatSession struct {
	ctx            context.Context
	backend        widget.Backend
	widgetOptions  []widget.Option
	pubsub         *redisstream.PubSub
	programOptions []tea.ProgramOption
	mode           RunMode
	input          io.Reader
	outputWriter   io.Writer
	message        string
}

// Run executes the chat session based on its configured mode.
func (cs *ChatSession) Run() error {
	var err error
	switch cs.mode {
	case RunModeChat:
		err = cs.runChatInternal()
	case RunModeLine:
		err = cs.runLineInternal()
	case RunModeInteractive:
		err = cs.runInteractiveInternal()
	case RunModeBlocking:
		_, err = cs.runBlockingInternal()
	default:
		return errors.Errorf("unknown run mode: %v", cs.mode)
	}
	// Don't return context cancellation errors if the context was cancelled externally
	if errors.Is(err, context.Canceled) && cs.ctx.Err() == context.Canceled {
		return nil
	}
	return err
}

func (cs *ChatSession) newWidget(extra ...widget.Option) (*widget.Widget, error) {
	opts := append(append([]widget.Option{}, cs.widgetOptions...), extra...)
	return widget.New(cs.backend, opts...)
}

// runChatInternal runs the terminal UI. Transcript updates travel from the
// widget through the bus to the UI program.
func (cs *ChatSession) runChatInternal() error {
	pubsub := cs.pubsub
	if pubsub == nil {
		var err error
		pubsub, err = redisstream.Build(redisstream.Settings{}, bus.NewZerologAdapter(log.Logger))
		if err != nil {
			return errors.Wrap(err, "failed to create message bus")
		}
		defer func() { _ = pubsub.Close() }()
	}

	events := ui.NewEvents(256)
	widgetID := uuid.NewString()
	sink := bus.NewPublishingSink(pubsub.Publisher, widgetID)

	opts := append(events.WidgetOptions(), widget.WithID(widgetID), widget.WithSink(sink))
	w, err := cs.newWidget(opts...)
	if err != nil {
		return err
	}
	defer w.Teardown()

	eg, childCtx := errgroup.WithContext(cs.ctx)
	childCtx, cancel := context.WithCancel(childCtx)
	defer cancel()

	if err := pubsub.EnsureConsumerGroup(childCtx, sink.Topic()); err != nil {
		log.Warn().Err(err).Str("component", "chatrunner").Str("group", pubsub.Group()).Msg("could not pre-create consumer group")
	}

	fwd := bus.NewForwarder(pubsub.Subscriber, sink.Topic(), events.Forward)
	if err := fwd.Start(childCtx); err != nil {
		return errors.Wrap(err, "failed to start UI forwarder")
	}
	defer fwd.Stop()

	model := ui.NewModel(childCtx, w, events)
	p := tea.NewProgram(model, cs.programOptions...)

	eg.Go(func() error {
		<-childCtx.Done()
		p.Quit()
		return nil
	})

	eg.Go(func() error {
		defer cancel()
		log.Debug().Str("component", "chatrunner").Msg("Starting Bubble Tea program")
		_, runErr := p.Run()
		log.Debug().Err(runErr).Str("component", "chatrunner").Msg("Bubble Tea program finished")
		w.Teardown()
		if errors.Is(runErr, tea.ErrProgramKilled) && childCtx.Err() != nil {
			return nil
		}
		return runErr
	})

	return eg.Wait()
}

// runLineInternal reads one message per input line and prints the
// transcript as plain text.
func (cs *ChatSession) runLineInternal() error {
	printer := NewLinePrinter(cs.outputWriter, false)
	w, err := cs.newWidget(
		widget.WithSink(printer),
		widget.OnAlert(func(text string) {
			if text != "" {
				printer.Notice(text)
			}
		}),
	)
	if err != nil {
		return err
	}
	defer w.Teardown()

	if err := w.Mount(cs.ctx); err != nil {
		return err
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cs.input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-w.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		printer.Prompt(w.Skin())
		select {
		case <-cs.ctx.Done():
			return cs.ctx.Err()
		case <-w.Done():
			printer.Notice("Chat closed.")
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return errors.Wrap(err, "reading input")
				default:
					return nil
				}
			}
			turn, err := w.Submit(cs.ctx, line)
			if errors.Is(err, chatbox.ErrWidgetClosed) {
				return nil
			}
			if err != nil {
				printer.Notice(err.Error())
				continue
			}
			printer.EndTurn()
			if turn.Outcome == assembler.OutcomeCleared {
				printer.Notice("Transcript cleared.")
			}
		}
	}
}

// runBlockingInternal sends a single message and streams the reply.
func (cs *ChatSession) runBlockingInternal() (*assembler.Turn, error) {
	printer := NewLinePrinter(cs.outputWriter, true)
	cfg := inactivity.DefaultConfig()
	cfg.Enabled = false
	w, err := cs.newWidget(widget.WithSink(printer), widget.WithInactivity(cfg))
	if err != nil {
		return nil, err
	}
	defer w.Teardown()

	printer.SetMuted(true)
	err = w.Mount(cs.ctx)
	printer.SetMuted(false)
	if err != nil {
		return nil, err
	}
	turn, err := w.Submit(cs.ctx, cs.message)
	if err != nil {
		return nil, err
	}
	printer.EndTurn()
	if turn.Err != nil {
		return turn, turn.Err
	}
	return turn, nil
}

// runInteractiveInternal handles initial blocking run + optional chat transition.
func (cs *ChatSession) runInteractiveInternal() error {
	if _, err := cs.runBlockingInternal(); err != nil {
		return errors.Wrap(err, "error during initial blocking step")
	}

	// Use Stderr for prompt asking, as Stdout might be redirected.
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		log.Debug().Msg("Stderr is not a TTY, skipping chat continuation prompt")
		return nil
	}
	continueInChat, err := askForChatContinuation(os.Stderr, os.Stdin)
	if err != nil {
		return errors.Wrap(err, "failed to ask for chat continuation")
	}
	if !continueInChat {
		return nil
	}
	return cs.runChatInternal()
}

// askForChatContinuation prompts the user whether they want to continue in
// chat mode.
func askForChatContinuation(w io.Writer, r io.Reader) (bool, error) {
	prompt := &input.UI{
		Writer: w,
		Reader: r,
	}

	_, _ = fmt.Fprint(w, "\n")
	query := "Do you want to continue in chat mode? [Y/n]"
	answer, err := prompt.Ask(query, &input.Options{
		Default:  "y",
		Required: true,
		Loop:     true,
		ValidateFunc: func(answer string) error {
			switch answer {
			case "y", "Y", "n", "N", "":
				return nil
			default:
				return errors.Errorf("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to get user input")
	}
	_, _ = fmt.Fprint(w, "\n")

	return answer == "y" || answer == "Y" || answer == "", nil
}
