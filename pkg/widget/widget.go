package widget

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jamerly/chatbox/pkg/assembler"
	"github.com/jamerly/chatbox/pkg/chatbox"
	"github.com/jamerly/chatbox/pkg/client"
	"github.com/jamerly/chatbox/pkg/inactivity"
	"github.com/jamerly/chatbox/pkg/session"
	"github.com/jamerly/chatbox/pkg/useraction"
)

// Backend is the part of the chat API a widget needs.
type Backend interface {
	InitSession(ctx context.Context, sessionID string) (*client.InitResult, error)
	FetchHistory(ctx context.Context, sessionID string) ([]chatbox.HistoryItem, error)
	assembler.Transport
}

var _ Backend = (*client.Client)(nil)

type Status int

const (
	StatusCreated Status = iota
	StatusLoading
	StatusReady
	StatusInitFailed
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusInitFailed:
		return "init-failed"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Widget is one chat instance: it owns the transcript, the session handle
// and the inactivity monitor. Its lifecycle is New, Mount, Teardown.
type Widget struct {
	id         string
	backend    Backend
	store      session.Store
	storageKey string
	skin       Skin

	inactivity     inactivity.Config
	inactivityOpts []inactivity.Option

	transcript *chatbox.Transcript
	sinks      []chatbox.Sink
	sink       chatbox.Sink
	asm        *assembler.Assembler
	monitor    *inactivity.Monitor
	logger     zerolog.Logger

	onInit       func(string)
	onInitError  func(error)
	onDestroy    func()
	onMinimize   func(bool)
	onUserAction func(useraction.Operation)
	onAlert      func(string)
	onChange     func()

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	status    Status
	sessionID string
	welcome   string
	alert     string
	minimized bool

	destroyOnce sync.Once
}

func New(backend Backend, opts ...Option) (*Widget, error) {
	if backend == nil {
		return nil, errors.New("widget requires a backend")
	}
	w := &Widget{
		id:         uuid.NewString(),
		backend:    backend,
		storageKey: chatbox.SessionStorageKey,
		skin:       SkinTerminal,
		inactivity: inactivity.DefaultConfig(),
		transcript: chatbox.NewTranscript(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.inactivity.Validate(); err != nil {
		return nil, err
	}
	if w.store == nil {
		w.store = session.NewMemoryStore()
	}
	w.logger = log.With().Str("component", "widget").Str("widget_id", w.id).Logger()
	w.ctx, w.cancel = context.WithCancel(context.Background())

	fanout := append(chatbox.MultiSink{w.transcript}, w.sinks...)
	w.sink = chatbox.SinkFunc(func(m chatbox.Message) {
		if w.Status() == StatusClosed {
			return
		}
		fanout.Emit(m)
	})
	if w.onChange != nil {
		w.transcript.OnChange(w.onChange)
	}
	w.asm = assembler.New(backend, w.sink,
		assembler.WithSessionProvider(w.SessionID),
		assembler.WithClearHandler(w.clear),
		assembler.WithTurnCompleteHandler(w.turnComplete),
	)

	monitorOpts := append([]inactivity.Option{
		inactivity.WithWarningHandler(w.setAlert),
		inactivity.WithActiveHandler(func() { w.setAlert("") }),
		inactivity.WithExpireHandler(w.expire),
	}, w.inactivityOpts...)
	w.monitor = inactivity.New(w.inactivity, monitorOpts...)
	return w, nil
}

func (w *Widget) ID() string { return w.id }

// Mount bootstraps the session: init, history replay, then inactivity
// polling. An init failure leaves the widget in StatusInitFailed and is
// returned as a *chatbox.InitError.
func (w *Widget) Mount(ctx context.Context) error {
	w.mu.Lock()
	if w.status != StatusCreated {
		status := w.status
		w.mu.Unlock()
		if status == StatusClosed {
			return chatbox.ErrWidgetClosed
		}
		return errors.Errorf("widget already mounted (%s)", status)
	}
	w.status = StatusLoading
	w.mu.Unlock()

	stored, _, err := w.store.Get(ctx, w.storageKey)
	if err != nil {
		w.logger.Warn().Err(err).Msg("failed to read stored session, starting fresh")
		stored = ""
	}

	res, err := w.backend.InitSession(ctx, stored)
	if err != nil {
		var ie *chatbox.InitError
		if !errors.As(err, &ie) {
			err = &chatbox.InitError{Err: err}
		}
		w.setStatus(StatusInitFailed)
		w.logger.Error().Err(err).Msg("chat initialization failed")
		if w.onInitError != nil {
			w.onInitError(err)
		}
		return err
	}
	w.adoptSession(ctx, res)

	history, err := w.backend.FetchHistory(ctx, res.SessionID)
	if err != nil {
		w.logger.Warn().Err(err).Msg("history unavailable")
		history = nil
	}
	for _, item := range history {
		w.sink.Emit(chatbox.NewMessage(chatbox.MessageCommand, item.UserMessage))
		w.sink.Emit(chatbox.NewMessage(chatbox.MessageResponse, item.AIResponse))
	}

	w.mu.Lock()
	if w.status != StatusLoading {
		w.mu.Unlock()
		return chatbox.ErrWidgetClosed
	}
	w.status = StatusReady
	w.mu.Unlock()

	w.monitor.Start()
	w.logger.Info().Str("session_id", res.SessionID).Int("history", len(history)).Msg("chat widget ready")

	if w.onInit != nil {
		if len(history) > 0 {
			w.onInit(res.WelcomeText)
		} else {
			w.onInit("")
		}
	}
	return nil
}

func (w *Widget) adoptSession(ctx context.Context, res *client.InitResult) {
	w.mu.Lock()
	w.sessionID = res.SessionID
	w.welcome = res.WelcomeText
	w.mu.Unlock()

	if res.SessionID != "" {
		if err := w.store.Set(ctx, w.storageKey, res.SessionID); err != nil {
			w.logger.Warn().Err(err).Msg("failed to persist session id")
		}
	}
	if res.WelcomeText != "" {
		w.sink.Emit(chatbox.NewMessage(chatbox.MessageInfo, res.WelcomeText))
	}
}

// Submit handles one line of input. Every submission counts as activity,
// including empty ones.
func (w *Widget) Submit(ctx context.Context, raw string) (*assembler.Turn, error) {
	if w.Status() == StatusClosed {
		return nil, chatbox.ErrWidgetClosed
	}
	w.monitor.Touch()

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(w.ctx, cancel)
	defer stop()

	return w.asm.Submit(turnCtx, raw)
}

// Touch records user activity without submitting anything.
func (w *Widget) Touch() {
	w.monitor.Touch()
}

// NewChat clears the transcript and the session and starts a new session.
func (w *Widget) NewChat(ctx context.Context) error {
	if w.Status() == StatusClosed {
		return chatbox.ErrWidgetClosed
	}
	if w.asm.Busy() {
		return chatbox.ErrTurnInProgress
	}
	w.monitor.Touch()
	w.clear()

	res, err := w.backend.InitSession(ctx, "")
	if err != nil {
		w.sink.Emit(chatbox.NewMessage(chatbox.MessageError, err.Error()))
		return err
	}
	w.adoptSession(ctx, res)
	w.logger.Info().Str("session_id", res.SessionID).Msg("started new chat")
	return nil
}

// EndChat drops the persisted session and tears the widget down.
func (w *Widget) EndChat(ctx context.Context) error {
	w.clearStoredSession(ctx)
	w.Teardown()
	return nil
}

// Teardown stops polling, cancels any in-flight turn and fires OnDestroy.
// It is idempotent.
func (w *Widget) Teardown() {
	w.destroyOnce.Do(func() {
		w.setStatus(StatusClosed)
		w.monitor.Stop()
		w.cancel()
		w.transcript.Close()
		w.logger.Info().Msg("chat widget torn down")
		if w.onDestroy != nil {
			w.onDestroy()
		}
	})
}

// Done is closed once the widget has been torn down.
func (w *Widget) Done() <-chan struct{} {
	return w.ctx.Done()
}

func (w *Widget) expire() {
	w.logger.Info().Msg("closing chat after inactivity")
	w.Teardown()
}

func (w *Widget) clear() {
	w.transcript.Reset()
	w.mu.Lock()
	w.sessionID = ""
	w.mu.Unlock()
	w.clearStoredSession(w.ctx)
}

func (w *Widget) clearStoredSession(ctx context.Context) {
	if err := w.store.Delete(context.WithoutCancel(ctx), w.storageKey); err != nil {
		w.logger.Warn().Err(err).Msg("failed to clear stored session")
	}
}

func (w *Widget) turnComplete(turn *assembler.Turn) {
	if turn.Outcome != assembler.OutcomeCompleted || w.onUserAction == nil {
		return
	}
	for _, op := range useraction.Extract(turn.Response) {
		w.logger.Debug().Str("operation", op.Name).Str("turn_id", turn.ID).Msg("user operation requested")
		w.onUserAction(op)
	}
}

func (w *Widget) setAlert(text string) {
	w.mu.Lock()
	if w.alert == text {
		w.mu.Unlock()
		return
	}
	w.alert = text
	w.mu.Unlock()
	if w.onAlert != nil {
		w.onAlert(text)
	}
}

func (w *Widget) setStatus(s Status) {
	w.mu.Lock()
	w.status = s
	w.mu.Unlock()
}

func (w *Widget) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// SessionID returns the current session id, empty when there is none.
func (w *Widget) SessionID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sessionID
}

func (w *Widget) WelcomeText() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.welcome
}

// Alert returns the current inactivity warning, empty when there is none.
func (w *Widget) Alert() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.alert
}

func (w *Widget) Messages() []chatbox.Message {
	return w.transcript.Messages()
}

func (w *Widget) Transcript() *chatbox.Transcript {
	return w.transcript
}

func (w *Widget) Busy() bool {
	return w.asm.Busy()
}

func (w *Widget) InactivityState() inactivity.State {
	return w.monitor.State()
}

// ToggleMinimize flips the minimized flag and reports the new value.
func (w *Widget) ToggleMinimize() bool {
	w.mu.Lock()
	w.minimized = !w.minimized
	minimized := w.minimized
	w.mu.Unlock()
	if w.onMinimize != nil {
		w.onMinimize(minimized)
	}
	return minimized
}

func (w *Widget) Minimized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.minimized
}
