package inactivity

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type State int

const (
	StateActive State = iota
	StateWarning
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateWarning:
		return "warning"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

const (
	DefaultWarningThreshold = 30 * time.Second
	DefaultHardLimit        = 40 * time.Second
)

type Config struct {
	WarningThreshold time.Duration `yaml:"warning" mapstructure:"warning"`
	HardLimit        time.Duration `yaml:"limit" mapstructure:"limit"`
	Enabled          bool          `yaml:"enabled" mapstructure:"enabled"`
}

func DefaultConfig() Config {
	return Config{
		WarningThreshold: DefaultWarningThreshold,
		HardLimit:        DefaultHardLimit,
		Enabled:          true,
	}
}

func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.WarningThreshold <= 0 || c.HardLimit <= 0 {
		return errors.New("inactivity thresholds must be positive")
	}
	if c.HardLimit <= c.WarningThreshold {
		return errors.Errorf("inactivity limit %s must exceed warning threshold %s", c.HardLimit, c.WarningThreshold)
	}
	return nil
}

// WarningText is the message shown while the session is about to close.
func WarningText(remaining int) string {
	return fmt.Sprintf("You have been inactive for a while, chat will close at %d seconds", remaining)
}

// Monitor tracks user activity and fires a single expiry once the hard limit
// has passed without a Touch. It is polled by a Scheduler between Start and
// Stop.
type Monitor struct {
	cfg       Config
	clock     Clock
	scheduler Scheduler

	onWarning func(text string)
	onActive  func()
	onExpire  func()

	mu         sync.Mutex
	lastActive time.Time
	state      State
	remaining  int
	cancel     func()
	started    bool
	stopped    bool
}

type Option func(*Monitor)

func WithClock(c Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

func WithScheduler(s Scheduler) Option {
	return func(m *Monitor) { m.scheduler = s }
}

// WithWarningHandler is called when the warning appears and whenever the
// remaining seconds change.
func WithWarningHandler(fn func(text string)) Option {
	return func(m *Monitor) { m.onWarning = fn }
}

// WithActiveHandler is called when a warning is cleared.
func WithActiveHandler(fn func()) Option {
	return func(m *Monitor) { m.onActive = fn }
}

// WithExpireHandler is called exactly once, when the hard limit is reached.
func WithExpireHandler(fn func()) Option {
	return func(m *Monitor) { m.onExpire = fn }
}

func New(cfg Config, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:       cfg,
		clock:     SystemClock,
		scheduler: TickerScheduler{Interval: DefaultFrameInterval},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastActive = m.clock.Now()
	return m
}

// Start begins polling. It does nothing when the monitor is disabled,
// already started or stopped.
func (m *Monitor) Start() {
	m.mu.Lock()
	if !m.cfg.Enabled || m.started || m.stopped {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.lastActive = m.clock.Now()
	m.mu.Unlock()

	cancel := m.scheduler.Repeat(m.Tick)

	m.mu.Lock()
	if m.stopped || m.state == StateExpired {
		m.mu.Unlock()
		cancel()
		return
	}
	m.cancel = cancel
	m.mu.Unlock()
	log.Debug().
		Str("component", "inactivity").
		Dur("warning", m.cfg.WarningThreshold).
		Dur("limit", m.cfg.HardLimit).
		Msg("inactivity monitor started")
}

// Touch records user activity and clears a pending warning.
func (m *Monitor) Touch() {
	m.mu.Lock()
	if m.state == StateExpired {
		m.mu.Unlock()
		return
	}
	m.lastActive = m.clock.Now()
	wasWarning := m.state == StateWarning
	m.state = StateActive
	m.remaining = 0
	fn := m.onActive
	m.mu.Unlock()

	if wasWarning && fn != nil {
		fn()
	}
}

// Tick evaluates the elapsed idle time. It is the scheduler callback and may
// also be called directly.
func (m *Monitor) Tick() {
	m.mu.Lock()
	if m.stopped || m.state == StateExpired || !m.cfg.Enabled {
		m.mu.Unlock()
		return
	}
	elapsed := m.clock.Now().Sub(m.lastActive)

	switch {
	case elapsed >= m.cfg.HardLimit:
		m.state = StateExpired
		m.remaining = 0
		cancel := m.cancel
		m.cancel = nil
		fn := m.onExpire
		m.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		log.Info().Str("component", "inactivity").Dur("idle", elapsed).Msg("session expired after inactivity")
		if fn != nil {
			fn()
		}

	case elapsed >= m.cfg.WarningThreshold:
		remaining := int(math.Ceil((m.cfg.HardLimit - elapsed).Seconds()))
		changed := m.state != StateWarning || remaining != m.remaining
		m.state = StateWarning
		m.remaining = remaining
		fn := m.onWarning
		m.mu.Unlock()

		if changed && fn != nil {
			fn(WarningText(remaining))
		}

	default:
		wasWarning := m.state == StateWarning
		m.state = StateActive
		m.remaining = 0
		fn := m.onActive
		m.mu.Unlock()

		if wasWarning && fn != nil {
			fn()
		}
	}
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Remaining returns the seconds left before expiry while in the warning
// state, zero otherwise.
func (m *Monitor) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remaining
}

func (m *Monitor) LastActive() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActive
}

// Stop cancels polling. No handler is invoked by ticks scheduled after Stop.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
