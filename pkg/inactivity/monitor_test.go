package inactivity

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type harness struct {
	clock    *ManualClock
	sched    *ManualScheduler
	mon      *Monitor
	warnings []string
	actives  int
	expires  int
}

func newHarness(cfg Config) *harness {
	h := &harness{
		clock: NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		sched: NewManualScheduler(),
	}
	h.mon = New(cfg,
		WithClock(h.clock),
		WithScheduler(h.sched),
		WithWarningHandler(func(text string) { h.warnings = append(h.warnings, text) }),
		WithActiveHandler(func() { h.actives++ }),
		WithExpireHandler(func() { h.expires++ }),
	)
	return h
}

func (h *harness) at(d time.Duration) {
	h.clock.Advance(d)
	h.sched.Fire()
}

func TestMonitor_WarningThenExpiry(t *testing.T) {
	h := newHarness(DefaultConfig())
	h.mon.Start()
	require.Equal(t, 1, h.sched.Active())

	h.at(29 * time.Second)
	require.Equal(t, StateActive, h.mon.State())
	require.Empty(t, h.warnings)

	h.at(2 * time.Second) // 31s
	require.Equal(t, StateWarning, h.mon.State())
	require.Equal(t, 9, h.mon.Remaining())
	require.Equal(t, []string{"You have been inactive for a while, chat will close at 9 seconds"}, h.warnings)

	h.at(10 * time.Second) // 41s
	require.Equal(t, StateExpired, h.mon.State())
	require.Equal(t, 1, h.expires)
	require.Equal(t, 0, h.sched.Active())

	h.at(10 * time.Second)
	h.mon.Tick()
	require.Equal(t, 1, h.expires)
}

func TestMonitor_RemainingRoundsUp(t *testing.T) {
	h := newHarness(DefaultConfig())
	h.mon.Start()

	h.at(30*time.Second + 100*time.Millisecond)
	require.Equal(t, 10, h.mon.Remaining())

	h.at(400 * time.Millisecond)
	require.Equal(t, 10, h.mon.Remaining())
	require.Len(t, h.warnings, 1)

	h.at(600 * time.Millisecond) // 31.1s
	require.Equal(t, 9, h.mon.Remaining())
	require.Len(t, h.warnings, 2)
}

func TestMonitor_TouchClearsWarning(t *testing.T) {
	h := newHarness(DefaultConfig())
	h.mon.Start()

	h.at(35 * time.Second)
	require.Equal(t, StateWarning, h.mon.State())

	h.mon.Touch()
	require.Equal(t, StateActive, h.mon.State())
	require.Equal(t, 1, h.actives)

	h.at(20 * time.Second)
	require.Equal(t, StateActive, h.mon.State())
	h.at(15 * time.Second)
	require.Equal(t, StateWarning, h.mon.State())
	require.Equal(t, 0, h.expires)
}

func TestMonitor_TouchWithoutWarningDoesNotNotify(t *testing.T) {
	h := newHarness(DefaultConfig())
	h.mon.Start()
	h.at(5 * time.Second)
	h.mon.Touch()
	require.Equal(t, 0, h.actives)
}

func TestMonitor_StopCancelsPolling(t *testing.T) {
	h := newHarness(DefaultConfig())
	h.mon.Start()
	h.mon.Stop()
	require.Equal(t, 0, h.sched.Active())

	h.clock.Advance(time.Minute)
	h.mon.Tick()
	require.Equal(t, 0, h.expires)
	require.Empty(t, h.warnings)

	h.mon.Start()
	require.Equal(t, 0, h.sched.Active())
}

func TestMonitor_DisabledNeverPolls(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	h := newHarness(cfg)
	h.mon.Start()
	require.Equal(t, 0, h.sched.Active())

	h.clock.Advance(time.Hour)
	h.mon.Tick()
	require.Equal(t, StateActive, h.mon.State())
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.NoError(t, Config{}.Validate())
	require.Error(t, Config{Enabled: true, WarningThreshold: 10 * time.Second, HardLimit: 5 * time.Second}.Validate())
	require.Error(t, Config{Enabled: true}.Validate())
}

func TestTickerScheduler_CancelStopsCallbacks(t *testing.T) {
	var n atomic.Int32
	cancel := TickerScheduler{Interval: time.Millisecond}.Repeat(func() { n.Add(1) })
	require.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	cancel()

	time.Sleep(10 * time.Millisecond)
	settled := n.Load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, settled, n.Load())
}
