package inactivity

import (
	"sort"
	"sync"
	"time"
)

// DefaultFrameInterval is the polling cadence, roughly one display frame.
const DefaultFrameInterval = 16 * time.Millisecond

// Scheduler runs fn repeatedly until the returned cancel function is called.
// Cancel is idempotent.
type Scheduler interface {
	Repeat(fn func()) (cancel func())
}

// TickerScheduler calls fn from a dedicated goroutine every Interval.
type TickerScheduler struct {
	Interval time.Duration
}

func (s TickerScheduler) Repeat(fn func()) func() {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	stop := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case <-stop:
					return
				default:
				}
				fn()
			}
		}
	}()

	return func() {
		once.Do(func() { close(stop) })
	}
}

// ManualScheduler records repeating callbacks and runs them only on Fire.
type ManualScheduler struct {
	mu   sync.Mutex
	next int
	fns  map[int]func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{fns: map[int]func(){}}
}

func (m *ManualScheduler) Repeat(fn func()) func() {
	m.mu.Lock()
	id := m.next
	m.next++
	m.fns[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.fns, id)
		m.mu.Unlock()
	}
}

// Fire runs every registered callback once, in registration order.
func (m *ManualScheduler) Fire() {
	m.mu.Lock()
	ids := make([]int, 0, len(m.fns))
	for id := range m.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.fns[id])
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Active returns the number of callbacks not yet cancelled.
func (m *ManualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fns)
}
