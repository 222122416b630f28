package scheduler

import (
	"sync"
	"time"

	"resttimer/internal/domain"
)

// Manual is a deterministic Scheduler for tests. Nothing runs until the test
// calls Frame, Advance or Run.
type Manual struct {
	clock *domain.MockClock

	mu     sync.Mutex
	frames []*entry
	timers []*entry
}

// NewManual creates a Manual scheduler that reads and advances clock.
func NewManual(clock *domain.MockClock) *Manual {
	return &Manual{clock: clock}
}

// Clock returns the underlying mock clock.
func (m *Manual) Clock() *domain.MockClock {
	return m.clock
}

// RequestFrame implements Scheduler.
func (m *Manual) RequestFrame(fn func()) Handle {
	e := &entry{fn: fn}

	m.mu.Lock()
	m.frames = append(m.frames, e)
	m.mu.Unlock()

	return e
}

// AfterFunc implements Scheduler.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Handle {
	e := &entry{fn: fn, at: m.clock.Now().Add(d)}

	m.mu.Lock()
	m.timers = append(m.timers, e)
	m.mu.Unlock()

	return e
}

// Frame runs the callbacks registered before the call. Callbacks registered
// while the frame runs wait for the next Frame.
func (m *Manual) Frame() {
	m.mu.Lock()
	batch := m.frames
	m.frames = nil
	m.mu.Unlock()

	for _, e := range batch {
		e.run()
	}
}

// Advance moves the clock forward by d and fires due deferred calls in
// deadline order. No frame runs, which models a host that skipped frames.
func (m *Manual) Advance(d time.Duration) {
	m.clock.Advance(d)
	m.fireDue()
}

// Run advances the clock by d in steps of frameEvery, running a frame after
// each step.
func (m *Manual) Run(d, frameEvery time.Duration) {
	if frameEvery <= 0 {
		frameEvery = d
	}
	for d > 0 {
		step := min(frameEvery, d)
		m.Advance(step)
		m.Frame()
		d -= step
	}
}

// PendingFrames returns the number of live frame registrations.
func (m *Manual) PendingFrames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return countPending(m.frames)
}

// PendingTimers returns the number of live deferred calls.
func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return countPending(m.timers)
}

func (m *Manual) fireDue() {
	for {
		e := m.nextDue()
		if e == nil {
			return
		}
		e.run()
	}
}

func (m *Manual) nextDue() *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	var (
		next *entry
		idx  = -1
	)
	live := m.timers[:0]
	for _, e := range m.timers {
		if e.pending() {
			live = append(live, e)
		}
	}
	m.timers = live

	for i, e := range m.timers {
		if e.at.After(now) {
			continue
		}
		if next == nil || e.at.Before(next.at) {
			next, idx = e, i
		}
	}
	if next != nil {
		m.timers = append(m.timers[:idx], m.timers[idx+1:]...)
	}
	return next
}

func countPending(entries []*entry) int {
	n := 0
	for _, e := range entries {
		if e.pending() {
			n++
		}
	}
	return n
}
