// Package timer implements the rest-interval countdown engine.
//
// Remaining time is always recomputed from a wall-clock anchor
// (basis - elapsed), never by decrementing per frame, so skipped or late
// frames cannot introduce drift.
package timer

import (
	"log/slog"
	"sync"
	"time"

	"resttimer/internal/domain"
	"resttimer/internal/feedback"
	"resttimer/internal/scheduler"
)

// Engine is a single countdown. It is safe for concurrent use; callbacks are
// never invoked while the engine lock is held, so they may call back into
// the engine.
type Engine struct {
	clock      domain.Clock
	sched      scheduler.Scheduler
	feedback   []feedback.Gateway
	onComplete func()
	onTick     func(int)
	policies   domain.PolicyTable
	logger     *slog.Logger

	variant domain.Variant
	policy  domain.Policy

	mu               sync.Mutex
	initialSeconds   int
	secondsRemaining int
	running          bool
	anchor           time.Time
	basis            int
	lastThreshold    int // 0 when no threshold fired this cycle
	completed        bool
	disposed         bool

	frame       scheduler.Handle
	frameToken  uint64
	settle      scheduler.Handle
	settleToken uint64
}

// New creates a paused engine. A non-positive initialSeconds is raised to 1
// and an unknown variant falls back to the full variant.
func New(initialSeconds int, variant domain.Variant, opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = domain.RealClock{}
	}
	if e.sched == nil {
		e.sched = scheduler.Shared()
	}
	if e.policies == nil {
		e.policies = domain.DefaultPolicies
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.feedback = feedback.Collect(e.logger, e.feedback...)

	policy, ok := e.policies.Lookup(variant)
	if !ok {
		e.logger.Warn("unknown timer variant, using full", "variant", variant)
		variant = domain.VariantFull
	}
	e.variant = variant
	e.policy = policy

	if initialSeconds < 1 {
		e.logger.Warn("timer duration must be positive, using 1s", "seconds", initialSeconds)
		initialSeconds = 1
	}
	e.initialSeconds = initialSeconds
	e.secondsRemaining = initialSeconds
	return e
}

// Variant returns the engine's variant.
func (e *Engine) Variant() domain.Variant {
	return e.variant
}

// Policy returns the variant policy in effect.
func (e *Engine) Policy() domain.Policy {
	return e.policy
}

// State returns the current read model.
func (e *Engine) State() domain.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.NewState(e.secondsRemaining, e.initialSeconds, e.running, e.variant)
}

// Toggle starts a paused or completed countdown and pauses a running one.
// Starting from zero begins a fresh cycle at the initial duration.
func (e *Engine) Toggle() {
	e.mu.Lock()
	if e.running {
		e.pauseLocked()
	} else {
		e.startLocked()
	}
	e.mu.Unlock()
}

// Start runs the countdown. It is a no-op if already running.
func (e *Engine) Start() {
	e.mu.Lock()
	e.startLocked()
	e.mu.Unlock()
}

// Pause freezes the countdown at the current instant. It is a no-op if not
// running.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.pauseLocked()
	e.mu.Unlock()
}

// Reset cancels all pending work and restores a paused, full countdown.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return
	}
	e.stopLocked()
	e.rewindLocked(e.initialSeconds)
}

// AdjustTime adds deltaSeconds to a paused countdown, clamped to the
// variant's bounds, and makes the result the new full duration. It is a
// no-op while running.
func (e *Engine) AdjustTime(deltaSeconds int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed || e.running {
		return
	}
	seconds := e.policy.Clamp(e.secondsRemaining + deltaSeconds)
	e.stopLocked()
	e.rewindLocked(seconds)
}

// SelectPreset replaces the duration of a paused countdown. Presets are not
// clamped to the variant bounds. It is a no-op while running.
func (e *Engine) SelectPreset(seconds int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed || e.running {
		return
	}
	if seconds < 1 {
		seconds = 1
	}
	e.stopLocked()
	e.rewindLocked(seconds)
}

// Dispose cancels any pending frame or completion. Later commands are
// ignored.
func (e *Engine) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	e.disposed = true
}

func (e *Engine) startLocked() {
	if e.disposed || e.running {
		return
	}
	if e.secondsRemaining == 0 {
		e.cancelSettleLocked()
		e.rewindLocked(e.initialSeconds)
	}
	e.basis = e.secondsRemaining
	e.anchor = e.clock.Now()
	e.running = true
	e.scheduleFrameLocked()

	e.logger.Debug("timer started", "seconds", e.secondsRemaining, "variant", e.variant)
}

func (e *Engine) pauseLocked() {
	if e.disposed || !e.running {
		return
	}
	e.secondsRemaining = e.recompute(e.clock.Now())
	if e.secondsRemaining == 0 {
		e.completeLocked()
		return
	}
	e.running = false
	e.anchor = time.Time{}
	e.cancelFrameLocked()

	e.logger.Debug("timer paused", "seconds", e.secondsRemaining)
}

// stopLocked cancels the frame loop and any deferred completion.
func (e *Engine) stopLocked() {
	e.cancelFrameLocked()
	e.cancelSettleLocked()
	e.running = false
	e.anchor = time.Time{}
}

// rewindLocked starts a fresh paused cycle of the given length.
func (e *Engine) rewindLocked(seconds int) {
	e.initialSeconds = seconds
	e.secondsRemaining = seconds
	e.basis = seconds
	e.completed = false
	e.lastThreshold = 0
}

func (e *Engine) recompute(now time.Time) int {
	remaining := time.Duration(e.basis)*time.Second - now.Sub(e.anchor)
	if remaining <= 0 {
		return 0
	}
	seconds := int((remaining + time.Second - 1) / time.Second)
	// A clock stepping backwards must not move the countdown up.
	return min(seconds, e.secondsRemaining)
}

func (e *Engine) scheduleFrameLocked() {
	token := e.frameToken
	e.frame = e.sched.RequestFrame(func() { e.onFrame(token) })
}

func (e *Engine) cancelFrameLocked() {
	e.frameToken++
	if e.frame != nil {
		e.frame.Cancel()
		e.frame = nil
	}
}

func (e *Engine) cancelSettleLocked() {
	e.settleToken++
	if e.settle != nil {
		e.settle.Cancel()
		e.settle = nil
	}
}

func (e *Engine) onFrame(token uint64) {
	e.mu.Lock()
	if e.disposed || !e.running || token != e.frameToken {
		e.mu.Unlock()
		return
	}

	e.secondsRemaining = e.recompute(e.clock.Now())

	threshold := 0
	switch s := e.secondsRemaining; {
	case s == 0:
		if !e.completed {
			e.completeLocked()
		}
	case s <= domain.LowThresholdSeconds && s != e.lastThreshold:
		e.lastThreshold = s
		threshold = s
	}
	if e.running {
		e.scheduleFrameLocked()
	}
	e.mu.Unlock()

	if threshold > 0 {
		e.emitThreshold(token, threshold)
	}
}

func (e *Engine) completeLocked() {
	e.completed = true
	e.running = false
	e.anchor = time.Time{}
	e.cancelFrameLocked()
	e.cancelSettleLocked()

	token := e.settleToken
	e.settle = e.sched.AfterFunc(e.policy.SettleDelay, func() { e.onSettled(token) })

	e.logger.Debug("timer reached zero", "settle_delay", e.policy.SettleDelay)
}

func (e *Engine) onSettled(token uint64) {
	e.mu.Lock()
	if e.disposed || token != e.settleToken {
		e.mu.Unlock()
		return
	}
	e.settle = nil
	e.mu.Unlock()

	current := func() bool { return e.settleCurrent(token) }
	for _, g := range e.feedback {
		if !current() {
			return
		}
		g.OnCompletion()
	}
	if current() {
		e.safeCall("on_complete", e.onComplete)
	}
}

// emitThreshold notifies gateways one at a time, re-checking between calls
// that the frame which crossed the threshold still belongs to a live cycle.
func (e *Engine) emitThreshold(token uint64, seconds int) {
	current := func() bool { return e.frameCurrent(token) }
	for _, g := range e.feedback {
		if !current() {
			return
		}
		g.OnCountdownThreshold(seconds)
	}
	if e.onTick != nil && current() {
		e.safeCall("on_countdown_tick", func() { e.onTick(seconds) })
	}
}

func (e *Engine) frameCurrent(token uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.disposed && e.running && token == e.frameToken
}

func (e *Engine) settleCurrent(token uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.disposed && token == e.settleToken
}

func (e *Engine) safeCall(name string, fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("timer callback panicked", "callback", name, "panic", r)
		}
	}()
	fn()
}
