package timer

import (
	"log/slog"

	"resttimer/internal/domain"
	"resttimer/internal/feedback"
	"resttimer/internal/scheduler"
)

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source. Defaults to domain.RealClock.
func WithClock(c domain.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithScheduler sets the frame scheduler. Defaults to scheduler.Shared.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithFeedback adds gateways receiving threshold and completion events.
// They are notified in order, and delivery stops as soon as the cycle that
// produced the event is cancelled.
func WithFeedback(gs ...feedback.Gateway) Option {
	return func(e *Engine) { e.feedback = append(e.feedback, gs...) }
}

// WithOnComplete registers the host callback run after the settle delay.
func WithOnComplete(fn func()) Option {
	return func(e *Engine) { e.onComplete = fn }
}

// WithOnCountdownTick registers a host callback for each threshold second,
// invoked alongside the feedback gateway.
func WithOnCountdownTick(fn func(secondsRemaining int)) Option {
	return func(e *Engine) { e.onTick = fn }
}

// WithPolicies sets the variant table. Defaults to domain.DefaultPolicies.
func WithPolicies(t domain.PolicyTable) Option {
	return func(e *Engine) { e.policies = t }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}
