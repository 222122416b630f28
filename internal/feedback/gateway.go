// Package feedback delivers the timer's countdown and completion signals to
// audio and haptic devices. A feedback failure is never allowed to reach the
// timer: every boundary here recovers and drops.
package feedback

import "log/slog"

// Gateway receives the two event classes the timer emits.
type Gateway interface {
	OnCountdownThreshold(secondsRemaining int)
	OnCompletion()
}

// Funcs adapts plain functions to Gateway. Nil fields are skipped.
type Funcs struct {
	Threshold  func(secondsRemaining int)
	Completion func()
}

func (f Funcs) OnCountdownThreshold(secondsRemaining int) {
	if f.Threshold != nil {
		f.Threshold(secondsRemaining)
	}
}

func (f Funcs) OnCompletion() {
	if f.Completion != nil {
		f.Completion()
	}
}

// Nop discards all events.
var Nop Gateway = Funcs{}

type guarded struct {
	next   Gateway
	logger *slog.Logger
}

// Guard wraps g so that a panic inside it is logged and dropped.
func Guard(g Gateway, logger *slog.Logger) Gateway {
	if g == nil {
		return Nop
	}
	if _, ok := g.(*guarded); ok {
		return g
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &guarded{next: g, logger: logger}
}

func (g *guarded) OnCountdownThreshold(secondsRemaining int) {
	defer g.recover("threshold")
	g.next.OnCountdownThreshold(secondsRemaining)
}

func (g *guarded) OnCompletion() {
	defer g.recover("completion")
	g.next.OnCompletion()
}

func (g *guarded) recover(event string) {
	if r := recover(); r != nil {
		g.logger.Warn("feedback dropped", "event", event, "panic", r)
	}
}

// Collect drops nil gateways and guards the rest, preserving order. Callers
// deliver to each member in turn so a failing gateway does not stop delivery
// to the rest.
func Collect(logger *slog.Logger, gateways ...Gateway) []Gateway {
	out := make([]Gateway, 0, len(gateways))
	for _, g := range gateways {
		if g != nil {
			out = append(out, Guard(g, logger))
		}
	}
	return out
}
