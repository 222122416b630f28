// Package events fans timer events out to streaming clients.
package events

import (
	"log/slog"
	"sync"

	"resttimer/internal/domain"
	"resttimer/internal/feedback"
)

const defaultBuffer = 16

type subscriber struct {
	ch     chan Event
	closed bool
}

// Broker routes events by session ID. Slow subscribers lose events rather
// than blocking the publisher.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	clock  domain.Clock
	logger *slog.Logger
}

// NewBroker creates an empty broker.
func NewBroker(clock domain.Clock, logger *slog.Logger) *Broker {
	if clock == nil {
		clock = domain.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subs:   make(map[string]map[*subscriber]struct{}),
		clock:  clock,
		logger: logger,
	}
}

// Subscribe returns a channel of events for the session and a function that
// ends the subscription. The channel is closed when either the cancel
// function or Close runs.
func (b *Broker) Subscribe(sessionID string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, defaultBuffer)}

	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[*subscriber]struct{})
	}
	b.subs[sessionID][sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.removeLocked(sessionID, sub)
	}
	return sub.ch, cancel
}

// Publish delivers evt to every subscriber of the session.
func (b *Broker) Publish(sessionID string, evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[sessionID] {
		select {
		case sub.ch <- evt:
		default:
			b.logger.Debug("dropping event for slow subscriber", "session", sessionID, "type", evt.Type)
		}
	}
}

// Close ends every subscription of the session.
func (b *Broker) Close(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[sessionID] {
		b.removeLocked(sessionID, sub)
	}
}

// Subscribers returns the number of live subscriptions for the session.
func (b *Broker) Subscribers(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[sessionID])
}

func (b *Broker) removeLocked(sessionID string, sub *subscriber) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)

	delete(b.subs[sessionID], sub)
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
}

// Gateway returns a feedback gateway that publishes the session's threshold
// and completion events, so remote clients can produce their own feedback.
func (b *Broker) Gateway(sessionID string) feedback.Gateway {
	return feedback.Funcs{
		Threshold: func(secondsRemaining int) {
			evt, err := NewThresholdEvent(secondsRemaining)
			if err != nil {
				b.logger.Error("building threshold event", "error", err)
				return
			}
			b.Publish(sessionID, evt)
		},
		Completion: func() {
			evt, err := NewCompleteEvent(b.clock.Now())
			if err != nil {
				b.logger.Error("building complete event", "error", err)
				return
			}
			b.Publish(sessionID, evt)
		},
	}
}
