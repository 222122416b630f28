// Package scheduler provides the host scheduling primitive the timer engine
// registers its continuations with: a one-shot "next frame" callback and a
// one-shot deferred call. Both are cancellable.
package scheduler

import (
	"sync"
	"time"
)

// Handle cancels a registered continuation.
type Handle interface {
	// Cancel prevents the callback from running. It returns false if the
	// callback already ran or was already cancelled.
	Cancel() bool
}

// Scheduler registers continuations. Implementations run every callback on a
// single goroutine so callbacks never overlap.
type Scheduler interface {
	// RequestFrame runs fn once on the next frame.
	RequestFrame(fn func()) Handle
	// AfterFunc runs fn once after d has elapsed.
	AfterFunc(d time.Duration, fn func()) Handle
}

type entry struct {
	mu        sync.Mutex
	fn        func()
	at        time.Time
	done      bool
	cancelled bool
	stop      func() bool
}

func (e *entry) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done || e.cancelled {
		return false
	}
	e.cancelled = true
	if e.stop != nil {
		e.stop()
	}
	return true
}

// claim marks the entry as run and reports whether the caller owns the call.
func (e *entry) claim() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done || e.cancelled {
		return false
	}
	e.done = true
	return true
}

func (e *entry) pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.done && !e.cancelled
}

func (e *entry) run() {
	if e.claim() {
		e.fn()
	}
}
