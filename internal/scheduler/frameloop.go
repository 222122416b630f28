package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// DefaultFrameInterval approximates a 60 Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// FrameLoop is a Scheduler backed by a ticker. Frames and deferred calls all
// execute on the loop goroutine.
type FrameLoop struct {
	interval time.Duration
	logger   *slog.Logger
	clock    clockz.Clock

	mu     sync.Mutex
	frames []*entry

	tasks     chan *entry
	quit      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// LoopOption configures a FrameLoop.
type LoopOption func(*FrameLoop)

// WithLoopClock sets the clock that drives the frame ticker and deferred
// calls. Defaults to clockz.RealClock.
func WithLoopClock(c clockz.Clock) LoopOption {
	return func(l *FrameLoop) {
		l.clock = c
	}
}

// NewFrameLoop creates a stopped loop. A non-positive interval uses
// DefaultFrameInterval.
func NewFrameLoop(interval time.Duration, logger *slog.Logger, opts ...LoopOption) *FrameLoop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &FrameLoop{
		interval: interval,
		logger:   logger,
		clock:    clockz.RealClock,
		tasks:    make(chan *entry, 64),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.clock == nil {
		l.clock = clockz.RealClock
	}
	return l
}

var (
	sharedOnce sync.Once
	shared     *FrameLoop
)

// Shared returns a process-wide loop running at DefaultFrameInterval.
// It is started on first use and never stopped.
func Shared() *FrameLoop {
	sharedOnce.Do(func() {
		shared = NewFrameLoop(DefaultFrameInterval, nil)
		shared.Start()
	})
	return shared
}

// Start launches the loop goroutine. Calling it more than once is a no-op.
func (l *FrameLoop) Start() {
	l.startOnce.Do(func() {
		go l.run()
	})
}

// Stop terminates the loop and waits for the current callback to return.
// Pending continuations are dropped.
func (l *FrameLoop) Stop() {
	l.stopOnce.Do(func() {
		close(l.quit)
	})
	l.startOnce.Do(func() { close(l.done) })
	<-l.done
}

// Interval returns the frame period.
func (l *FrameLoop) Interval() time.Duration {
	return l.interval
}

// RequestFrame implements Scheduler.
func (l *FrameLoop) RequestFrame(fn func()) Handle {
	e := &entry{fn: fn}

	l.mu.Lock()
	l.frames = append(l.frames, e)
	l.mu.Unlock()

	return e
}

// AfterFunc implements Scheduler. The clock's timer fires on its own goroutine but
// the callback is handed to the loop goroutine.
func (l *FrameLoop) AfterFunc(d time.Duration, fn func()) Handle {
	e := &entry{fn: fn}
	t := l.clock.AfterFunc(d, func() {
		select {
		case l.tasks <- e:
		case <-l.quit:
		}
	})
	e.mu.Lock()
	e.stop = t.Stop
	e.mu.Unlock()
	return e
}

func (l *FrameLoop) run() {
	defer close(l.done)

	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.quit:
			return
		case <-ticker.C():
			l.runFrame()
		case e := <-l.tasks:
			l.safeRun(e)
		}
	}
}

func (l *FrameLoop) runFrame() {
	l.mu.Lock()
	batch := l.frames
	l.frames = nil
	l.mu.Unlock()

	for _, e := range batch {
		l.safeRun(e)
	}
}

func (l *FrameLoop) safeRun(e *entry) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("scheduled callback panicked", "panic", r)
		}
	}()
	e.run()
}
