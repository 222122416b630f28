package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"resttimer/internal/domain"
	"resttimer/internal/events"
	"resttimer/internal/feedback"
	"resttimer/internal/metrics"
	"resttimer/internal/repository"
	"resttimer/internal/scheduler"
	"resttimer/internal/timer"
)

const (
	maxRetries        = 5
	defaultSessionTTL = 30 * time.Minute
)

// IDGenerator defines the interface for session ID generation.
type IDGenerator interface {
	Generate() string
}

// SessionService owns the timer sessions of a host process.
type SessionService struct {
	repo    repository.Repository
	ids     IDGenerator
	clock   domain.Clock
	sched   scheduler.Scheduler
	broker  *events.Broker
	metrics *metrics.Metrics
	logger  *slog.Logger

	policies   domain.PolicyTable
	presets    domain.PresetCatalog
	sessionTTL time.Duration
	audio      feedback.AudioDevice
	vibrator   feedback.Vibrator
	sound      bool
	haptics    bool

	mu    sync.Mutex
	mutes map[string]*atomic.Bool
}

// Option configures a SessionService.
type Option func(*SessionService)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SessionService) { s.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *SessionService) { s.metrics = m }
}

// WithBroker sets the event broker used for streaming.
func WithBroker(b *events.Broker) Option {
	return func(s *SessionService) { s.broker = b }
}

// WithPolicies sets the variant policy table shared by all timers.
func WithPolicies(t domain.PolicyTable) Option {
	return func(s *SessionService) { s.policies = t }
}

// WithPresets sets the preset catalog.
func WithPresets(c domain.PresetCatalog) Option {
	return func(s *SessionService) { s.presets = c }
}

// WithSessionTTL sets how long an idle session is kept.
func WithSessionTTL(d time.Duration) Option {
	return func(s *SessionService) { s.sessionTTL = d }
}

// WithDevices sets the local feedback devices and their toggles.
func WithDevices(audio feedback.AudioDevice, vibrator feedback.Vibrator, sound, haptics bool) Option {
	return func(s *SessionService) {
		s.audio = audio
		s.vibrator = vibrator
		s.sound = sound
		s.haptics = haptics
	}
}

// NewSessionService creates a new SessionService.
func NewSessionService(repo repository.Repository, ids IDGenerator, clock domain.Clock, sched scheduler.Scheduler, opts ...Option) *SessionService {
	s := &SessionService{
		repo:       repo,
		ids:        ids,
		clock:      clock,
		sched:      sched,
		policies:   domain.DefaultPolicies,
		presets:    domain.DefaultPresets(),
		sessionTTL: defaultSessionTTL,
		sound:      true,
		haptics:    true,
		mutes:      make(map[string]*atomic.Bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}
	if s.broker == nil {
		s.broker = events.NewBroker(clock, s.logger)
	}
	return s
}

// Presets returns the preset catalog.
func (s *SessionService) Presets() domain.PresetCatalog {
	return s.presets
}

// Policies returns the variant policy table.
func (s *SessionService) Policies() domain.PolicyTable {
	return s.policies
}

// Create starts a new paused timer session.
// Returns domain.ErrInvalidDuration or domain.ErrInvalidVariant for bad
// input, or an error if max retries exceeded.
func (s *SessionService) Create(ctx context.Context, seconds int, variant domain.Variant, muted bool) (*domain.Session, error) {
	if seconds < 1 {
		return nil, fmt.Errorf("%w: %d seconds", domain.ErrInvalidDuration, seconds)
	}
	if !variant.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidVariant, variant)
	}

	now := s.clock.Now()

	for attempt := 0; attempt < maxRetries; attempt++ {
		id := s.ids.Generate()
		mute := &atomic.Bool{}
		mute.Store(muted)

		session := &domain.Session{
			ID:           id,
			Variant:      variant,
			CreatedAt:    now,
			LastActiveAt: now,
			Timer:        s.newTimer(id, seconds, variant, mute),
		}

		err := s.repo.SaveIfNotExists(ctx, session)
		if err == nil {
			s.mu.Lock()
			s.mutes[id] = mute
			s.mu.Unlock()

			s.metrics.SessionsCreated.WithLabelValues(string(variant)).Inc()
			s.metrics.ActiveSessions.Inc()
			s.logger.Info("timer session created", "session", id, "seconds", seconds, "variant", variant)
			return session, nil
		}

		session.Timer.Dispose()
		if errors.Is(err, domain.ErrSessionExists) {
			continue // Collision, retry with new ID
		}

		return nil, fmt.Errorf("saving session: %w", err)
	}

	return nil, errors.New("max retries exceeded: unable to generate unique session id")
}

func (s *SessionService) newTimer(id string, seconds int, variant domain.Variant, mute *atomic.Bool) *timer.Engine {
	policy, _ := s.policies.Lookup(variant)
	logger := s.logger.With("session", id)

	local := feedback.NewLocal(s.audio, s.vibrator,
		feedback.WithSound(s.sound),
		feedback.WithHaptics(s.haptics),
		feedback.WithMute(mute.Load),
		feedback.WithMinPulse(policy.MinPulse),
		feedback.WithFailureHook(s.metrics.FeedbackFailed),
		feedback.WithLogger(logger),
	)

	return timer.New(seconds, variant,
		timer.WithClock(s.clock),
		timer.WithScheduler(s.sched),
		timer.WithPolicies(s.policies),
		timer.WithLogger(logger),
		timer.WithFeedback(
			local,
			s.broker.Gateway(id),
			s.metrics.Gateway(variant),
		),
		timer.WithOnComplete(func() {
			logger.Info("rest interval complete")
		}),
	)
}

// State returns the current timer state of a session.
// Returns domain.ErrSessionNotFound if the session doesn't exist.
func (s *SessionService) State(ctx context.Context, id string) (domain.State, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.State{}, err
	}
	return session.Timer.State(), nil
}

// Toggle starts or pauses the session's timer.
func (s *SessionService) Toggle(ctx context.Context, id string) (domain.State, error) {
	return s.command(ctx, id, func(t domain.Timer) { t.Toggle() })
}

// Reset restores the session's timer to a paused full countdown.
func (s *SessionService) Reset(ctx context.Context, id string) (domain.State, error) {
	return s.command(ctx, id, func(t domain.Timer) { t.Reset() })
}

// Adjust changes a paused timer's duration by delta seconds. A running timer
// is left unchanged.
func (s *SessionService) Adjust(ctx context.Context, id string, delta int) (domain.State, error) {
	return s.command(ctx, id, func(t domain.Timer) { t.AdjustTime(delta) })
}

// SelectPreset sets a paused timer's duration. Any positive value is
// accepted, not only catalog entries.
func (s *SessionService) SelectPreset(ctx context.Context, id string, seconds int) (domain.State, error) {
	if seconds < 1 {
		return domain.State{}, fmt.Errorf("%w: %d seconds", domain.ErrInvalidDuration, seconds)
	}
	return s.command(ctx, id, func(t domain.Timer) { t.SelectPreset(seconds) })
}

// SetMuted toggles audio feedback for a session. Haptics are unaffected.
func (s *SessionService) SetMuted(ctx context.Context, id string, muted bool) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	mute, ok := s.mutes[id]
	s.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}

	mute.Store(muted)
	return s.repo.Touch(ctx, id, s.clock.Now())
}

// Delete disposes the session's timer and ends its streams.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	session, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	s.release(session)
	s.logger.Info("timer session deleted", "session", id)
	return nil
}

// Subscribe streams events for a session until the returned cancel function
// runs or the session is deleted.
func (s *SessionService) Subscribe(ctx context.Context, id string) (<-chan events.Event, func(), error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, nil, err
	}
	ch, cancel := s.broker.Subscribe(id)
	return ch, cancel, nil
}

// ReapIdle deletes sessions that have been idle longer than the session TTL
// and whose timers are not running. Returns the number removed.
func (s *SessionService) ReapIdle(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.sessionTTL)

	deleted, err := s.repo.DeleteIdle(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting idle sessions: %w", err)
	}

	for _, session := range deleted {
		s.release(session)
	}
	if len(deleted) > 0 {
		s.logger.Info("reaped idle timer sessions", "count", len(deleted))
	}
	return len(deleted), nil
}

// RunJanitor calls ReapIdle every interval until ctx is done.
func (s *SessionService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ReapIdle(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("reaping idle sessions", "error", err)
			}
		}
	}
}

func (s *SessionService) command(ctx context.Context, id string, fn func(domain.Timer)) (domain.State, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.State{}, err
	}

	fn(session.Timer)
	state := session.Timer.State()

	// Activity tracking must not fail the command.
	_ = s.repo.Touch(ctx, id, s.clock.Now())

	if evt, err := events.NewStateEvent(state); err == nil {
		s.broker.Publish(id, evt)
	}
	return state, nil
}

func (s *SessionService) release(session *domain.Session) {
	session.Timer.Dispose()
	s.broker.Close(session.ID)

	s.mu.Lock()
	delete(s.mutes, session.ID)
	s.mu.Unlock()

	s.metrics.ActiveSessions.Dec()
}
