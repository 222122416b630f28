package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"resttimer/internal/domain"
	"resttimer/internal/events"
	"resttimer/internal/feedback"
	"resttimer/internal/metrics"
	"resttimer/internal/repository"
	"resttimer/internal/scheduler"
	"resttimer/internal/service"
	"resttimer/internal/sessionid"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockGenerator for testing collision scenarios.
type MockGenerator struct {
	ids   []string
	index int
}

func (m *MockGenerator) Generate() string {
	if m.index >= len(m.ids) {
		return fmt.Sprintf("fallback%d", m.index)
	}
	id := m.ids[m.index]
	m.index++
	return id
}

type countingAudio struct {
	mu    sync.Mutex
	plays int
}

func (a *countingAudio) Play([]feedback.Tone) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.plays++
	return nil
}

func (a *countingAudio) Plays() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.plays
}

type harness struct {
	svc     *service.SessionService
	repo    *repository.MemoryRepository
	sched   *scheduler.Manual
	clock   *domain.MockClock
	metrics *metrics.Metrics
	audio   *countingAudio
}

func newHarness(t *testing.T, ids service.IDGenerator, opts ...service.Option) *harness {
	t.Helper()

	clock := domain.NewMockClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	h := &harness{
		repo:    repository.NewMemoryRepository(),
		sched:   scheduler.NewManual(clock),
		clock:   clock,
		metrics: metrics.New(prometheus.NewRegistry()),
		audio:   &countingAudio{},
	}
	base := []service.Option{
		service.WithMetrics(h.metrics),
		service.WithDevices(h.audio, feedback.LogVibrator{}, true, true),
	}
	h.svc = service.NewSessionService(h.repo, ids, clock, h.sched, append(base, opts...)...)
	return h
}

func TestSessionService_Create_Success(t *testing.T) {
	h := newHarness(t, sessionid.NewGenerator())

	session, err := h.svc.Create(context.Background(), 90, domain.VariantCompact, false)
	require.NoError(t, err)

	assert.True(t, sessionid.Valid(session.ID))
	assert.Equal(t, domain.VariantCompact, session.Variant)
	assert.Equal(t, h.clock.Now(), session.CreatedAt)

	state, err := h.svc.State(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, state.SecondsRemaining)
	assert.False(t, state.IsRunning)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ActiveSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SessionsCreated.WithLabelValues("compact")))
}

func TestSessionService_Create_RejectsInvalidInput(t *testing.T) {
	h := newHarness(t, sessionid.NewGenerator())

	_, err := h.svc.Create(context.Background(), 0, domain.VariantFull, false)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	_, err = h.svc.Create(context.Background(), 60, domain.Variant("banner"), false)
	assert.ErrorIs(t, err, domain.ErrInvalidVariant)
}

func TestSessionService_Create_RetriesOnCollision(t *testing.T) {
	h := newHarness(t, &MockGenerator{ids: []string{"id0001", "id0001", "id0001", "id0004"}})

	first, err := h.svc.Create(context.Background(), 60, domain.VariantFull, false)
	require.NoError(t, err)
	assert.Equal(t, "id0001", first.ID)

	second, err := h.svc.Create(context.Background(), 60, domain.VariantFull, false)
	require.NoError(t, err)
	assert.Equal(t, "id0004", second.ID)
}

func TestSessionService_Create_FailsAfterMaxRetries(t *testing.T) {
	h := newHarness(t, &MockGenerator{ids: []string{"same", "same", "same", "same", "same", "same"}})

	_, err := h.svc.Create(context.Background(), 60, domain.VariantFull, false)
	require.NoError(t, err)

	_, err = h.svc.Create(context.Background(), 60, domain.VariantFull, false)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
}

func TestSessionService_CommandsDriveTimer(t *testing.T) {
	h := newHarness(t, sessionid.NewGenerator())
	ctx := context.Background()

	session, err := h.svc.Create(ctx, 60, domain.VariantMinimal, false)
	require.NoError(t, err)

	state, err := h.svc.Adjust(ctx, session.ID, 1000)
	require.NoError(t, err)
	assert.Equal(t, 120, state.SecondsRemaining)

	state, err = h.svc.SelectPreset(ctx, session.ID, 45)
	require.NoError(t, err)
	assert.Equal(t, 45, state.InitialSeconds)

	state, err = h.svc.Toggle(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, state.IsRunning)

	h.sched.Run(10*time.Second, 100*time.Millisecond)
	state, _ = h.svc.State(ctx, session.ID)
	assert.Equal(t, 35, state.SecondsRemaining)

	state, err = h.svc.Reset(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, state.SecondsRemaining)
	assert.False(t, state.IsRunning)
}

func TestSessionService_SelectPreset_RejectsNonPositive(t *testing.T) {
	h := newHarness(t, sessionid.NewGenerator())
	session, _ := h.svc.Create(context.Background(), 60, domain.VariantFull, false)

	_, err := h.svc.SelectPreset(context.Background(), session.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)
}

func TestSessionService_CommandsOnMissingSession(t *testing.T) {
	h := newHarness(t, sessionid.NewGenerator())
	ctx := context.Background()

	_, err := h.svc.State(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = h.svc.Toggle(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = h.svc.Adjust(ctx, "missing", 5)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, h.svc.SetMuted(ctx, "missing", true), domain.ErrSessionNotFound)
	assert.ErrorIs(t, h.svc.Delete(ctx, "missing"), domain.ErrSessionNotFound)
	_, _, err = h.svc.Subscribe(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionService_CompletionFeedbackAndMetrics(t *testing.T) {
	h := newHarness(t, sessionid.NewGenerator())
	ctx := context.Background()

	session, _ := h.svc.Create(ctx, 5, domain.VariantMinimal, false)
	_, _ = h.svc.Toggle(ctx, session.ID)

	h.sched.Run(5*time.Second, 100*time.Millisecond)
	h.sched.Advance(500 * time.Millisecond)

	// three threshold beeps plus the completion chime
	assert.Equal(t, 4, h.audio.Plays())
	assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.Thresholds))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Completions.WithLabelValues("minimal")))
}

func TestSessionService_MuteSilencesAudio(t *testing.T) {
	h := newHarness(t, sessionid.NewGenerator())
	ctx := context.Background()

	session, _ := h.svc.Create(ctx, 3, domain.VariantMinimal, true)
	_, _ = h.svc.Toggle(ctx, session.ID)
	h.sched.Run(3*time.Second, 100*time.Millisecond)
	h.sched.Advance(time.Second)
	assert.Equal(t, 0, h.audio.Plays())

	require.NoError(t, h.svc.SetMuted(ctx, session.ID, false))
	_, _ = h.svc.Toggle(ctx, session.ID)
	h.sched.Run(3*time.Second, 100*time.Millisecond)
	h.sched.Advance(time.Second)
	assert.Equal(t, 4, h.audio.Plays())
}

func TestSessionService_SetMutedAppliesToRunningTimer(t *testing.T) {
	h := newHarness(t, sessionid.NewGenerator())
	ctx := context.Background()

	session, _ := h.svc.Create(ctx, 3, domain.VariantMinimal, false)
	_, _ = h.svc.Toggle(ctx, session.ID)
	h.sched.Frame()
	require.Equal(t, 1, h.audio.Plays())

	require.NoError(t, h.svc.SetMuted(ctx, session.ID, true))
	h.sched.Run(3*time.Second, 100*time.Millisecond)
	h.sched.Advance(time.Second)

	assert.Equal(t, 1, h.audio.Plays())
}

func TestSessionService_SubscribeReceivesEvents(t *testing.T) {
	h := newHarness(t, sessionid.NewGenerator())
	ctx := context.Background()

	session, _ := h.svc.Create(ctx, 3, domain.VariantMinimal, true)
	ch, cancel, err := h.svc.Subscribe(ctx, session.ID)
	require.NoError(t, err)
	defer cancel()

	_, _ = h.svc.Toggle(ctx, session.ID)
	h.sched.Run(3*time.Second, 500*time.Millisecond)
	h.sched.Advance(time.Second)

	var types []string
	for len(ch) > 0 {
		types = append(types, (<-ch).Type)
	}
	assert.Equal(t, []string{
		events.EventState,
		events.EventCountdownThreshold,
		events.EventCountdownThreshold,
		events.EventCountdownThreshold,
		events.EventComplete,
	}, types)
}

func TestSessionService_DeleteDisposesTimer(t *testing.T) {
	h := newHarness(t, sessionid.NewGenerator())
	ctx := context.Background()

	session, _ := h.svc.Create(ctx, 30, domain.VariantFull, false)
	ch, _, err := h.svc.Subscribe(ctx, session.ID)
	require.NoError(t, err)
	_, _ = h.svc.Toggle(ctx, session.ID)

	require.NoError(t, h.svc.Delete(ctx, session.ID))

	assert.Equal(t, 0, h.sched.PendingFrames())
	received := 0
	for range ch {
		received++
	}
	assert.Equal(t, 1, received, "only the toggle state event precedes the close")
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.ActiveSessions))

	_, err = h.svc.State(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionService_ReapIdle(t *testing.T) {
	h := newHarness(t, sessionid.NewGenerator(), service.WithSessionTTL(10*time.Minute))
	ctx := context.Background()

	idle, _ := h.svc.Create(ctx, 30, domain.VariantFull, false)
	running, _ := h.svc.Create(ctx, 300, domain.VariantFull, false)
	_, _ = h.svc.Adjust(ctx, running.ID, 1000)
	_, _ = h.svc.Toggle(ctx, running.ID)

	h.clock.Advance(11 * time.Minute)
	fresh, _ := h.svc.Create(ctx, 30, domain.VariantFull, false)

	n, err := h.svc.ReapIdle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = h.svc.State(ctx, idle.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = h.svc.State(ctx, running.ID)
	assert.NoError(t, err)
	_, err = h.svc.State(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestSessionService_RunJanitorStopsOnCancel(t *testing.T) {
	h := newHarness(t, sessionid.NewGenerator())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.svc.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestSessionService_PresetsAndPolicies(t *testing.T) {
	h := newHarness(t, sessionid.NewGenerator(),
		service.WithPresets(domain.NewPresetCatalog(20, 40)),
	)

	assert.Equal(t, []int{20, 40}, h.svc.Presets().Seconds())
	assert.Equal(t, domain.DefaultPolicies, h.svc.Policies())
}
