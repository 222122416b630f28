package domain

import "time"

// Timer is the command and read surface of a rest timer.
type Timer interface {
	Toggle()
	Reset()
	AdjustTime(deltaSeconds int)
	SelectPreset(seconds int)
	State() State
	Dispose()
}

// Session is a timer owned by a host client.
type Session struct {
	ID        string
	Variant   Variant
	CreatedAt time.Time
	// LastActiveAt is the time of the last command.
	LastActiveAt time.Time
	Timer        Timer
}

// IsIdle reports whether the session has been inactive since before cutoff
// and its timer is not counting down.
func (s *Session) IsIdle(cutoff time.Time) bool {
	if s.Timer != nil && s.Timer.State().IsRunning {
		return false
	}
	return s.LastActiveAt.Before(cutoff)
}

// Clone returns a shallow copy. The Timer is shared, since a session has
// exactly one engine.
func (s *Session) Clone() *Session {
	return &Session{
		ID:           s.ID,
		Variant:      s.Variant,
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt,
		Timer:        s.Timer,
	}
}
