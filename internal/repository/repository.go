package repository

import (
	"context"
	"time"

	"resttimer/internal/domain"
)

// Repository defines the contract for timer session storage.
// All implementations must be thread-safe for concurrent access.
type Repository interface {
	// SaveIfNotExists atomically saves the session only if the ID
	// doesn't already exist. Returns domain.ErrSessionExists if taken.
	SaveIfNotExists(ctx context.Context, session *domain.Session) error

	// FindByID retrieves a session by its ID.
	// Returns domain.ErrSessionNotFound if the ID doesn't exist.
	FindByID(ctx context.Context, id string) (*domain.Session, error)

	// Touch updates LastActiveAt.
	// Returns domain.ErrSessionNotFound if the ID doesn't exist.
	Touch(ctx context.Context, id string, at time.Time) error

	// Delete removes and returns the session.
	// Returns domain.ErrSessionNotFound if the ID doesn't exist.
	Delete(ctx context.Context, id string) (*domain.Session, error)

	// DeleteIdle removes all sessions idle since before cutoff and returns
	// them so the caller can dispose their timers.
	DeleteIdle(ctx context.Context, cutoff time.Time) ([]*domain.Session, error)

	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int, error)
}
