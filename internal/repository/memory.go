package repository

import (
	"context"
	"sync"
	"time"

	"resttimer/internal/domain"
)

// MemoryRepository provides thread-safe in-memory storage.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string]*domain.Session
}

// NewMemoryRepository creates a new in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		data: make(map[string]*domain.Session),
	}
}

// SaveIfNotExists atomically saves the session only if the ID doesn't
// already exist.
func (r *MemoryRepository) SaveIfNotExists(ctx context.Context, session *domain.Session) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[session.ID]; exists {
		return domain.ErrSessionExists
	}

	r.data[session.ID] = session.Clone()
	return nil
}

// FindByID retrieves a session by its ID.
func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.data[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}

	return session.Clone(), nil
}

// Touch records activity on a session.
func (r *MemoryRepository) Touch(ctx context.Context, id string, at time.Time) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.data[id]
	if !exists {
		return domain.ErrSessionNotFound
	}

	session.LastActiveAt = at
	return nil
}

// Delete removes a session and returns it.
func (r *MemoryRepository) Delete(ctx context.Context, id string) (*domain.Session, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.data[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}

	delete(r.data, id)
	return session, nil
}

// DeleteIdle removes all sessions idle since before cutoff.
func (r *MemoryRepository) DeleteIdle(ctx context.Context, cutoff time.Time) ([]*domain.Session, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted []*domain.Session
	for id, session := range r.data {
		if session.IsIdle(cutoff) {
			delete(r.data, id)
			deleted = append(deleted, session)
		}
	}

	return deleted, nil
}

// Count returns the number of stored sessions.
func (r *MemoryRepository) Count(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.data), nil
}
