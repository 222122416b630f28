package domain

import "errors"

var (
	// ErrSessionNotFound indicates the requested timer session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists indicates the session ID is already taken.
	ErrSessionExists = errors.New("session already exists")

	// ErrInvalidVariant indicates an unknown presentation variant name.
	ErrInvalidVariant = errors.New("invalid variant")

	// ErrInvalidDuration indicates a non-positive or out of range duration.
	ErrInvalidDuration = errors.New("invalid duration")
)
