package events

import (
	"encoding/json"
	"fmt"
	"time"

	"resttimer/internal/domain"
)

// Event is the envelope streamed to timer clients.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

const (
	EventState              = "state"
	EventCountdownThreshold = "countdown_threshold"
	EventComplete           = "complete"
	EventClosed             = "closed"
	EventError              = "error"
)

// Commands a stream client may send.
const (
	CommandToggle = "toggle"
	CommandReset  = "reset"
	CommandAdjust = "adjust"
	CommandPreset = "preset"
)

type StatePayload struct {
	SecondsRemaining int     `json:"seconds_remaining"`
	InitialSeconds   int     `json:"initial_seconds"`
	ProgressPercent  float64 `json:"progress_percent"`
	IsRunning        bool    `json:"is_running"`
	IsLow            bool    `json:"is_low"`
	IsComplete       bool    `json:"is_complete"`
	Variant          string  `json:"variant"`
}

type ThresholdPayload struct {
	SecondsRemaining int `json:"seconds_remaining"`
}

type CompletePayload struct {
	CompletedAt string `json:"completed_at"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type AdjustCommand struct {
	Delta int `json:"delta"`
}

type PresetCommand struct {
	Seconds int `json:"seconds"`
}

// NewStatePayload converts the engine read model.
func NewStatePayload(s domain.State) StatePayload {
	return StatePayload{
		SecondsRemaining: s.SecondsRemaining,
		InitialSeconds:   s.InitialSeconds,
		ProgressPercent:  s.ProgressPercent,
		IsRunning:        s.IsRunning,
		IsLow:            s.IsLow,
		IsComplete:       s.IsComplete,
		Variant:          string(s.Variant),
	}
}

func NewOutgoingEvent(t string, evt any) (Event, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal event: %v: %w", evt, err)
	}

	return Event{
		Type:    t,
		Payload: data,
	}, nil
}

// NewStateEvent wraps a state snapshot.
func NewStateEvent(s domain.State) (Event, error) {
	return NewOutgoingEvent(EventState, NewStatePayload(s))
}

// NewThresholdEvent wraps a countdown threshold.
func NewThresholdEvent(secondsRemaining int) (Event, error) {
	return NewOutgoingEvent(EventCountdownThreshold, ThresholdPayload{SecondsRemaining: secondsRemaining})
}

// NewCompleteEvent wraps a completion at the given time.
func NewCompleteEvent(at time.Time) (Event, error) {
	return NewOutgoingEvent(EventComplete, CompletePayload{CompletedAt: at.UTC().Format(time.RFC3339Nano)})
}

// NewErrorEvent reports a rejected client command.
func NewErrorEvent(message string) (Event, error) {
	return NewOutgoingEvent(EventError, ErrorPayload{Message: message})
}
