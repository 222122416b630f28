package handler

import (
	"resttimer/internal/domain"
	"resttimer/internal/events"
)

// === Requests ===

type CreateRequest struct {
	Seconds *int   `json:"seconds,omitempty"`
	Variant string `json:"variant,omitempty"`
	Muted   bool   `json:"muted"`
}

type AdjustRequest struct {
	Delta int `json:"delta"`
}

type PresetRequest struct {
	Seconds int `json:"seconds"`
}

type MuteRequest struct {
	Muted bool `json:"muted"`
}

// === Responses ===

type TimerResponse struct {
	ID string `json:"id"`
	events.StatePayload
}

type VariantResponse struct {
	Name                 string `json:"name"`
	MaxAdjustableSeconds int    `json:"max_adjustable_seconds"`
	MinAdjustableSeconds int    `json:"min_adjustable_seconds"`
	SettleDelayMillis    int64  `json:"settle_delay_ms"`
	MinPulseMillis       int64  `json:"min_pulse_ms"`
}

type PresetsResponse struct {
	Presets  []int             `json:"presets"`
	Variants []VariantResponse `json:"variants"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func newTimerResponse(id string, s domain.State) TimerResponse {
	return TimerResponse{
		ID:           id,
		StatePayload: events.NewStatePayload(s),
	}
}
