package domain

// LowThresholdSeconds is the last stretch of a countdown that counts as low.
const LowThresholdSeconds = 3

// State is the read model a host polls each frame.
type State struct {
	SecondsRemaining int
	InitialSeconds   int
	ProgressPercent  float64
	IsRunning        bool
	IsLow            bool
	IsComplete       bool
	Variant          Variant
}

// NewState derives the computed fields from the stored ones.
func NewState(remaining, initial int, running bool, variant Variant) State {
	var progress float64
	if initial > 0 {
		progress = 100 * float64(remaining) / float64(initial)
	}
	return State{
		SecondsRemaining: remaining,
		InitialSeconds:   initial,
		ProgressPercent:  progress,
		IsRunning:        running,
		IsLow:            remaining > 0 && remaining <= LowThresholdSeconds,
		IsComplete:       remaining == 0,
		Variant:          variant,
	}
}
