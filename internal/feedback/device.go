package feedback

import (
	"errors"
	"log/slog"
	"time"
)

// ErrDeviceUnavailable is returned by devices that cannot produce output on
// this host. It is expected, not exceptional.
var ErrDeviceUnavailable = errors.New("feedback device unavailable")

// Tone is one pitch held for a duration.
type Tone struct {
	Frequency float64
	Duration  time.Duration
}

// AudioDevice plays a sequence of tones.
type AudioDevice interface {
	Play(tones []Tone) error
}

// Vibrator plays a vibration pattern: alternating on and off durations,
// starting with on.
type Vibrator interface {
	Vibrate(pattern []time.Duration) error
}

// Unavailable is a device that is never present.
type Unavailable struct{}

func (Unavailable) Play([]Tone) error {
	return ErrDeviceUnavailable
}

func (Unavailable) Vibrate([]time.Duration) error {
	return ErrDeviceUnavailable
}

// LogVibrator records vibration patterns in the log. Server hosts have no
// motor, so the pattern is forwarded to clients separately.
type LogVibrator struct {
	Logger *slog.Logger
}

func (v LogVibrator) Vibrate(pattern []time.Duration) error {
	logger := v.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("vibrate", "pattern", pattern)
	return nil
}
