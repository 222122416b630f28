package feedback

import (
	"log/slog"
	"sync"
	"time"
)

const (
	thresholdPitch  = 880.0
	finalPitch      = 1320.0
	thresholdLength = 100 * time.Millisecond
	finalLength     = 150 * time.Millisecond
	thresholdPulse  = 45 * time.Millisecond
	chimeNoteLength = 150 * time.Millisecond
)

// Ascending C major arpeggio played on completion.
var completionChime = []float64{523.25, 659.25, 783.99, 1046.50}

var completionPattern = []time.Duration{
	200 * time.Millisecond,
	100 * time.Millisecond,
	200 * time.Millisecond,
	100 * time.Millisecond,
	300 * time.Millisecond,
}

// Local is the default Gateway. It turns timer events into tones and
// vibration pulses and swallows every device failure.
type Local struct {
	audio    AudioDevice
	vibrator Vibrator
	logger   *slog.Logger

	sound     bool
	haptics   bool
	muted     func() bool
	minPulse  time.Duration
	onFailure func(device string, err error)

	mu sync.Mutex
}

// LocalOption configures a Local gateway.
type LocalOption func(*Local)

// WithSound enables or disables audio output.
func WithSound(enabled bool) LocalOption {
	return func(l *Local) { l.sound = enabled }
}

// WithHaptics enables or disables vibration output.
func WithHaptics(enabled bool) LocalOption {
	return func(l *Local) { l.haptics = enabled }
}

// WithMute installs a host-level mute check. When it reports true, audio is
// suppressed; vibration is unaffected.
func WithMute(muted func() bool) LocalOption {
	return func(l *Local) { l.muted = muted }
}

// WithMinPulse raises short vibration pulses to at least d.
func WithMinPulse(d time.Duration) LocalOption {
	return func(l *Local) { l.minPulse = d }
}

// WithFailureHook is called for every dropped device error.
func WithFailureHook(fn func(device string, err error)) LocalOption {
	return func(l *Local) { l.onFailure = fn }
}

// WithLogger sets the logger for dropped device errors.
func WithLogger(logger *slog.Logger) LocalOption {
	return func(l *Local) { l.logger = logger }
}

// NewLocal creates a gateway over the given devices. Nil devices are treated
// as unavailable.
func NewLocal(audio AudioDevice, vibrator Vibrator, opts ...LocalOption) *Local {
	l := &Local{
		audio:    audio,
		vibrator: vibrator,
		logger:   slog.Default(),
		sound:    true,
		haptics:  true,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.audio == nil {
		l.audio = Unavailable{}
	}
	if l.vibrator == nil {
		l.vibrator = Unavailable{}
	}
	return l
}

// OnCountdownThreshold plays a short beep and pulse. The final second uses a
// higher, longer tone.
func (l *Local) OnCountdownThreshold(secondsRemaining int) {
	l.emit(ThresholdTones(secondsRemaining), []time.Duration{l.pulse(thresholdPulse)})
}

// OnCompletion plays the ascending chime and a longer vibration pattern.
func (l *Local) OnCompletion() {
	pattern := make([]time.Duration, len(completionPattern))
	for i, d := range completionPattern {
		if i%2 == 0 {
			d = l.pulse(d)
		}
		pattern[i] = d
	}
	l.emit(CompletionTones(), pattern)
}

// ThresholdTones returns the beep for a countdown threshold.
func ThresholdTones(secondsRemaining int) []Tone {
	if secondsRemaining == 1 {
		return []Tone{{Frequency: finalPitch, Duration: finalLength}}
	}
	return []Tone{{Frequency: thresholdPitch, Duration: thresholdLength}}
}

// CompletionTones returns the completion chime.
func CompletionTones() []Tone {
	tones := make([]Tone, len(completionChime))
	for i, f := range completionChime {
		tones[i] = Tone{Frequency: f, Duration: chimeNoteLength}
	}
	return tones
}

func (l *Local) pulse(d time.Duration) time.Duration {
	return max(d, l.minPulse)
}

func (l *Local) emit(tones []Tone, pattern []time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sound && !l.isMuted() {
		l.try("audio", func() error { return l.audio.Play(tones) })
	}
	if l.haptics {
		l.try("vibration", func() error { return l.vibrator.Vibrate(pattern) })
	}
}

func (l *Local) isMuted() (muted bool) {
	if l.muted == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			muted = false
		}
	}()
	return l.muted()
}

func (l *Local) try(device string, fn func() error) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &panicError{value: r}
			}
		}()
		err = fn()
	}()
	if err == nil {
		return
	}
	l.logger.Debug("feedback device failed", "device", device, "error", err)
	if l.onFailure != nil {
		l.onFailure(device, err)
	}
}
