package feedback

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
)

// DefaultSampleRate is used when a Speaker is created with a zero rate.
const DefaultSampleRate = beep.SampleRate(44100)

// Speaker is an AudioDevice that synthesizes sine tones on the system audio
// output. The output is opened on first use; if that fails the device stays
// unavailable for the life of the process.
type Speaker struct {
	sampleRate beep.SampleRate
	volume     float64

	once    sync.Once
	initErr error
	init    func(beep.SampleRate, int) error
	play    func(...beep.Streamer)
}

// NewSpeaker creates a Speaker. Volume is in the beep exponential scale
// (0 is unchanged, negative is quieter).
func NewSpeaker(sampleRate beep.SampleRate, volume float64) *Speaker {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Speaker{
		sampleRate: sampleRate,
		volume:     volume,
		init:       speaker.Init,
		play:       speaker.Play,
	}
}

// Play queues the tones back to back and returns without waiting for them.
func (s *Speaker) Play(tones []Tone) error {
	if err := s.open(); err != nil {
		return err
	}
	if len(tones) == 0 {
		return nil
	}

	s.play(&effects.Volume{
		Streamer: sequence(s.sampleRate, tones),
		Base:     2,
		Volume:   s.volume,
	})
	return nil
}

func (s *Speaker) open() error {
	s.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				s.initErr = fmt.Errorf("%w: %v", ErrDeviceUnavailable, r)
			}
		}()
		if err := s.init(s.sampleRate, s.sampleRate.N(time.Second/10)); err != nil {
			s.initErr = fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
	})
	return s.initErr
}

// sequence plays tones back to back and then ends.
func sequence(sr beep.SampleRate, tones []Tone) beep.Streamer {
	streams := make([]beep.Streamer, 0, len(tones))
	for _, t := range tones {
		streams = append(streams, beep.Take(sr.N(t.Duration), sine(sr, t.Frequency)))
	}
	return beep.Seq(streams...)
}

func sine(sr beep.SampleRate, freq float64) beep.Streamer {
	step := 2 * math.Pi * freq / float64(sr)
	var phase float64
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			v := 0.5 * math.Sin(phase)
			samples[i][0], samples[i][1] = v, v
			phase += step
			if phase > 2*math.Pi {
				phase -= 2 * math.Pi
			}
		}
		return len(samples), true
	})
}
