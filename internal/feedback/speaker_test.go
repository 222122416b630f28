package feedback_test

import (
	"errors"
	"testing"
	"time"

	"resttimer/internal/feedback"

	"github.com/faiface/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeaker_PlaysTonesInSequence(t *testing.T) {
	var played []beep.Streamer
	s := feedback.NewTestSpeaker(
		func(beep.SampleRate, int) error { return nil },
		func(st ...beep.Streamer) { played = append(played, st...) },
	)

	err := s.Play([]feedback.Tone{
		{Frequency: 440, Duration: 10 * time.Millisecond},
		{Frequency: 880, Duration: 10 * time.Millisecond},
	})
	require.NoError(t, err)
	require.Len(t, played, 1)

	buf := make([][2]float64, 2048)
	total := 0
	for {
		n, ok := played[0].Stream(buf)
		total += n
		if !ok {
			break
		}
	}
	assert.Equal(t, 2*feedback.DefaultSampleRate.N(10*time.Millisecond), total)
}

func TestSpeaker_InitFailureIsNotRetried(t *testing.T) {
	inits := 0
	playCalls := 0
	s := feedback.NewTestSpeaker(
		func(beep.SampleRate, int) error {
			inits++
			return errors.New("no audio output")
		},
		func(...beep.Streamer) { playCalls++ },
	)

	for i := 0; i < 3; i++ {
		err := s.Play([]feedback.Tone{{Frequency: 440, Duration: time.Millisecond}})
		assert.ErrorIs(t, err, feedback.ErrDeviceUnavailable)
	}

	assert.Equal(t, 1, inits)
	assert.Equal(t, 0, playCalls)
}

func TestSpeaker_InitPanicBecomesUnavailable(t *testing.T) {
	s := feedback.NewTestSpeaker(
		func(beep.SampleRate, int) error { panic("driver missing") },
		func(...beep.Streamer) {},
	)

	err := s.Play([]feedback.Tone{{Frequency: 440, Duration: time.Millisecond}})
	assert.ErrorIs(t, err, feedback.ErrDeviceUnavailable)
}
