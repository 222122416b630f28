package feedback

import "github.com/faiface/beep"

// NewTestSpeaker swaps the speaker backend for tests.
func NewTestSpeaker(init func(beep.SampleRate, int) error, play func(...beep.Streamer)) *Speaker {
	s := NewSpeaker(0, 0)
	s.init = init
	s.play = play
	return s
}
