package feedback

import (
	"errors"
	"io"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

// Cue names a rendered feedback sound.
type Cue string

const (
	CueThreshold Cue = "threshold"
	CueFinal     Cue = "final"
	CueComplete  Cue = "complete"
)

// Tones returns the tones of the cue and whether the cue is known.
func (c Cue) Tones() ([]Tone, bool) {
	switch c {
	case CueThreshold:
		return ThresholdTones(3), true
	case CueFinal:
		return ThresholdTones(1), true
	case CueComplete:
		return CompletionTones(), true
	}
	return nil, false
}

// EncodeWAV renders tones as a 16-bit stereo WAV file, so remote clients can
// play the same sounds the local speaker does.
func EncodeWAV(w io.WriteSeeker, sampleRate beep.SampleRate, tones []Tone) error {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	format := beep.Format{
		SampleRate:  sampleRate,
		NumChannels: 2,
		Precision:   2,
	}
	return wav.Encode(w, sequence(sampleRate, tones), format)
}

// RenderWAV is EncodeWAV into memory.
func RenderWAV(sampleRate beep.SampleRate, tones []Tone) ([]byte, error) {
	var buf seekBuffer
	if err := EncodeWAV(&buf, sampleRate, tones); err != nil {
		return nil, err
	}
	return buf.data, nil
}

// seekBuffer is an in-memory io.WriteSeeker; wav.Encode seeks back to patch
// the header sizes.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	n := copy(b.data[b.pos:], p)
	b.pos += n
	return n, nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(b.pos)
	case io.SeekEnd:
		base = int64(len(b.data))
	default:
		return 0, errors.New("seekBuffer: invalid whence")
	}
	next := base + offset
	if next < 0 {
		return 0, errors.New("seekBuffer: negative position")
	}
	b.pos = int(next)
	return next, nil
}
