// Package media supplies local audio for a headless peer: fixed-size mono
// PCM frames at the AI endpoint's sample rate, plus helpers to feed the
// same audio into the peer connection as a PCMU track.
package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// 16 kHz mono 16-bit PCM, 4096 samples per frame.
	SampleRate   = 16000
	FrameSamples = 4096
	FrameBytes   = FrameSamples * 2
)

// FrameDuration is how much audio one frame carries.
const FrameDuration = float64(FrameSamples) / float64(SampleRate)

// ErrMediaAccess means no usable audio source could be opened. Fatal to
// the flow; the user starts a new session.
var ErrMediaAccess = errors.New("media: device unavailable")

// Source produces PCM frames until closed.
type Source interface {
	// ReadFrame returns the next FrameBytes of little-endian 16-bit PCM.
	ReadFrame() ([]byte, error)
	Close() error
}

// Open returns a source by kind. Unknown kinds behave like a denied
// device: ErrMediaAccess.
func Open(kind string) (Source, error) {
	switch kind {
	case "tone":
		return NewToneSource(440), nil
	case "silence":
		return &SilenceSource{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown source %q", ErrMediaAccess, kind)
	}
}

// ToneSource generates a continuous sine wave. Handy for end-to-end runs
// where a microphone is unavailable.
type ToneSource struct {
	freq   float64
	phase  float64
	closed bool
}

func NewToneSource(freq float64) *ToneSource {
	return &ToneSource{freq: freq}
}

func (s *ToneSource) ReadFrame() ([]byte, error) {
	if s.closed {
		return nil, errors.New("media: source closed")
	}
	frame := make([]byte, FrameBytes)
	step := 2 * math.Pi * s.freq / SampleRate
	for i := 0; i < FrameSamples; i++ {
		sample := int16(math.Sin(s.phase) * 0.3 * math.MaxInt16)
		binary.LittleEndian.PutUint16(frame[i*2:], uint16(sample))
		s.phase += step
		if s.phase > 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}
	return frame, nil
}

func (s *ToneSource) Close() error {
	s.closed = true
	return nil
}

// SilenceSource emits zeroed frames.
type SilenceSource struct{ closed bool }

func (s *SilenceSource) ReadFrame() ([]byte, error) {
	if s.closed {
		return nil, errors.New("media: source closed")
	}
	return make([]byte, FrameBytes), nil
}

func (s *SilenceSource) Close() error {
	s.closed = true
	return nil
}
