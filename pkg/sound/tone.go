// Package sound produces the CHIP-8 beeper: a square wave that plays while
// the sound timer is non-zero.
package sound

import (
	"encoding/binary"
	"sync"
)

const (
	DefaultSampleRate = 44100
	DefaultFrequency  = 440.0
	DefaultVolume     = 0.25

	// FrameRate is the rate at which hosts tick the timers.
	FrameRate = 60
)

// Tone is an io.Reader of signed 16-bit little-endian PCM. Gate is polled on
// each Read; while it returns false the output is silent.
type Tone struct {
	SampleRate int
	Channels   int
	Frequency  float64
	Volume     float64

	Gate func() bool

	mu    sync.Mutex
	phase float64
}

// NewTone returns a mono tone at the default pitch and volume.
func NewTone(sampleRate int, gate func() bool) *Tone {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Tone{
		SampleRate: sampleRate,
		Channels:   1,
		Frequency:  DefaultFrequency,
		Volume:     DefaultVolume,
		Gate:       gate,
	}
}

// Read fills p with whole frames; a trailing partial frame is zeroed.
func (t *Tone) Read(p []byte) (int, error) {
	on := t.Gate == nil || t.Gate()
	channels := max(t.Channels, 1)
	frameSize := 2 * channels
	frames := len(p) / frameSize

	samples := t.Samples(frames, on)
	for i, s := range samples {
		for ch := 0; ch < channels; ch++ {
			binary.LittleEndian.PutUint16(p[i*frameSize+ch*2:], uint16(int16(s)))
		}
	}
	clear(p[frames*frameSize:])
	return len(p), nil
}

// Samples advances the oscillator by n samples and returns their values.
// When on is false the samples are zero and the phase restarts.
func (t *Tone) Samples(n int, on bool) []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]int, n)
	if !on {
		t.phase = 0
		return out
	}

	amplitude := int(t.Volume * 32767)
	step := t.Frequency / float64(t.SampleRate)
	for i := range out {
		if t.phase < 0.5 {
			out[i] = amplitude
		} else {
			out[i] = -amplitude
		}
		t.phase += step
		if t.phase >= 1 {
			t.phase -= 1
		}
	}
	return out
}

// SamplesPerFrame is the number of samples covering one timer tick.
func (t *Tone) SamplesPerFrame() int {
	return t.SampleRate / FrameRate
}
