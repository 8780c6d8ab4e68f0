package sound

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const bitDepth = 16

// Recorder captures the beeper one timer tick at a time and writes a mono
// 16-bit WAV file on Close.
type Recorder struct {
	tone *Tone
	enc  *wav.Encoder
	buf  *audio.IntBuffer

	frames int
}

func NewRecorder(w io.WriteSeeker, sampleRate int) *Recorder {
	tone := NewTone(sampleRate, nil)
	return &Recorder{
		tone: tone,
		enc:  wav.NewEncoder(w, tone.SampleRate, bitDepth, 1, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: tone.SampleRate},
			SourceBitDepth: bitDepth,
		},
	}
}

// AddFrame appends one tick of audio, a tone when on is true and silence
// otherwise.
func (r *Recorder) AddFrame(on bool) error {
	r.buf.Data = r.tone.Samples(r.tone.SamplesPerFrame(), on)
	r.frames++
	return r.enc.Write(r.buf)
}

// Frames returns the number of ticks recorded.
func (r *Recorder) Frames() int {
	return r.frames
}

// Close finishes the WAV header. It does not close the underlying writer.
func (r *Recorder) Close() error {
	return r.enc.Close()
}
