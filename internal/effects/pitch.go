package effects

import (
	"github.com/cwbudde/algo-dsp/dsp/effects/pitch"
	"github.com/pkg/errors"
)

// MaxPitchSemitones bounds the shift in both directions (ratio 0.25..4).
const MaxPitchSemitones = 24

// PitchShift renders duration-preserving pitch-shifted copies of a stereo
// buffer. Rendering is block based, so the shift is baked into the rendered
// copy rather than applied per frame.
type PitchShift struct {
	shifter   *pitch.PitchShifter
	semitones int
}

func NewPitchShift(sampleRate int) (*PitchShift, error) {
	s, err := pitch.NewPitchShifter(float64(sampleRate))
	if err != nil {
		return nil, errors.Wrap(err, "pitch stage")
	}
	return &PitchShift{shifter: s}, nil
}

// ClampSemitones limits a shift to the supported range.
func ClampSemitones(semitones int) int {
	if semitones > MaxPitchSemitones {
		return MaxPitchSemitones
	}
	if semitones < -MaxPitchSemitones {
		return -MaxPitchSemitones
	}
	return semitones
}

// Set selects the shift used by the next Render.
func (p *PitchShift) Set(semitones int) error {
	semitones = ClampSemitones(semitones)
	if err := p.shifter.SetPitchSemitones(float64(semitones)); err != nil {
		return errors.Wrapf(err, "set pitch %d", semitones)
	}
	p.semitones = semitones
	return nil
}

func (p *PitchShift) Semitones() int { return p.semitones }

// Render returns a shifted copy of an interleaved stereo buffer of the same
// length. A zero shift is a plain copy.
func (p *PitchShift) Render(src []float32) []float32 {
	out := make([]float32, len(src))
	if p.semitones == 0 {
		copy(out, src)
		return out
	}
	frames := len(src) / 2
	left := make([]float64, frames)
	right := make([]float64, frames)
	for i := 0; i < frames; i++ {
		left[i] = float64(src[i*2])
		right[i] = float64(src[i*2+1])
	}
	p.shifter.ProcessInPlace(left)
	p.shifter.ProcessInPlace(right)
	for i := 0; i < frames; i++ {
		out[i*2] = float32(left[i])
		out[i*2+1] = float32(right[i])
	}
	return out
}
