package effects

import (
	"math"

	dspfx "github.com/cwbudde/algo-dsp/dsp/effects"
)

const (
	// Comb feedback above this never decays at low frequencies.
	maxRoomFeedback = 0.98
	// Freeverb's wet scale; the comb bank output is attenuated by its input gain.
	reverbWetScale = 3.0
)

// Reverb is a stereo Freeverb stage. Settings are live: changing them while a
// tail is ringing reshapes the tail instead of restarting it.
type Reverb struct {
	sampleRate int
	left       *dspfx.Reverb
	right      *dspfx.Reverb
	params     ReverbParams
}

// NewReverb creates a reverb stage at DefaultReverbParams.
func NewReverb(sampleRate int) *Reverb {
	r := &Reverb{
		sampleRate: sampleRate,
		left:       dspfx.NewReverb(),
		right:      dspfx.NewReverb(),
	}
	r.Set(DefaultReverbParams)
	return r
}

// Set applies new settings.
func (r *Reverb) Set(p ReverbParams) {
	wet := clamp(p.Wet, 0, 1)
	room := clamp(p.RoomSize, 0, maxRoomFeedback)
	damp := dampingCoefficient(p.Dampening, r.sampleRate)
	for _, side := range [...]*dspfx.Reverb{r.left, r.right} {
		side.SetWet(wet * reverbWetScale)
		side.SetDry(1 - wet)
		side.SetRoomSize(room)
		side.SetDamp(damp)
	}
	r.params = p
}

// Params returns the settings last passed to Set.
func (r *Reverb) Params() ReverbParams { return r.params }

func (r *Reverb) Process(l, rr float32) (float32, float32) {
	return float32(r.left.ProcessSample(float64(l))), float32(r.right.ProcessSample(float64(rr)))
}

func (r *Reverb) Reset() {
	r.left.Reset()
	r.right.Reset()
}

// dampingCoefficient converts a lowpass cutoff into the one-pole coefficient
// used inside the comb filters' feedback path.
func dampingCoefficient(cutoffHz float64, sampleRate int) float64 {
	if sampleRate <= 0 || cutoffHz <= 0 || math.IsNaN(cutoffHz) {
		return 0
	}
	return clamp(math.Exp(-2*math.Pi*cutoffHz/float64(sampleRate)), 0, 1)
}
