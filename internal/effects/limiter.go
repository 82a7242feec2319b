package effects

import (
	dspfx "github.com/cwbudde/algo-dsp/dsp/effects"
	"github.com/pkg/errors"
)

// Limiter is a stereo peak limiter for the master bus. Several sample voices
// landing on the same step can sum well above full scale.
type Limiter struct {
	left  *dspfx.Limiter
	right *dspfx.Limiter
}

// NewLimiter creates a limiter with ceiling thresholdDB and release in ms.
func NewLimiter(sampleRate int, thresholdDB, releaseMs float64) (*Limiter, error) {
	l := &Limiter{}
	for _, side := range []**dspfx.Limiter{&l.left, &l.right} {
		lim, err := dspfx.NewLimiter(float64(sampleRate))
		if err != nil {
			return nil, errors.Wrap(err, "limiter")
		}
		if err := lim.SetThreshold(thresholdDB); err != nil {
			return nil, errors.Wrap(err, "limiter threshold")
		}
		if err := lim.SetRelease(releaseMs); err != nil {
			return nil, errors.Wrap(err, "limiter release")
		}
		*side = lim
	}
	return l, nil
}

func (l *Limiter) Process(left, right float32) (float32, float32) {
	return float32(l.left.ProcessSample(float64(left))), float32(l.right.ProcessSample(float64(right)))
}

func (l *Limiter) Reset() {
	l.left.Reset()
	l.right.Reset()
}
