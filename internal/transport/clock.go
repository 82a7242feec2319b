// Package transport turns a running count of rendered audio frames into
// evenly spaced step pulses.
package transport

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultTempo       = 120.0
	DefaultSubdivision = 4
	DefaultLookahead   = 25 * time.Millisecond
)

// ErrInvalidTempo is returned for tempos that are not positive and finite.
var ErrInvalidTempo = errors.New("tempo must be positive and finite")

// Pulse is one step tick. Frame is the absolute audio frame the step is due
// at, which is always ahead of the frame being rendered when it fires.
type Pulse struct {
	Frame int64
	Time  time.Duration
}

// Clock counts frames handed to the audio device and fires a pulse every
// step. Pulses fire lookahead ahead of their target frame so sources can be
// scheduled (and faded) exactly.
//
// A Clock is not safe for concurrent use; the engine serializes access.
type Clock struct {
	sampleRate  int
	bpm         float64
	subdivision int
	lookahead   int64

	frame   int64
	next    float64
	running bool
}

// ClockOption configures a Clock.
type ClockOption func(*Clock)

func WithTempo(bpm float64) ClockOption {
	return func(c *Clock) {
		if validTempo(bpm) {
			c.bpm = bpm
		}
	}
}

// WithSubdivision sets the number of steps per beat.
func WithSubdivision(n int) ClockOption {
	return func(c *Clock) {
		if n > 0 {
			c.subdivision = n
		}
	}
}

// WithLookahead sets how far ahead of its target frame a pulse fires.
func WithLookahead(d time.Duration) ClockOption {
	return func(c *Clock) {
		if d < 0 {
			d = 0
		}
		c.lookahead = int64(d.Seconds() * float64(c.sampleRate))
	}
}

func NewClock(sampleRate int, opts ...ClockOption) (*Clock, error) {
	if sampleRate <= 0 {
		return nil, errors.Errorf("transport: invalid sample rate %d", sampleRate)
	}
	c := &Clock{
		sampleRate:  sampleRate,
		bpm:         DefaultTempo,
		subdivision: DefaultSubdivision,
		lookahead:   int64(DefaultLookahead.Seconds() * float64(sampleRate)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func validTempo(bpm float64) bool {
	return bpm > 0 && !math.IsInf(bpm, 0) && !math.IsNaN(bpm)
}

// Start begins pulsing. The first pulse targets the current frame plus the
// lookahead. Starting a running clock does nothing.
func (c *Clock) Start() {
	if c.running {
		return
	}
	c.running = true
	c.next = float64(c.frame + c.lookahead)
}

// Stop halts pulsing. Pulses already delivered are not recalled.
func (c *Clock) Stop() {
	c.running = false
}

func (c *Clock) Running() bool { return c.running }

// SetTempo changes the tempo. The pulse already scheduled keeps its frame;
// the spacing after it uses the new tempo.
func (c *Clock) SetTempo(bpm float64) error {
	if !validTempo(bpm) {
		return errors.Wrapf(ErrInvalidTempo, "set tempo %v", bpm)
	}
	c.bpm = bpm
	return nil
}

func (c *Clock) Tempo() float64 { return c.bpm }

func (c *Clock) SampleRate() int { return c.sampleRate }

// Frame is the first frame not yet rendered.
func (c *Clock) Frame() int64 { return c.frame }

// Lookahead is the pulse lead in frames.
func (c *Clock) Lookahead() int64 { return c.lookahead }

func (c *Clock) stepFrames() float64 {
	return float64(c.sampleRate) * 60 / (c.bpm * float64(c.subdivision))
}

// StepFrames is the length of one step at the current tempo.
func (c *Clock) StepFrames() int64 {
	return int64(math.Round(c.stepFrames()))
}

func (c *Clock) StepDuration() time.Duration {
	return time.Duration(float64(time.Minute) / (c.bpm * float64(c.subdivision)))
}

// Advance accounts for frames about to be rendered, calling fn for every
// pulse due before the end of the block plus the lookahead. fn may change
// the tempo or stop the clock.
func (c *Clock) Advance(frames int, fn func(Pulse)) {
	if frames < 0 {
		frames = 0
	}
	horizon := c.frame + int64(frames) + c.lookahead
	for c.running {
		at := int64(math.Round(c.next))
		if at >= horizon {
			break
		}
		p := Pulse{Frame: at, Time: c.frameTime(at)}
		if fn != nil {
			fn(p)
		}
		c.next += c.stepFrames()
	}
	c.frame += int64(frames)
}

func (c *Clock) frameTime(frame int64) time.Duration {
	return time.Duration(float64(frame) / float64(c.sampleRate) * float64(time.Second))
}
