package transport

import (
	"errors"
	"math"
	"testing"
	"time"
)

func collect(c *Clock, until int64, block int) []int64 {
	var frames []int64
	for c.Frame() < until {
		c.Advance(block, func(p Pulse) { frames = append(frames, p.Frame) })
	}
	return frames
}

func equalFrames(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPulsesAreEvenlySpaced(t *testing.T) {
	c, err := NewClock(48000, WithLookahead(0))
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	if c.StepFrames() != 6000 {
		t.Fatalf("step frames = %d, want 6000", c.StepFrames())
	}
	if c.StepDuration() != 125*time.Millisecond {
		t.Fatalf("step duration = %v", c.StepDuration())
	}
	c.Start()
	got := collect(c, 20000, 512)
	want := []int64{0, 6000, 12000, 18000}
	if !equalFrames(got, want) {
		t.Fatalf("pulses = %v, want %v", got, want)
	}
}

func TestPulsesFireAheadOfTheirFrame(t *testing.T) {
	c, err := NewClock(48000, WithLookahead(25*time.Millisecond))
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	c.Start()
	var fired []struct{ at, now int64 }
	for c.Frame() < 13000 {
		now := c.Frame()
		c.Advance(256, func(p Pulse) {
			fired = append(fired, struct{ at, now int64 }{p.Frame, now})
		})
	}
	if len(fired) != 3 {
		t.Fatalf("fired %d pulses, want 3", len(fired))
	}
	if fired[0].at != 1200 {
		t.Fatalf("first pulse at %d, want 1200", fired[0].at)
	}
	for _, f := range fired {
		if f.at < f.now {
			t.Fatalf("pulse for frame %d fired at %d, after its frame", f.at, f.now)
		}
	}
	if fired[1].at-fired[0].at != 6000 {
		t.Fatalf("spacing = %d", fired[1].at-fired[0].at)
	}
}

func TestTempoChangeAppliesAfterScheduledPulse(t *testing.T) {
	c, err := NewClock(48000, WithLookahead(0))
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	c.Start()
	got := collect(c, 7000, 500)
	if err := c.SetTempo(60); err != nil {
		t.Fatalf("set tempo: %v", err)
	}
	got = append(got, collect(c, 40000, 500)...)
	want := []int64{0, 6000, 12000, 24000, 36000}
	if !equalFrames(got, want) {
		t.Fatalf("pulses = %v, want %v", got, want)
	}
}

func TestTempoChangeFromPulseCallback(t *testing.T) {
	c, err := NewClock(48000, WithLookahead(0))
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	c.Start()
	var got []int64
	for c.Frame() < 30000 {
		c.Advance(1000, func(p Pulse) {
			got = append(got, p.Frame)
			if p.Frame == 6000 {
				_ = c.SetTempo(60)
			}
		})
	}
	want := []int64{0, 6000, 18000}
	if !equalFrames(got, want) {
		t.Fatalf("pulses = %v, want %v", got, want)
	}
}

func TestStopHaltsPulses(t *testing.T) {
	c, err := NewClock(48000, WithLookahead(0))
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	c.Start()
	c.Start()
	got := collect(c, 6500, 500)
	c.Stop()
	c.Stop()
	if extra := collect(c, 30000, 500); len(extra) != 0 {
		t.Fatalf("pulses after stop: %v", extra)
	}
	if len(got) != 2 {
		t.Fatalf("pulses before stop = %v", got)
	}
	c.Start()
	restart := collect(c, 31000, 500)
	if len(restart) != 1 || restart[0] != 30000 {
		t.Fatalf("restart pulses = %v, want [30000]", restart)
	}
}

func TestSetTempoRejectsInvalid(t *testing.T) {
	c, err := NewClock(44100)
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	for _, bpm := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		if err := c.SetTempo(bpm); !errors.Is(err, ErrInvalidTempo) {
			t.Fatalf("SetTempo(%v) err = %v", bpm, err)
		}
	}
	if c.Tempo() != DefaultTempo {
		t.Fatalf("tempo = %v after invalid sets", c.Tempo())
	}
	if _, err := NewClock(0); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
}

func TestSubdivisionOption(t *testing.T) {
	c, err := NewClock(48000, WithSubdivision(2), WithTempo(90))
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	if c.StepFrames() != 16000 {
		t.Fatalf("step frames = %d, want 16000", c.StepFrames())
	}
}
