package effects

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMapIntensityEndpoints(t *testing.T) {
	lo := MapIntensity(0)
	if !approx(lo.Wet, 0) || !approx(lo.RoomSize, 0.1) || !approx(lo.Dampening, 2000) {
		t.Fatalf("MapIntensity(0) = %+v", lo)
	}
	hi := MapIntensity(10)
	if !approx(hi.Wet, 1) || !approx(hi.RoomSize, 1) || !approx(hi.Dampening, 5000) {
		t.Fatalf("MapIntensity(10) = %+v", hi)
	}
}

func TestMapIntensityClampsAndSanitizes(t *testing.T) {
	cases := []struct {
		name  string
		level float64
		want  ReverbParams
	}{
		{"negative", -3, MapIntensity(0)},
		{"above max", 42, MapIntensity(10)},
		{"nan", math.NaN(), MapIntensity(0)},
		{"inf", math.Inf(1), MapIntensity(0)},
		{"midpoint", 5, ReverbParams{Wet: 0.5, RoomSize: 0.55, Dampening: 3500}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MapIntensity(tc.level)
			if !approx(got.Wet, tc.want.Wet) || !approx(got.RoomSize, tc.want.RoomSize) || !approx(got.Dampening, tc.want.Dampening) {
				t.Fatalf("MapIntensity(%v) = %+v, want %+v", tc.level, got, tc.want)
			}
		})
	}
}

func TestMapIntensityLevelIsLinear(t *testing.T) {
	for level := 0; level <= 10; level++ {
		got := MapIntensityLevel(level)
		if !approx(got.Wet, float64(level)/10) {
			t.Fatalf("level %d wet = %v", level, got.Wet)
		}
	}
}

func TestReverbDryWhenWetIsZero(t *testing.T) {
	r := NewReverb(48000)
	r.Set(MapIntensity(0))
	l, rr := r.Process(0.5, -0.25)
	if math.Abs(float64(l)-0.5) > 1e-6 || math.Abs(float64(rr)+0.25) > 1e-6 {
		t.Fatalf("expected dry passthrough, got l=%f r=%f", l, rr)
	}
}

func TestReverbProducesTail(t *testing.T) {
	r := NewReverb(48000)
	r.Set(MapIntensity(8))
	r.Process(1.0, 1.0)
	var maxOut float32
	for i := 0; i < 10000; i++ {
		l, _ := r.Process(0, 0)
		if l < 0 {
			l = -l
		}
		if l > maxOut {
			maxOut = l
		}
	}
	if maxOut < 0.0001 {
		t.Error("expected reverb tail")
	}
}

func TestReverbResetClearsTail(t *testing.T) {
	r := NewReverb(48000)
	r.Set(MapIntensity(10))
	for i := 0; i < 2000; i++ {
		r.Process(1, 1)
	}
	r.Reset()
	for i := 0; i < 5000; i++ {
		l, rr := r.Process(0, 0)
		if l != 0 || rr != 0 {
			t.Fatalf("expected silence after reset, got %f/%f at %d", l, rr, i)
		}
	}
}

func TestDampingCoefficientDecreasesWithCutoff(t *testing.T) {
	lo := dampingCoefficient(2000, 48000)
	hi := dampingCoefficient(5000, 48000)
	if !(lo > hi && hi > 0 && lo < 1) {
		t.Fatalf("damping(2000)=%v damping(5000)=%v", lo, hi)
	}
	if dampingCoefficient(3000, 0) != 0 {
		t.Fatalf("zero sample rate should disable damping")
	}
}

func TestPitchShiftZeroIsCopy(t *testing.T) {
	p, err := NewPitchShift(48000)
	if err != nil {
		t.Fatalf("new pitch shift: %v", err)
	}
	src := []float32{0.1, 0.2, 0.3, 0.4}
	out := p.Render(src)
	for i := range src {
		if out[i] != src[i] {
			t.Fatalf("identity render differs at %d: %v vs %v", i, out[i], src[i])
		}
	}
	out[0] = 9
	if src[0] == 9 {
		t.Fatalf("render must not alias its input")
	}
}

func TestPitchShiftPreservesLength(t *testing.T) {
	p, err := NewPitchShift(48000)
	if err != nil {
		t.Fatalf("new pitch shift: %v", err)
	}
	if err := p.Set(7); err != nil {
		t.Fatalf("set pitch: %v", err)
	}
	frames := 9600
	src := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		v := float32(math.Sin(2 * math.Pi * 220 * float64(i) / 48000))
		src[i*2] = v
		src[i*2+1] = v
	}
	out := p.Render(src)
	if len(out) != len(src) {
		t.Fatalf("render length = %d, want %d", len(out), len(src))
	}
	var energy float64
	for _, s := range out {
		energy += math.Abs(float64(s))
	}
	if energy == 0 {
		t.Fatalf("expected shifted signal energy")
	}
}

func TestPitchShiftClampsRange(t *testing.T) {
	p, err := NewPitchShift(48000)
	if err != nil {
		t.Fatalf("new pitch shift: %v", err)
	}
	if err := p.Set(40); err != nil {
		t.Fatalf("set pitch: %v", err)
	}
	if p.Semitones() != MaxPitchSemitones {
		t.Fatalf("semitones = %d, want %d", p.Semitones(), MaxPitchSemitones)
	}
	if err := p.Set(-40); err != nil {
		t.Fatalf("set pitch: %v", err)
	}
	if p.Semitones() != -MaxPitchSemitones {
		t.Fatalf("semitones = %d, want %d", p.Semitones(), -MaxPitchSemitones)
	}
}

func TestLimiterBoundsLoudInput(t *testing.T) {
	l, err := NewLimiter(48000, -1, 50)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	var out float32
	for i := 0; i < 4800; i++ {
		out, _ = l.Process(4, 4)
	}
	if out >= 4 {
		t.Fatalf("limiter should reduce sustained loud input, got %f", out)
	}
}

func TestChainAppliesEffectsInOrder(t *testing.T) {
	var order []string
	c := NewChain(
		recordingEffect{name: "a", log: &order},
		recordingEffect{name: "b", log: &order},
	)
	c.Process(0, 0)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order = %v", order)
	}
	buf := []float32{0, 0, 0, 0}
	order = order[:0]
	c.ProcessBuffer(buf)
	if len(order) != 4 {
		t.Fatalf("ProcessBuffer should run the chain per frame, got %v", order)
	}
}

type recordingEffect struct {
	name string
	log  *[]string
}

func (e recordingEffect) Process(l, r float32) (float32, float32) {
	*e.log = append(*e.log, e.name)
	return l, r
}

func (e recordingEffect) Reset() {}
