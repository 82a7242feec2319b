package sequencer

import (
	"errors"
	"testing"

	"github.com/cbegin/beatgrid-go/internal/effects"
	"github.com/cbegin/beatgrid-go/internal/graph"
	"github.com/cbegin/beatgrid-go/internal/pattern"
	"github.com/cbegin/beatgrid-go/internal/sample"
)

type recordingTarget struct {
	applied []graph.Params
	starts  []int64
	limits  []int64
	err     error
}

func (r *recordingTarget) RetriggerWith(p graph.Params, at, maxFrames int64) error {
	if r.err != nil {
		return r.err
	}
	r.applied = append(r.applied, p)
	r.starts = append(r.starts, at)
	r.limits = append(r.limits, maxFrames)
	return nil
}

type mapResolver map[pattern.SampleRef]*recordingTarget

func (m mapResolver) Resolve(ref pattern.SampleRef) (Target, error) {
	if t, ok := m[ref]; ok {
		return t, nil
	}
	return nil, graph.ErrNotReady
}

func TestPulseAdvancesPlayheadOncePerPulse(t *testing.T) {
	failing := pattern.NewGrid(2, 4)
	for ch := 0; ch < 2; ch++ {
		for step := 0; step < 4; step++ {
			failing.Channels[ch].Notes[step] = &pattern.Note{Sample: "missing.wav"}
		}
	}
	tests := []struct {
		name     string
		grid     pattern.Grid
		playhead int
		want     int
	}{
		{"empty grid", pattern.NewGrid(3, 4), 0, 1},
		{"wraps at end", pattern.NewGrid(3, 4), 3, 0},
		{"out of range playhead", pattern.NewGrid(1, 4), 9, 2},
		{"negative playhead", pattern.NewGrid(1, 4), -1, 0},
		{"zero steps", pattern.Grid{}, 5, 0},
		{"every note failing", failing, 2, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var errs int
			s := New(mapResolver{}, Options{OnError: func(error) { errs++ }})
			if got := s.Pulse(0, tc.playhead, tc.grid); got != tc.want {
				t.Fatalf("next playhead = %d, want %d", got, tc.want)
			}
			if tc.name == "every note failing" && errs != 2 {
				t.Fatalf("errors = %d, want one per channel", errs)
			}
		})
	}
}

func TestKickOnFirstStepFiresOncePerBar(t *testing.T) {
	kick := &recordingTarget{}
	grid := pattern.NewGrid(1, 4)
	grid.Channels[0].Notes[0] = &pattern.Note{Sample: "kick.wav"}
	s := New(mapResolver{"kick.wav": kick}, Options{StepFrames: func() int64 { return 6000 }})

	playhead := 0
	for i := 0; i < 4; i++ {
		playhead = s.Pulse(int64(i)*6000, playhead, grid)
	}
	if playhead != 0 {
		t.Fatalf("playhead = %d after a full bar, want 0", playhead)
	}
	if len(kick.starts) != 1 || kick.starts[0] != 0 || kick.limits[0] != 6000 {
		t.Fatalf("kick starts = %v limits = %v", kick.starts, kick.limits)
	}
}

func TestSharedTargetLastChannelWins(t *testing.T) {
	shared := &recordingTarget{}
	grid := pattern.NewGrid(2, 1)
	grid.Channels[0].Notes[0] = &pattern.Note{Sample: "cup.wav", Pitch: 2, Reverb: 0}
	grid.Channels[1].Notes[0] = &pattern.Note{Sample: "cup.wav", Pitch: 7, Reverb: 10, Reversed: true}
	var triggers []Trigger
	s := New(mapResolver{"cup.wav": shared}, Options{OnTrigger: func(tr Trigger) { triggers = append(triggers, tr) }})

	s.Pulse(1200, 0, grid)

	if len(shared.applied) != 2 || len(shared.starts) != 2 {
		t.Fatalf("applied %d params and %d starts, want 2 and 2", len(shared.applied), len(shared.starts))
	}
	last := shared.applied[1]
	if last.Pitch != 7 || !last.Reversed || last.Reverb != effects.MapIntensityLevel(10) {
		t.Fatalf("last params = %+v, want channel 1's", last)
	}
	if shared.starts[0] != 1200 || shared.starts[1] != 1200 {
		t.Fatalf("starts = %v, want both at 1200", shared.starts)
	}
	if len(triggers) != 2 || triggers[0].Channel != 0 || triggers[1].Channel != 1 {
		t.Fatalf("triggers = %+v, want channel order", triggers)
	}
}

func TestInactiveChannelIsSkipped(t *testing.T) {
	target := &recordingTarget{}
	grid := pattern.NewGrid(2, 2)
	grid.Channels[0].Notes[0] = &pattern.Note{Sample: "a.wav"}
	grid.Channels[1].Notes[0] = &pattern.Note{Sample: "a.wav"}
	grid.Channels[1].Active = false
	s := New(mapResolver{"a.wav": target}, Options{})
	s.Pulse(0, 0, grid)
	if len(target.starts) != 1 {
		t.Fatalf("starts = %d, want 1", len(target.starts))
	}
}

func TestNotReadyAndFailingNotesAreReported(t *testing.T) {
	broken := &recordingTarget{err: graph.ErrDisposed}
	ok := &recordingTarget{}
	grid := pattern.NewGrid(3, 1)
	grid.Channels[0].Notes[0] = &pattern.Note{Sample: "loading.wav"}
	grid.Channels[1].Notes[0] = &pattern.Note{Sample: "broken.wav"}
	grid.Channels[2].Notes[0] = &pattern.Note{Sample: "ok.wav"}
	var errs []error
	s := New(mapResolver{"broken.wav": broken, "ok.wav": ok}, Options{OnError: func(err error) { errs = append(errs, err) }})

	if next := s.Pulse(0, 0, grid); next != 0 {
		t.Fatalf("next = %d, want 0", next)
	}
	if len(errs) != 2 {
		t.Fatalf("errors = %v, want 2", errs)
	}
	var terr *TriggerError
	if !errors.As(errs[0], &terr) || terr.Ref != "loading.wav" || terr.Channel != 0 || !errors.Is(errs[0], graph.ErrNotReady) {
		t.Fatalf("first error = %v, want not-ready for loading.wav", errs[0])
	}
	if !errors.Is(errs[1], graph.ErrDisposed) {
		t.Fatalf("second error = %v, want ErrDisposed", errs[1])
	}
	if len(ok.starts) != 1 {
		t.Fatalf("later channel did not play after failures")
	}
}

func TestUnrenderedPitchIsReportedNotReady(t *testing.T) {
	buf := &sample.Buffer{SampleRate: 48000, Data: make([]float32, 2*4800)}
	g, err := graph.New("tom.wav", buf, 48000)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	defer g.Dispose()
	grid := pattern.NewGrid(1, 1)
	grid.Channels[0].Notes[0] = &pattern.Note{Sample: "tom.wav", Pitch: 5}
	var errs []error
	resolver := ResolverFunc(func(pattern.SampleRef) (Target, error) { return g, nil })
	s := New(resolver, Options{OnError: func(err error) { errs = append(errs, err) }})

	s.Pulse(0, 0, grid)
	if len(errs) != 1 || !errors.Is(errs[0], graph.ErrNotReady) {
		t.Fatalf("errors = %v, want one not-ready", errs)
	}
	g.WaitPrepared()
	errs = nil
	s.Pulse(4800, 0, grid)
	if len(errs) != 0 || g.Starts() != 1 {
		t.Fatalf("errors = %v starts = %d after rendering, want none and 1", errs, g.Starts())
	}
}

func TestParamsForMapsReverbLevel(t *testing.T) {
	p := ParamsFor(&pattern.Note{Pitch: -3, Reverb: 5, Reversed: true})
	if p.Pitch != -3 || !p.Reversed {
		t.Fatalf("params = %+v", p)
	}
	if p.Reverb != effects.MapIntensity(5) {
		t.Fatalf("reverb = %+v, want MapIntensity(5)", p.Reverb)
	}
}
