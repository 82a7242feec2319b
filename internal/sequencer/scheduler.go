// Package sequencer triggers the notes of a step grid on clock pulses.
package sequencer

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/cbegin/beatgrid-go/internal/effects"
	"github.com/cbegin/beatgrid-go/internal/graph"
	"github.com/cbegin/beatgrid-go/internal/pattern"
)

// Target is a playable graph. RetriggerWith cuts whatever is sounding at
// frame at and starts the note there with its own params.
type Target interface {
	RetriggerWith(p graph.Params, at, maxFrames int64) error
}

// Resolver finds the target for a sample. It returns graph.ErrNotReady while
// the target is still being built and must not block.
type Resolver interface {
	Resolve(ref pattern.SampleRef) (Target, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ref pattern.SampleRef) (Target, error)

func (f ResolverFunc) Resolve(ref pattern.SampleRef) (Target, error) { return f(ref) }

// TriggerError reports a note that could not be played on a pulse.
type TriggerError struct {
	Ref     pattern.SampleRef
	Channel int
	Step    int
	Err     error
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("trigger %q (channel %d, step %d): %v", e.Ref, e.Channel, e.Step, e.Err)
}

func (e *TriggerError) Unwrap() error { return e.Err }

// Trigger describes a note that was started.
type Trigger struct {
	Ref     pattern.SampleRef
	Channel int
	Step    int
	Frame   int64
	Params  graph.Params
}

type Options struct {
	// StepFrames bounds each note to the current step length. Nil or a
	// non-positive result leaves notes unbounded.
	StepFrames func() int64
	OnTrigger  func(Trigger)
	OnError    func(error)
	Logger     *slog.Logger
}

type Scheduler struct {
	resolver   Resolver
	stepFrames func() int64
	onTrigger  func(Trigger)
	onError    func(error)
	logger     *slog.Logger
}

func New(resolver Resolver, opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		resolver:   resolver,
		stepFrames: opts.StepFrames,
		onTrigger:  opts.OnTrigger,
		onError:    opts.OnError,
		logger:     logger,
	}
}

// Pulse plays column playhead of grid at frame at and returns the next
// playhead. Notes that fail are reported and skipped; the playhead advances
// by exactly one step regardless.
func (s *Scheduler) Pulse(at int64, playhead int, grid pattern.Grid) int {
	if grid.Steps <= 0 {
		return 0
	}
	step := playhead % grid.Steps
	if step < 0 {
		step += grid.Steps
	}
	for ch, channel := range grid.Channels {
		if !channel.Active {
			continue
		}
		note := grid.At(ch, step)
		if note == nil || note.Sample == "" {
			continue
		}
		s.trigger(at, ch, step, note)
	}
	return (step + 1) % grid.Steps
}

func (s *Scheduler) trigger(at int64, ch, step int, note *pattern.Note) {
	target, err := s.resolver.Resolve(note.Sample)
	if err != nil {
		s.fail(note.Sample, ch, step, err)
		return
	}
	params := ParamsFor(note)
	var maxFrames int64
	if s.stepFrames != nil {
		maxFrames = s.stepFrames()
	}
	if err := target.RetriggerWith(params, at, maxFrames); err != nil {
		s.fail(note.Sample, ch, step, err)
		return
	}
	if s.onTrigger != nil {
		s.onTrigger(Trigger{Ref: note.Sample, Channel: ch, Step: step, Frame: at, Params: params})
	}
}

func (s *Scheduler) fail(ref pattern.SampleRef, ch, step int, err error) {
	terr := &TriggerError{Ref: ref, Channel: ch, Step: step, Err: err}
	if errors.Is(err, graph.ErrNotReady) {
		s.logger.Debug("note skipped, graph or rendering not ready", "ref", ref, "channel", ch, "step", step)
	} else {
		s.logger.Warn("note skipped", "ref", ref, "channel", ch, "step", step, "err", err)
	}
	if s.onError != nil {
		s.onError(terr)
	}
}

// ParamsFor maps a note's settings onto graph parameters.
func ParamsFor(note *pattern.Note) graph.Params {
	return graph.Params{
		Pitch:    note.Pitch,
		Reverb:   effects.MapIntensityLevel(note.Reverb),
		Reversed: note.Reversed,
	}
}
