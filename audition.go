package beatgrid

import (
	"sync"

	"github.com/cbegin/beatgrid-go/internal/effects"
	"github.com/cbegin/beatgrid-go/internal/graph"
)

// AuditionParams are the base settings of an auditioned sample.
type AuditionParams struct {
	Pitch    int
	Reverb   int // 0..10
	Reversed bool
}

// ParamUpdate changes the fields that are set and leaves the rest alone.
type ParamUpdate struct {
	Pitch    *int
	Reverb   *int
	Reversed *bool
}

// Audition previews one sample outside the grid. It owns its own graph, so
// auditioning never disturbs the graph the scheduler plays for the same
// sample.
type Audition struct {
	engine *Engine

	mu       sync.Mutex
	graph    *graph.Graph
	ref      SampleRef
	params   AuditionParams
	offset   int
	gen      uint64
	disposed bool
}

// NewAudition creates an empty audition player. It is disposed with the
// engine.
func (e *Engine) NewAudition() *Audition {
	a := &Audition{engine: e}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		a.disposed = true
		return a
	}
	e.auditions[a] = struct{}{}
	return a
}

// SetSample drops the current graph and builds a new one for ref in the
// background. The returned channel yields the build result: nil, an
// *AssetLoadError, or ErrSuperseded when a later SetSample won.
func (a *Audition) SetSample(ref SampleRef, params AuditionParams) <-chan error {
	done := make(chan error, 1)
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		done <- ErrDisposed
		return done
	}
	a.gen++
	gen := a.gen
	a.ref = ref
	a.params = params
	a.offset = 0
	a.dropGraph()
	a.mu.Unlock()

	go func() {
		done <- a.build(gen, ref)
	}()
	return done
}

func (a *Audition) build(gen uint64, ref SampleRef) error {
	e := a.engine
	buf, err := e.loader.Load(e.ctx, string(ref))
	if err == nil {
		var g *graph.Graph
		g, err = graph.New(ref, buf, e.sampleRate)
		if err == nil {
			a.mu.Lock()
			base := a.params
			a.mu.Unlock()
			g.Prepare(keyParams(base)...)
			return a.install(gen, g)
		}
	}
	a.mu.Lock()
	stale := a.disposed || gen != a.gen
	a.mu.Unlock()
	if stale {
		return ErrSuperseded
	}
	lerr := &AssetLoadError{Ref: ref, Err: err}
	e.reportError(lerr)
	return lerr
}

func (a *Audition) install(gen uint64, g *graph.Graph) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed || gen != a.gen {
		g.Dispose()
		return ErrSuperseded
	}
	g.Apply(a.graphParams())
	a.graph = g
	a.engine.bus.Add(g)
	return nil
}

// dropGraph runs with a.mu held.
func (a *Audition) dropGraph() {
	if a.graph == nil {
		return
	}
	a.engine.bus.Remove(a.graph)
	a.graph.Dispose()
	a.graph = nil
}

func (a *Audition) graphParams() graph.Params {
	return offsetParams(a.params, a.offset)
}

func offsetParams(base AuditionParams, offset int) graph.Params {
	return graph.Params{
		Pitch:    base.Pitch + offset,
		Reverb:   effects.MapIntensityLevel(base.Reverb),
		Reversed: base.Reversed,
	}
}

// keyParams lists the settings of every audition key for base.
func keyParams(base AuditionParams) []graph.Params {
	ps := make([]graph.Params, AuditionSemitones)
	for i := range ps {
		ps[i] = offsetParams(base, i)
	}
	return ps
}

// UpdateParams changes the base settings live, without rebuilding.
func (a *Audition) UpdateParams(u ParamUpdate) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if u.Pitch != nil {
		a.params.Pitch = *u.Pitch
	}
	if u.Reverb != nil {
		a.params.Reverb = *u.Reverb
	}
	if u.Reversed != nil {
		a.params.Reversed = *u.Reversed
	}
	if a.graph != nil {
		a.graph.Apply(a.graphParams())
		if u.Pitch != nil || u.Reversed != nil {
			a.graph.PrepareAsync(keyParams(a.params)...)
		}
	}
}

// Params returns the current base settings.
func (a *Audition) Params() AuditionParams {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.params
}

// Sample returns the sample last passed to SetSample.
func (a *Audition) Sample() SampleRef {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ref
}

// Trigger plays the sample offset semitones above its base pitch, cutting
// off the previous trigger. The sample plays to its end. The new note starts
// one fade-out after the next rendered frame so the cut voice can fade
// instead of stepping to silence. It returns ErrNotReady while the rendering
// for that pitch is still being prepared.
func (a *Audition) Trigger(offset int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed {
		return ErrDisposed
	}
	if a.graph == nil {
		return ErrNotReady
	}
	p := offsetParams(a.params, offset)
	at := a.engine.Frame() + a.graph.FadeOutFrames()
	if err := a.graph.RetriggerWith(p, at, 0); err != nil {
		return err
	}
	a.offset = offset
	return nil
}

// Dispose stops playback and releases the graph.
func (a *Audition) Dispose() {
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return
	}
	a.disposed = true
	a.gen++
	a.dropGraph()
	a.mu.Unlock()
	a.engine.forget(a)
}
