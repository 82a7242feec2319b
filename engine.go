// Package beatgrid plays a step-sequencer grid of audio samples with
// sample-accurate timing.
package beatgrid

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/cbegin/beatgrid-go/internal/graph"
	"github.com/cbegin/beatgrid-go/internal/mixer"
	"github.com/cbegin/beatgrid-go/internal/pattern"
	"github.com/cbegin/beatgrid-go/internal/sequencer"
	"github.com/cbegin/beatgrid-go/internal/transport"
)

// Source is the external state the engine reads on every pulse. Its methods
// are called from the audio goroutine and must not call back into the engine.
type Source interface {
	Grid() Grid
	Tempo() float64
}

// PlayheadStore is implemented by sources that own the playhead. The engine
// reads it before each pulse and writes the advanced value back.
type PlayheadStore interface {
	Playhead() int
	SetPlayhead(int)
}

type Engine struct {
	mu          sync.Mutex
	sampleRate  int
	src         Source
	loader      Loader
	logger      *slog.Logger
	headless    bool
	sampleTap   func([]float32)
	eventBuffer int

	clock *transport.Clock
	sched *sequencer.Scheduler
	cache *graph.Cache
	bus   *mixer.Bus
	out   output
	open  outputOpener

	playhead    int
	sourceTempo float64
	auditions   map[*Audition]struct{}
	closed      bool

	ctx    context.Context
	cancel context.CancelFunc

	eventCh   chan Event
	eventChMu sync.Mutex
}

// NewEngine creates a stopped engine. Samples are fetched through loader
// the first time the grid references them.
func NewEngine(sampleRate int, src Source, loader Loader, opts ...EngineOption) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	if src == nil || loader == nil {
		return nil, errors.New("source and loader are required")
	}
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	clockOpts := []transport.ClockOption{
		transport.WithLookahead(cfg.lookahead),
		transport.WithSubdivision(cfg.subdivision),
	}
	tempo := src.Tempo()
	clockOpts = append(clockOpts, transport.WithTempo(tempo))
	clock, err := transport.NewClock(sampleRate, clockOpts...)
	if err != nil {
		return nil, err
	}
	bus, err := mixer.NewBus(sampleRate, cfg.masterGain)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		sampleRate:  sampleRate,
		src:         src,
		loader:      loader,
		logger:      cfg.logger,
		headless:    cfg.headless,
		sampleTap:   cfg.sampleTap,
		eventBuffer: cfg.eventBuffer,
		open:        cfg.openOutput,
		clock:       clock,
		bus:         bus,
		sourceTempo: tempo,
		auditions:   make(map[*Audition]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
	e.cache = graph.NewCache(sampleRate, loader,
		graph.WithBuildHook(func(g *graph.Graph) { bus.Add(g) }),
		graph.WithErrorHandler(e.reportError),
		graph.WithCacheLogger(cfg.logger),
	)
	e.sched = sequencer.New(sequencer.ResolverFunc(e.resolve), sequencer.Options{
		StepFrames: clock.StepFrames,
		OnError:    e.reportError,
		Logger:     cfg.logger,
	})
	return e, nil
}

// resolve hands the scheduler a ready graph, or starts building one.
func (e *Engine) resolve(ref pattern.SampleRef) (sequencer.Target, error) {
	if g, ok := e.cache.Lookup(ref); ok {
		return g, nil
	}
	e.cache.Prefetch(ref)
	return nil, graph.ErrNotReady
}

func (e *Engine) SampleRate() int { return e.sampleRate }

// Process renders the next len(dst)/2 stereo frames. It is the audio
// callback: pulses due within the block (plus lookahead) are scheduled first,
// then every graph is mixed.
func (e *Engine) Process(dst []float32) {
	e.mu.Lock()
	frame := e.clock.Frame()
	e.clock.Advance(len(dst)/2, e.pulse)
	e.mu.Unlock()

	e.bus.Process(dst, frame)
	if e.sampleTap != nil {
		e.sampleTap(dst)
	}
}

// pulse runs with e.mu held.
func (e *Engine) pulse(p transport.Pulse) {
	if t := e.src.Tempo(); t != e.sourceTempo {
		e.sourceTempo = t
		if err := e.clock.SetTempo(t); err != nil {
			e.logger.Warn("ignoring source tempo", "bpm", t, "err", err)
		}
	}
	grid := e.src.Grid()
	store, owned := e.src.(PlayheadStore)
	if owned {
		e.playhead = store.Playhead()
	}
	step := e.playhead
	if grid.Steps > 0 {
		step = ((step % grid.Steps) + grid.Steps) % grid.Steps
	}
	e.playhead = e.sched.Pulse(p.Frame, e.playhead, grid)
	if owned {
		store.SetPlayhead(e.playhead)
	}
	e.sendEvent(Event{Kind: EventPlayhead, Step: step, Playhead: e.playhead, Frame: p.Frame, Time: p.Time})
}

// Resume opens the audio output if needed and waits for the host clock to
// run. Start calls it; UIs call it directly from a user gesture so
// auditions can sound before the transport starts.
func (e *Engine) Resume(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.headless {
		e.mu.Unlock()
		return nil
	}
	if e.out == nil {
		out, err := e.open(e.sampleRate, e)
		if err != nil {
			e.mu.Unlock()
			return &ClockResumeError{Err: err}
		}
		e.out = out
	}
	out := e.out
	e.mu.Unlock()

	if err := out.Resume(ctx); err != nil {
		return &ClockResumeError{Err: err}
	}
	return nil
}

// Start resumes the output and starts the transport. If the output cannot
// be resumed the transport stays stopped and a *ClockResumeError is
// returned. Starting a running engine does nothing.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.Resume(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.clock.Running() {
		e.mu.Unlock()
		return nil
	}
	e.clock.Start()
	grid := e.src.Grid()
	e.mu.Unlock()

	e.cache.Prefetch(grid.Samples()...)
	go e.prepare(grid)
	e.logger.Info("transport started", "bpm", e.Tempo())
	return nil
}

// Stop halts future pulses. Notes already scheduled play out.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.clock.Running() {
		return
	}
	e.clock.Stop()
	e.logger.Info("transport stopped", "playhead", e.playhead)
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Running()
}

// SetTempo changes the tempo from the next step interval on. The playhead is
// not touched.
func (e *Engine) SetTempo(bpm float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.SetTempo(bpm)
}

func (e *Engine) Tempo() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Tempo()
}

// SetMasterGain scales the mix before the master limiter.
func (e *Engine) SetMasterGain(gain float64) {
	e.bus.SetMasterGain(gain)
}

// PlaybackPosition is how much audio the output has played since it was
// opened. It trails Frame by the output buffer.
func (e *Engine) PlaybackPosition() time.Duration {
	e.mu.Lock()
	out := e.out
	e.mu.Unlock()
	if out == nil {
		return 0
	}
	return out.Position()
}

// ResetPlayhead moves the playhead to the first step without waiting for a
// pulse.
func (e *Engine) ResetPlayhead() {
	e.mu.Lock()
	e.playhead = 0
	if store, ok := e.src.(PlayheadStore); ok {
		store.SetPlayhead(0)
	}
	frame := e.clock.Frame()
	e.mu.Unlock()
	e.sendEvent(Event{Kind: EventPlayhead, Step: -1, Playhead: 0, Frame: frame})
}

func (e *Engine) Playhead() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playhead
}

// Frame is the next audio frame to be rendered.
func (e *Engine) Frame() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Frame()
}

// Preload builds the graphs for every sample in the current grid, renders
// every pitch and direction the grid's notes use, and waits for all of it,
// so the first pulse skips nothing.
func (e *Engine) Preload(ctx context.Context) error {
	grid := e.src.Grid()
	if err := e.cache.Preload(ctx, grid.Samples()...); err != nil {
		return err
	}
	for ref, ps := range noteParams(grid) {
		if g, ok := e.cache.Lookup(ref); ok {
			g.Prepare(ps...)
		}
	}
	return nil
}

// prepare starts rendering the notes of grid in the background once their
// graphs exist. Build failures are reported by the cache's prefetch.
func (e *Engine) prepare(grid pattern.Grid) {
	for ref, ps := range noteParams(grid) {
		g, err := e.cache.GetOrBuild(e.ctx, ref)
		if err != nil {
			continue
		}
		g.PrepareAsync(ps...)
	}
}

func noteParams(grid pattern.Grid) map[pattern.SampleRef][]graph.Params {
	out := make(map[pattern.SampleRef][]graph.Params)
	for _, ch := range grid.Channels {
		for _, note := range ch.Notes {
			if note == nil || note.Sample == "" {
				continue
			}
			out[note.Sample] = append(out[note.Sample], sequencer.ParamsFor(note))
		}
	}
	return out
}

// Watch returns a channel that receives engine events. Sends never block
// the audio goroutine: when the buffer is full, events are dropped.
// Only the most recent Watch() channel receives events.
func (e *Engine) Watch() <-chan Event {
	ch := make(chan Event, e.eventBuffer)
	e.eventChMu.Lock()
	e.eventCh = ch
	e.eventChMu.Unlock()
	return ch
}

func (e *Engine) sendEvent(ev Event) {
	e.eventChMu.Lock()
	ch := e.eventCh
	e.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (e *Engine) reportError(err error) {
	ev := eventForError(err)
	if ev.Kind == EventAssetLoadError {
		e.logger.Error("sample failed to load", "ref", ev.Ref, "err", err)
	}
	e.sendEvent(ev)
}

// Close stops the transport, closes the output and releases every graph.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.clock.Stop()
	out := e.out
	e.out = nil
	auditions := make([]*Audition, 0, len(e.auditions))
	for a := range e.auditions {
		auditions = append(auditions, a)
	}
	e.mu.Unlock()

	for _, a := range auditions {
		a.Dispose()
	}
	e.cancel()
	var err error
	if out != nil {
		err = out.Close()
	}
	e.cache.DisposeAll()
	e.bus.Clear()
	return err
}

func (e *Engine) forget(a *Audition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.auditions, a)
}
