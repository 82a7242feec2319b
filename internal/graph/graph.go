package graph

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/cbegin/beatgrid-go/internal/effects"
	"github.com/cbegin/beatgrid-go/internal/pattern"
	"github.com/cbegin/beatgrid-go/internal/sample"
)

const (
	fadeInSeconds   = 0.002
	fadeOutSeconds  = 0.005
	tailHoldSeconds = 0.1
	silence         = 1e-5
	maxVariants     = 16
)

// Params are the live settings of a graph. A graph is time-shared by every
// note using its sample, so callers pass them with each trigger.
type Params struct {
	Pitch    int
	Reverb   effects.ReverbParams
	Reversed bool
}

// DefaultParams is neutral pitch, forward playback and a dry reverb.
func DefaultParams() Params {
	return Params{Reverb: effects.DefaultReverbParams}
}

type variantKey struct {
	pitch    int
	reversed bool
}

func keyOf(p Params) variantKey {
	return variantKey{pitch: effects.ClampSemitones(p.Pitch), reversed: p.Reversed}
}

// Graph is the processing chain for one sample:
// source player -> pitch shift -> reverb -> output.
//
// Pitch and direction are baked into rendered copies of the sample (kept in a
// small per-graph cache). Rendering a copy is slow, so it only ever happens
// in Prepare or on a background goroutine, never under mu; a trigger whose
// copy is missing fails with ErrNotReady. The reverb runs live in Render.
type Graph struct {
	mu         sync.Mutex
	ref        pattern.SampleRef
	sampleRate int
	source     *sample.Buffer

	// renderMu serializes use of the pitch shifter.
	renderMu sync.Mutex
	pitch    *effects.PitchShift

	player *player
	reverb *effects.Reverb
	chain  *effects.Chain

	params       Params
	variants     map[variantKey][]float32
	variantOrder []variantKey
	preparing    map[variantKey]bool
	prepared     sync.WaitGroup
	// liveKey is the rendering sounding voices switch to once it is ready.
	liveKey *variantKey

	// A reverb change scheduled with a trigger takes effect at reverbAt.
	pendingReverb *effects.ReverbParams
	reverbAt      int64

	scratch  []float32
	rendered int64
	quiet    int64
	tailHold int64
	idle     bool
	disposed bool
	starts   int
}

// New builds a graph over a decoded buffer. The buffer is not copied.
func New(ref pattern.SampleRef, buf *sample.Buffer, sampleRate int) (*Graph, error) {
	if buf == nil || buf.Frames() == 0 {
		return nil, errors.Wrapf(sample.ErrEmpty, "graph %q", ref)
	}
	if sampleRate <= 0 {
		return nil, errors.Errorf("graph %q: invalid sample rate %d", ref, sampleRate)
	}
	ps, err := effects.NewPitchShift(sampleRate)
	if err != nil {
		return nil, err
	}
	rv := effects.NewReverb(sampleRate)
	g := &Graph{
		ref:        ref,
		sampleRate: sampleRate,
		source:     buf,
		player: &player{
			fadeIn:  secondsToFrames(fadeInSeconds, sampleRate),
			fadeOut: secondsToFrames(fadeOutSeconds, sampleRate),
		},
		pitch:     ps,
		reverb:    rv,
		chain:     effects.NewChain(rv),
		params:    DefaultParams(),
		variants:  make(map[variantKey][]float32),
		preparing: make(map[variantKey]bool),
		tailHold:  secondsToFrames(tailHoldSeconds, sampleRate),
		idle:      true,
	}
	g.variants[variantKey{}] = buf.Data
	g.variantOrder = append(g.variantOrder, variantKey{})
	return g, nil
}

func secondsToFrames(sec float64, sampleRate int) int64 {
	n := int64(sec * float64(sampleRate))
	if n < 1 {
		n = 1
	}
	return n
}

func (g *Graph) Ref() pattern.SampleRef { return g.ref }

// FadeOutFrames is how far ahead of the output a retrigger must be scheduled
// for the previous voice to fade out completely.
func (g *Graph) FadeOutFrames() int64 { return g.player.fadeOut }

func (g *Graph) Params() Params {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.params
}

// Ready reports whether the rendering for p exists, so a trigger with p
// starts without waiting.
func (g *Graph) Ready(p Params) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.variants[keyOf(p)]
	return ok
}

// Prepare renders the pitch and direction of every p that is not cached yet.
// It blocks for the rendering, so call it off the audio goroutine.
func (g *Graph) Prepare(ps ...Params) {
	for _, p := range ps {
		key := keyOf(p)
		g.mu.Lock()
		_, ok := g.variants[key]
		disposed := g.disposed
		g.mu.Unlock()
		if ok || disposed {
			continue
		}
		g.store(key, g.render(key))
	}
}

// PrepareAsync is Prepare on background goroutines.
func (g *Graph) PrepareAsync(ps ...Params) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range ps {
		g.prepareLocked(keyOf(p))
	}
}

// WaitPrepared blocks until every PrepareAsync rendering has been stored.
func (g *Graph) WaitPrepared() {
	g.prepared.Wait()
}

func (g *Graph) prepareLocked(key variantKey) {
	if g.disposed || g.preparing[key] {
		return
	}
	if _, ok := g.variants[key]; ok {
		return
	}
	g.preparing[key] = true
	g.prepared.Add(1)
	go func() {
		defer g.prepared.Done()
		g.store(key, g.render(key))
	}()
}

// render builds the rendering for key from the source. It does not touch
// fields guarded by mu.
func (g *Graph) render(key variantKey) []float32 {
	data := g.source.Data
	if key.reversed {
		data = g.source.Reversed().Data
	}
	if key.pitch == 0 {
		return data
	}
	g.renderMu.Lock()
	defer g.renderMu.Unlock()
	if err := g.pitch.Set(key.pitch); err != nil {
		return data
	}
	return g.pitch.Render(data)
}

func (g *Graph) store(key variantKey, data []float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.preparing, key)
	if g.disposed {
		return
	}
	if _, ok := g.variants[key]; !ok {
		g.storeVariant(key, data)
	}
	if g.liveKey != nil && *g.liveKey == key {
		g.player.swap(g.variants[key])
		g.liveKey = nil
	}
}

// Apply changes the settings of whatever is sounding right now. The reverb
// changes at once, tail included; a new pitch or direction switches sounding
// voices to the new rendering at their current position as soon as that
// rendering exists.
func (g *Graph) Apply(p Params) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return
	}
	p.Pitch = effects.ClampSemitones(p.Pitch)
	g.pendingReverb = nil
	if p.Reverb != g.reverb.Params() {
		g.reverb.Set(p.Reverb)
	}
	oldKey := keyOf(g.params)
	newKey := keyOf(p)
	g.params = p
	if newKey == oldKey {
		return
	}
	if data, ok := g.variants[newKey]; ok {
		g.player.swap(data)
		g.liveKey = nil
		return
	}
	g.liveKey = &newKey
	g.prepareLocked(newKey)
}

// RetriggerWith stops whatever is sounding and starts playback with p at
// frame at, so two triggers on one graph never overlap. Only the new voice
// gets p: the voice being cut keeps its rendering and reverb up to at. A
// positive maxFrames truncates the playback, fading out over its last few ms.
//
// If the rendering for p is missing it is started in the background and
// ErrNotReady is returned without touching playback.
func (g *Graph) RetriggerWith(p Params, at, maxFrames int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p.Pitch = effects.ClampSemitones(p.Pitch)
	if err := g.checkLocked(keyOf(p)); err != nil {
		return err
	}
	g.player.stop(at, g.rendered)
	g.params = p
	g.liveKey = nil
	if p.Reverb != g.reverb.Params() {
		rv := p.Reverb
		g.pendingReverb = &rv
		g.reverbAt = at
	} else {
		g.pendingReverb = nil
	}
	g.startLocked(at, maxFrames)
	return nil
}

func (g *Graph) checkLocked(key variantKey) error {
	if g.disposed {
		return errors.Wrapf(ErrDisposed, "trigger %q", g.ref)
	}
	if _, ok := g.variants[key]; !ok {
		g.prepareLocked(key)
		return errors.Wrapf(ErrNotReady, "%q pitch %+d reversed %v", g.ref, key.pitch, key.reversed)
	}
	return nil
}

func (g *Graph) startLocked(at, maxFrames int64) {
	if at < g.rendered {
		at = g.rendered
	}
	g.player.start(g.variants[keyOf(g.params)], at, maxFrames)
	g.idle = false
	g.quiet = 0
	g.starts++
}

func (g *Graph) storeVariant(key variantKey, data []float32) {
	g.variants[key] = data
	g.variantOrder = append(g.variantOrder, key)
	current := keyOf(g.params)
	for len(g.variantOrder) > maxVariants {
		evict := -1
		for i, k := range g.variantOrder {
			if k != (variantKey{}) && k != key && k != current {
				evict = i
				break
			}
		}
		if evict < 0 {
			return
		}
		delete(g.variants, g.variantOrder[evict])
		g.variantOrder = append(g.variantOrder[:evict], g.variantOrder[evict+1:]...)
	}
}

// Render mixes the graph's output for the frames starting at frame into dst
// (interleaved stereo). It reports whether anything was rendered; an idle or
// disposed graph leaves dst untouched.
func (g *Graph) Render(dst []float32, frame int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	frames := int64(len(dst) / 2)
	if g.disposed {
		return false
	}
	if g.idle && !g.player.active() {
		g.rendered = frame + frames
		return false
	}
	if cap(g.scratch) < len(dst) {
		g.scratch = make([]float32, len(dst))
	}
	buf := g.scratch[:len(dst)]
	for i := range buf {
		buf[i] = 0
	}
	g.player.mix(buf, frame)
	g.player.prune(frame + frames)

	var peak float32
	for i := 0; i+1 < len(buf); i += 2 {
		if g.pendingReverb != nil && frame+int64(i/2) >= g.reverbAt {
			g.reverb.Set(*g.pendingReverb)
			g.pendingReverb = nil
		}
		l, r := g.chain.Process(buf[i], buf[i+1])
		dst[i] += l
		dst[i+1] += r
		if l < 0 {
			l = -l
		}
		if r < 0 {
			r = -r
		}
		if l > peak {
			peak = l
		}
		if r > peak {
			peak = r
		}
	}
	g.rendered = frame + frames
	if g.player.active() || peak >= silence {
		g.quiet = 0
		return true
	}
	g.quiet += frames
	if g.quiet >= g.tailHold {
		g.idle = true
		g.chain.Reset()
	}
	return true
}

// Sounding counts voices audible at frame.
func (g *Graph) Sounding(frame int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.player.sounding(frame)
}

// Starts counts successful triggers.
func (g *Graph) Starts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.starts
}

func (g *Graph) Idle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.idle && !g.player.active()
}

// Dispose stops playback and releases the stages. It is safe to call twice.
func (g *Graph) Dispose() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return
	}
	g.disposed = true
	g.player.clear()
	g.chain.Reset()
	g.liveKey = nil
	g.pendingReverb = nil
	g.variants = nil
	g.variantOrder = nil
	g.scratch = nil
}

func (g *Graph) Disposed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disposed
}
