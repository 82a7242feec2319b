// Package mixer sums effect graphs into the output buffer.
package mixer

import (
	"sync"

	"github.com/cbegin/beatgrid-go/internal/effects"
)

const (
	limiterThresholdDB = -1.0
	limiterReleaseMs   = 60.0
)

// Renderer adds its output for the block starting at frame into dst.
type Renderer interface {
	Render(dst []float32, frame int64) bool
}

// Bus is the master output: every registered renderer, then master gain,
// then a limiter.
type Bus struct {
	mu      sync.Mutex
	sources []Renderer
	gain    float32
	master  *effects.Chain
}

func NewBus(sampleRate int, gain float64) (*Bus, error) {
	lim, err := effects.NewLimiter(sampleRate, limiterThresholdDB, limiterReleaseMs)
	if err != nil {
		return nil, err
	}
	return &Bus{gain: float32(gain), master: effects.NewChain(lim)}, nil
}

// Add registers r. Adding the same renderer twice has no effect.
func (b *Bus) Add(r Renderer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sources {
		if s == r {
			return
		}
	}
	b.sources = append(b.sources, r)
}

func (b *Bus) Remove(r Renderer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.sources {
		if s == r {
			b.sources = append(b.sources[:i], b.sources[i+1:]...)
			return
		}
	}
}

func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = nil
	b.master.Reset()
}

func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sources)
}

func (b *Bus) SetMasterGain(gain float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gain = float32(gain)
}

// Process overwrites dst (interleaved stereo) with the mix for the block
// starting at frame.
func (b *Bus) Process(dst []float32, frame int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range dst {
		dst[i] = 0
	}
	for _, s := range b.sources {
		s.Render(dst, frame)
	}
	if b.gain != 1 {
		for i := range dst {
			dst[i] *= b.gain
		}
	}
	b.master.ProcessBuffer(dst)
}
