package beatgrid

import (
	"context"
	"log/slog"
	"time"

	intaudio "github.com/cbegin/beatgrid-go/internal/audio"
	"github.com/cbegin/beatgrid-go/internal/transport"
)

type EngineOption func(*engineConfig)

// output is the audio device the engine renders into.
type output interface {
	Resume(ctx context.Context) error
	Position() time.Duration
	Close() error
}

type outputOpener func(sampleRate int, src intaudio.SampleSource) (output, error)

func openDevice(sampleRate int, src intaudio.SampleSource) (output, error) {
	p, err := intaudio.NewPlayer(sampleRate, src)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type engineConfig struct {
	logger      *slog.Logger
	headless    bool
	lookahead   time.Duration
	subdivision int
	masterGain  float64
	eventBuffer int
	sampleTap   func([]float32)
	openOutput  outputOpener
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		logger:      slog.Default(),
		lookahead:   transport.DefaultLookahead,
		subdivision: transport.DefaultSubdivision,
		masterGain:  0.8,
		eventBuffer: 64,
		openOutput:  openDevice,
	}
}

func WithLogger(l *slog.Logger) EngineOption {
	return func(cfg *engineConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithHeadless skips the audio device. The caller drives Process itself,
// as RenderSamples and tests do.
func WithHeadless() EngineOption {
	return func(cfg *engineConfig) {
		cfg.headless = true
	}
}

// WithLookahead sets how far ahead of its audio time each step is scheduled.
// It must cover the device buffer and the 5 ms fade-out of a pre-empted note.
func WithLookahead(d time.Duration) EngineOption {
	return func(cfg *engineConfig) {
		cfg.lookahead = d
	}
}

// WithSubdivision sets steps per beat (4 = sixteenth notes).
func WithSubdivision(n int) EngineOption {
	return func(cfg *engineConfig) {
		cfg.subdivision = n
	}
}

func WithMasterGain(gain float64) EngineOption {
	return func(cfg *engineConfig) {
		if gain < 0 {
			gain = 0
		}
		cfg.masterGain = gain
	}
}

// WithEventBuffer sets the capacity of Watch channels. Events are dropped
// when a watcher falls behind.
func WithEventBuffer(n int) EngineOption {
	return func(cfg *engineConfig) {
		if n > 0 {
			cfg.eventBuffer = n
		}
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) EngineOption {
	return func(cfg *engineConfig) {
		cfg.sampleTap = tap
	}
}

func withOutput(open outputOpener) EngineOption {
	return func(cfg *engineConfig) {
		cfg.openOutput = open
	}
}
