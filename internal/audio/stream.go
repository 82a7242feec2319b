// Package audio streams engine output to the host audio device through
// ebiten's audio context.
package audio

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/pkg/errors"
)

const (
	// DefaultBufferSize keeps device latency under the scheduler lookahead.
	DefaultBufferSize = 20 * time.Millisecond
	readyPoll         = 10 * time.Millisecond
)

// SampleSource fills dst with interleaved stereo float32 frames. It is
// called from the audio goroutine.
type SampleSource interface {
	Process(dst []float32)
}

// StreamReader adapts a SampleSource to the little-endian float32 byte
// stream NewPlayerF32 reads.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		u := math.Float32bits(r.buf[i])
		binary.LittleEndian.PutUint32(p[i*4:], u)
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error { return nil }

type Player struct {
	context *ebitaudio.Context
	player  *ebitaudio.Player
	reader  io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, errors.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// NewPlayer opens a paused output stream pulling from source.
func NewPlayer(sampleRate int, source SampleSource) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, errors.Wrap(err, "open audio output")
	}
	pl.SetBufferSize(DefaultBufferSize)
	return &Player{
		context: ctx,
		player:  pl,
		reader:  reader,
	}, nil
}

// Resume starts the output and waits until the host clock is running.
// Browsers keep the context suspended until a user gesture, so this can
// block until ctx gives up.
func (p *Player) Resume(ctx context.Context) error {
	p.player.Play()
	if p.context.IsReady() {
		return nil
	}
	tick := time.NewTicker(readyPoll)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			p.player.Pause()
			return errors.Wrap(ctx.Err(), "audio context not ready")
		case <-tick.C:
			if p.context.IsReady() {
				return nil
			}
		}
	}
}

func (p *Player) Pause() { p.player.Pause() }

func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// Position returns the current playback position (what the listener actually hears).
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

func (p *Player) Close() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return errors.Wrap(err, "close audio output")
	}
	return p.reader.Close()
}
