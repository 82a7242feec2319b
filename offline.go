package beatgrid

import "context"

const offlineBlockFrames = 512

// RenderSamples plays src from step 0 for the given duration without an
// audio device and returns the interleaved stereo output. Every sample the
// grid uses is loaded before the first step.
func RenderSamples(ctx context.Context, src Source, loader Loader, sampleRate int, seconds float64, opts ...EngineOption) ([]float32, error) {
	opts = append(opts, WithHeadless())
	e, err := NewEngine(sampleRate, src, loader, opts...)
	if err != nil {
		return nil, err
	}
	defer e.Close()
	if err := e.Preload(ctx); err != nil {
		return nil, err
	}
	if err := e.Start(ctx); err != nil {
		return nil, err
	}
	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*2)
	for off := 0; off < frames; off += offlineBlockFrames {
		end := off + offlineBlockFrames
		if end > frames {
			end = frames
		}
		e.Process(out[off*2 : end*2])
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
