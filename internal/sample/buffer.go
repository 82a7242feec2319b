package sample

import "time"

// Buffer is decoded audio as interleaved stereo float32 frames at SampleRate.
// Buffers are shared between graphs and treated as read-only once built.
type Buffer struct {
	SampleRate int
	Data       []float32
}

// Frames returns the number of stereo frames.
func (b *Buffer) Frames() int {
	if b == nil {
		return 0
	}
	return len(b.Data) / 2
}

func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// Reversed returns a new buffer with the frame order flipped.
func (b *Buffer) Reversed() *Buffer {
	n := b.Frames()
	out := &Buffer{SampleRate: b.SampleRate, Data: make([]float32, n*2)}
	for i := 0; i < n; i++ {
		j := n - 1 - i
		out.Data[i*2] = b.Data[j*2]
		out.Data[i*2+1] = b.Data[j*2+1]
	}
	return out
}
