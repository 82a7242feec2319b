package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

type rampSource struct {
	calls int
}

func (s *rampSource) Process(dst []float32) {
	s.calls++
	for i := range dst {
		dst[i] = float32(i) / 10
	}
}

func TestStreamReaderEncodesFloat32LittleEndian(t *testing.T) {
	src := &rampSource{}
	r := NewStreamReader(src)

	p := make([]byte, 8*3+5)
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 24 {
		t.Fatalf("n = %d, want whole frames only (24)", n)
	}
	for i := 0; i < 6; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
		if got != float32(i)/10 {
			t.Fatalf("sample %d = %f, want %f", i, got, float32(i)/10)
		}
	}

	if n, err := r.Read(make([]byte, 7)); n != 0 || err != nil {
		t.Fatalf("short read = (%d, %v), want (0, nil)", n, err)
	}
	if src.calls != 1 {
		t.Fatalf("source called %d times, want 1", src.calls)
	}
}
