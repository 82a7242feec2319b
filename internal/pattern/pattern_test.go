package pattern

import "testing"

func TestNewGridShape(t *testing.T) {
	g := NewGrid(5, 16)
	if g.Steps != 16 || len(g.Channels) != 5 {
		t.Fatalf("grid shape = %dx%d, want 5x16", len(g.Channels), g.Steps)
	}
	for i, ch := range g.Channels {
		if !ch.Active {
			t.Fatalf("channel %d should start active", i)
		}
		if len(ch.Notes) != 16 {
			t.Fatalf("channel %d has %d cells, want 16", i, len(ch.Notes))
		}
	}
}

func TestCloneDoesNotShareCells(t *testing.T) {
	g := NewGrid(1, 4)
	kick := &Note{Sample: "kick"}
	g.Channels[0].Notes[0] = kick

	c := g.Clone()
	c.Channels[0].Notes[1] = &Note{Sample: "snare"}
	c.Channels[0].Active = false

	if g.At(0, 1) != nil {
		t.Fatalf("clone write leaked into source grid")
	}
	if !g.Channels[0].Active {
		t.Fatalf("clone active flag leaked into source grid")
	}
	if c.At(0, 0) != kick {
		t.Fatalf("clone should share immutable notes")
	}
}

func TestSamplesAreDistinctAndOrdered(t *testing.T) {
	g := NewGrid(2, 4)
	g.Channels[0].Notes[2] = &Note{Sample: "snare"}
	g.Channels[0].Notes[0] = &Note{Sample: "kick"}
	g.Channels[1].Notes[1] = &Note{Sample: "kick"}
	g.Channels[1].Notes[3] = &Note{Sample: "hat"}

	got := g.Samples()
	want := []SampleRef{"kick", "snare", "hat"}
	if len(got) != len(want) {
		t.Fatalf("samples = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("samples = %v, want %v", got, want)
		}
	}
}

func TestAtOutOfRange(t *testing.T) {
	g := NewGrid(1, 2)
	if g.At(-1, 0) != nil || g.At(1, 0) != nil || g.At(0, 2) != nil {
		t.Fatalf("out of range lookups should return nil")
	}
}
