package beatgrid

import (
	"errors"
	"math"
	"testing"
)

func TestSessionDefaults(t *testing.T) {
	s := NewSession()
	g := s.Grid()
	if len(g.Channels) != 5 || g.Steps != 16 {
		t.Fatalf("grid = %d x %d, want 5 x 16", len(g.Channels), g.Steps)
	}
	for i, ch := range g.Channels {
		if !ch.Active {
			t.Fatalf("channel %d muted by default", i)
		}
	}
	if s.Tempo() != 120 || s.Playhead() != 0 {
		t.Fatalf("tempo %v playhead %d", s.Tempo(), s.Playhead())
	}
	if _, ok := s.CurrentTone(); ok {
		t.Fatalf("a tone is selected by default")
	}
}

func TestSessionToneIDsAreSequential(t *testing.T) {
	s := NewSession()
	a := s.AddTone(Tone{Sample: "/tones/cup.wav"})
	b := s.AddTone(Tone{Sample: "/tones/door.wav", Title: "door"})
	if a.ID != "000" || a.Title != "000" {
		t.Fatalf("first tone = %+v", a)
	}
	if b.ID != "001" || b.Title != "door" {
		t.Fatalf("second tone = %+v", b)
	}
	if len(s.Tones()) != 2 {
		t.Fatalf("tones = %d", len(s.Tones()))
	}
	if err := s.SelectTone("999"); err == nil {
		t.Fatalf("expected error selecting unknown tone")
	}
}

func TestSessionPlaceNote(t *testing.T) {
	s := NewSession()
	if _, err := s.PlaceNote(0, 0); err == nil {
		t.Fatalf("expected error without a selected tone")
	}
	tone := s.AddTone(Tone{Title: "cup", Sample: "/tones/cup.wav", Pitch: 3, Reverb: 4, Reversed: true})
	if err := s.SelectTone(tone.ID); err != nil {
		t.Fatalf("select: %v", err)
	}
	s.SetSemitone(2)
	n, err := s.PlaceNote(1, 5)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if n.Pitch != 5 || n.Reverb != 4 || !n.Reversed || n.Label != "cup+2" || n.Sample != "/tones/cup.wav" {
		t.Fatalf("note = %+v", n)
	}
	if got := s.Grid().At(1, 5); got != n {
		t.Fatalf("grid cell = %+v", got)
	}
	if _, err := s.PlaceNote(5, 0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
	if _, err := s.PlaceNote(0, 16); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}

	if n, err := s.ToggleNote(1, 5); err != nil || n != nil {
		t.Fatalf("toggle occupied = (%v, %v), want cleared", n, err)
	}
	if n, err := s.ToggleNote(1, 5); err != nil || n == nil {
		t.Fatalf("toggle empty = (%v, %v), want a note", n, err)
	}
	if err := s.ClearNote(1, 5); err != nil || s.Grid().At(1, 5) != nil {
		t.Fatalf("clear failed: %v", err)
	}
}

func TestNoteForNegativeSemitoneLabel(t *testing.T) {
	n := NoteFor(Tone{Title: "door", Pitch: 1}, -3)
	if n.Label != "door-3" || n.Pitch != -2 {
		t.Fatalf("note = %+v", n)
	}
}

func TestSessionGridIsASnapshot(t *testing.T) {
	s := NewSession()
	snap := s.Grid()
	if err := s.SetNote(0, 0, &Note{Sample: "a.wav"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.ToggleChannel(2); err != nil {
		t.Fatalf("toggle channel: %v", err)
	}
	if snap.At(0, 0) != nil || !snap.Channels[2].Active {
		t.Fatalf("snapshot changed after edits")
	}
	if s.Grid().Channels[2].Active {
		t.Fatalf("channel 2 not muted")
	}
	if err := s.ToggleChannel(9); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
}

func TestSessionTempoClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{120, 120},
		{30, 60},
		{500, 180},
		{math.NaN(), 60},
		{math.Inf(1), 180},
	}
	s := NewSession()
	for _, tc := range tests {
		if got := s.SetTempo(tc.in); got != tc.want || s.Tempo() != tc.want {
			t.Fatalf("SetTempo(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSessionReset(t *testing.T) {
	s := NewSession()
	s.SetPlayhead(7)
	s.Reset(2, 8)
	g := s.Grid()
	if len(g.Channels) != 2 || g.Steps != 8 || s.Playhead() != 0 {
		t.Fatalf("after reset: %d x %d playhead %d", len(g.Channels), g.Steps, s.Playhead())
	}
	s.SetPlayhead(20)
	if s.Playhead() != 7 {
		t.Fatalf("playhead = %d, want clamp to 7", s.Playhead())
	}
}
