package main

import (
	"testing"

	"github.com/cbegin/beatgrid-go"
)

func TestParsePattern(t *testing.T) {
	specs, steps, err := parsePattern("kick.wav:x...x...; snare.wav:....3---|x")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(specs) != 2 || steps != 9 {
		t.Fatalf("specs = %d steps = %d", len(specs), steps)
	}
	if specs[0].sample != "kick.wav" || specs[0].cells[0] != 0 || specs[0].cells[1] != -1 {
		t.Fatalf("kick = %+v", specs[0])
	}
	if specs[1].cells[4] != 3 || specs[1].cells[8] != 0 {
		t.Fatalf("snare = %+v", specs[1])
	}

	for _, bad := range []string{"", "nocells", "kick.wav:x?x"} {
		if _, _, err := parsePattern(bad); err == nil {
			t.Fatalf("parsePattern(%q) succeeded", bad)
		}
	}
}

func TestBuildSession(t *testing.T) {
	specs, steps, err := parsePattern("cup.wav:x.2.;cup.wav:.x..")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s, err := buildSession(specs, steps, beatgrid.Tone{Pitch: 1, Reverb: 4})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(s.Tones()) != 1 {
		t.Fatalf("tones = %d, want one per distinct sample", len(s.Tones()))
	}
	g := s.Grid()
	if g.Steps != 4 || len(g.Channels) != beatgrid.DefaultChannels {
		t.Fatalf("grid = %d x %d", len(g.Channels), g.Steps)
	}
	n := g.At(0, 2)
	if n == nil || n.Pitch != 3 || n.Reverb != 4 || n.Label != "cup.wav+2" {
		t.Fatalf("note = %+v", n)
	}
	if g.At(1, 1) == nil || g.At(1, 0) != nil {
		t.Fatalf("second channel misplaced")
	}
}
