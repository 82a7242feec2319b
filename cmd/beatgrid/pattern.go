package main

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/cbegin/beatgrid-go"
)

// channelSpec is one parsed "sample:cells" entry of -pattern.
type channelSpec struct {
	sample beatgrid.SampleRef
	// cells holds the semitone offset per step, -1 for a rest.
	cells []int
}

// parsePattern reads "kick.wav:x...x...;snare.wav:....x..." style patterns.
// In the cells 'x' plays the sample at its base pitch, a digit plays it that
// many semitones up and '.' or '-' is a rest.
func parsePattern(text string) ([]channelSpec, int, error) {
	var specs []channelSpec
	steps := 0
	for _, part := range strings.Split(text, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.LastIndex(part, ":")
		if i <= 0 {
			return nil, 0, errors.Errorf("pattern %q: want sample:cells", part)
		}
		spec := channelSpec{sample: beatgrid.SampleRef(strings.TrimSpace(part[:i]))}
		for _, c := range strings.TrimSpace(part[i+1:]) {
			switch {
			case c == 'x' || c == 'X':
				spec.cells = append(spec.cells, 0)
			case c >= '0' && c <= '9':
				spec.cells = append(spec.cells, int(c-'0'))
			case c == '.' || c == '-':
				spec.cells = append(spec.cells, -1)
			case c == ' ' || c == '|':
			default:
				return nil, 0, errors.Errorf("pattern %q: unexpected %q", part, c)
			}
		}
		if len(spec.cells) > steps {
			steps = len(spec.cells)
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, 0, errors.New("empty pattern")
	}
	return specs, steps, nil
}

// buildSession loads the parsed pattern into a session the way the board
// does: one tone per sample, notes placed at the selected semitone.
func buildSession(specs []channelSpec, steps int, base beatgrid.Tone) (*beatgrid.Session, error) {
	s := beatgrid.NewSession()
	channels := len(specs)
	if channels < beatgrid.DefaultChannels {
		channels = beatgrid.DefaultChannels
	}
	s.Reset(channels, steps)
	tones := make(map[beatgrid.SampleRef]string)
	for ch, spec := range specs {
		id, ok := tones[spec.sample]
		if !ok {
			t := base
			t.Sample = spec.sample
			t.Title = string(spec.sample)
			id = s.AddTone(t).ID
			tones[spec.sample] = id
		}
		if err := s.SelectTone(id); err != nil {
			return nil, err
		}
		for step, semi := range spec.cells {
			if semi < 0 {
				continue
			}
			s.SetSemitone(semi)
			if _, err := s.PlaceNote(ch, step); err != nil {
				return nil, err
			}
		}
	}
	s.SetSemitone(0)
	return s, nil
}
