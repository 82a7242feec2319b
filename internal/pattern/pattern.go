package pattern

// SampleRef names a decodable audio asset (a path or URL). It is the cache key
// for effect graphs.
type SampleRef string

// Note is the sound placed in one grid cell. Notes are never mutated after
// placement; editing a cell replaces the pointer.
type Note struct {
	Sample   SampleRef
	Pitch    int // absolute pitch offset in semitones
	Reverb   int // intensity 0..10
	Reversed bool
	Label    string
}

// Channel is one row of the grid. A nil entry in Notes is an empty cell.
type Channel struct {
	Active bool
	Notes  []*Note
}

// Grid is the full set of channels at one instant.
type Grid struct {
	Steps    int
	Channels []Channel
}

// NewGrid returns an empty grid with every channel active.
func NewGrid(channels, steps int) Grid {
	if channels < 0 {
		channels = 0
	}
	if steps < 0 {
		steps = 0
	}
	g := Grid{Steps: steps, Channels: make([]Channel, channels)}
	for i := range g.Channels {
		g.Channels[i] = Channel{Active: true, Notes: make([]*Note, steps)}
	}
	return g
}

// At returns the note at (channel, step), or nil when the cell is empty or
// out of range.
func (g Grid) At(channel, step int) *Note {
	if channel < 0 || channel >= len(g.Channels) {
		return nil
	}
	notes := g.Channels[channel].Notes
	if step < 0 || step >= len(notes) {
		return nil
	}
	return notes[step]
}

// Clone copies the channel and note slices. Notes themselves are shared.
func (g Grid) Clone() Grid {
	out := Grid{Steps: g.Steps, Channels: make([]Channel, len(g.Channels))}
	for i, ch := range g.Channels {
		notes := make([]*Note, len(ch.Notes))
		copy(notes, ch.Notes)
		out.Channels[i] = Channel{Active: ch.Active, Notes: notes}
	}
	return out
}

// Samples lists the distinct sample refs used by the grid, in channel then
// step order.
func (g Grid) Samples() []SampleRef {
	seen := make(map[SampleRef]struct{})
	var refs []SampleRef
	for _, ch := range g.Channels {
		for _, n := range ch.Notes {
			if n == nil {
				continue
			}
			if _, ok := seen[n.Sample]; ok {
				continue
			}
			seen[n.Sample] = struct{}{}
			refs = append(refs, n.Sample)
		}
	}
	return refs
}
