package beatgrid

import (
	"fmt"
	"math"
	"sync"

	"github.com/pkg/errors"
)

const (
	DefaultChannels = 5
	DefaultSteps    = 16
	DefaultTempo    = 120.0
	MinTempo        = 60.0
	MaxTempo        = 180.0
	// Semitones offered by the audition keys, counted up from the tone's base
	// pitch.
	AuditionSemitones = 8
)

// Tone is a sample in the library together with the settings it was saved
// with.
type Tone struct {
	ID       string
	Title    string
	Sample   SampleRef
	Pitch    int
	Reverb   int
	Reversed bool
}

// Params returns the tone's settings as audition base params.
func (t Tone) Params() AuditionParams {
	return AuditionParams{Pitch: t.Pitch, Reverb: t.Reverb, Reversed: t.Reversed}
}

// Session is an in-memory Source: the tone library, the grid being edited,
// the tempo and the playhead. All methods are safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	tones    []Tone
	nextSeq  int
	current  int // index into tones, -1 when none
	semitone int
	grid     Grid
	tempo    float64
	playhead int
}

// NewSession returns an empty 5 x 16 session at 120 BPM.
func NewSession() *Session {
	return &Session{
		current: -1,
		grid:    NewGrid(DefaultChannels, DefaultSteps),
		tempo:   DefaultTempo,
	}
}

// AddTone adds t to the library under the next sequence id ("000", "001",
// ...). An empty title defaults to the id.
func (s *Session) AddTone(t Tone) Tone {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = fmt.Sprintf("%03d", s.nextSeq)
	if t.Title == "" {
		t.Title = t.ID
	}
	s.nextSeq++
	s.tones = append(s.tones, t)
	return t
}

func (s *Session) Tones() []Tone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tone, len(s.tones))
	copy(out, s.tones)
	return out
}

// SelectTone makes the tone with id the one new notes are placed with.
func (s *Session) SelectTone(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tones {
		if t.ID == id {
			s.current = i
			return nil
		}
	}
	return errors.Errorf("no tone %q", id)
}

func (s *Session) CurrentTone() (Tone, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current < 0 {
		return Tone{}, false
	}
	return s.tones[s.current], true
}

// SetSemitone selects the offset added to the tone's pitch for new notes.
func (s *Session) SetSemitone(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.semitone = n
}

func (s *Session) Semitone() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.semitone
}

// NoteFor builds the note the board places for a tone at a semitone offset.
func NoteFor(t Tone, semitone int) *Note {
	label := fmt.Sprintf("%s+%d", t.Title, semitone)
	if semitone < 0 {
		label = fmt.Sprintf("%s%d", t.Title, semitone)
	}
	return &Note{
		Sample:   t.Sample,
		Pitch:    t.Pitch + semitone,
		Reverb:   t.Reverb,
		Reversed: t.Reversed,
		Label:    label,
	}
}

// PlaceNote puts the current tone at the current semitone into a cell.
func (s *Session) PlaceNote(ch, step int) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 {
		return nil, errors.New("no tone selected")
	}
	if !s.inRange(ch, step) {
		return nil, errors.Wrapf(ErrOutOfRange, "channel %d step %d", ch, step)
	}
	n := NoteFor(s.tones[s.current], s.semitone)
	s.grid.Channels[ch].Notes[step] = n
	return n, nil
}

// ToggleNote clears an occupied cell or places the current tone in an empty
// one, like clicking a board cell. It returns the note now in the cell.
func (s *Session) ToggleNote(ch, step int) (*Note, error) {
	s.mu.Lock()
	if s.inRange(ch, step) && s.grid.Channels[ch].Notes[step] != nil {
		s.grid.Channels[ch].Notes[step] = nil
		s.mu.Unlock()
		return nil, nil
	}
	s.mu.Unlock()
	return s.PlaceNote(ch, step)
}

// SetNote replaces a cell. A nil note clears it.
func (s *Session) SetNote(ch, step int, n *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRange(ch, step) {
		return errors.Wrapf(ErrOutOfRange, "channel %d step %d", ch, step)
	}
	s.grid.Channels[ch].Notes[step] = n
	return nil
}

func (s *Session) ClearNote(ch, step int) error {
	return s.SetNote(ch, step, nil)
}

// ToggleChannel mutes or unmutes a channel.
func (s *Session) ToggleChannel(ch int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch < 0 || ch >= len(s.grid.Channels) {
		return errors.Wrapf(ErrOutOfRange, "channel %d", ch)
	}
	s.grid.Channels[ch].Active = !s.grid.Channels[ch].Active
	return nil
}

// Reset replaces the grid with an empty one and rewinds the playhead.
func (s *Session) Reset(channels, steps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grid = NewGrid(channels, steps)
	s.playhead = 0
}

func (s *Session) inRange(ch, step int) bool {
	return ch >= 0 && ch < len(s.grid.Channels) && step >= 0 && step < s.grid.Steps
}

// Grid returns a snapshot of the grid. Later edits do not affect it.
func (s *Session) Grid() Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid.Clone()
}

// SetTempo stores bpm clamped to MinTempo..MaxTempo and returns the stored
// value.
func (s *Session) SetTempo(bpm float64) float64 {
	if math.IsNaN(bpm) || bpm < MinTempo {
		bpm = MinTempo
	}
	if bpm > MaxTempo {
		bpm = MaxTempo
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tempo = bpm
	return bpm
}

func (s *Session) Tempo() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tempo
}

func (s *Session) Playhead() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playhead
}

// SetPlayhead stores the playhead, clamped into the grid.
func (s *Session) SetPlayhead(step int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if step < 0 || s.grid.Steps == 0 {
		step = 0
	}
	if s.grid.Steps > 0 && step >= s.grid.Steps {
		step = s.grid.Steps - 1
	}
	s.playhead = step
}
