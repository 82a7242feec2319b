package beatgrid

import (
	"time"

	"github.com/pkg/errors"
)

type EventKind int

const (
	// EventPlayhead fires once per pulse and on ResetPlayhead.
	EventPlayhead EventKind = iota
	// EventAssetLoadError reports a sample that failed to load.
	EventAssetLoadError
	// EventTriggerError reports a note that failed to start.
	EventTriggerError
	// EventNoteSkipped reports a note whose graph was still building.
	EventNoteSkipped
)

func (k EventKind) String() string {
	switch k {
	case EventPlayhead:
		return "playhead"
	case EventAssetLoadError:
		return "asset-load-error"
	case EventTriggerError:
		return "trigger-error"
	case EventNoteSkipped:
		return "note-skipped"
	}
	return "unknown"
}

// Event is delivered on the channel returned by Watch.
type Event struct {
	Kind EventKind
	// Step is the column just played, or -1 after a reset.
	Step int
	// Playhead is the column the next pulse will play.
	Playhead int
	// Frame and Time are when the pulse sounds, which is slightly ahead of
	// the moment the event is sent.
	Frame int64
	Time  time.Duration
	Ref   SampleRef
	Err   error
}

// eventForError classifies an error reported by the cache or scheduler.
func eventForError(err error) Event {
	ev := Event{Kind: EventTriggerError, Step: -1, Err: err}
	var terr *TriggerError
	if errors.As(err, &terr) {
		ev.Ref = terr.Ref
		ev.Step = terr.Step
	}
	var lerr *AssetLoadError
	switch {
	case errors.Is(err, ErrNotReady):
		ev.Kind = EventNoteSkipped
	case errors.As(err, &lerr):
		ev.Kind = EventAssetLoadError
		ev.Ref = lerr.Ref
	}
	return ev
}
