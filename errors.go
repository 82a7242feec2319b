package beatgrid

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/cbegin/beatgrid-go/internal/graph"
	"github.com/cbegin/beatgrid-go/internal/sequencer"
	"github.com/cbegin/beatgrid-go/internal/transport"
)

var (
	ErrNotReady     = graph.ErrNotReady
	ErrDisposed     = graph.ErrDisposed
	ErrClosed       = graph.ErrClosed
	ErrInvalidTempo = transport.ErrInvalidTempo
	// ErrSuperseded is delivered to a SetSample caller whose build finished
	// after a newer SetSample call.
	ErrSuperseded = errors.New("audition sample superseded")
	// ErrOutOfRange reports a channel or step outside the grid.
	ErrOutOfRange = errors.New("grid position out of range")
)

type (
	// AssetLoadError reports a sample that failed to load or decode.
	AssetLoadError = graph.AssetLoadError
	// TriggerError reports a note that could not be played on a pulse.
	TriggerError = sequencer.TriggerError
)

// ClockResumeError is returned by Start when the audio output could not be
// opened or resumed. The transport stays stopped.
type ClockResumeError struct {
	Err error
}

func (e *ClockResumeError) Error() string {
	return fmt.Sprintf("resume audio clock: %v", e.Err)
}

func (e *ClockResumeError) Unwrap() error { return e.Err }
