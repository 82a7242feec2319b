package graph

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/cbegin/beatgrid-go/internal/pattern"
)

var (
	// ErrDisposed is returned when starting playback on a torn-down graph.
	ErrDisposed = errors.New("graph disposed")
	// ErrClosed is returned by a cache after DisposeAll.
	ErrClosed = errors.New("graph cache closed")
	// ErrNotReady means the graph for a sample, or its rendering for a note's
	// pitch and direction, is still being built.
	ErrNotReady = errors.New("graph not ready")
)

// AssetLoadError reports a sample that failed to load or decode. The cache
// keeps nothing for the sample, so the next request retries.
type AssetLoadError struct {
	Ref pattern.SampleRef
	Err error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("load sample %q: %v", e.Ref, e.Err)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }
