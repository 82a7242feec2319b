package beatgrid

import "github.com/cbegin/beatgrid-go/internal/pattern"

type (
	SampleRef = pattern.SampleRef
	Note      = pattern.Note
	Channel   = pattern.Channel
	Grid      = pattern.Grid
)

// NewGrid returns an empty grid with every channel active.
func NewGrid(channels, steps int) Grid {
	return pattern.NewGrid(channels, steps)
}
