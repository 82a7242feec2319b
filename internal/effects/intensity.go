package effects

import "math"

// MaxIntensity is the top of the user-facing reverb scale.
const MaxIntensity = 10

// ReverbParams are the concrete settings of the reverb stage.
type ReverbParams struct {
	Wet       float64 // 0..1
	RoomSize  float64 // 0.1..1.0
	Dampening float64 // lowpass cutoff in Hz, 2000..5000
}

// DefaultReverbParams is what a freshly built graph starts with.
var DefaultReverbParams = MapIntensity(0)

// MapIntensity maps an intensity on the 0..10 scale onto reverb settings.
// Non-finite input counts as 0; everything else is clamped before mapping.
func MapIntensity(level float64) ReverbParams {
	if math.IsNaN(level) || math.IsInf(level, 0) {
		level = 0
	}
	c := clamp(level, 0, MaxIntensity) / MaxIntensity
	return ReverbParams{
		Wet:       c,
		RoomSize:  0.1 + c*0.9,
		Dampening: 2000 + c*3000,
	}
}

// MapIntensityLevel is MapIntensity for the integer slider values notes carry.
func MapIntensityLevel(level int) ReverbParams {
	return MapIntensity(float64(level))
}
