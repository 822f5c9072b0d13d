// Package noise synthesises brown noise: a clamped random walk, scaled by a
// fade envelope and smoothed by a single-pole low-pass filter.
package noise

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter is returned when a filter or generator is constructed
// with a non-positive frequency or sample rate.
var ErrInvalidParameter = errors.New("invalid parameter")

// LowPass is a single-pole RC low-pass filter (an exponential moving average
// with a fixed gain). The previous output is its entire memory.
type LowPass struct {
	cutoff     float32
	sampleRate float32
	alpha      float32
	prev       float32
}

// NewLowPass creates a filter with the given cutoff and sample rate, both in Hz.
func NewLowPass(cutoff, sampleRate float32) (LowPass, error) {
	if !(cutoff > 0) || math.IsInf(float64(cutoff), 0) {
		return LowPass{}, fmt.Errorf("%w: cutoff %v Hz", ErrInvalidParameter, cutoff)
	}
	if !(sampleRate > 0) || math.IsInf(float64(sampleRate), 0) {
		return LowPass{}, fmt.Errorf("%w: sample rate %v Hz", ErrInvalidParameter, sampleRate)
	}

	rc := 1 / (2 * math.Pi * float64(cutoff))
	dt := 1 / float64(sampleRate)

	return LowPass{
		cutoff:     cutoff,
		sampleRate: sampleRate,
		alpha:      float32(dt / (rc + dt)),
	}, nil
}

// Apply filters one input sample and returns the output sample.
func (f *LowPass) Apply(input float32) float32 {
	out := f.prev + f.alpha*(input-f.prev)
	f.prev = out
	return out
}

// Cutoff returns the cutoff frequency in Hz.
func (f *LowPass) Cutoff() float32 { return f.cutoff }

// Reset clears the filter memory.
func (f *LowPass) Reset() { f.prev = 0 }
