package noise

import (
	"fmt"
	"math/rand/v2"
)

const (
	// DefaultCutoff is the low-pass corner used when none is configured.
	DefaultCutoff = 40.0

	// step bounds the random walk increment: each sample moves by U[-step, step).
	step = 0.2
)

// Level is the live volume signal read once per generated sample. Positive
// values fade the envelope in, zero or negative values fade it out.
type Level interface {
	Load() int32
}

// Constant is a Level that never changes.
type Constant int32

// Load implements Level.
func (c Constant) Load() int32 { return int32(c) }

// FadeRate converts the current level into an envelope slope in units per
// second. The envelope advances by rate/sampleRate every sample.
type FadeRate func(level int32) float32

// VolumeFade scales the slope with the level: a full ramp takes half a second
// in either direction for a level of ±1.
func VolumeFade(level int32) float32 { return 2 * float32(level) }

// FixedFade ramps at a fixed 0.2 per second toward the level's direction,
// so a full fade takes five seconds whatever the level's magnitude.
func FixedFade(level int32) float32 {
	switch {
	case level > 0:
		return 0.2
	case level < 0:
		return -0.2
	default:
		return 0
	}
}

// ParseFade returns the fade rate named "volume" (VolumeFade) or "fixed"
// (FixedFade). The empty name selects VolumeFade.
func ParseFade(name string) (FadeRate, error) {
	switch name {
	case "", "volume":
		return VolumeFade, nil
	case "fixed":
		return FixedFade, nil
	default:
		return nil, fmt.Errorf("%w: fade %q", ErrInvalidParameter, name)
	}
}

// Config holds the generator parameters.
type Config struct {
	SampleRate float32
	Cutoff     float32  // Hz, DefaultCutoff when zero
	Seed       uint64   // zero picks a random seed
	Level      Level    // Constant(1) when nil
	Fade       FadeRate // VolumeFade when nil
}

// Generator produces brown noise one sample at a time. It is not safe for
// concurrent use; the audio callback owns it exclusively.
type Generator struct {
	rng        *rand.Rand
	level      Level
	rate       FadeRate
	sampleRate float32
	walk       float32
	fade       float32
	filter     LowPass
}

// NewGenerator returns a generator that starts from silence.
func NewGenerator(cfg Config) (*Generator, error) {
	if !(cfg.SampleRate > 0) {
		return nil, fmt.Errorf("%w: sample rate %v Hz", ErrInvalidParameter, cfg.SampleRate)
	}
	if cfg.Cutoff == 0 {
		cfg.Cutoff = DefaultCutoff
	}
	if cfg.Level == nil {
		cfg.Level = Constant(1)
	}
	if cfg.Fade == nil {
		cfg.Fade = VolumeFade
	}
	if cfg.Seed == 0 {
		cfg.Seed = rand.Uint64()
	}

	filter, err := NewLowPass(cfg.Cutoff, cfg.SampleRate)
	if err != nil {
		return nil, err
	}

	return &Generator{
		rng:        rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		level:      cfg.Level,
		rate:       cfg.Fade,
		sampleRate: cfg.SampleRate,
		filter:     filter,
	}, nil
}

// Next advances the walk and the envelope by one sample and returns the
// filtered output.
func (g *Generator) Next() float32 {
	change := (g.rng.Float32()*2 - 1) * step
	g.walk = clamp(g.walk+change, -1, 1)

	g.fade = clamp(g.fade+g.rate(g.level.Load())/g.sampleRate, 0, 1)

	return g.filter.Apply(g.fade * g.walk)
}

// Fill writes len(out) consecutive samples.
func (g *Generator) Fill(out []float32) {
	for i := range out {
		out[i] = g.Next()
	}
}

// Fade returns the current envelope position in [0, 1].
func (g *Generator) Fade() float32 { return g.fade }

// Walk returns the current random walk position in [-1, 1].
func (g *Generator) Walk() float32 { return g.walk }

// SampleRate returns the rate the envelope slope is normalised to.
func (g *Generator) SampleRate() float32 { return g.sampleRate }

// Cutoff returns the low-pass corner frequency.
func (g *Generator) Cutoff() float32 { return g.filter.Cutoff() }

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
