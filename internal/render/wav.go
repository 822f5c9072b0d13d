// Package render synthesises brown noise offline and writes it as PCM WAV.
package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/decred/slog"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/linuxmatters/brownie/internal/audio"
	"github.com/linuxmatters/brownie/internal/control"
	"github.com/linuxmatters/brownie/internal/noise"
)

// ErrInvalidOptions is returned for a rate, channel count, bit depth or
// duration that cannot be rendered.
var ErrInvalidOptions = errors.New("invalid render options")

// chunkFrames is the number of frames encoded per write.
const chunkFrames = 4096

// wavPCM is the WAVE format tag for integer PCM.
const wavPCM = 1

// Options configures a render.
type Options struct {
	SampleRate int
	Channels   int
	BitDepth   int // 8, 16, 24 or 32
	Duration   time.Duration
	Cutoff     float32        // noise.DefaultCutoff when zero
	Fade       noise.FadeRate // noise.VolumeFade when nil
	Seed       uint64  // zero picks a random seed

	// FadeOut mutes the generator one fade length before the end (half a
	// second with VolumeFade) so the file finishes in silence.
	FadeOut bool

	Log slog.Logger
}

// DefaultOptions returns a one minute 16-bit stereo render at 44.1 kHz.
func DefaultOptions() Options {
	return Options{
		SampleRate: 44100,
		Channels:   2,
		BitDepth:   16,
		Duration:   time.Minute,
		FadeOut:    true,
	}
}

// Result summarises a finished render.
type Result struct {
	Frames int
	Peak   float32
	Cutoff float32
}

func (o Options) validate() error {
	switch {
	case o.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidOptions, o.SampleRate)
	case o.Channels <= 0:
		return fmt.Errorf("%w: %d channels", ErrInvalidOptions, o.Channels)
	case o.Duration <= 0:
		return fmt.Errorf("%w: duration %s", ErrInvalidOptions, o.Duration)
	}
	switch o.BitDepth {
	case 8, 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("%w: %d-bit", ErrInvalidOptions, o.BitDepth)
	}
}

// quantize maps a sample in [-1, 1] to the integer range WAV uses for the
// bit depth. 8-bit WAV is unsigned.
func quantize(x float32, bits int) int {
	switch bits {
	case 8:
		return int(audio.FromFloat[uint8](x))
	case 16:
		return int(audio.FromFloat[int16](x))
	case 24:
		return int(audio.FromFloat[int32](x) >> 8)
	default:
		return int(audio.FromFloat[int32](x))
	}
}

// fadeFrames is the length of a full fade-out from full scale.
func fadeFrames(fade noise.FadeRate, rate int) int {
	slope := math.Abs(float64(fade(control.Muted)))
	if slope == 0 {
		return 0
	}
	return int(math.Ceil(float64(rate) / slope))
}

// WAV renders opts.Duration of noise into w. The generator runs at full
// volume, fading in over the first half second.
func WAV(w io.WriteSeeker, opts Options) (Result, error) {
	if opts.Log == nil {
		opts.Log = slog.Disabled
	}
	if err := opts.validate(); err != nil {
		return Result{}, err
	}
	if opts.Fade == nil {
		opts.Fade = noise.VolumeFade
	}

	volume := control.NewVolume(control.Unmuted)
	gen, err := noise.NewGenerator(noise.Config{
		SampleRate: float32(opts.SampleRate),
		Cutoff:     opts.Cutoff,
		Seed:       opts.Seed,
		Level:      volume,
		Fade:       opts.Fade,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to create noise generator: %w", err)
	}

	total := int(math.Round(opts.Duration.Seconds() * float64(opts.SampleRate)))
	if total == 0 {
		return Result{}, fmt.Errorf("%w: duration %s is shorter than one frame", ErrInvalidOptions, opts.Duration)
	}
	fadeAt := -1
	if opts.FadeOut {
		fadeAt = max(0, total-fadeFrames(opts.Fade, opts.SampleRate))
	}

	opts.Log.Infof("Rendering %s of %d-bit %d ch @ %d Hz (cutoff %.1f Hz)",
		opts.Duration, opts.BitDepth, opts.Channels, opts.SampleRate, gen.Cutoff())

	enc := wav.NewEncoder(w, opts.SampleRate, opts.BitDepth, opts.Channels, wavPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: opts.Channels, SampleRate: opts.SampleRate},
		Data:           make([]int, chunkFrames*opts.Channels),
		SourceBitDepth: opts.BitDepth,
	}

	var peak float32
	for frame := 0; frame < total; {
		n := min(chunkFrames, total-frame)
		data := buf.Data[:n*opts.Channels]
		for i := 0; i < n; i++ {
			if frame+i == fadeAt {
				volume.Apply(control.Mute)
				opts.Log.Debugf("Fade-out starts at frame %d", fadeAt)
			}
			x := gen.Next()
			peak = max(peak, float32(math.Abs(float64(x))))
			v := quantize(x, opts.BitDepth)
			for c := 0; c < opts.Channels; c++ {
				data[i*opts.Channels+c] = v
			}
		}
		buf.Data = data
		if err := enc.Write(buf); err != nil {
			return Result{}, fmt.Errorf("failed to write samples: %w", err)
		}
		buf.Data = buf.Data[:cap(buf.Data)]
		frame += n
	}

	if err := enc.Close(); err != nil {
		return Result{}, fmt.Errorf("failed to finalise WAV header: %w", err)
	}

	res := Result{Frames: total, Peak: peak, Cutoff: gen.Cutoff()}
	opts.Log.Debugf("Rendered %d frames, peak %.3f", res.Frames, res.Peak)
	return res, nil
}

// WriteFile renders into a new file at path, replacing any existing file.
func WriteFile(path string, opts Options) (Result, error) {
	f, err := os.Create(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create output file: %w", err)
	}

	res, err := WAV(f, opts)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close output file: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(path)
		return Result{}, err
	}
	return res, nil
}
