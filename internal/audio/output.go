package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"github.com/decred/slog"
	"github.com/linuxmatters/brownie/internal/noise"
)

// Meter exposes what the audio callback last rendered. The callback stores
// into it once per buffer; any goroutine may read it.
type Meter struct {
	envelope atomic.Uint32
	peak     atomic.Uint32
	frames   atomic.Uint64
	buffers  atomic.Uint64
}

// Envelope returns the fade envelope at the end of the last buffer.
func (m *Meter) Envelope() float32 { return math.Float32frombits(m.envelope.Load()) }

// Peak returns the largest absolute sample value of the last buffer.
func (m *Meter) Peak() float32 { return math.Float32frombits(m.peak.Load()) }

// Frames returns the number of frames rendered so far.
func (m *Meter) Frames() uint64 { return m.frames.Load() }

// Buffers returns the number of callbacks served so far.
func (m *Meter) Buffers() uint64 { return m.buffers.Load() }

func (m *Meter) publish(envelope, peak float32, frames int) {
	m.envelope.Store(math.Float32bits(envelope))
	m.peak.Store(math.Float32bits(peak))
	m.frames.Add(uint64(frames))
	m.buffers.Add(1)
}

// WriteData fills out with one generated sample per frame, copied to every
// channel, and returns the peak absolute value before conversion.
func WriteData[T Sample](out []T, channels int, next func() float32) float32 {
	var peak float32
	for i := 0; i+channels <= len(out); i += channels {
		v := next()
		if a := float32(math.Abs(float64(v))); a > peak {
			peak = a
		}
		s := FromFloat[T](v)
		for c := 0; c < channels; c++ {
			out[i+c] = s
		}
	}
	return peak
}

// renderer owns the generator for the lifetime of a stream. Only the device
// callback touches it.
type renderer[T Sample] struct {
	gen       *noise.Generator
	next      func() float32
	meter     *Meter
	channels  int
	frameSize int
	scratch   []T
}

func newRenderer[T Sample](cfg Config, gen *noise.Generator, meter *Meter) DataCallback {
	frames := cfg.BufferFrames
	if frames <= 0 {
		frames = DefaultConfig().BufferFrames
	}
	r := &renderer[T]{
		gen:       gen,
		next:      gen.Next,
		meter:     meter,
		channels:  cfg.Channels,
		frameSize: cfg.FrameSize(),
		scratch:   make([]T, frames*cfg.Channels),
	}
	return r.render
}

func (r *renderer[T]) render(p []byte) int {
	frames := len(p) / r.frameSize
	if frames == 0 {
		return 0
	}

	// Requests larger than BufferFrames are filled in scratch-sized chunks.
	chunk := len(r.scratch) / r.channels
	var peak float32
	for done := 0; done < frames; {
		n := min(chunk, frames-done)
		buf := r.scratch[:n*r.channels]
		peak = max(peak, WriteData(buf, r.channels, r.next))
		encode(p[done*r.frameSize:], buf)
		done += n
	}

	r.meter.publish(r.gen.Fade(), peak, frames)
	return frames * r.frameSize
}

// newCallback dispatches on the negotiated format. Everything except the
// final sample conversion is shared.
func newCallback(cfg Config, gen *noise.Generator, meter *Meter) (DataCallback, error) {
	switch cfg.Format {
	case FormatI8:
		return newRenderer[int8](cfg, gen, meter), nil
	case FormatI16:
		return newRenderer[int16](cfg, gen, meter), nil
	case FormatI32:
		return newRenderer[int32](cfg, gen, meter), nil
	case FormatI64:
		return newRenderer[int64](cfg, gen, meter), nil
	case FormatU8:
		return newRenderer[uint8](cfg, gen, meter), nil
	case FormatU16:
		return newRenderer[uint16](cfg, gen, meter), nil
	case FormatU32:
		return newRenderer[uint32](cfg, gen, meter), nil
	case FormatU64:
		return newRenderer[uint64](cfg, gen, meter), nil
	case FormatF32:
		return newRenderer[float32](cfg, gen, meter), nil
	case FormatF64:
		return newRenderer[float64](cfg, gen, meter), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, cfg.Format)
	}
}

// Options configures Open.
type Options struct {
	Cutoff  float32     // low-pass corner in Hz, noise.DefaultCutoff when zero
	Seed    uint64      // zero picks a random seed
	Level   noise.Level    // volume cell read once per sample
	Fade    noise.FadeRate // noise.VolumeFade when nil
	Meter   *Meter      // optional; allocated when nil
	OnError ErrorCallback
	Log     slog.Logger
}

// Info describes an open output.
type Info struct {
	Host   string
	Device string
	Config Config
	Cutoff float32
}

// Output is an open stream together with the generator feeding it. It is
// owned by a single goroutine.
type Output struct {
	stream Stream
	info   Info
	meter  *Meter
	log    slog.Logger
	paused bool
	errors atomic.Uint64
}

// Open selects the host's default output device and config, builds a stream
// for the negotiated sample format and starts it.
func Open(host Host, opts Options) (*Output, error) {
	if host == nil {
		return nil, fmt.Errorf("%w: no host", ErrDeviceNotFound)
	}
	if opts.Log == nil {
		opts.Log = slog.Disabled
	}
	if opts.Meter == nil {
		opts.Meter = &Meter{}
	}

	device, err := host.DefaultOutputDevice()
	if err != nil {
		return nil, classify(ErrDeviceNotFound, host.Name(), err)
	}
	if device == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, host.Name())
	}
	owned := false
	defer func() {
		if !owned {
			closeDevice(device)
		}
	}()

	cfg, err := device.DefaultOutputConfig()
	if err != nil {
		return nil, classify(ErrConfigUnavailable, device.Name(), err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	opts.Log.Debugf("Device %q default config: %s", device.Name(), cfg)

	gen, err := noise.NewGenerator(noise.Config{
		SampleRate: float32(cfg.SampleRate),
		Cutoff:     opts.Cutoff,
		Seed:       opts.Seed,
		Level:      opts.Level,
		Fade:       opts.Fade,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create noise generator: %w", err)
	}

	data, err := newCallback(cfg, gen, opts.Meter)
	if err != nil {
		return nil, err
	}

	out := &Output{
		meter: opts.Meter,
		log:   opts.Log,
		info: Info{
			Host:   host.Name(),
			Device: device.Name(),
			Config: cfg,
			Cutoff: gen.Cutoff(),
		},
	}

	onError := func(err error) {
		out.errors.Add(1)
		cerr := &CallbackError{Host: host.Name(), Err: err}
		out.log.Warnf("%v", cerr)
		if opts.OnError != nil {
			opts.OnError(cerr)
		}
	}

	stream, err := device.BuildOutputStream(cfg, data, onError)
	if err != nil {
		return nil, classify(ErrStreamBuild, device.Name(), err)
	}
	owned = true
	if err := stream.Play(); err != nil {
		_ = stream.Close()
		return nil, classify(ErrStreamBuild, device.Name(), err)
	}
	out.stream = stream

	out.log.Infof("Playing on %s/%s (%s, cutoff %.1f Hz)", out.info.Host, out.info.Device, cfg, out.info.Cutoff)
	return out, nil
}

// closeDevice releases a device that holds resources of its own.
func closeDevice(device Device) {
	if c, ok := device.(io.Closer); ok {
		_ = c.Close()
	}
}

// classify wraps err with sentinel unless it already carries one of the
// construction errors.
func classify(sentinel error, what string, err error) error {
	for _, known := range []error{ErrDeviceNotFound, ErrConfigUnavailable, ErrUnsupportedFormat, ErrStreamBuild} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %w", sentinel, what, err)
}

// Info returns the negotiated device and format.
func (o *Output) Info() Info { return o.info }

// Meter returns the meter the callback publishes to.
func (o *Output) Meter() *Meter { return o.meter }

// Errors returns the number of runtime errors reported by the stream.
func (o *Output) Errors() uint64 { return o.errors.Load() }

// Paused reports whether the device is suspended.
func (o *Output) Paused() bool { return o.paused }

// Pause stops the device pulling buffers. Generator state is kept.
func (o *Output) Pause() error {
	if o.paused {
		return nil
	}
	if err := o.stream.Pause(); err != nil {
		return fmt.Errorf("failed to pause stream: %w", err)
	}
	o.paused = true
	o.log.Debugf("Stream paused")
	return nil
}

// Resume restarts a paused device.
func (o *Output) Resume() error {
	if !o.paused {
		return nil
	}
	if err := o.stream.Play(); err != nil {
		return fmt.Errorf("failed to resume stream: %w", err)
	}
	o.paused = false
	o.log.Debugf("Stream resumed")
	return nil
}

// Close stops and releases the stream. The last in-flight buffer may still
// complete.
func (o *Output) Close() error {
	if o.stream == nil {
		return nil
	}
	err := o.stream.Close()
	o.stream = nil
	return err
}
