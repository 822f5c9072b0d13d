package audio

import (
	"errors"
	"fmt"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

// PulseHost plays through the default sink of a PulseAudio (or PipeWire)
// server. The sink's rate and channel count become the default config.
type PulseHost struct {
	latency time.Duration
}

// NewPulseHost returns a host connecting to the server named by the usual
// PULSE_SERVER environment.
func NewPulseHost(latency time.Duration) *PulseHost {
	return &PulseHost{latency: latency}
}

func (h *PulseHost) Name() string { return "pulse" }

func (h *PulseHost) DefaultOutputDevice() (Device, error) {
	client, err := pulse.NewClient(pulse.ClientApplicationName("brownie"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
	}
	sink, err := client.DefaultSink()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
	}
	return &pulseDevice{host: h, client: client, sink: sink}, nil
}

type pulseDevice struct {
	host   *PulseHost
	client *pulse.Client
	sink   *pulse.Sink
}

func (d *pulseDevice) Name() string { return d.sink.Name() }

// DefaultOutputConfig reports the sink's native rate.
func (d *pulseDevice) DefaultOutputConfig() (Config, error) {
	cfg, err := sinkConfig(len(d.sink.Channels()), int(d.sink.SampleRate()), d.host.latency)
	if err != nil {
		return Config{}, fmt.Errorf("sink %q: %w", d.Name(), err)
	}
	return cfg, nil
}

// Close releases the server connection of a device no stream was built on.
func (d *pulseDevice) Close() error {
	d.client.Close()
	return nil
}

// sinkConfig builds the stream config for a sink. Streams are mono or
// stereo; the server remaps to the sink's layout.
func sinkConfig(channels, rate int, latency time.Duration) (Config, error) {
	cfg := Config{
		Format:     FormatF32,
		Channels:   min(channels, 2),
		SampleRate: rate,
	}
	if cfg.Channels <= 0 || cfg.SampleRate <= 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigUnavailable, cfg)
	}
	cfg.BufferFrames = latencyFrames(latency, rate)
	return cfg, nil
}

func pulseFormat(f SampleFormat) (byte, bool) {
	switch f {
	case FormatF32:
		return proto.FormatFloat32LE, true
	case FormatI16:
		return proto.FormatInt16LE, true
	case FormatI32:
		return proto.FormatInt32LE, true
	case FormatU8:
		return proto.FormatUint8, true
	default:
		return 0, false
	}
}

func (d *pulseDevice) BuildOutputStream(cfg Config, data DataCallback, onError ErrorCallback) (Stream, error) {
	format, ok := pulseFormat(cfg.Format)
	if !ok {
		return nil, fmt.Errorf("%w: pulse cannot play %s", ErrUnsupportedFormat, cfg.Format)
	}

	layout := pulse.PlaybackStereo
	if cfg.Channels == 1 {
		layout = pulse.PlaybackMono
	}

	stream, err := d.client.NewPlayback(
		pulse.NewReader(pulseReader(data), format),
		pulse.PlaybackSink(d.sink),
		pulse.PlaybackSampleRate(cfg.SampleRate),
		layout,
		pulse.PlaybackLatency(d.host.latency.Seconds()),
	)
	if err != nil {
		return nil, err
	}

	s := &pulseStream{client: d.client, stream: stream, closer: newCloser()}
	go watch(s.closer.done, time.Second, s.check, onError)
	return s, nil
}

type pulseReader DataCallback

func (r pulseReader) Read(p []byte) (int, error) {
	return r(p), nil
}

type pulseStream struct {
	client  *pulse.Client
	stream  *pulse.PlaybackStream
	closer  *closer
	started bool
}

var errUnderflow = errors.New("buffer underflow")

func (s *pulseStream) Play() error {
	if !s.started {
		s.stream.Start()
		s.started = true
	} else {
		s.stream.Resume()
	}
	return s.stream.Error()
}

func (s *pulseStream) Pause() error {
	s.stream.Pause()
	return s.stream.Error()
}

func (s *pulseStream) Close() error {
	if !s.closer.close() {
		return nil
	}
	s.stream.Close()
	s.client.Close()
	return nil
}

func (s *pulseStream) check() error {
	if err := s.stream.Error(); err != nil {
		return err
	}
	if s.stream.Underflow() {
		return errUnderflow
	}
	return nil
}
