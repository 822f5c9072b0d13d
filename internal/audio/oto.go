package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoHost plays through the platform's default device via oto. oto lets the
// caller pick the stream parameters, so the requested Config becomes the
// device's default config. Only one oto context may exist per process.
type OtoHost struct {
	cfg     Config
	latency time.Duration

	once sync.Once
	ctx  *oto.Context
	err  error
}

// NewOtoHost returns a host that will request cfg from the system. The
// player buffer holds latency worth of frames, which bounds how late a
// volume change is heard.
func NewOtoHost(cfg Config, latency time.Duration) *OtoHost {
	cfg.BufferFrames = latencyFrames(latency, cfg.SampleRate)
	return &OtoHost{cfg: cfg, latency: latency}
}

func (h *OtoHost) Name() string { return "oto" }

// otoFormat maps a sample format onto oto's wire formats.
func otoFormat(f SampleFormat) (oto.Format, bool) {
	switch f {
	case FormatF32:
		return oto.FormatFloat32LE, true
	case FormatI16:
		return oto.FormatSignedInt16LE, true
	case FormatU8:
		return oto.FormatUnsignedInt8, true
	default:
		return 0, false
	}
}

// DefaultOutputDevice opens the oto context on first use.
func (h *OtoHost) DefaultOutputDevice() (Device, error) {
	h.once.Do(func() {
		format, ok := otoFormat(h.cfg.Format)
		if !ok {
			h.err = fmt.Errorf("%w: oto cannot play %s", ErrUnsupportedFormat, h.cfg.Format)
			return
		}
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   h.cfg.SampleRate,
			ChannelCount: h.cfg.Channels,
			Format:       format,
			BufferSize:   h.latency,
		})
		if err != nil {
			h.err = fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
			return
		}
		<-ready
		h.ctx = ctx
	})
	if h.err != nil {
		return nil, h.err
	}
	return &otoDevice{host: h}, nil
}

type otoDevice struct {
	host *OtoHost
}

func (d *otoDevice) Name() string { return "default" }

func (d *otoDevice) DefaultOutputConfig() (Config, error) {
	return d.host.cfg, nil
}

func (d *otoDevice) BuildOutputStream(cfg Config, data DataCallback, onError ErrorCallback) (Stream, error) {
	if cfg.Format != d.host.cfg.Format || cfg.Channels != d.host.cfg.Channels || cfg.SampleRate != d.host.cfg.SampleRate {
		return nil, fmt.Errorf("oto context is %s, stream asked for %s", d.host.cfg, cfg)
	}

	s := &otoStream{
		ctx:    d.host.ctx,
		closer: newCloser(),
	}
	s.player = d.host.ctx.NewPlayer(otoReader(data))
	// oto reads ahead half a second by default.
	s.player.SetBufferSize(cfg.BufferFrames * cfg.FrameSize())

	go watch(s.closer.done, time.Second, s.check, onError)
	return s, nil
}

// otoReader adapts the data callback to the io.Reader oto pulls from.
type otoReader DataCallback

func (r otoReader) Read(p []byte) (int, error) {
	return r(p), nil
}

type otoStream struct {
	ctx    *oto.Context
	player *oto.Player
	closer *closer
}

func (s *otoStream) Play() error {
	s.player.Play()
	return s.player.Err()
}

func (s *otoStream) Pause() error {
	s.player.Pause()
	return s.player.Err()
}

func (s *otoStream) Close() error {
	if !s.closer.close() {
		return nil
	}
	return s.player.Close()
}

func (s *otoStream) check() error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	return s.player.Err()
}
