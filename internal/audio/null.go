package audio

import (
	"sync/atomic"
	"time"
)

// NullHost renders in real time and discards the result. It stands in for a
// sound card on machines without one.
type NullHost struct {
	cfg Config
}

// NewNullHost returns a host whose only device reports cfg.
func NewNullHost(cfg Config) *NullHost {
	if cfg.BufferFrames <= 0 {
		cfg.BufferFrames = DefaultConfig().BufferFrames
	}
	return &NullHost{cfg: cfg}
}

func (h *NullHost) Name() string { return "null" }

func (h *NullHost) DefaultOutputDevice() (Device, error) {
	return &nullDevice{cfg: h.cfg}, nil
}

type nullDevice struct {
	cfg Config
}

func (d *nullDevice) Name() string { return "discard" }

func (d *nullDevice) DefaultOutputConfig() (Config, error) { return d.cfg, nil }

func (d *nullDevice) BuildOutputStream(cfg Config, data DataCallback, _ ErrorCallback) (Stream, error) {
	period := time.Duration(float64(time.Second) * float64(cfg.BufferFrames) / float64(cfg.SampleRate))
	s := &nullStream{closer: newCloser()}
	go s.run(period, make([]byte, cfg.BufferFrames*cfg.FrameSize()), data)
	return s, nil
}

type nullStream struct {
	playing atomic.Bool
	closer  *closer
}

// run plays the part of the device's audio thread.
func (s *nullStream) run(period time.Duration, buf []byte, data DataCallback) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-s.closer.done:
			return
		case <-ticker.C:
			if s.playing.Load() {
				data(buf)
			}
		}
	}
}

func (s *nullStream) Play() error {
	s.playing.Store(true)
	return nil
}

func (s *nullStream) Pause() error {
	s.playing.Store(false)
	return nil
}

func (s *nullStream) Close() error {
	s.closer.close()
	return nil
}
