// Package audiotest provides an audio host whose callback is clocked by the
// test, so engine behaviour can be checked without a sound card.
package audiotest

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linuxmatters/brownie/internal/audio"
)

// Host is a stub audio host. Set the error fields before opening a stream to
// simulate missing devices or rejected configurations.
type Host struct {
	Config    audio.Config
	DeviceErr error // returned by DefaultOutputDevice
	ConfigErr error // returned by DefaultOutputConfig
	BuildErr  error // returned by BuildOutputStream

	mu      sync.Mutex
	streams []*Stream
	built   chan *Stream
	closes  atomic.Int32
}

// New returns a host whose device reports cfg.
func New(cfg audio.Config) *Host {
	return &Host{Config: cfg, built: make(chan *Stream, 16)}
}

func (h *Host) Name() string { return "test" }

func (h *Host) DefaultOutputDevice() (audio.Device, error) {
	if h.DeviceErr != nil {
		return nil, h.DeviceErr
	}
	return &device{host: h}, nil
}

// Stream waits up to timeout for the next stream built on this host.
func (h *Host) Stream(timeout time.Duration) (*Stream, error) {
	select {
	case s := <-h.built:
		return s, nil
	case <-time.After(timeout):
		return nil, errors.New("audiotest: no stream built")
	}
}

// Streams returns every stream built so far.
func (h *Host) Streams() []*Stream {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Stream(nil), h.streams...)
}

// DeviceCloses counts devices released without a stream taking them over.
func (h *Host) DeviceCloses() int { return int(h.closes.Load()) }

type device struct {
	host *Host
}

func (d *device) Name() string { return "stub" }

func (d *device) Close() error {
	d.host.closes.Add(1)
	return nil
}

func (d *device) DefaultOutputConfig() (audio.Config, error) {
	if d.host.ConfigErr != nil {
		return audio.Config{}, d.host.ConfigErr
	}
	return d.host.Config, nil
}

func (d *device) BuildOutputStream(cfg audio.Config, data audio.DataCallback, onError audio.ErrorCallback) (audio.Stream, error) {
	if d.host.BuildErr != nil {
		return nil, d.host.BuildErr
	}
	s := &Stream{cfg: cfg, data: data, onError: onError}

	d.host.mu.Lock()
	d.host.streams = append(d.host.streams, s)
	d.host.mu.Unlock()

	select {
	case d.host.built <- s:
	default:
	}
	return s, nil
}

// Stream records play/pause transitions and lets the test pull buffers.
type Stream struct {
	cfg     audio.Config
	data    audio.DataCallback
	onError audio.ErrorCallback

	playing atomic.Bool
	closed  atomic.Bool
	plays   atomic.Int32
	pauses  atomic.Int32
}

func (s *Stream) Play() error {
	s.plays.Add(1)
	s.playing.Store(true)
	return nil
}

func (s *Stream) Pause() error {
	s.pauses.Add(1)
	s.playing.Store(false)
	return nil
}

func (s *Stream) Close() error {
	s.closed.Store(true)
	s.playing.Store(false)
	return nil
}

// Config returns the config the stream was built with.
func (s *Stream) Config() audio.Config { return s.cfg }

// Playing reports whether the device is pulling buffers.
func (s *Stream) Playing() bool { return s.playing.Load() }

// Closed reports whether Close was called.
func (s *Stream) Closed() bool { return s.closed.Load() }

// Plays and Pauses count the transitions requested by the engine.
func (s *Stream) Plays() int  { return int(s.plays.Load()) }
func (s *Stream) Pauses() int { return int(s.pauses.Load()) }

// Pull runs the callback for one buffer of the given number of frames, as a
// device would. It returns nil when the stream is paused or closed. Calls
// must come from a single goroutine.
func (s *Stream) Pull(frames int) []byte {
	if !s.playing.Load() {
		return nil
	}
	buf := make([]byte, frames*s.cfg.FrameSize())
	n := s.data(buf)
	return buf[:n]
}

// Fail reports a runtime error the way a device would.
func (s *Stream) Fail(err error) {
	s.onError(err)
}
