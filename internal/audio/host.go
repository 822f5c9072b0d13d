// Package audio negotiates an output device and drives the real-time callback
// that fills device buffers with generated noise.
package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// Construction errors. All are fatal to stream startup.
var (
	ErrDeviceNotFound    = errors.New("no default output device")
	ErrConfigUnavailable = errors.New("no usable default output config")
	ErrUnsupportedFormat = errors.New("unsupported sample format")
	ErrStreamBuild       = errors.New("failed to build output stream")
)

// CallbackError is a transient error reported by a running stream, such as a
// buffer underrun. It never stops playback.
type CallbackError struct {
	Host string
	Err  error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("%s stream: %v", e.Host, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

// Config describes the stream a device expects.
type Config struct {
	Format       SampleFormat
	Channels     int
	SampleRate   int
	BufferFrames int // largest callback the backend requests
}

// DefaultConfig is the configuration requested from hosts that let the
// caller choose.
func DefaultConfig() Config {
	return Config{
		Format:       FormatF32,
		Channels:     2,
		SampleRate:   44100,
		BufferFrames: 1024,
	}
}

// latencyFrames converts a buffer latency to frames at rate. Non-positive
// latencies fall back to the default buffer size.
func latencyFrames(latency time.Duration, rate int) int {
	frames := int(math.Round(latency.Seconds() * float64(rate)))
	if frames <= 0 {
		return DefaultConfig().BufferFrames
	}
	return frames
}

// FrameSize returns the size in bytes of one interleaved frame.
func (c Config) FrameSize() int { return c.Format.Size() * c.Channels }

func (c Config) String() string {
	return fmt.Sprintf("%s %dch %dHz", c.Format, c.Channels, c.SampleRate)
}

func (c Config) validate() error {
	if c.Channels <= 0 {
		return fmt.Errorf("%w: %d channels", ErrConfigUnavailable, c.Channels)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d Hz", ErrConfigUnavailable, c.SampleRate)
	}
	return nil
}

// DataCallback fills p with interleaved little-endian frames in the stream's
// format and returns the number of bytes written, always a whole number of
// frames. It runs on the backend's audio goroutine and must not block.
type DataCallback func(p []byte) int

// ErrorCallback receives runtime stream errors. It is never called from
// inside a DataCallback.
type ErrorCallback func(err error)

// Host is an audio backend.
type Host interface {
	Name() string
	DefaultOutputDevice() (Device, error)
}

// Device is an output device exposed by a host. A device that holds a
// server connection also implements io.Closer; Open closes it when no stream
// takes ownership.
type Device interface {
	Name() string
	DefaultOutputConfig() (Config, error)
	BuildOutputStream(cfg Config, data DataCallback, onError ErrorCallback) (Stream, error)
}

// Stream is a running or paused device stream. Pausing stops the device from
// pulling buffers without tearing the stream down.
type Stream interface {
	Play() error
	Pause() error
	Close() error
}

// Lookup returns the host registered under name. The requested config and
// latency apply to hosts that let the caller choose them.
func Lookup(name string, cfg Config, latency time.Duration) (Host, error) {
	switch name {
	case "", "oto":
		return NewOtoHost(cfg, latency), nil
	case "pulse":
		return NewPulseHost(latency), nil
	case "null":
		return NewNullHost(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown host %q", ErrDeviceNotFound, name)
	}
}

// HostNames lists the names accepted by Lookup.
func HostNames() []string { return []string{"oto", "pulse", "null"} }

// watch polls check until done is closed and forwards each new error to
// onError. Backends without an error callback of their own use it to surface
// underruns and disconnects.
func watch(done <-chan struct{}, interval time.Duration, check func() error, onError ErrorCallback) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last error
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := check()
			if err != nil && (last == nil || err.Error() != last.Error()) {
				onError(err)
			}
			last = err
		}
	}
}

// closer runs a function at most once.
type closer struct {
	once sync.Once
	done chan struct{}
}

func newCloser() *closer { return &closer{done: make(chan struct{})} }

func (c *closer) close() bool {
	closed := false
	c.once.Do(func() {
		close(c.done)
		closed = true
	})
	return closed
}
