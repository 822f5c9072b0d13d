// Package playback is the handle the rest of the program uses to mute and
// unmute the noise. It owns the command queue and the volume cell, and runs
// the single goroutine that owns the output stream.
package playback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"github.com/linuxmatters/brownie/internal/audio"
	"github.com/linuxmatters/brownie/internal/control"
	"github.com/linuxmatters/brownie/internal/noise"
)

// Options configures a Controller.
type Options struct {
	Host audio.Host

	// Cutoff is the low-pass corner in Hz; zero uses the generator default.
	Cutoff float32
	Seed   uint64
	Fade   noise.FadeRate // noise.VolumeFade when nil

	// AutoPlay starts unmuted. The zero value starts muted.
	AutoPlay bool

	// SuspendAfter pauses the device once it has been muted for this long and
	// the envelope has reached zero. Zero disables suspension.
	SuspendAfter time.Duration

	Log      slog.Logger // controller worker
	AudioLog slog.Logger // stream engine
}

// DefaultOptions returns the options the CLI starts from.
func DefaultOptions() Options {
	return Options{
		AutoPlay:     true,
		SuspendAfter: 5 * time.Second,
	}
}

// Stats is a snapshot of controller and stream counters.
type Stats struct {
	Info     audio.Info
	Buffers  uint64
	Frames   uint64
	Commands uint64
	Errors   uint64
	Envelope float32
	Peak     float32
	Uptime   time.Duration
}

// Controller is safe for use from any goroutine.
type Controller struct {
	queue  *control.Queue
	volume *control.Volume
	meter  *audio.Meter
	log    slog.Logger

	ready    chan struct{} // closed once the stream opened or failed
	startErr error         // valid after ready is closed
	info     audio.Info    // valid after ready is closed
	opened   time.Time

	done     chan struct{} // closed when the worker exits
	applied  atomic.Uint64
	errors   atomic.Uint64
	disabled atomic.Bool

	closeOnce sync.Once
}

// New starts the worker goroutine, which opens the stream and then applies
// commands in the order they were sent. It returns immediately; use Wait for
// the startup result.
func New(opts Options) *Controller {
	if opts.Log == nil {
		opts.Log = slog.Disabled
	}
	if opts.AudioLog == nil {
		opts.AudioLog = slog.Disabled
	}

	level := control.Muted
	if opts.AutoPlay {
		level = control.Unmuted
	}

	c := &Controller{
		queue:  control.NewQueue(),
		volume: control.NewVolume(level),
		meter:  &audio.Meter{},
		log:    opts.Log,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}

	go c.run(opts)
	return c
}

func (c *Controller) run(opts Options) {
	defer close(c.done)

	out, err := audio.Open(opts.Host, audio.Options{
		Cutoff:  opts.Cutoff,
		Fade:    opts.Fade,
		Seed:    opts.Seed,
		Level:   c.volume,
		Meter:   c.meter,
		Log:     opts.AudioLog,
		OnError: func(error) { c.errors.Add(1) },
	})
	if err != nil {
		c.disable(err)
		return
	}
	c.info = out.Info()
	c.opened = time.Now()
	close(c.ready)

	defer func() {
		if err := out.Close(); err != nil {
			c.log.Warnf("Failed to close stream: %v", err)
		}
	}()

	c.loop(out, opts.SuspendAfter)
}

// disable records a startup failure. The controller stays queryable and
// reports muted from then on.
func (c *Controller) disable(err error) {
	c.log.Errorf("Playback disabled: %v", err)
	c.startErr = err
	c.disabled.Store(true)
	c.volume.Store(control.Muted)
	c.queue.Close()
	close(c.ready)
}

func (c *Controller) loop(out *audio.Output, suspendAfter time.Duration) {
	for {
		ctx, cancel := context.Background(), context.CancelFunc(func() {})
		if suspendAfter > 0 && c.volume.Muted() && !out.Paused() {
			ctx, cancel = context.WithTimeout(context.Background(), suspendAfter)
		}
		cmd, err := c.queue.Recv(ctx)
		cancel()

		switch {
		case errors.Is(err, control.ErrClosed):
			c.log.Debugf("Command queue closed, stopping")
			return
		case errors.Is(err, context.DeadlineExceeded):
			c.suspend(out)
			continue
		case err != nil:
			c.log.Errorf("Command queue: %v", err)
			return
		}

		c.apply(out, cmd)
	}
}

func (c *Controller) apply(out *audio.Output, cmd control.Command) {
	// Resume before raising the level so the fade-in starts from silence.
	if out.Paused() && (cmd == control.Unmute || (cmd == control.Toggle && c.volume.Muted())) {
		if err := out.Resume(); err != nil {
			c.log.Warnf("%v", err)
		}
	}
	level := c.volume.Apply(cmd)
	c.applied.Add(1)
	c.log.Debugf("Applied %s, level %d", cmd, level)
}

// suspend pauses the device if the fade-out has finished.
func (c *Controller) suspend(out *audio.Output) {
	if !c.volume.Muted() || c.meter.Envelope() > 0 {
		return
	}
	if err := out.Pause(); err != nil {
		c.log.Warnf("%v", err)
		return
	}
	c.log.Infof("Output suspended while muted")
}

func (c *Controller) send(cmd control.Command) {
	if err := c.queue.Send(cmd); err != nil {
		c.log.Debugf("Dropped %s: %v", cmd, err)
	}
}

// Mute requests a fade-out. Muting while muted has no further effect.
func (c *Controller) Mute() { c.send(control.Mute) }

// Unmute requests a fade-in. Unmuting while unmuted has no further effect.
func (c *Controller) Unmute() { c.send(control.Unmute) }

// Toggle flips between muted and unmuted, relative to the state at the time
// the worker processes it.
func (c *Controller) Toggle() { c.send(control.Toggle) }

// IsMuted reports the last level the worker applied. Commands still queued
// are not reflected.
func (c *Controller) IsMuted() bool { return c.volume.Muted() }

// IsPlaying reports whether the stream is open and unmuted.
func (c *Controller) IsPlaying() bool {
	select {
	case <-c.ready:
	default:
		return false
	}
	return !c.disabled.Load() && !c.volume.Muted()
}

// Disabled reports whether the stream failed to start.
func (c *Controller) Disabled() bool { return c.disabled.Load() }

// Wait blocks until startup completes and returns the construction error,
// if any.
func (c *Controller) Wait(ctx context.Context) error {
	select {
	case <-c.ready:
		return c.startErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Envelope returns the fade envelope of the last rendered buffer.
func (c *Controller) Envelope() float32 { return c.meter.Envelope() }

// Stats returns a snapshot of the counters. Info is zero until startup
// succeeds.
func (c *Controller) Stats() Stats {
	s := Stats{
		Buffers:  c.meter.Buffers(),
		Frames:   c.meter.Frames(),
		Commands: c.applied.Load(),
		Errors:   c.errors.Load(),
		Envelope: c.meter.Envelope(),
		Peak:     c.meter.Peak(),
	}
	select {
	case <-c.ready:
		if c.startErr == nil {
			s.Info = c.info
			s.Uptime = time.Since(c.opened)
		}
	default:
	}
	return s
}

// Close stops accepting commands, lets the worker apply those already queued
// and closes the stream. It waits for the worker to exit.
func (c *Controller) Close() error {
	c.closeOnce.Do(c.queue.Close)
	<-c.done
	return nil
}
