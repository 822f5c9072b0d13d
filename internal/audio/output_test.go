package audio_test

import (
	"encoding/binary"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/linuxmatters/brownie/internal/audio"
	"github.com/linuxmatters/brownie/internal/audio/audiotest"
	"github.com/linuxmatters/brownie/internal/noise"
)

func testConfig(format audio.SampleFormat, channels int) audio.Config {
	return audio.Config{Format: format, Channels: channels, SampleRate: 8000, BufferFrames: 256}
}

func openStub(t *testing.T, cfg audio.Config, opts audio.Options) (*audio.Output, *audiotest.Stream) {
	t.Helper()
	host := audiotest.New(cfg)
	if opts.Seed == 0 {
		opts.Seed = 99
	}
	out, err := audio.Open(host, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = out.Close() })

	streams := host.Streams()
	if len(streams) != 1 {
		t.Fatalf("built %d streams, want 1", len(streams))
	}
	return out, streams[0]
}

func TestWriteDataDuplicatesAcrossChannels(t *testing.T) {
	values := []float32{0.5, -0.25, 1}
	i := 0
	next := func() float32 {
		v := values[i%len(values)]
		i++
		return v
	}

	out := make([]int16, 3*4)
	peak := audio.WriteData(out, 4, next)

	if peak != 1 {
		t.Errorf("peak = %v, want 1", peak)
	}
	for frame := 0; frame < 3; frame++ {
		want := audio.FromFloat[int16](values[frame])
		for c := 0; c < 4; c++ {
			if got := out[frame*4+c]; got != want {
				t.Errorf("frame %d channel %d = %d, want %d", frame, c, got, want)
			}
		}
	}
	if i != 3 {
		t.Errorf("generator called %d times, want once per frame", i)
	}
}

func TestOpenEveryFormat(t *testing.T) {
	formats := []audio.SampleFormat{
		audio.FormatI8, audio.FormatI16, audio.FormatI32, audio.FormatI64,
		audio.FormatU8, audio.FormatU16, audio.FormatU32, audio.FormatU64,
		audio.FormatF32, audio.FormatF64,
	}

	for _, format := range formats {
		t.Run(format.String(), func(t *testing.T) {
			cfg := testConfig(format, 2)
			out, stream := openStub(t, cfg, audio.Options{})

			if !stream.Playing() {
				t.Fatal("stream should start playing")
			}
			if out.Info().Config != cfg {
				t.Errorf("Info().Config = %v, want %v", out.Info().Config, cfg)
			}

			buf := stream.Pull(128)
			if len(buf) != 128*cfg.FrameSize() {
				t.Fatalf("callback wrote %d bytes, want %d", len(buf), 128*cfg.FrameSize())
			}

			size := format.Size()
			for f := 0; f < 128; f++ {
				left := buf[f*2*size : f*2*size+size]
				right := buf[f*2*size+size : (f+1)*2*size]
				if string(left) != string(right) {
					t.Fatalf("frame %d: channels differ: %x vs %x", f, left, right)
				}
			}
		})
	}
}

func TestOpenRejectsUnsupportedFormat(t *testing.T) {
	for _, format := range []audio.SampleFormat{audio.FormatI24, audio.FormatUnknown} {
		t.Run(format.String(), func(t *testing.T) {
			host := audiotest.New(testConfig(format, 2))
			_, err := audio.Open(host, audio.Options{})
			if !errors.Is(err, audio.ErrUnsupportedFormat) {
				t.Fatalf("Open error = %v, want ErrUnsupportedFormat", err)
			}
			if len(host.Streams()) != 0 {
				t.Error("no stream should be built for an unsupported format")
			}
		})
	}
}

func TestOpenConstructionErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		setup func(h *audiotest.Host)
		want  error
	}{
		{"no device", func(h *audiotest.Host) { h.DeviceErr = boom }, audio.ErrDeviceNotFound},
		{"no config", func(h *audiotest.Host) { h.ConfigErr = boom }, audio.ErrConfigUnavailable},
		{"zero channels", func(h *audiotest.Host) { h.Config.Channels = 0 }, audio.ErrConfigUnavailable},
		{"zero rate", func(h *audiotest.Host) { h.Config.SampleRate = 0 }, audio.ErrConfigUnavailable},
		{"unsupported format", func(h *audiotest.Host) { h.Config.Format = audio.FormatI24 }, audio.ErrUnsupportedFormat},
		{"build rejected", func(h *audiotest.Host) { h.BuildErr = boom }, audio.ErrStreamBuild},
		{"already classified", func(h *audiotest.Host) { h.BuildErr = audio.ErrUnsupportedFormat }, audio.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := audiotest.New(testConfig(audio.FormatF32, 2))
			tt.setup(host)

			_, err := audio.Open(host, audio.Options{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Open error = %v, want %v", err, tt.want)
			}

			// A device that was opened is released again.
			wantCloses := 1
			if host.DeviceErr != nil {
				wantCloses = 0
			}
			if got := host.DeviceCloses(); got != wantCloses {
				t.Errorf("device closed %d times, want %d", got, wantCloses)
			}
		})
	}

	if _, err := audio.Open(nil, audio.Options{}); !errors.Is(err, audio.ErrDeviceNotFound) {
		t.Errorf("Open(nil) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestOpenHandsDeviceToStream(t *testing.T) {
	host := audiotest.New(testConfig(audio.FormatF32, 2))
	out, err := audio.Open(host, audio.Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := host.DeviceCloses(); got != 0 {
		t.Errorf("device closed %d times after a successful open, want 0", got)
	}
}

func TestRuntimeErrorsAreNotFatal(t *testing.T) {
	var reported atomic.Int32
	var last error
	out, stream := openStub(t, testConfig(audio.FormatF32, 1), audio.Options{
		OnError: func(err error) {
			reported.Add(1)
			last = err
		},
	})

	stream.Fail(errors.New("underrun"))
	stream.Fail(errors.New("underrun"))

	if out.Errors() != 2 || reported.Load() != 2 {
		t.Errorf("Errors() = %d, reported = %d; want 2", out.Errors(), reported.Load())
	}
	var cerr *audio.CallbackError
	if !errors.As(last, &cerr) || cerr.Host != "test" {
		t.Errorf("reported error = %v, want *CallbackError from host test", last)
	}
	if !stream.Playing() {
		t.Error("stream stopped after a runtime error")
	}
	if buf := stream.Pull(64); len(buf) == 0 {
		t.Error("callback no longer runs after a runtime error")
	}
}

func TestMeterTracksEnvelope(t *testing.T) {
	level := &constLevel{}
	level.v.Store(1)
	meter := &audio.Meter{}
	_, stream := openStub(t, testConfig(audio.FormatF32, 2), audio.Options{Level: level, Meter: meter})

	// 8000 Hz: a full fade-in is 4000 frames.
	for i := 0; i < 20; i++ {
		stream.Pull(256)
	}
	if meter.Envelope() != 1 {
		t.Errorf("envelope = %v after 5120 frames, want 1", meter.Envelope())
	}
	if meter.Frames() != 20*256 || meter.Buffers() != 20 {
		t.Errorf("frames = %d buffers = %d, want 5120 and 20", meter.Frames(), meter.Buffers())
	}

	level.v.Store(-1)
	stream.Pull(256)
	if e := meter.Envelope(); e >= 1 || e <= 0 {
		t.Errorf("envelope = %v one buffer after mute, want a partial fade", e)
	}
	for i := 0; i < 20; i++ {
		stream.Pull(256)
	}
	if meter.Envelope() != 0 || meter.Peak() > 1e-6 {
		t.Errorf("envelope = %v peak = %v after fade-out, want silence", meter.Envelope(), meter.Peak())
	}
}

func TestOutputPauseResume(t *testing.T) {
	out, stream := openStub(t, testConfig(audio.FormatI16, 2), audio.Options{})

	if err := out.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := out.Pause(); err != nil {
		t.Fatalf("second Pause: %v", err)
	}
	if !out.Paused() || stream.Playing() || stream.Pauses() != 1 {
		t.Errorf("paused=%v playing=%v pauses=%d; want true false 1", out.Paused(), stream.Playing(), stream.Pauses())
	}
	if buf := stream.Pull(64); buf != nil {
		t.Error("paused stream should not run the callback")
	}

	if err := out.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if err := out.Resume(); err != nil {
		t.Fatalf("second Resume: %v", err)
	}
	if out.Paused() || !stream.Playing() || stream.Plays() != 2 {
		t.Errorf("paused=%v playing=%v plays=%d; want false true 2", out.Paused(), stream.Playing(), stream.Plays())
	}

	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !stream.Closed() {
		t.Error("stream not closed")
	}
	if err := out.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestOpenCutoff(t *testing.T) {
	out, _ := openStub(t, testConfig(audio.FormatF32, 1), audio.Options{})
	if out.Info().Cutoff != noise.DefaultCutoff {
		t.Errorf("default cutoff = %v, want %v", out.Info().Cutoff, noise.DefaultCutoff)
	}

	host := audiotest.New(testConfig(audio.FormatF32, 1))
	if _, err := audio.Open(host, audio.Options{Cutoff: -5}); err == nil {
		t.Error("negative cutoff should fail")
	}
}

func TestFloatOutputMatchesGenerator(t *testing.T) {
	cfg := testConfig(audio.FormatF32, 1)
	_, stream := openStub(t, cfg, audio.Options{Seed: 4242})

	gen, err := noise.NewGenerator(noise.Config{SampleRate: float32(cfg.SampleRate), Seed: 4242})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	buf := stream.Pull(512)
	for i := 0; i < 512; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
		if want := gen.Next(); got != want {
			t.Fatalf("sample %d = %v, want %v", i, got, want)
		}
	}
}

func TestNullHostRendersInRealTime(t *testing.T) {
	cfg := audio.Config{Format: audio.FormatF32, Channels: 2, SampleRate: 8000, BufferFrames: 80}
	meter := &audio.Meter{}
	out, err := audio.Open(audio.NewNullHost(cfg), audio.Options{Meter: meter})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer out.Close()

	deadline := time.Now().Add(5 * time.Second)
	for meter.Buffers() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("null host did not pull any buffers")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := out.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	frozen := meter.Buffers()
	time.Sleep(50 * time.Millisecond)
	if meter.Buffers() != frozen {
		t.Error("null host kept pulling while paused")
	}
}

func TestLookup(t *testing.T) {
	for _, name := range audio.HostNames() {
		host, err := audio.Lookup(name, audio.DefaultConfig(), 100*time.Millisecond)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		if host.Name() != name {
			t.Errorf("Lookup(%q).Name() = %q", name, host.Name())
		}
	}
	if _, err := audio.Lookup("asio", audio.DefaultConfig(), 0); !errors.Is(err, audio.ErrDeviceNotFound) {
		t.Errorf("Lookup(asio) error = %v, want ErrDeviceNotFound", err)
	}
}

type constLevel struct{ v atomic.Int32 }

func (c *constLevel) Load() int32 { return c.v.Load() }
