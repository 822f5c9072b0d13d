package render

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/linuxmatters/brownie/internal/noise"
)

func testOptions() Options {
	return Options{
		SampleRate: 8000,
		Channels:   2,
		BitDepth:   16,
		Duration:   2 * time.Second,
		Seed:       42,
	}
}

// decode reads back a rendered file.
func decode(t *testing.T, path string) (*wav.Decoder, *goaudio.IntBuffer) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = f.Close() })

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("not a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer: %v", err)
	}
	return dec, buf
}

func TestWriteFileFormats(t *testing.T) {
	tests := []struct {
		name     string
		bits     int
		channels int
	}{
		{"8-bit mono", 8, 1},
		{"16-bit stereo", 16, 2},
		{"24-bit stereo", 24, 2},
		{"32-bit quad", 32, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			opts.BitDepth = tt.bits
			opts.Channels = tt.channels
			opts.Duration = 500 * time.Millisecond

			path := filepath.Join(t.TempDir(), "noise.wav")
			res, err := WriteFile(path, opts)
			if err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if res.Frames != 4000 {
				t.Errorf("Frames = %d, want 4000", res.Frames)
			}

			dec, buf := decode(t, path)
			if dec.SampleRate != 8000 {
				t.Errorf("SampleRate = %d, want 8000", dec.SampleRate)
			}
			if int(dec.NumChans) != tt.channels {
				t.Errorf("NumChans = %d, want %d", dec.NumChans, tt.channels)
			}
			if int(dec.BitDepth) != tt.bits {
				t.Errorf("BitDepth = %d, want %d", dec.BitDepth, tt.bits)
			}
			if got, want := len(buf.Data), res.Frames*tt.channels; got != want {
				t.Fatalf("decoded %d samples, want %d", got, want)
			}

			// Every channel of a frame carries the same value.
			for i := 0; i < len(buf.Data); i += tt.channels {
				for c := 1; c < tt.channels; c++ {
					if buf.Data[i+c] != buf.Data[i] {
						t.Fatalf("frame %d: channel %d = %d, channel 0 = %d", i/tt.channels, c, buf.Data[i+c], buf.Data[i])
					}
				}
			}
		})
	}
}

func TestWAVMatchesQuantizedGenerator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.wav")
	res, err := WriteFile(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	_, buf := decode(t, path)

	var peak int
	for _, v := range buf.Data {
		peak = max(peak, abs(v))
	}
	if peak == 0 {
		t.Fatal("render is silent")
	}
	if want := quantize(res.Peak, 16); peak != want {
		t.Errorf("decoded peak %d, want %d", peak, want)
	}
}

func TestWAVFadesOut(t *testing.T) {
	tests := []struct {
		name     string
		fade     noise.FadeRate
		duration time.Duration
	}{
		{"volume fade", noise.VolumeFade, 2 * time.Second},
		{"fixed fade", noise.FixedFade, 6 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			opts.FadeOut = true
			opts.Fade = tt.fade
			opts.Duration = tt.duration

			path := filepath.Join(t.TempDir(), "noise.wav")
			if _, err := WriteFile(path, opts); err != nil {
				t.Fatal(err)
			}
			_, buf := decode(t, path)

			// The envelope has just reached zero, so only the filter's tail remains.
			last := buf.Data[len(buf.Data)-1]
			if abs(last) > 400 {
				t.Errorf("last sample = %d, want near silence", last)
			}
		})
	}
}

func TestFadeFrames(t *testing.T) {
	tests := []struct {
		fade noise.FadeRate
		rate int
		want int
	}{
		{noise.VolumeFade, 8000, 4000},
		{noise.VolumeFade, 44100, 22050},
		{noise.FixedFade, 8000, 40000},
	}
	for _, tt := range tests {
		if got := fadeFrames(tt.fade, tt.rate); got != tt.want {
			t.Errorf("fadeFrames(%d Hz) = %d, want %d", tt.rate, got, tt.want)
		}
	}
}

func TestWAVDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	for _, path := range []string{a, b} {
		if _, err := WriteFile(path, testOptions()); err != nil {
			t.Fatal(err)
		}
	}

	da, err := os.ReadFile(a)
	if err != nil {
		t.Fatal(err)
	}
	db, err := os.ReadFile(b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(da, db) {
		t.Error("same seed produced different files")
	}
}

func TestWAVInvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(o *Options)
	}{
		{"zero rate", func(o *Options) { o.SampleRate = 0 }},
		{"no channels", func(o *Options) { o.Channels = 0 }},
		{"12-bit", func(o *Options) { o.BitDepth = 12 }},
		{"zero duration", func(o *Options) { o.Duration = 0 }},
		{"sub-frame duration", func(o *Options) { o.Duration = time.Microsecond }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			tt.modify(&opts)

			path := filepath.Join(t.TempDir(), "noise.wav")
			_, err := WriteFile(path, opts)
			if !errors.Is(err, ErrInvalidOptions) {
				t.Fatalf("WriteFile() = %v, want ErrInvalidOptions", err)
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Error("failed render left a file behind")
			}
		})
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		x    float32
		bits int
		want int
	}{
		{0, 8, 128},
		{1, 8, 255},
		{-1, 8, 0},
		{0, 16, 0},
		{1, 16, 32767},
		{-1, 16, -32768},
		{1, 24, 8388607},
		{-1, 24, -8388608},
		{0.5, 24, 4194304},
		{1, 32, 2147483647},
		{-1, 32, -2147483648},
	}
	for _, tt := range tests {
		if got := quantize(tt.x, tt.bits); got != tt.want {
			t.Errorf("quantize(%v, %d) = %d, want %d", tt.x, tt.bits, got, tt.want)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
