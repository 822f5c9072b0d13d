package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/decred/slog"
	"github.com/linuxmatters/brownie/internal/audio"
	"github.com/linuxmatters/brownie/internal/cli"
	"github.com/linuxmatters/brownie/internal/logging"
	"github.com/linuxmatters/brownie/internal/mains"
	"github.com/linuxmatters/brownie/internal/noise"
	"github.com/linuxmatters/brownie/internal/playback"
	"github.com/linuxmatters/brownie/internal/render"
	"github.com/linuxmatters/brownie/internal/ui"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var (
	version = "0.0.1"
)

// CLI defines the command-line interface
type CLI struct {
	Version bool   `help:"Show version information"`
	Verbose bool   `short:"v" env:"BROWNIE_VERBOSE" help:"Log at debug level"`
	Log     string `type:"path" default:"brownie-debug.log" env:"BROWNIE_LOG" help:"Log file used while the interactive UI owns the terminal"`

	Play   PlayCmd   `cmd:"" default:"withargs" help:"Play brown noise with mute controls"`
	Render RenderCmd `cmd:"" help:"Render brown noise to a WAV file"`
}

// PlayCmd streams noise to an output device
type PlayCmd struct {
	Host         string        `enum:"oto,pulse,null" default:"oto" env:"BROWNIE_HOST" help:"Audio host: oto, pulse or null"`
	Rate         int           `default:"44100" env:"BROWNIE_RATE" help:"Sample rate in Hz (oto and null)"`
	Channels     int           `default:"2" env:"BROWNIE_CHANNELS" help:"Output channels (oto and null)"`
	Format       string        `enum:"f32,s16,u8" default:"f32" env:"BROWNIE_FORMAT" help:"Sample format (oto and null)"`
	Latency      time.Duration `default:"100ms" env:"BROWNIE_LATENCY" help:"Output buffer length, bounds how late mute and unmute are heard"`
	Cutoff       float32       `default:"0" env:"BROWNIE_CUTOFF" help:"Low-pass cutoff in Hz, 0 sits below the local mains hum"`
	Fade         string        `enum:"volume,fixed" default:"volume" env:"BROWNIE_FADE" help:"Fade curve: volume (half a second) or fixed (five seconds)"`
	Muted        bool          `env:"BROWNIE_MUTED" help:"Start muted"`
	SuspendAfter time.Duration `default:"5s" env:"BROWNIE_SUSPEND_AFTER" help:"Suspend the device after this long muted, 0 never"`
	Headless     bool          `env:"BROWNIE_HEADLESS" help:"Play without the interactive UI until interrupted"`
}

// RenderCmd writes noise to a WAV file
type RenderCmd struct {
	Output   string        `short:"o" type:"path" default:"brownie.wav" env:"BROWNIE_OUTPUT" help:"WAV file to write"`
	Duration time.Duration `short:"d" default:"1m" env:"BROWNIE_DURATION" help:"Length of the render"`
	Rate     int           `default:"44100" env:"BROWNIE_RATE" help:"Sample rate in Hz"`
	Channels int           `default:"2" env:"BROWNIE_CHANNELS" help:"Output channels"`
	Bits     int           `default:"16" env:"BROWNIE_BITS" help:"Bit depth: 8, 16, 24 or 32"`
	Cutoff   float32       `default:"0" env:"BROWNIE_CUTOFF" help:"Low-pass cutoff in Hz, 0 sits below the local mains hum"`
	Seed     uint64        `env:"BROWNIE_SEED" help:"Random seed, 0 for a random one"`
	Fade     string        `enum:"volume,fixed" default:"volume" env:"BROWNIE_FADE" help:"Fade curve: volume (half a second) or fixed (five seconds)"`
	FadeOut  bool          `default:"true" negatable:"" env:"BROWNIE_FADE_OUT" help:"Fade to silence over the last half second"`
}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("brownie"),
		kong.Description("Brown noise generator with click-free mute"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	// Handle version flag
	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	if err := ctx.Run(cliArgs); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

// resolveCutoff picks the hum-aware default when cutoff is zero
func resolveCutoff(cutoff float32, log slog.Logger) float32 {
	if cutoff != 0 {
		return cutoff
	}
	hz := mains.Frequency()
	cutoff = mains.CutoffFor(hz)
	log.Infof("Mains frequency %d Hz, low-pass cutoff %.1f Hz", hz, cutoff)
	return cutoff
}

// audioConfig builds the stream config requested from hosts that accept one
func (p *PlayCmd) audioConfig() (audio.Config, error) {
	format, err := audio.ParseFormat(p.Format)
	if err != nil {
		return audio.Config{}, err
	}
	cfg := audio.DefaultConfig()
	cfg.Format = format
	cfg.SampleRate = p.Rate
	cfg.Channels = p.Channels
	return cfg, nil
}

// Run plays until the UI quits or the process is interrupted
func (p *PlayCmd) Run(c *CLI) error {
	headless := p.Headless || !term.IsTerminal(int(os.Stdout.Fd()))

	// The TUI owns the terminal, so logs go to a file
	var logOut io.Writer = os.Stderr
	if !headless {
		f, err := os.Create(c.Log)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	backend := logging.NewBackend(logOut, c.Verbose)
	log := backend.Logger(logging.Main)

	cfg, err := p.audioConfig()
	if err != nil {
		return err
	}
	host, err := audio.Lookup(p.Host, cfg, p.Latency)
	if err != nil {
		return err
	}

	fade, err := noise.ParseFade(p.Fade)
	if err != nil {
		return err
	}

	opts := playback.DefaultOptions()
	opts.Host = host
	opts.Fade = fade
	opts.Cutoff = resolveCutoff(p.Cutoff, log)
	opts.AutoPlay = !p.Muted
	opts.SuspendAfter = p.SuspendAfter
	opts.Log = backend.Logger(logging.Control)
	opts.AudioLog = backend.Logger(logging.Audio)

	log.Debugf("Starting %s host, requested %s", host.Name(), cfg)
	ctrl := playback.New(opts)
	started := time.Now()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if headless {
		err = runHeadless(sigCtx, ctrl, log)
	} else {
		err = runUI(sigCtx, ctrl, log)
	}

	if cerr := ctrl.Close(); cerr != nil {
		log.Warnf("Close: %v", cerr)
	}
	printSession(ctrl, time.Since(started), ctrl.Wait(context.Background()))
	return err
}

// runHeadless waits for the stream to start, then plays until interrupted
func runHeadless(ctx context.Context, ctrl *playback.Controller, log slog.Logger) error {
	if err := ctrl.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	log.Infof("Playing, interrupt to stop")
	<-ctx.Done()
	log.Infof("Interrupted")
	return nil
}

// runUI runs the Bubbletea program alongside a startup forwarder and a
// signal watcher
func runUI(ctx context.Context, ctrl *playback.Controller, log slog.Logger) error {
	p := tea.NewProgram(ui.NewModel(ctrl, log), tea.WithAltScreen())
	g, gctx := errgroup.WithContext(ctx)
	uiDone := make(chan struct{})

	// Startup forwarder
	g.Go(func() error {
		if err := ctrl.Wait(gctx); err != nil {
			if gctx.Err() == nil {
				p.Send(ui.StreamErrorMsg{Err: err})
			}
			return nil
		}
		p.Send(ui.StreamReadyMsg{Info: ctrl.Stats().Info})
		return nil
	})

	// Signal watcher
	g.Go(func() error {
		select {
		case <-gctx.Done():
			log.Infof("Interrupted")
			p.Quit()
		case <-uiDone:
		}
		return nil
	})

	g.Go(func() error {
		defer close(uiDone)
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("UI error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctrl.Wait(context.Background())
}

// printSession prints the session report after the terminal is restored
func printSession(ctrl *playback.Controller, elapsed time.Duration, startErr error) {
	s := ctrl.Stats()
	session := logging.Session{
		Host:       s.Info.Host,
		Device:     s.Info.Device,
		Format:     s.Info.Config.Format.String(),
		SampleRate: s.Info.Config.SampleRate,
		Channels:   s.Info.Config.Channels,
		Cutoff:     float64(s.Info.Cutoff),
		Duration:   elapsed,
		Buffers:    s.Buffers,
		Frames:     s.Frames,
		Commands:   s.Commands,
		Errors:     s.Errors,
		Envelope:   float64(s.Envelope),
		Peak:       float64(s.Peak),
		Err:        startErr,
	}
	if s.Info.Device == "" {
		session.Format = ""
	}
	fmt.Println(cli.TitleStyle.Render("Session"))
	_ = logging.WriteSession(os.Stdout, session)
}

// Run renders a WAV file
func (r *RenderCmd) Run(c *CLI) error {
	backend := logging.NewBackend(os.Stderr, c.Verbose)
	log := backend.Logger(logging.Main)

	fade, err := noise.ParseFade(r.Fade)
	if err != nil {
		return err
	}

	opts := render.DefaultOptions()
	opts.Fade = fade
	opts.SampleRate = r.Rate
	opts.Channels = r.Channels
	opts.BitDepth = r.Bits
	opts.Duration = r.Duration
	opts.Cutoff = resolveCutoff(r.Cutoff, log)
	opts.Seed = r.Seed
	opts.FadeOut = r.FadeOut
	opts.Log = backend.Logger(logging.Renderer)

	start := time.Now()
	res, err := render.WriteFile(r.Output, opts)
	if err != nil {
		return err
	}

	cli.PrintSuccess("Rendered",
		[2]string{"Output", r.Output},
		[2]string{"Length", r.Duration.String()},
		[2]string{"Format", fmt.Sprintf("%d-bit, %d ch @ %d Hz", r.Bits, r.Channels, r.Rate)},
		[2]string{"Cutoff", fmt.Sprintf("%.1f Hz", res.Cutoff)},
		[2]string{"Frames", fmt.Sprintf("%d", res.Frames)},
		[2]string{"Took", time.Since(start).Round(time.Millisecond).String()},
	)
	return nil
}
