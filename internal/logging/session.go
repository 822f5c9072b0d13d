package logging

import (
	"fmt"
	"io"
	"time"
)

// Session summarises one playback run.
type Session struct {
	Host       string
	Device     string
	Format     string
	SampleRate int
	Channels   int
	Cutoff     float64 // Hz
	Duration   time.Duration
	Buffers    uint64
	Frames     uint64
	Commands   uint64
	Errors     uint64 // runtime stream errors
	Envelope   float64
	Peak       float64 // linear, last buffer
	Err        error   // startup failure, if any
}

// Table renders the session as a MetricTable.
func (s Session) Table() *MetricTable {
	t := NewMetricTable("Value")
	t.AddText("Host", s.Host)
	t.AddText("Device", s.Device)
	t.AddText("Format", s.Format)
	if s.SampleRate > 0 {
		t.AddMetric("Sample rate", float64(s.SampleRate), 0, "Hz")
		t.AddMetric("Channels", float64(s.Channels), 0, "")
		t.AddMetric("Low-pass cutoff", s.Cutoff, 1, "Hz")
	}
	t.AddMetric("Played", s.Duration.Seconds(), 1, "s")
	t.AddCount("Buffers", s.Buffers)
	t.AddCount("Frames", s.Frames)
	t.AddCount("Commands applied", s.Commands)

	note := ""
	if s.Errors > 0 {
		note = "underruns or device errors, see log"
	}
	t.AddRow("Runtime errors", []string{fmt.Sprintf("%d", s.Errors)}, "", note)
	t.AddMetric("Envelope", s.Envelope, 2, "")
	t.AddRow("Last peak", []string{formatLevelDB(s.Peak, 1)}, "dBFS", "")

	if s.Err != nil {
		t.AddRow("Startup", []string{"failed"}, "", s.Err.Error())
	}
	return t
}

// WriteSession prints the session table to w.
func WriteSession(w io.Writer, s Session) error {
	_, err := io.WriteString(w, s.Table().String())
	return err
}
