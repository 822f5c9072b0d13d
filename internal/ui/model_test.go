package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/brownie/internal/audio"
	"github.com/linuxmatters/brownie/internal/playback"
)

type fakeController struct {
	muted    bool
	mutes    int
	unmutes  int
	toggles  int
	envelope float32
}

func (f *fakeController) Mute()           { f.mutes++; f.muted = true }
func (f *fakeController) Unmute()         { f.unmutes++; f.muted = false }
func (f *fakeController) Toggle()         { f.toggles++; f.muted = !f.muted }
func (f *fakeController) IsMuted() bool   { return f.muted }
func (f *fakeController) IsPlaying() bool { return !f.muted }
func (f *fakeController) Stats() playback.Stats {
	return playback.Stats{Envelope: f.envelope, Peak: 0.5, Buffers: 12}
}

func readyModel(ctrl *fakeController) Model {
	m := NewModel(ctrl, nil)
	next, _ := m.Update(StreamReadyMsg{Info: audio.Info{
		Host:   "test",
		Device: "stub",
		Config: audio.DefaultConfig(),
		Cutoff: 40,
	}})
	return next.(Model)
}

func TestKeysDriveController(t *testing.T) {
	tests := []struct {
		name        string
		key         tea.KeyMsg
		wantMutes   int
		wantUnmutes int
		wantToggles int
	}{
		{"space toggles", tea.KeyMsg{Type: tea.KeySpace}, 0, 0, 1},
		{"t toggles", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}}, 0, 0, 1},
		{"m mutes", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}}, 1, 0, 0},
		{"u unmutes", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'u'}}, 0, 1, 0},
		{"other keys ignored", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{muted: true}
			m := readyModel(ctrl)

			_, cmd := m.Update(tt.key)
			if cmd != nil {
				t.Error("key returned a command")
			}
			if ctrl.mutes != tt.wantMutes || ctrl.unmutes != tt.wantUnmutes || ctrl.toggles != tt.wantToggles {
				t.Errorf("mutes=%d unmutes=%d toggles=%d, want %d %d %d",
					ctrl.mutes, ctrl.unmutes, ctrl.toggles, tt.wantMutes, tt.wantUnmutes, tt.wantToggles)
			}
		})
	}
}

func TestQuit(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
	} {
		m := readyModel(&fakeController{})
		next, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("%s: no command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: command did not quit", key)
		}
		if !next.(Model).Done {
			t.Errorf("%s: model not done", key)
		}
	}
}

func TestTickRefreshesStatus(t *testing.T) {
	ctrl := &fakeController{muted: true}
	m := readyModel(ctrl)
	if m.Status != StatusMuted {
		t.Fatalf("Status = %v, want Muted", m.Status)
	}

	ctrl.Unmute()
	ctrl.envelope = 0.25
	next, cmd := m.Update(tickMsg(time.Now()))
	m = next.(Model)
	if cmd == nil {
		t.Error("tick did not reschedule")
	}
	if m.Status != StatusPlaying {
		t.Errorf("Status = %v, want Playing", m.Status)
	}
	if m.Envelope != 0.25 || m.Buffers != 12 {
		t.Errorf("Envelope = %v, Buffers = %d", m.Envelope, m.Buffers)
	}
}

func TestStartingUntilReady(t *testing.T) {
	m := NewModel(&fakeController{}, nil)
	next, _ := m.Update(tickMsg(time.Now()))
	m = next.(Model)
	if m.Status != StatusStarting {
		t.Errorf("Status = %v, want Starting", m.Status)
	}
	if !strings.Contains(m.View(), "Opening audio device") {
		t.Error("view does not show the starting state")
	}
}

func TestStreamErrorDisables(t *testing.T) {
	ctrl := &fakeController{muted: true}
	m := NewModel(ctrl, nil)

	next, _ := m.Update(StreamErrorMsg{Err: audio.ErrDeviceNotFound})
	next, _ = next.Update(tickMsg(time.Now()))
	m = next.(Model)

	if m.Status != StatusDisabled {
		t.Fatalf("Status = %v, want Disabled", m.Status)
	}
	if !errors.Is(m.Err, audio.ErrDeviceNotFound) {
		t.Errorf("Err = %v", m.Err)
	}
	view := m.View()
	if !strings.Contains(view, "Disabled") || !strings.Contains(view, audio.ErrDeviceNotFound.Error()) {
		t.Errorf("view missing error:\n%s", view)
	}
}

func TestViewShowsDevice(t *testing.T) {
	m := readyModel(&fakeController{})
	view := m.View()
	for _, want := range []string{"Brownie", "test/stub", "Cutoff: 40.0 Hz", "Playing"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRenderEnvelopeBar(t *testing.T) {
	tests := []struct {
		envelope float32
		want     string
	}{
		{0, "  0%"},
		{0.5, " 50%"},
		{1, "100%"},
		{1.5, "100%"},
		{-1, "  0%"},
	}
	for _, tt := range tests {
		if got := renderEnvelopeBar(tt.envelope, 10); !strings.HasSuffix(got, tt.want) {
			t.Errorf("renderEnvelopeBar(%v) = %q, want suffix %q", tt.envelope, got, tt.want)
		}
	}
}

func TestFormatPeak(t *testing.T) {
	tests := []struct {
		peak float32
		want string
	}{
		{0, "-inf dBFS"},
		{1, "0.0 dBFS"},
		{0.5, "-6.0 dBFS"},
	}
	for _, tt := range tests {
		if got := formatPeak(tt.peak); got != tt.want {
			t.Errorf("formatPeak(%v) = %q, want %q", tt.peak, got, tt.want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{65 * time.Second, "01:05"},
		{3723 * time.Second, "01:02:03"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.d); got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
