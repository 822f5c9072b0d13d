// Package ui provides the Bubbletea terminal user interface for brownie
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/decred/slog"
	"github.com/linuxmatters/brownie/internal/audio"
	"github.com/linuxmatters/brownie/internal/playback"
)

// refreshInterval is how often the meter is redrawn
const refreshInterval = 100 * time.Millisecond

// Spinner frames shown while the stream is starting
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Controller is the part of playback.Controller the UI drives
type Controller interface {
	Mute()
	Unmute()
	Toggle()
	IsMuted() bool
	IsPlaying() bool
	Stats() playback.Stats
}

// Status is the playback state shown in the header
type Status int

const (
	StatusStarting Status = iota
	StatusPlaying
	StatusMuted
	StatusDisabled
)

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "Playing"
	case StatusMuted:
		return "Muted"
	case StatusDisabled:
		return "Disabled"
	default:
		return "Starting"
	}
}

// Model is the Bubbletea model for the playback UI
type Model struct {
	ctrl Controller
	log  slog.Logger

	// Stream state
	Status Status
	Info   audio.Info
	Err    error

	// Meter snapshot, refreshed every tick
	Envelope float32
	Peak     float32
	Buffers  uint64
	Errors   uint64

	StartTime    time.Time
	Done         bool
	spinnerIndex int

	// Terminal dimensions
	Width  int
	Height int
}

// NewModel creates a UI model driving ctrl
func NewModel(ctrl Controller, log slog.Logger) Model {
	if log == nil {
		log = slog.Disabled
	}
	return Model{
		ctrl:      ctrl,
		log:       log,
		Status:    StatusStarting,
		StartTime: time.Now(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick message every refreshInterval
func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.log.Debugf("Quit requested")
			m.Done = true
			return m, tea.Quit
		case " ", "space", "t":
			m.ctrl.Toggle()
		case "m":
			m.ctrl.Mute()
		case "u":
			m.ctrl.Unmute()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case StreamReadyMsg:
		m.Info = msg.Info
		m.refresh()
		return m, nil

	case StreamErrorMsg:
		m.log.Debugf("Stream error shown: %v", msg.Err)
		m.Err = msg.Err
		m.Status = StatusDisabled
		return m, nil

	case tickMsg:
		if m.Done {
			return m, nil
		}
		m.spinnerIndex = (m.spinnerIndex + 1) % len(spinnerFrames)
		m.refresh()
		return m, tickCmd()
	}

	return m, nil
}

// refresh copies the controller state into the model
func (m *Model) refresh() {
	s := m.ctrl.Stats()
	m.Envelope = s.Envelope
	m.Peak = s.Peak
	m.Buffers = s.Buffers
	m.Errors = s.Errors

	switch {
	case m.Err != nil:
		m.Status = StatusDisabled
	case m.Info.Device == "":
		m.Status = StatusStarting
	case m.ctrl.IsPlaying():
		m.Status = StatusPlaying
	default:
		m.Status = StatusMuted
	}
}

// View renders the UI
func (m Model) View() string {
	if m.Done {
		return ""
	}
	return renderPlaybackView(m)
}
