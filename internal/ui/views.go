package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const meterWidth = 40

var (
	primaryColor = lipgloss.Color("#8B4513") // Brownie brown
	activeColor  = lipgloss.Color("#00AA00")
	warnColor    = lipgloss.Color("#FFA500")
	errorColor   = lipgloss.Color("#A40000")
	mutedColor   = lipgloss.Color("#888888")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1).
			Width(60)

	keyStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// renderPlaybackView renders the main view
func renderPlaybackView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader())
	b.WriteString("\n\n")
	b.WriteString(renderStatus(m))
	b.WriteString("\n\n")
	b.WriteString(renderDetails(m))
	b.WriteString("\n\n")
	b.WriteString(renderKeys(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader() string {
	return titleStyle.Render("Brownie 🟤 - Brown Noise Generator") + "\n" +
		subtitleStyle.Render("Low-frequency noise with click-free mute")
}

// renderStatus renders the status icon and envelope bar
func renderStatus(m Model) string {
	switch m.Status {
	case StatusStarting:
		spinner := lipgloss.NewStyle().Foreground(warnColor).Render(spinnerFrames[m.spinnerIndex])
		return fmt.Sprintf(" %s Opening audio device...", spinner)

	case StatusDisabled:
		icon := lipgloss.NewStyle().Foreground(errorColor).Render("✗")
		return fmt.Sprintf(" %s %s\n   Error: %v", icon, m.Status, m.Err)
	}

	icon := lipgloss.NewStyle().Foreground(activeColor).Render("▶")
	if m.Status == StatusMuted {
		icon = lipgloss.NewStyle().Foreground(mutedColor).Render("⏸")
	}
	return fmt.Sprintf(" %s %-8s %s", icon, m.Status, renderEnvelopeBar(m.Envelope, meterWidth))
}

// renderEnvelopeBar renders the fade envelope as a bar with percentage
func renderEnvelopeBar(envelope float32, width int) string {
	level := math.Max(0, math.Min(1, float64(envelope)))
	filled := int(math.Round(level * float64(width)))
	empty := width - filled

	filledStyle := lipgloss.NewStyle().Foreground(primaryColor)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))

	bar := filledStyle.Render(strings.Repeat("━", filled)) +
		emptyStyle.Render(strings.Repeat("━", empty))

	return fmt.Sprintf("%s %3d%%", bar, int(math.Round(level*100)))
}

// renderDetails renders the device and meter box
func renderDetails(m Model) string {
	if m.Info.Device == "" {
		return boxStyle.Render("No output device")
	}

	var content strings.Builder
	cfg := m.Info.Config
	content.WriteString(fmt.Sprintf("Device: %s/%s\n", m.Info.Host, m.Info.Device))
	content.WriteString(fmt.Sprintf("Format: %s, %d ch @ %d Hz\n", cfg.Format, cfg.Channels, cfg.SampleRate))
	content.WriteString(fmt.Sprintf("Cutoff: %.1f Hz\n", m.Info.Cutoff))
	content.WriteString(fmt.Sprintf("Peak:   %s | Buffers: %d", formatPeak(m.Peak), m.Buffers))
	if m.Errors > 0 {
		content.WriteString(lipgloss.NewStyle().Foreground(warnColor).Render(fmt.Sprintf(" | Errors: %d", m.Errors)))
	}
	content.WriteString(fmt.Sprintf("\nUptime: %s", formatElapsed(time.Since(m.StartTime))))

	return boxStyle.Render(content.String())
}

// renderKeys renders the key help footer
func renderKeys(m Model) string {
	if m.Status == StatusDisabled {
		return keyStyle.Render("q quit")
	}
	return keyStyle.Render("space/t toggle • m mute • u unmute • q quit")
}

// formatPeak formats a linear peak as dBFS
func formatPeak(peak float32) string {
	if peak <= 0 {
		return "-inf dBFS"
	}
	return fmt.Sprintf("%.1f dBFS", 20*math.Log10(float64(peak)))
}

// formatElapsed formats elapsed time as MM:SS or HH:MM:SS
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
