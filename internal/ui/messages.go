package ui

import (
	"time"

	"github.com/linuxmatters/brownie/internal/audio"
)

// StreamReadyMsg indicates the output stream opened
type StreamReadyMsg struct {
	Info audio.Info
}

// StreamErrorMsg indicates the output stream could not be started. The UI
// stays up and reports playback as disabled.
type StreamErrorMsg struct {
	Err error
}

// tickMsg drives the meter refresh and spinner
type tickMsg time.Time
