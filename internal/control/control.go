// Package control carries mute and unmute requests from any goroutine to the
// goroutine that owns the output stream, and holds the volume cell the audio
// callback reads on every sample.
package control

import (
	"fmt"
	"sync/atomic"
)

// Command is a request for the stream owner.
type Command int

const (
	Mute Command = iota
	Unmute
	Toggle
)

func (c Command) String() string {
	switch c {
	case Mute:
		return "mute"
	case Unmute:
		return "unmute"
	case Toggle:
		return "toggle"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// Volume levels stored in the cell.
const (
	Muted   int32 = -1
	Unmuted int32 = 1
)

// Volume is the shared control cell. One goroutine writes it, the audio
// callback reads it once per sample. Loads and stores are single atomic
// words; readers may observe a write one buffer late.
type Volume struct {
	v atomic.Int32
}

// NewVolume returns a cell holding the given level.
func NewVolume(level int32) *Volume {
	v := &Volume{}
	v.v.Store(level)
	return v
}

// Load returns the current level.
func (v *Volume) Load() int32 { return v.v.Load() }

// Store sets the level.
func (v *Volume) Store(level int32) { v.v.Store(level) }

// Muted reports whether the level fades the signal out.
func (v *Volume) Muted() bool { return v.v.Load() < Unmuted }

// Apply updates the cell for a command and returns the resulting level.
func (v *Volume) Apply(cmd Command) int32 {
	switch cmd {
	case Mute:
		v.Store(Muted)
	case Unmute:
		v.Store(Unmuted)
	case Toggle:
		if v.Muted() {
			v.Store(Unmuted)
		} else {
			v.Store(Muted)
		}
	}
	return v.Load()
}
