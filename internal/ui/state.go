// Package ui renders the session state as a floating colored circle and a
// system tray icon, and hides the circle while another app is fullscreen.
package ui

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/chaz8081/pushtalk/internal/session"
)

var (
	IdleColor       = color.NRGBA{R: 76, G: 175, B: 80, A: 255}
	RecordingColor  = color.NRGBA{R: 244, G: 67, B: 54, A: 255}
	ProcessingColor = color.NRGBA{R: 255, G: 152, B: 0, A: 255}
	TranslateColor  = color.NRGBA{R: 33, G: 150, B: 243, A: 255}
)

// ColorFor maps a session status to its indicator color.
func ColorFor(st session.Status) color.NRGBA {
	switch st.State {
	case session.Recording:
		return RecordingColor
	case session.Processing:
		return ProcessingColor
	default:
		if st.Translate {
			return TranslateColor
		}
		return IdleColor
	}
}

// StatusText is the tooltip for a status.
func StatusText(st session.Status) string {
	mode := "dictation"
	if st.Translate {
		mode = "translate"
	}
	if st.Model == "" {
		return fmt.Sprintf("pushtalk: %s (%s)", st.State, mode)
	}
	return fmt.Sprintf("pushtalk: %s (%s, %s)", st.State, mode, st.Model)
}

// PulseInterval is the animation frame period.
const PulseInterval = 30 * time.Millisecond

const (
	pulsePeriod   = 1200 * time.Millisecond
	pulseMinAlpha = 0.45
)

// Pulse animates the indicator while recording or processing. Idle states
// are drawn at full opacity.
type Pulse struct {
	phase    float64
	animated bool
}

// Reset restarts the animation for a new state.
func (p *Pulse) Reset(st session.State) {
	p.phase = 0
	p.animated = st != session.Idle
}

// Advance moves one frame forward and returns the alpha to draw with.
func (p *Pulse) Advance() uint8 {
	if !p.animated {
		return 255
	}
	p.phase += 2 * math.Pi * float64(PulseInterval) / float64(pulsePeriod)
	if p.phase >= 2*math.Pi {
		p.phase -= 2 * math.Pi
	}
	return p.Alpha()
}

// Alpha returns the opacity for the current phase. Phase 0 is fully opaque.
func (p *Pulse) Alpha() uint8 {
	if !p.animated {
		return 255
	}
	// cos keeps phase 0 at the top of the wave
	level := pulseMinAlpha + (1-pulseMinAlpha)*(1+math.Cos(p.phase))/2
	return uint8(math.Round(255 * level))
}

// Animated reports whether the pulse changes between frames.
func (p *Pulse) Animated() bool {
	return p.animated
}
