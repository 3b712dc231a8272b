package ui

import "fmt"

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorOK     = 114 // green
	colorWarn   = 179 // amber
	colorAlert  = 203 // red
)

// Risk bands used by RenderRisk.
const (
	riskWarn  = 50.0
	riskAlert = 70.0
)

var noColor bool

func paint(color int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	return paint(colorAccent, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return paint(colorMuted, s)
}

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string {
	return paint(colorCmd, s)
}

// RenderStatus colors a flow status: idle is muted, healing is amber and
// every other active status uses the accent color.
func RenderStatus(status string) string {
	switch status {
	case "IDLE":
		return paint(colorMuted, status)
	case "HEALING":
		return paint(colorWarn, status)
	default:
		return paint(colorAccent, status)
	}
}

// RenderRisk formats a global risk value colored by band.
func RenderRisk(risk float64) string {
	s := fmt.Sprintf("%.1f", risk)
	switch {
	case risk > riskAlert:
		return paint(colorAlert, s)
	case risk > riskWarn:
		return paint(colorWarn, s)
	default:
		return paint(colorOK, s)
	}
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
