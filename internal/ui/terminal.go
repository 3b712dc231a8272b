package ui

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ColorEnabled reports whether ANSI colors should be written to w. It
// honors NO_COLOR, CLICOLOR_FORCE and CLICOLOR before falling back to TTY
// detection; writers that are not files never get color.
func ColorEnabled(w io.Writer) bool {
	// https://no-color.org: any non-empty value disables color.
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Configure turns color off globally unless w supports it.
func Configure(w io.Writer) {
	if !ColorEnabled(w) {
		ForceNoColor()
	}
}
