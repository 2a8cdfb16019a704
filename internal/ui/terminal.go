package ui

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ColorEnv overrides color detection: "always", "never" or "auto".
const ColorEnv = "SORTGATE_COLOR"

// ColorEnabled reports whether ANSI colors should be written to w.
// SORTGATE_COLOR wins, then NO_COLOR and CLICOLOR_FORCE/CLICOLOR; otherwise
// colors are used only when w is a terminal.
func ColorEnabled(w io.Writer) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(ColorEnv))) {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	return isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
