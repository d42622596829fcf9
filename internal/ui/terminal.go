// Package ui holds small terminal presentation helpers for the CLI.
package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor returns true when ANSI colors should be used on stdout.
// It respects NO_COLOR, CLICOLOR_FORCE, CLICOLOR, and TTY detection.
func ShouldUseColor() bool {
	// https://no-color.org — any non-empty value disables color.
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	// CLICOLOR_FORCE=1 forces color even without a TTY.
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	// CLICOLOR=0 explicitly disables color.
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	// Default: color if stdout is a terminal.
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ANSI sequences used by the CLI tables.
const (
	ansiReset  = "\x1b[0m"
	ansiYellow = "\x1b[33m"
	ansiGreen  = "\x1b[32m"
	ansiRed    = "\x1b[31m"
	ansiDim    = "\x1b[2m"
)

// Drift colors the deployment drift column: entries needing an update are
// highlighted, in-sync entries are dimmed.
func Drift(needsUpdate bool, useColor bool) string {
	if needsUpdate {
		if useColor {
			return ansiYellow + "needs update" + ansiReset
		}
		return "needs update"
	}
	if useColor {
		return ansiDim + "in sync" + ansiReset
	}
	return "in sync"
}

// Outcome colors a deploy outcome word (created/updated/failed).
func Outcome(word string, useColor bool) string {
	if !useColor {
		return word
	}
	switch word {
	case "created":
		return ansiGreen + word + ansiReset
	case "failed":
		return ansiRed + word + ansiReset
	default:
		return word
	}
}
