package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Base styles for livescribe TUI components
var (
	// Header style for titles and section headers
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	// Label style for form field labels
	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	// Success style for positive feedback
	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// Warning style for warnings and missing tools
	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// Muted style for secondary text
	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

const logoASCII = `
 _ _                              _ _
| (_)_   _____  ___  ___ _ __(_) |__   ___
| | \ \ / / _ \/ __|/ __| '__| | '_ \ / _ \
| | |\ V /  __/\__ \ (__| |  | | |_) |  __/
|_|_| \_/ \___||___/\___|_|  |_|_.__/ \___|`

// Logo returns the livescribe ASCII art
func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}
