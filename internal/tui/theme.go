package tui

import (
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorSuccess = lipgloss.Color("#22C55E")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#94A3B8")

	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).MarginBottom(1)
	styleOK     = lipgloss.NewStyle().Foreground(colorSuccess)
	styleErr    = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleMuted  = lipgloss.NewStyle().Foreground(colorMuted)
)

func clearScreen() {
	termenv.NewOutput(os.Stdout).ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()
	t.Focused.Title = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(colorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(colorPrimary)
	return t
}
