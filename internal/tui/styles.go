package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/agentstation/modelpick/pkg/picker"
)

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6B7280")
	colorText    = lipgloss.Color("#F9FAFB")
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorDanger  = lipgloss.Color("#EF4444")

	styleTitle    = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	styleGroup    = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	styleSelected = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	styleNormal   = lipgloss.NewStyle().Foreground(colorText)
	styleLocked   = lipgloss.NewStyle().Foreground(colorMuted)
	styleHelp     = lipgloss.NewStyle().Foreground(colorMuted)
	styleError    = lipgloss.NewStyle().Foreground(colorDanger)
	styleNotice   = lipgloss.NewStyle().Foreground(colorSuccess)

	stylePrompt = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)
)

// markerGlyph renders a provider's health marker.
func markerGlyph(m picker.Marker) string {
	switch m {
	case picker.MarkerHealthy:
		return lipgloss.NewStyle().Foreground(colorSuccess).Render("●")
	case picker.MarkerDegraded:
		return lipgloss.NewStyle().Foreground(colorWarning).Render("●")
	case picker.MarkerDown:
		return lipgloss.NewStyle().Foreground(colorDanger).Render("●")
	case picker.MarkerLocked:
		return styleLocked.Render("🔒")
	default:
		return styleLocked.Render("○")
	}
}
