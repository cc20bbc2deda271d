package ui

import "github.com/charmbracelet/lipgloss"

var (
	TitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).BorderStyle(lipgloss.DoubleBorder()).BorderBottom(true).Padding(0, 1)
	HighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	DimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	ErrStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	SuccessStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// StatusStyle picks the style for a cluster status.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "available":
		return SuccessStyle
	case "creating", "modifying", "rebooting", "resizing":
		return HighlightStyle
	case "deleting", "incompatible-network", "incompatible-parameters", "hardware-failure", "storage-full":
		return ErrStyle
	default:
		return DimStyle
	}
}
