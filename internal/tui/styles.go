package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Card      lipgloss.Style
	Selected  lipgloss.Style
	Header    lipgloss.Style
	Status    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Body      lipgloss.Style
	Error     lipgloss.Style
}

func defaultStyles() styles {
	green := lipgloss.Color("#4F7942")
	return styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(green),
		Subtle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Card:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		Selected:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(green).Padding(0, 1),
		Header:    lipgloss.NewStyle().Bold(true),
		Status:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241")),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B6EA5")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(green),
		Body:      lipgloss.NewStyle().PaddingLeft(2),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#B00020")),
	}
}
