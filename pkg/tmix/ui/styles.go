package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	groupStyle = lipgloss.NewStyle().
			MarginRight(2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89B4FA"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CDD6F4"))

	levelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1"))

	sinkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#89B4FA"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8"))

	corkedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAB387"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))
)
