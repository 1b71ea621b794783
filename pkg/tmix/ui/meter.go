package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/stalexteam/tmix/pkg/tmix/util"
)

const (
	meterHeight = 10
	columnWidth = 12

	filledCell = "███"
	emptyCell  = "░░░"
)

type meter struct {
	label   string
	percent float32
	muted   bool
	corked  bool
	stale   bool
	sink    bool
}

// filledRows returns how many of height rows a level fills. Levels above 100% fill the meter
func filledRows(percent float32, height int) int {
	clamped := util.ClampPercent(percent)
	return int(math.Round(float64(clamped) / 100 * float64(height)))
}

// bar draws the meter rows top to bottom
func bar(percent float32, height int) []string {
	filled := filledRows(percent, height)

	rows := make([]string, height)
	for i := range rows {
		if height-i <= filled {
			rows[i] = filledCell
		} else {
			rows[i] = emptyCell
		}
	}

	return rows
}

func (m meter) status() string {
	switch {
	case m.muted:
		return "muted"
	case m.corked:
		return "paused"
	}

	return fmt.Sprintf("%.0f%%", m.percent)
}

func (m meter) style() lipgloss.Style {
	switch {
	case m.stale:
		return dimStyle
	case m.muted:
		return mutedStyle
	case m.corked:
		return corkedStyle
	case m.sink:
		return sinkStyle
	}

	return levelStyle
}

func (m meter) render() string {
	style := m.style()
	column := lipgloss.NewStyle().Width(columnWidth).Align(lipgloss.Center)

	lines := []string{style.Render(strings.Join(bar(m.percent, meterHeight), "\n"))}
	lines = append(lines, style.Render(m.status()))
	lines = append(lines, labelStyle.Render(truncate(m.label, columnWidth-2)))

	return column.Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
}
