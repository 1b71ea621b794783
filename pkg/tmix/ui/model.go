// Package ui draws tmix's level meters in the terminal
package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stalexteam/tmix/pkg/tmix"
)

const (
	defaultRenderInterval = 50 * time.Millisecond
	defaultStaleAfter     = 2 * time.Second
)

// Source is where the model gets its data from on every frame. *tmix.Cache satisfies it
type Source interface {
	Update() int
	Snapshot() tmix.Snapshot
	LastSeen(index uint32) (time.Time, bool)
}

// Options are the settings the model follows. Sending an Options value to the program
// replaces them, which is how config reloads reach the screen
type Options struct {
	RenderInterval time.Duration
	StaleAfter     time.Duration
	ShowSinks      bool
	HiddenStreams  []string
}

// OptionsFromValues derives render options from the loaded config
func OptionsFromValues(values tmix.Values) Options {
	return Options{
		RenderInterval: values.RenderInterval,
		StaleAfter:     3 * values.PollInterval,
		ShowSinks:      values.ShowSinks,
		HiddenStreams:  values.HiddenStreams,
	}
}

type tickMsg time.Time

// Model is the bubbletea model for the mixer screen
type Model struct {
	source   Source
	options  Options
	labels   *labeler
	snapshot tmix.Snapshot
	now      time.Time

	width  int
	height int

	help     help.Model
	showHelp bool
}

// New creates a model reading from source
func New(source Source, options Options) Model {
	return Model{
		source:   source,
		options:  normalizeOptions(options),
		labels:   newLabeler(),
		snapshot: tmix.BuildSnapshot(nil, nil),
		now:      time.Now(),
		help:     help.New(),
	}
}

func normalizeOptions(options Options) Options {
	if options.RenderInterval <= 0 {
		options.RenderInterval = defaultRenderInterval
	}

	if options.StaleAfter <= 0 {
		options.StaleAfter = defaultStaleAfter
	}

	return options
}

// Init starts the frame ticker
func (m Model) Init() tea.Cmd {
	return tick(m.options.RenderInterval)
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles keys, resizes, option changes and frame ticks
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Sinks):
			m.options.ShowSinks = !m.options.ShowSinks

		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case Options:
		m.options = normalizeOptions(msg)

	case tickMsg:
		m.refresh(time.Time(msg))
		return m, tick(m.options.RenderInterval)
	}

	return m, nil
}

func (m *Model) refresh(now time.Time) {
	m.source.Update()
	m.snapshot = m.source.Snapshot()
	m.now = now
}

// View draws every sink group side by side inside the frame
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("TMIX"))
	b.WriteRune('\n')

	groups := m.renderGroups()

	var body string
	if len(groups) == 0 {
		body = dimStyle.Render("waiting for audio streams...")
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, groups...)
	}

	frame := frameStyle
	if m.width > 2 {
		frame = frame.MaxWidth(m.width)
	}

	b.WriteString(frame.Render(body))
	b.WriteRune('\n')

	if m.showHelp {
		b.WriteString(m.help.FullHelpView(keys.FullHelp()))
	} else {
		b.WriteString(m.help.ShortHelpView(keys.ShortHelp()))
	}

	return b.String()
}

func (m Model) renderGroups() []string {
	var groups []string

	for _, entry := range m.snapshot.Entries() {
		meters := m.metersFor(entry)
		if len(meters) == 0 {
			continue
		}

		columns := make([]string, len(meters))
		for i, mt := range meters {
			columns[i] = mt.render()
		}

		header := headerStyle.Render(truncate(entry.Sink.DisplayName(), len(meters)*columnWidth))
		group := lipgloss.JoinVertical(lipgloss.Left, header, lipgloss.JoinHorizontal(lipgloss.Bottom, columns...))

		groups = append(groups, groupStyle.Render(group))
	}

	return groups
}

func (m Model) metersFor(entry tmix.SinkEntry) []meter {
	var meters []meter

	if m.options.ShowSinks {
		meters = append(meters, meter{
			label:   "master",
			percent: entry.Sink.Volume.Percent(),
			muted:   entry.Sink.Muted,
			sink:    true,
		})
	}

	for _, input := range entry.Inputs {
		label := m.labels.label(input)
		if hidden(label, m.options.HiddenStreams) {
			continue
		}

		meters = append(meters, meter{
			label:   label,
			percent: input.Volume.Percent(),
			muted:   input.Muted,
			corked:  input.Corked,
			stale:   m.isStale(input.Index),
		})
	}

	return meters
}

func (m Model) isStale(index uint32) bool {
	lastSeen, ok := m.source.LastSeen(index)
	if !ok {
		return false
	}

	return m.now.Sub(lastSeen) > m.options.StaleAfter
}
