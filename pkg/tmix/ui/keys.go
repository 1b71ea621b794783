package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit  key.Binding
	Sinks key.Binding
	Help  key.Binding
}

var keys = keyMap{
	Quit:  key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	Sinks: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "toggle sink meters")),
	Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Sinks},
		{k.Help, k.Quit},
	}
}
