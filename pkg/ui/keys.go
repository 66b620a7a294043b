package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all dashboard key bindings.
type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Toggle key.Binding
	Range  key.Binding

	Filter   key.Binding
	Group    key.Binding
	GroupAll key.Binding
	Clear    key.Binding

	ToggleChemicals key.Binding
	ToggleGenes     key.Binding
	ToggleProcesses key.Binding
	ToggleOrgans    key.Binding
	ScopeSelection  key.Binding

	Delete   key.Binding
	Yank     key.Binding
	Save     key.Binding
	Snapshot key.Binding

	Help key.Binding
	Quit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
		Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select row")),
		Toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle row")),
		Range:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "range select")),

		Filter:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter by row AOP")),
		Group:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "group by row AOP")),
		GroupAll: key.NewBinding(key.WithKeys("G"), key.WithHelp("G", "group all AOPs")),
		Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear filter")),

		ToggleChemicals: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "chemicals")),
		ToggleGenes:     key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "genes/proteins")),
		ToggleProcesses: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "GO processes")),
		ToggleOrgans:    key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "organs")),
		ScopeSelection:  key.NewBinding(key.WithKeys("!"), key.WithHelp("!", "scope: selection")),

		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete selected")),
		Yank:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yank selected ids")),
		Save:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save network")),
		Snapshot: key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "export snapshot")),

		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}
