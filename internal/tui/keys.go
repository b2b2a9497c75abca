package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Left      key.Binding
	Right     key.Binding
	Up        key.Binding
	Down      key.Binding
	PrevMonth key.Binding
	NextMonth key.Binding
	Today     key.Binding

	Clean key.Binding
	Heart key.Binding
	Clear key.Binding
	Cycle key.Binding
	Reset key.Binding

	NextTab key.Binding
	PrevTab key.Binding
	Reload  key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev day")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next day")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "prev week")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next week")),
		PrevMonth: key.NewBinding(key.WithKeys("[", "pgup"), key.WithHelp("[", "prev month")),
		NextMonth: key.NewBinding(key.WithKeys("]", "pgdown"), key.WithHelp("]", "next month")),
		Today:     key.NewBinding(key.WithKeys("t", "home"), key.WithHelp("t", "today")),

		Clean: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clean")),
		Heart: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "spend ♥ token")),
		Clear: key.NewBinding(key.WithKeys("d", "backspace", "delete"), key.WithHelp("d", "clear")),
		Cycle: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "cycle")),
		Reset: key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "reset all")),

		NextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Clean, k.Heart, k.Clear, k.PrevMonth, k.NextMonth, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.Up, k.Down, k.Today},
		{k.PrevMonth, k.NextMonth, k.NextTab, k.PrevTab},
		{k.Clean, k.Heart, k.Clear, k.Cycle, k.Reset},
		{k.Reload, k.Help, k.Quit},
	}
}
