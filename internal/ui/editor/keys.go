package editor

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up           key.Binding
	Down         key.Binding
	Open         key.Binding
	Toggle       key.Binding
	SwitchPane   key.Binding
	Back         key.Binding
	Save         key.Binding
	ForceSave    key.Binding
	Reload       key.Binding
	Discard      key.Binding
	Seed         key.Binding
	Add          key.Binding
	Remove       key.Binding
	MoveUp       key.Binding
	MoveDown     key.Binding
	Info         key.Binding
	Diff         key.Binding
	Descriptions key.Binding
	Logs         key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open/edit")),
		Toggle:       key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle/fold")),
		SwitchPane:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		Back:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Save:         key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		ForceSave:    key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "save anyway")),
		Reload:       key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
		Discard:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "discard changes")),
		Seed:         key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start from example")),
		Add:          key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add item")),
		Remove:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove item")),
		MoveUp:       key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move item up")),
		MoveDown:     key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move item down")),
		Info:         key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "section info")),
		Diff:         key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "view changes")),
		Descriptions: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "descriptions")),
		Logs:         key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logs")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Save, k.SwitchPane, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Toggle, k.SwitchPane, k.Back},
		{k.Save, k.ForceSave, k.Reload, k.Discard, k.Seed},
		{k.Add, k.Remove, k.MoveUp, k.MoveDown},
		{k.Info, k.Diff, k.Descriptions, k.Logs, k.Help, k.Quit},
	}
}

// Editing keys are handled by the text inputs themselves; these only finish
// or abandon the edit.
var (
	commitLine = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply"))
	commitArea = key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "apply"))
	cancelEdit = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
	confirmYes = key.NewBinding(key.WithKeys("y", "enter"))
	confirmNo  = key.NewBinding(key.WithKeys("n", "esc"))
)
