package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Todo actions
	Toggle key.Binding
	New    key.Binding
	Edit   key.Binding
	Delete key.Binding
	Expand key.Binding

	// Drag: grab a row, move it with Up/Down, drop it in place.
	Grab key.Binding
	Drop key.Binding

	// Filters
	CycleFilter     key.Binding
	MoreDoneAge     key.Binding
	LessDoneAge     key.Binding
	CategoryFilter  key.Binding
	ClearCategories key.Binding

	// Screens
	Categories key.Binding
	Command    key.Binding
	Help       key.Binding

	// Session
	Refresh       key.Binding
	ToggleOffline key.Binding
	Logout        key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space/x", "toggle done"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new todo"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Expand: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "show notes"),
		),
		Grab: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "move"),
		),
		Drop: key.NewBinding(
			key.WithKeys("m", "enter", "esc"),
			key.WithHelp("m/enter", "drop"),
		),
		CycleFilter: key.NewBinding(
			key.WithKeys("f", "tab"),
			key.WithHelp("f/tab", "cycle filter"),
		),
		MoreDoneAge: key.NewBinding(
			key.WithKeys("+"),
			key.WithHelp("+", "keep done longer"),
		),
		LessDoneAge: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "keep done shorter"),
		),
		CategoryFilter: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "toggle category"),
		),
		ClearCategories: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "all categories"),
		),
		Categories: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "categories"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "sync"),
		),
		ToggleOffline: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "go offline/online"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "sign out"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Toggle, k.New,
		k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Back, k.Quit},
		{k.Toggle, k.New, k.Edit, k.Delete, k.Expand},
		{k.Grab, k.Drop, k.CycleFilter, k.MoreDoneAge, k.LessDoneAge},
		{k.CategoryFilter, k.ClearCategories, k.Categories},
		{k.Command, k.Help, k.Refresh, k.ToggleOffline, k.Logout},
	}
}
