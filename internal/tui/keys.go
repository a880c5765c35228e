package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the editor's global bindings. Keys not bound here go to the
// text area.
type keyMap struct {
	Save        key.Binding
	ToggleMode  key.Binding
	ExportHTML  key.Binding
	ExportImage key.Binding
	Outline     key.Binding
	FullPath    key.Binding
	New         key.Binding
	Next        key.Binding
	Close       key.Binding
	Undo        key.Binding
	SaveQuit    key.Binding
	Quit        key.Binding

	Confirm key.Binding
	Cancel  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Save:        key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		ToggleMode:  key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "mode")),
		ExportHTML:  key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "html")),
		ExportImage: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "image")),
		Outline:     key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "outline")),
		FullPath:    key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "path")),
		New:         key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new")),
		Next:        key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "next")),
		Close:       key.NewBinding(key.WithKeys("ctrl+w"), key.WithHelp("ctrl+w", "close")),
		Undo:        key.NewBinding(key.WithKeys("ctrl+z"), key.WithHelp("ctrl+z", "undo")),
		SaveQuit:    key.NewBinding(key.WithKeys("ctrl+q"), key.WithHelp("ctrl+q", "save & quit")),
		Quit:        key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),

		Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Save, k.ToggleMode, k.ExportHTML, k.ExportImage, k.Outline, k.New, k.Next, k.SaveQuit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Save, k.SaveQuit, k.Quit, k.Undo},
		{k.ToggleMode, k.Outline, k.FullPath},
		{k.ExportHTML, k.ExportImage},
		{k.New, k.Next, k.Close},
	}
}

// dialogKeys is the help shown while the save dialog is open.
type dialogKeys struct {
	keyMap
}

// ShortHelp implements help.KeyMap.
func (k dialogKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

// FullHelp implements help.KeyMap.
func (k dialogKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
