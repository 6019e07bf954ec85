package components

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the notice's key bindings.
type KeyMap struct {
	Copy    key.Binding
	Dismiss key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Copy: key.NewBinding(
			key.WithKeys("c", "y"),
			key.WithHelp("c", "copy trace id"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x", "esc"),
			key.WithHelp("x", "dismiss"),
		),
	}
}

// ShortHelp implements help.KeyMap. Disabled bindings are skipped by the
// help renderer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Copy, k.Dismiss}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
