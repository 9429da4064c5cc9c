// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the run view.
type KeyMap struct {
	// Stop abandons the run. The command that is executing finishes;
	// nothing after it starts.
	Stop key.Binding

	// Close leaves the view once the run has ended.
	Close key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Stop: key.NewBinding(
		key.WithKeys("ctrl+c", "q", "esc"),
		key.WithHelp("q", "stop"),
	),
	Close: key.NewBinding(
		key.WithKeys("enter", "q", "esc", "ctrl+c"),
		key.WithHelp("enter", "close"),
	),
}
