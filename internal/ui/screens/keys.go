// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package screens

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings of the signed-in screens. The login form uses
// its own field navigation and only honours Quit from here.
type keyMap struct {
	Dashboard   key.Binding
	Reports     key.Binding
	Diagnostics key.Binding
	NextTab     key.Binding
	Refresh     key.Binding
	Snapshot    key.Binding
	Clear       key.Binding
	Dismiss     key.Binding
	Logout      key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Dashboard: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "dashboard"),
		),
		Reports: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "reports"),
		),
		Diagnostics: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "diagnostics"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "next screen"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Snapshot: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save snapshot"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear telemetry"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "dismiss toasts"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "sign out"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// shortHelp lists the bindings shown in the footer of screen s.
func (k keyMap) shortHelp(s Screen) []key.Binding {
	switch s {
	case ScreenDiagnostics:
		return []key.Binding{k.NextTab, k.Refresh, k.Snapshot, k.Clear, k.Logout, k.Quit}
	default:
		return []key.Binding{k.Dashboard, k.Reports, k.Diagnostics, k.Dismiss, k.Logout, k.Quit}
	}
}
