// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package screens

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/tidedesk/internal/security"
)

// SignalFor maps terminal input to an activity signal. Messages that are
// not user input report false.
func SignalFor(msg tea.Msg) (security.SignalKind, bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return security.SignalKeyPress, true
	case tea.FocusMsg:
		return security.SignalVisibilityRegained, true
	case tea.MouseMsg:
		switch msg.Type {
		case tea.MouseWheelUp, tea.MouseWheelDown:
			return security.SignalScroll, true
		case tea.MouseMotion:
			return security.SignalPointerMove, true
		case tea.MouseRelease:
			return security.SignalClick, true
		case tea.MouseLeft, tea.MouseRight, tea.MouseMiddle:
			return security.SignalPointerDown, true
		}
	}
	return 0, false
}
