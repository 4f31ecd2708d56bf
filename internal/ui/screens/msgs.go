// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package screens

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/tidedesk/internal/security"
	"github.com/jeranaias/tidedesk/internal/security/auth"
	"github.com/jeranaias/tidedesk/internal/storage"
	"github.com/jeranaias/tidedesk/internal/telemetry"
)

// =============================================================================
// MESSAGES
// =============================================================================

type sessionEventMsg struct{ ev security.SessionEvent }

type toastMsg struct{ toast telemetry.Toast }

type tickMsg time.Time

type docsMsg struct {
	collection string
	docs       []storage.Document
}

type loginResultMsg struct {
	user auth.User
	err  error
}

type registerResultMsg struct {
	user auth.User
	err  error
}

type diagnosticsMsg struct {
	errors telemetry.ErrorReport
	perf   telemetry.PerformanceReport
}

type snapshotMsg struct {
	id  string
	err error
}

type logoutMsg struct{ err error }

// =============================================================================
// COMMANDS
// =============================================================================

// waitSessionEvent blocks on the controller's event channel. The model
// re-issues it after every event.
func waitSessionEvent(ch <-chan security.SessionEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return sessionEventMsg{ev: ev}
	}
}

func waitToast(ch <-chan telemetry.Toast) tea.Cmd {
	return func() tea.Msg {
		t, ok := <-ch
		if !ok {
			return nil
		}
		return toastMsg{toast: t}
	}
}

func waitDocs(collection string, ch <-chan []storage.Document) tea.Cmd {
	return func() tea.Msg {
		docs, ok := <-ch
		if !ok {
			return nil
		}
		return docsMsg{collection: collection, docs: docs}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func loginCmd(ctx context.Context, svc *auth.LoginService, req auth.LoginRequest) tea.Cmd {
	return func() tea.Msg {
		user, err := svc.Login(ctx, req)
		return loginResultMsg{user: user, err: err}
	}
}

func registerCmd(ctx context.Context, svc *auth.LoginService, req auth.SignUpRequest) tea.Cmd {
	return func() tea.Msg {
		user, err := svc.Register(ctx, req)
		return registerResultMsg{user: user, err: err}
	}
}
