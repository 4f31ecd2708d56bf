// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package screens is the root Bubble Tea model of tidedesk: the login form
// and the dashboard, reports and diagnostics screens, with the session
// overlay and toasts drawn on top.
package screens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/tidedesk/internal/backoffice"
	"github.com/jeranaias/tidedesk/internal/reports"
	"github.com/jeranaias/tidedesk/internal/security"
	"github.com/jeranaias/tidedesk/internal/security/auth"
	"github.com/jeranaias/tidedesk/internal/storage"
	"github.com/jeranaias/tidedesk/internal/telemetry"
	"github.com/jeranaias/tidedesk/internal/ui/components"
	"github.com/jeranaias/tidedesk/internal/ui/styles"
)

// Screen identifies a top-level view.
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenDashboard
	ScreenReports
	ScreenDiagnostics
)

// Route returns the telemetry route name of the screen.
func (s Screen) Route() string {
	switch s {
	case ScreenDashboard:
		return "dashboard"
	case ScreenReports:
		return "reports"
	case ScreenDiagnostics:
		return "diagnostics"
	default:
		return "login"
	}
}

func (s Screen) title() string {
	switch s {
	case ScreenDashboard:
		return "แดชบอร์ด"
	case ScreenReports:
		return "รายงาน"
	case ScreenDiagnostics:
		return "Diagnostics"
	default:
		return "เข้าสู่ระบบ"
	}
}

var tabs = []Screen{ScreenDashboard, ScreenReports, ScreenDiagnostics}

// =============================================================================
// MODEL
// =============================================================================

// Model is the root model.
type Model struct {
	app   *backoffice.App
	theme *styles.Theme
	ctx   context.Context
	keys  keyMap

	screen Screen
	width  int
	height int

	login   loginForm
	overlay components.SessionTimeoutOverlay
	toasts  components.ToastStack

	user     auth.User
	txs      []reports.Transaction
	products []reports.Product
	dash     backoffice.DashboardView
	reps     backoffice.ReportsView
	diag     string
	diagData diagnosticsMsg

	subs     map[string]<-chan []storage.Document
	rendered bool
}

// New returns the root model. ctx bounds the document subscriptions.
func New(ctx context.Context, app *backoffice.App, theme *styles.Theme) *Model {
	remembered, _ := app.Login.RememberedEmail(ctx)
	return &Model{
		app:     app,
		theme:   theme,
		ctx:     ctx,
		keys:    defaultKeyMap(),
		screen:  ScreenLogin,
		login:   newLoginForm(remembered),
		overlay: components.NewSessionTimeoutOverlay(),
		toasts:  components.NewToastStack(40),
		subs:    make(map[string]<-chan []storage.Document),
	}
}

// Screen returns the current screen.
func (m *Model) Screen() Screen { return m.screen }

// Init starts the event pumps.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		waitSessionEvent(m.app.Session.Events()),
		waitToast(m.app.Notifier.Toasts()),
		tick(),
	)
}

// Update routes messages. Every input event is first reported to the
// activity tracker.
// A panic while handling a message is recorded and the message dropped.
func (m *Model) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	model = m
	defer m.recoverUpdate(msg, &cmd)

	if kind, ok := SignalFor(msg); ok {
		m.app.Activity.Record(kind)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.overlay.SetSize(msg.Width, msg.Height)
		m.toasts.Width = min(40, msg.Width/2)
		if m.screen == ScreenDiagnostics {
			m.diag = renderDiagnostics(m.diagData, m.width-4)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionEventMsg:
		cmd := m.handleSessionEvent(msg.ev)
		return m, tea.Batch(cmd, m.pump(msg))

	case toastMsg:
		return m, m.pump(msg)

	case tickMsg:
		if m.overlay.IsVisible() && !m.overlay.IsExpired() {
			m.overlay.UpdateTime(m.app.Session.Status().TimeRemaining)
		}
		return m, m.pump(msg)

	case docsMsg:
		m.applyDocs(msg)
		return m, m.pump(msg)

	case submitLoginMsg:
		return m, loginCmd(m.ctx, m.app.Login, msg.req)

	case submitRegisterMsg:
		return m, registerCmd(m.ctx, m.app.Login, msg.req)

	case loginResultMsg:
		m.login.busy = false
		if msg.err != nil {
			m.login.err = auth.ErrorMessage(security.OpLogin, msg.err)
			m.login.inputs[fieldPassword].Reset()
			m.login.inputs[fieldCode].Reset()
			return m, nil
		}
		m.user = msg.user
		m.app.Notifier.ShowSuccess("ยินดีต้อนรับ " + msg.user.DisplayName)
		return m, nil

	case registerResultMsg:
		m.login.busy = false
		if msg.err != nil {
			m.login.err = auth.ErrorMessage(security.OpRegister, msg.err)
			return m, nil
		}
		m.user = msg.user
		m.app.Notifier.ShowSuccess("สมัครสมาชิกสำเร็จ")
		return m, nil

	case components.ExtendSessionMsg:
		if err := m.app.Session.Extend(); err != nil && !errors.Is(err, security.ErrSessionNotWarning) {
			m.app.Errors.CaptureError(telemetry.TypeAppError, err)
		}
		return m, nil

	case components.DeclineSessionMsg:
		if err := m.app.Session.Decline(); err != nil && !errors.Is(err, security.ErrSessionNotWarning) {
			m.app.Errors.CaptureError(telemetry.TypeAppError, err)
		}
		return m, nil

	case diagnosticsMsg:
		m.diagData = msg
		m.diag = renderDiagnostics(msg, m.width-4)
		return m, nil

	case snapshotMsg:
		if msg.err != nil {
			m.app.Notifier.ShowError("Snapshot failed: " + msg.err.Error())
		} else {
			m.app.Notifier.ShowSuccess("Snapshot saved: " + msg.id)
		}
		return m, nil

	case logoutMsg:
		if msg.err != nil {
			m.app.Notifier.ShowError("ออกจากระบบไม่สำเร็จ")
		}
		m.toLogin()
		return m, nil
	}

	if m.screen == ScreenLogin {
		var cmd tea.Cmd
		m.login, cmd = m.login.update(msg)
		return m, cmd
	}
	return m, nil
}

// recoverUpdate records a panic from Update and re-arms the pump that
// delivered msg so its stream keeps flowing.
func (m *Model) recoverUpdate(msg tea.Msg, cmd *tea.Cmd) {
	r := recover()
	if r == nil {
		return
	}
	m.app.Errors.CapturePanic("ui.update", r)
	*cmd = m.pump(msg)
}

// pump returns the command that waits for the next message of msg's stream,
// or nil if msg is not a stream message.
func (m *Model) pump(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case sessionEventMsg:
		return waitSessionEvent(m.app.Session.Events())
	case toastMsg:
		return waitToast(m.app.Notifier.Toasts())
	case tickMsg:
		return tick()
	case docsMsg:
		if ch, ok := m.subs[msg.collection]; ok {
			return waitDocs(msg.collection, ch)
		}
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.overlay.IsVisible() {
		var cmd tea.Cmd
		m.overlay, cmd = m.overlay.Update(msg)
		return m, cmd
	}

	if m.screen == ScreenLogin {
		var cmd tea.Cmd
		m.login, cmd = m.login.update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Dashboard):
		return m, m.navigate(ScreenDashboard)
	case key.Matches(msg, m.keys.Reports):
		return m, m.navigate(ScreenReports)
	case key.Matches(msg, m.keys.Diagnostics):
		return m, m.navigate(ScreenDiagnostics)
	case key.Matches(msg, m.keys.NextTab):
		next := ScreenDashboard
		for i, s := range tabs {
			if s == m.screen {
				next = tabs[(i+1)%len(tabs)]
			}
		}
		return m, m.navigate(next)
	case key.Matches(msg, m.keys.Dismiss):
		m.app.Notifier.DismissAll()
		return m, nil
	case key.Matches(msg, m.keys.Logout):
		return m, m.logout()
	}

	if m.screen == ScreenDiagnostics {
		switch {
		case key.Matches(msg, m.keys.Refresh):
			return m, m.loadDiagnostics()
		case key.Matches(msg, m.keys.Snapshot):
			return m, m.snapshot()
		case key.Matches(msg, m.keys.Clear):
			return m, m.clearTelemetry()
		}
	}
	return m, nil
}

// =============================================================================
// SESSION
// =============================================================================

func (m *Model) handleSessionEvent(ev security.SessionEvent) tea.Cmd {
	switch ev.Kind {
	case security.EventKindStarted:
		m.overlay.Hide()
		if u, ok := m.app.Auth.CurrentUser(); ok {
			m.user = u
		}
		m.login.clearSecrets()
		cmd := m.navigate(ScreenDashboard)
		return tea.Batch(cmd, m.subscribe())
	case security.EventKindWarning:
		m.overlay.Show(ev.Remaining, m.app.Session.Status().WarningLead)
	case security.EventKindExtended:
		m.overlay.Hide()
	case security.EventKindExpired:
		m.overlay.ShowExpired(time.Duration(m.app.Config.Session.LogoutCountdownSecs) * time.Second)
	case security.EventKindSignedOut:
		m.overlay.ShowExpired(ev.Remaining)
	case security.EventKindNavigateLogin:
		m.toLogin()
	case security.EventKindStopped:
		if !m.overlay.IsExpired() {
			m.toLogin()
		}
	}
	return nil
}

func (m *Model) logout() tea.Cmd {
	ctx, app := m.ctx, m.app
	return func() tea.Msg {
		return logoutMsg{err: app.Session.ManualLogout(ctx)}
	}
}

func (m *Model) toLogin() {
	m.overlay.Hide()
	m.user = auth.User{}
	m.login.busy = false
	m.login.clearSecrets()
	if m.screen != ScreenLogin {
		m.screen = ScreenLogin
		m.app.Navigate(ScreenLogin.Route())
	}
}

// =============================================================================
// NAVIGATION AND DATA
// =============================================================================

func (m *Model) navigate(to Screen) tea.Cmd {
	if to == m.screen {
		return nil
	}
	m.screen = to
	m.app.Navigate(to.Route())
	if to == ScreenDiagnostics {
		return m.loadDiagnostics()
	}
	return nil
}

// subscribe opens the live document feeds, once per collection. They stay
// open across sign-outs; the data is only shown while signed in.
func (m *Model) subscribe() tea.Cmd {
	var cmds []tea.Cmd
	for _, c := range []string{storage.CollectionTransactions, storage.CollectionProducts} {
		if _, ok := m.subs[c]; ok {
			continue
		}
		ch, err := m.app.Docs.Subscribe(m.ctx, c, storage.QueryOptions{})
		if err != nil {
			m.app.Errors.CaptureError(telemetry.TypeStorageError, err)
			m.app.Notifier.ShowError("โหลดข้อมูลไม่สำเร็จ")
			continue
		}
		m.subs[c] = ch
		cmds = append(cmds, waitDocs(c, ch))
	}
	return tea.Batch(cmds...)
}

func (m *Model) applyDocs(msg docsMsg) {
	switch msg.collection {
	case storage.CollectionTransactions:
		m.txs = reports.Transactions(msg.docs, m.app.Clock.Now().Location())
	case storage.CollectionProducts:
		m.products = reports.Products(msg.docs)
	}
	m.dash = m.app.BuildDashboard(m.txs, m.products)
	m.reps = backoffice.BuildReports(m.txs, m.products)
}

func (m *Model) loadDiagnostics() tea.Cmd {
	ctx, app := m.ctx, m.app
	return func() tea.Msg {
		return diagnosticsMsg{errors: app.Errors.Report(ctx), perf: app.Perf.Report(ctx)}
	}
}

func (m *Model) snapshot() tea.Cmd {
	ctx, app := m.ctx, m.app
	return func() tea.Msg {
		id, err := app.Snapshot(ctx)
		return snapshotMsg{id: id, err: err}
	}
}

func (m *Model) clearTelemetry() tea.Cmd {
	ctx, app := m.ctx, m.app
	return func() tea.Msg {
		err := errors.Join(app.Errors.Clear(ctx), app.Perf.Clear(ctx))
		if err != nil {
			app.Notifier.ShowError("Clear failed: " + err.Error())
		} else {
			app.Notifier.ShowSuccess("Telemetry cleared")
		}
		return diagnosticsMsg{errors: app.Errors.Report(ctx), perf: app.Perf.Report(ctx)}
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the current screen with overlays on top.
func (m *Model) View() string {
	if !m.rendered {
		m.rendered = true
		m.app.Perf.PageLoaded()
	}

	if m.overlay.IsVisible() {
		return m.overlay.View()
	}

	var body string
	switch m.screen {
	case ScreenLogin:
		body = lipgloss.Place(max(m.width, 60), max(m.height-4, 20), lipgloss.Center, lipgloss.Center,
			m.login.view(m.theme))
		return lipgloss.JoinVertical(lipgloss.Left, body, m.toastView())
	case ScreenDashboard:
		body = renderDashboard(m.theme, m.dash, m.width, m.app.Clock.Now())
	case ScreenReports:
		body = renderReports(m.theme, m.reps, m.width)
	case ScreenDiagnostics:
		body = m.diag
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.theme.App.Render(body),
		m.toastView(),
		m.footer(),
	)
}

func (m *Model) header() string {
	parts := []string{m.theme.Brand.Render("tidedesk")}
	for i, s := range tabs {
		label := fmt.Sprintf("%d %s", i+1, s.title())
		if s == m.screen {
			parts = append(parts, m.theme.TabActive.Render(label))
		} else {
			parts = append(parts, m.theme.Tab.Render(label))
		}
	}
	user := m.user.DisplayName
	if user == "" {
		user = m.user.Email
	}
	left := strings.Join(parts, " ")
	right := m.theme.Muted.Render(user)
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return m.theme.Header.Render(left + strings.Repeat(" ", gap) + right)
}

func (m *Model) footer() string {
	var parts []string
	for _, b := range m.keys.shortHelp(m.screen) {
		h := b.Help()
		parts = append(parts, m.theme.Key.Render(h.Key)+" "+m.theme.KeyDesc.Render(h.Desc))
	}
	return m.theme.Footer.Render(strings.Join(parts, "  "))
}

func (m *Model) toastView() string {
	v := m.toasts.View(m.app.Notifier.Active(), m.app.Clock.Now())
	if v == "" {
		return ""
	}
	return lipgloss.PlaceHorizontal(max(m.width, lipgloss.Width(v)), lipgloss.Right, v)
}
