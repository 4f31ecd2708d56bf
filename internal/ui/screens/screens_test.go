// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package screens

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/tidedesk/internal/backoffice"
	"github.com/jeranaias/tidedesk/internal/config"
	"github.com/jeranaias/tidedesk/internal/security"
	"github.com/jeranaias/tidedesk/internal/security/auth"
	"github.com/jeranaias/tidedesk/internal/telemetry"
	"github.com/jeranaias/tidedesk/internal/ui/components"
	"github.com/jeranaias/tidedesk/internal/ui/styles"
	"github.com/jeranaias/tidedesk/internal/util"
)

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func typeText(f loginForm, s string) loginForm {
	for _, r := range s {
		f, _ = f.update(runes(string(r)))
	}
	return f
}

// =============================================================================
// ACTIVITY MAPPING
// =============================================================================

func TestSignalFor(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.Msg
		want security.SignalKind
		ok   bool
	}{
		{"key", runes("a"), security.SignalKeyPress, true},
		{"focus", tea.FocusMsg{}, security.SignalVisibilityRegained, true},
		{"wheel", tea.MouseMsg{Type: tea.MouseWheelDown}, security.SignalScroll, true},
		{"motion", tea.MouseMsg{Type: tea.MouseMotion}, security.SignalPointerMove, true},
		{"release", tea.MouseMsg{Type: tea.MouseRelease}, security.SignalClick, true},
		{"press", tea.MouseMsg{Type: tea.MouseLeft}, security.SignalPointerDown, true},
		{"resize", tea.WindowSizeMsg{Width: 80}, 0, false},
		{"tick", tickMsg(time.Now()), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SignalFor(tt.msg)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestScreenRoute(t *testing.T) {
	assert.Equal(t, "login", ScreenLogin.Route())
	assert.Equal(t, "dashboard", ScreenDashboard.Route())
	assert.Equal(t, "reports", ScreenReports.Route())
	assert.Equal(t, "diagnostics", ScreenDiagnostics.Route())
}

// =============================================================================
// LOGIN FORM
// =============================================================================

func TestLoginForm_SubmitCarriesFields(t *testing.T) {
	f := newLoginForm("")
	assert.Equal(t, fieldEmail, f.focus)

	f = typeText(f, "malee@example.com")
	f, _ = f.update(tea.KeyMsg{Type: tea.KeyTab})
	f = typeText(f, "secret1")
	f, _ = f.update(tea.KeyMsg{Type: tea.KeyTab})
	f, _ = f.update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusRemember, f.focus)
	f, _ = f.update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.True(t, f.remember)

	f, cmd := f.update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Nil(t, cmd)
	f, cmd = f.update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, f.busy)

	msg, ok := cmd().(submitLoginMsg)
	require.True(t, ok)
	assert.Equal(t, auth.LoginRequest{Email: "malee@example.com", Password: "secret1", Remember: true}, msg.req)

	// Busy forms ignore input until the result arrives.
	_, cmd = f.update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestLoginForm_RememberedEmail(t *testing.T) {
	f := newLoginForm("malee@example.com")
	assert.True(t, f.remember)
	assert.Equal(t, fieldPassword, f.focus)
	assert.Equal(t, "malee@example.com", f.value(fieldEmail))
}

func TestLoginForm_RegisterMode(t *testing.T) {
	f := newLoginForm("")
	f, _ = f.update(tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, modeRegister, f.mode)
	assert.Equal(t, fieldName, f.focus)

	f = typeText(f, "Nok")
	for _, s := range []string{"nok@example.com", "secret1", "secret1"} {
		f, _ = f.update(tea.KeyMsg{Type: tea.KeyTab})
		f = typeText(f, s)
	}
	f, cmd := f.update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(submitRegisterMsg)
	require.True(t, ok)
	assert.Equal(t, auth.SignUpRequest{DisplayName: "Nok", Email: "nok@example.com", Password: "secret1", Confirm: "secret1"}, msg.req)

	assert.Contains(t, f.view(styles.NewTheme(styles.ThemeDark)), "สมัครสมาชิก")
}

// =============================================================================
// ROOT MODEL
// =============================================================================

type harness struct {
	app   *backoffice.App
	clock *util.FakeClock
	model *Model
	ctx   context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.WatchExternal = false

	clock := util.NewFakeClock(time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC))
	app, err := backoffice.New(cfg, backoffice.WithClock(clock), backoffice.WithAuthOptions(auth.WithIterations(1000)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		app.Close()
	})
	app.Start(ctx)

	_, _, err = app.Auth.AddUser(ctx, auth.NewUser{Email: "malee@example.com", Password: "secret1", DisplayName: "Malee"})
	require.NoError(t, err)

	m := New(ctx, app, styles.NewTheme(styles.ThemeDark))
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return &harness{app: app, clock: clock, model: m, ctx: ctx}
}

// nextSession waits for the next controller event of kind and feeds it to
// the model.
func (h *harness) nextSession(t *testing.T, kind security.SessionEventKind) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.app.Session.Events():
			h.model.Update(sessionEventMsg{ev: ev})
			if ev.Kind == kind {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v", kind)
		}
	}
}

func (h *harness) signIn(t *testing.T) {
	t.Helper()
	_, cmd := h.model.Update(submitLoginMsg{req: auth.LoginRequest{Email: "malee@example.com", Password: "secret1"}})
	require.NotNil(t, cmd)
	h.model.Update(cmd())
	h.nextSession(t, security.EventKindStarted)
}

func TestModel_LoginShowsDashboard(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, ScreenLogin, h.model.Screen())

	h.signIn(t)
	assert.Equal(t, ScreenDashboard, h.model.Screen())
	assert.Equal(t, "dashboard", h.app.Locator.Route())
	assert.Equal(t, "Malee", h.model.user.DisplayName)

	view := h.model.View()
	assert.Contains(t, view, "tidedesk")
	assert.Contains(t, view, "Malee")
	assert.Contains(t, h.app.Perf.Report(h.ctx).PageLoad, "totalLoadTime")
}

func TestModel_FailedLoginShowsMessage(t *testing.T) {
	h := newHarness(t)
	_, cmd := h.model.Update(submitLoginMsg{req: auth.LoginRequest{Email: "malee@example.com", Password: "wrong-pass"}})
	h.model.Update(cmd())

	assert.Equal(t, ScreenLogin, h.model.Screen())
	assert.Equal(t, "รหัสผ่านไม่ถูกต้อง", h.model.login.err)
	assert.False(t, h.model.login.busy)
}

func TestModel_WarningOverlayAndExtend(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.clock.Advance(25 * time.Minute)
	h.nextSession(t, security.EventKindWarning)
	require.True(t, h.model.overlay.IsVisible())

	// Typing an unrelated key neither dismisses nor extends.
	h.model.Update(runes("z"))
	assert.True(t, h.model.overlay.IsVisible())
	assert.Equal(t, security.StateWarning, h.app.Session.Status().State)

	_, cmd := h.model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.IsType(t, components.ExtendSessionMsg{}, msg)
	h.model.Update(msg)
	h.nextSession(t, security.EventKindExtended)

	assert.False(t, h.model.overlay.IsVisible())
	assert.Equal(t, security.StateActive, h.app.Session.Status().State)
}

func TestModel_ExpiryReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.clock.Advance(30 * time.Minute)
	h.nextSession(t, security.EventKindSignedOut)
	assert.True(t, h.model.overlay.IsExpired())

	h.clock.Advance(3 * time.Second)
	h.nextSession(t, security.EventKindNavigateLogin)
	assert.Equal(t, ScreenLogin, h.model.Screen())
	assert.False(t, h.model.overlay.IsVisible())
}

func TestModel_ManualLogout(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	_, cmd := h.model.Update(runes("L"))
	require.NotNil(t, cmd)
	h.model.Update(cmd())
	assert.Equal(t, ScreenLogin, h.model.Screen())
	assert.False(t, h.app.Session.Status().IsActive)
}

func TestModel_NavigationAndDiagnostics(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.model.Update(runes("2"))
	assert.Equal(t, ScreenReports, h.model.Screen())

	_, cmd := h.model.Update(runes("3"))
	require.NotNil(t, cmd)
	h.model.Update(cmd())
	assert.Equal(t, ScreenDiagnostics, h.model.Screen())
	assert.Contains(t, h.model.diag, "Diagnostics")

	_, cmd = h.model.Update(runes("s"))
	require.NotNil(t, cmd)
	h.model.Update(cmd())
	n, err := h.app.Archive.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rep := h.app.Perf.Report(h.ctx)
	assert.GreaterOrEqual(t, rep.MetricTypes[telemetry.TypePageNavigation], 3)
}

func TestModel_DocumentsFeedDashboard(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	_, err := h.app.Import(h.ctx, strings.NewReader(`{
	  "products": [{"name": "ปูม้า", "stock": 0}],
	  "transactions": [{"type": "sell", "productName": "ปูม้า", "quantity": 2, "total": 600, "date": "2024-06-15T08:00:00Z"}]
	}`))
	require.NoError(t, err)

	for _, c := range []string{"transactions", "products"} {
		ch := h.model.subs[c]
		require.NotNil(t, ch, c)
		require.Eventually(t, func() bool {
			select {
			case docs := <-ch:
				h.model.Update(docsMsg{collection: c, docs: docs})
				return len(docs) == 1
			default:
				return false
			}
		}, 2*time.Second, 10*time.Millisecond)
	}

	assert.Equal(t, 600.0, h.model.dash.Stats.Revenue)
	require.Len(t, h.model.dash.Alerts, 1)
	assert.Contains(t, h.model.View(), "หมดสต็อก")
}

// awaitMsg runs cmd off the test goroutine and returns its message.
func awaitMsg(t *testing.T, cmd tea.Cmd) <-chan tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()
	return out
}

func TestModel_PanicKeepsStreamsFlowing(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	before := h.app.Errors.Captured()

	crash := func(msg tea.Msg) (cmd tea.Cmd) {
		defer h.model.recoverUpdate(msg, &cmd)
		panic("render failed")
	}

	assert.NotNil(t, crash(tickMsg(h.clock.Now())))
	assert.Nil(t, crash(runes("x")))

	next := awaitMsg(t, crash(sessionEventMsg{}))
	h.clock.Advance(25 * time.Minute)
	select {
	case msg := <-next:
		ev, ok := msg.(sessionEventMsg)
		require.True(t, ok, "got %T", msg)
		assert.Equal(t, security.EventKindWarning, ev.ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("session stream stopped after a recovered panic")
	}

	toast := awaitMsg(t, crash(toastMsg{}))
	h.app.Notifier.ShowSuccess("ok")
	select {
	case msg := <-toast:
		_, ok := msg.(toastMsg)
		assert.True(t, ok, "got %T", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("toast stream stopped after a recovered panic")
	}

	assert.Equal(t, 4, h.app.Errors.Captured()-before)
	last := h.app.Errors.Current()
	require.NotEmpty(t, last)
	assert.Equal(t, telemetry.TypePanic, last[len(last)-1].Type)
	assert.Equal(t, "ui.update", last[len(last)-1].Details["where"])
}
