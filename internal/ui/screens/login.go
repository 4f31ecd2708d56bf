// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package screens

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/tidedesk/internal/security/auth"
	"github.com/jeranaias/tidedesk/internal/ui/styles"
)

// =============================================================================
// LOGIN FORM
// =============================================================================

type formMode int

const (
	modeLogin formMode = iota
	modeRegister
)

// Field indexes. Login uses email, password, code and the remember toggle;
// register uses name, email, password and confirm.
const (
	fieldName = iota
	fieldEmail
	fieldPassword
	fieldConfirm
	fieldCode
	fieldCount
)

// focusRemember and focusSubmit follow the text fields in focus order.
const (
	focusRemember = fieldCount + iota
	focusSubmit
)

type loginForm struct {
	mode     formMode
	inputs   [fieldCount]textinput.Model
	remember bool
	focus    int
	busy     bool
	err      string
}

type submitLoginMsg struct{ req auth.LoginRequest }

type submitRegisterMsg struct{ req auth.SignUpRequest }

func newLoginForm(rememberedEmail string) loginForm {
	f := loginForm{}
	placeholders := [fieldCount]string{
		fieldName:     "ชื่อที่แสดง",
		fieldEmail:    "you@example.com",
		fieldPassword: "password",
		fieldConfirm:  "confirm password",
		fieldCode:     "6-digit code (if enabled)",
	}
	for i := range f.inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = 100
		in.Width = 36
		f.inputs[i] = in
	}
	for _, i := range []int{fieldPassword, fieldConfirm} {
		f.inputs[i].EchoMode = textinput.EchoPassword
		f.inputs[i].EchoCharacter = '•'
		f.inputs[i].CharLimit = 50
	}
	f.inputs[fieldCode].CharLimit = 6

	if rememberedEmail != "" {
		f.inputs[fieldEmail].SetValue(rememberedEmail)
		f.remember = true
		f.setFocus(fieldPassword)
	} else {
		f.setFocus(fieldEmail)
	}
	return f
}

// order returns the focus stops for the current mode.
func (f *loginForm) order() []int {
	if f.mode == modeRegister {
		return []int{fieldName, fieldEmail, fieldPassword, fieldConfirm, focusSubmit}
	}
	return []int{fieldEmail, fieldPassword, fieldCode, focusRemember, focusSubmit}
}

func (f *loginForm) setFocus(i int) {
	f.focus = i
	for j := range f.inputs {
		if j == i {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

func (f *loginForm) move(delta int) {
	order := f.order()
	pos := 0
	for i, stop := range order {
		if stop == f.focus {
			pos = i
		}
	}
	pos = (pos + delta + len(order)) % len(order)
	f.setFocus(order[pos])
}

func (f *loginForm) toggleMode() {
	if f.mode == modeLogin {
		f.mode = modeRegister
		f.setFocus(fieldName)
	} else {
		f.mode = modeLogin
		f.setFocus(fieldEmail)
	}
	f.err = ""
	f.inputs[fieldPassword].Reset()
	f.inputs[fieldConfirm].Reset()
}

// clearSecrets empties password and code fields, after a sign-out or a
// failed attempt.
func (f *loginForm) clearSecrets() {
	f.inputs[fieldPassword].Reset()
	f.inputs[fieldConfirm].Reset()
	f.inputs[fieldCode].Reset()
}

func (f *loginForm) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

func (f loginForm) update(msg tea.Msg) (loginForm, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return f, nil
	}
	if f.busy {
		return f, nil
	}

	switch km.String() {
	case "tab", "down":
		f.move(1)
		return f, nil
	case "shift+tab", "up":
		f.move(-1)
		return f, nil
	case "ctrl+n":
		f.toggleMode()
		return f, nil
	case " ":
		if f.focus == focusRemember {
			f.remember = !f.remember
			return f, nil
		}
	case "enter":
		if f.focus == focusRemember {
			f.remember = !f.remember
			return f, nil
		}
		return f.submit()
	}

	if f.focus < fieldCount {
		var cmd tea.Cmd
		f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
		return f, cmd
	}
	return f, nil
}

func (f loginForm) submit() (loginForm, tea.Cmd) {
	f.busy = true
	f.err = ""
	if f.mode == modeRegister {
		req := auth.SignUpRequest{
			DisplayName: f.value(fieldName),
			Email:       f.value(fieldEmail),
			Password:    f.inputs[fieldPassword].Value(),
			Confirm:     f.inputs[fieldConfirm].Value(),
		}
		return f, func() tea.Msg { return submitRegisterMsg{req: req} }
	}
	req := auth.LoginRequest{
		Email:    f.value(fieldEmail),
		Password: f.inputs[fieldPassword].Value(),
		Code:     f.value(fieldCode),
		Remember: f.remember,
	}
	return f, func() tea.Msg { return submitLoginMsg{req: req} }
}

func (f loginForm) view(theme *styles.Theme) string {
	title := "เข้าสู่ระบบ"
	labels := map[int]string{
		fieldEmail:    "Email",
		fieldPassword: "Password",
		fieldCode:     "Authenticator code",
	}
	if f.mode == modeRegister {
		title = "สมัครสมาชิก"
		labels = map[int]string{
			fieldName:     "Display name",
			fieldEmail:    "Email",
			fieldPassword: "Password",
			fieldConfirm:  "Confirm password",
		}
	}

	var rows []string
	rows = append(rows, theme.Brand.Render("tidedesk")+"  "+theme.Subtitle.Render(title), "")
	for _, stop := range f.order() {
		switch stop {
		case focusRemember:
			box := "[ ]"
			if f.remember {
				box = "[x]"
			}
			style := theme.FieldLabel
			if f.focus == focusRemember {
				style = theme.FieldFocus
			}
			rows = append(rows, style.Render(box+" Remember me"), "")
		case focusSubmit:
			label := "Sign in"
			if f.mode == modeRegister {
				label = "Create account"
			}
			if f.busy {
				label = "Please wait..."
			}
			style := theme.Button
			if f.focus == focusSubmit {
				style = theme.ButtonFocus
			}
			rows = append(rows, style.Render(label))
		default:
			style := theme.FieldLabel
			if f.focus == stop {
				style = theme.FieldFocus
			}
			rows = append(rows, style.Render(labels[stop]), f.inputs[stop].View(), "")
		}
	}
	if f.err != "" {
		rows = append(rows, "", theme.FieldError.Render(styles.StatusIndicators.Error+" "+f.err))
	}

	switchHint := "Ctrl+N create an account"
	if f.mode == modeRegister {
		switchHint = "Ctrl+N back to sign in"
	}
	rows = append(rows, "", theme.Muted.Render("Tab next field  Enter submit  "+switchHint))

	return theme.FormBox.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
