// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme names accepted by NewTheme.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Theme holds the styled building blocks of every screen. It detects the
// terminal's color capability once at startup.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	App       lipgloss.Style
	Header    lipgloss.Style
	Brand     lipgloss.Style
	Tab       lipgloss.Style
	TabActive lipgloss.Style
	Footer    lipgloss.Style
	Key       lipgloss.Style
	KeyDesc   lipgloss.Style

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Muted    lipgloss.Style

	Card      lipgloss.Style
	CardLabel lipgloss.Style
	CardValue lipgloss.Style

	TableHeader lipgloss.Style
	TableCell   lipgloss.Style

	FormBox     lipgloss.Style
	FieldLabel  lipgloss.Style
	FieldFocus  lipgloss.Style
	FieldError  lipgloss.Style
	ButtonFocus lipgloss.Style
	Button      lipgloss.Style

	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	InfoStyle    lipgloss.Style
}

// NewTheme builds a theme. name is "auto", "dark" or "light"; anything
// else is treated as auto.
func NewTheme(name string) *Theme {
	profile := termenv.ColorProfile()
	isDark := termenv.HasDarkBackground()
	switch name {
	case ThemeDark:
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case ThemeLight:
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	}

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

// Unicode reports whether the terminal can be trusted with block glyphs.
func (t *Theme) Unicode() bool {
	return t.ColorProfile != termenv.Ascii
}

func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle().Padding(0, 1)

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.Brand = lipgloss.NewStyle().
		Bold(true).
		Foreground(Ocean)
	t.Tab = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(0, 1)
	t.TabActive = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Ocean).
		Padding(0, 1)
	t.Footer = lipgloss.NewStyle().
		Foreground(TextMuted).
		Padding(0, 1)
	t.Key = lipgloss.NewStyle().
		Bold(true).
		Foreground(Ocean)
	t.KeyDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary).
		MarginBottom(1)
	t.Subtitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Ocean)
	t.Muted = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Card = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 2).
		Width(24)
	t.CardLabel = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.CardValue = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)

	t.TableHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay)
	t.TableCell = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.FormBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Ocean).
		Padding(1, 3).
		Width(52)
	t.FieldLabel = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.FieldFocus = lipgloss.NewStyle().
		Bold(true).
		Foreground(Ocean)
	t.FieldError = lipgloss.NewStyle().
		Foreground(Coral)
	t.Button = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(0, 2)
	t.ButtonFocus = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Ocean).
		Padding(0, 2)

	t.SuccessStyle = lipgloss.NewStyle().Foreground(Kelp).Bold(true)
	t.ErrorStyle = lipgloss.NewStyle().Foreground(Coral).Bold(true)
	t.WarningStyle = lipgloss.NewStyle().Foreground(Sand).Bold(true)
	t.InfoStyle = lipgloss.NewStyle().Foreground(Ocean)
}
