// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/tidedesk/internal/ui/styles"
)

// =============================================================================
// SESSION TIMEOUT OVERLAY
// =============================================================================

// SessionTimeoutOverlay is the "your session is about to expire" prompt.
// It only renders and reports the user's answer; the session controller
// decides what the answer means.
type SessionTimeoutOverlay struct {
	visible   bool
	expired   bool
	remaining time.Duration
	lead      time.Duration

	bar  progress.Model
	keys overlayKeys

	width  int
	height int
}

type overlayKeys struct {
	Extend  key.Binding
	Decline key.Binding
}

// ExtendSessionMsg asks for the session to be extended.
type ExtendSessionMsg struct{}

// DeclineSessionMsg asks for the session to end now.
type DeclineSessionMsg struct{}

// NewSessionTimeoutOverlay returns a hidden overlay.
func NewSessionTimeoutOverlay() SessionTimeoutOverlay {
	bar := progress.New(
		progress.WithGradient("#FBBF24", "#FB7185"),
		progress.WithoutPercentage(),
	)
	return SessionTimeoutOverlay{
		bar: bar,
		keys: overlayKeys{
			Extend: key.NewBinding(
				key.WithKeys("enter", "y"),
				key.WithHelp("Enter/y", "stay signed in"),
			),
			Decline: key.NewBinding(
				key.WithKeys("esc", "n"),
				key.WithHelp("Esc/n", "sign out"),
			),
		},
	}
}

// =============================================================================
// STATE
// =============================================================================

// SetSize sets the area the overlay centers itself in.
func (o *SessionTimeoutOverlay) SetSize(width, height int) {
	o.width = width
	o.height = height
}

// Show displays the warning with remaining time out of lead.
func (o *SessionTimeoutOverlay) Show(remaining, lead time.Duration) {
	o.visible = true
	o.expired = false
	o.remaining = remaining
	o.lead = lead
}

// ShowExpired switches to the signed-out notice.
func (o *SessionTimeoutOverlay) ShowExpired(countdown time.Duration) {
	o.visible = true
	o.expired = true
	o.remaining = countdown
}

// Hide hides the overlay.
func (o *SessionTimeoutOverlay) Hide() {
	o.visible = false
	o.expired = false
}

// UpdateTime sets the countdown.
func (o *SessionTimeoutOverlay) UpdateTime(remaining time.Duration) {
	if remaining < 0 {
		remaining = 0
	}
	o.remaining = remaining
}

// IsVisible reports whether the overlay is shown.
func (o SessionTimeoutOverlay) IsVisible() bool { return o.visible }

// IsExpired reports whether the overlay shows the signed-out notice.
func (o SessionTimeoutOverlay) IsExpired() bool { return o.expired }

// TimeRemaining returns the countdown.
func (o SessionTimeoutOverlay) TimeRemaining() time.Duration { return o.remaining }

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update answers the prompt. Other keys are swallowed while it is shown
// and do not extend the session.
func (o SessionTimeoutOverlay) Update(msg tea.Msg) (SessionTimeoutOverlay, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		o.SetSize(msg.Width, msg.Height)
	case tea.KeyMsg:
		if !o.visible || o.expired {
			return o, nil
		}
		switch {
		case key.Matches(msg, o.keys.Extend):
			o.Hide()
			return o, func() tea.Msg { return ExtendSessionMsg{} }
		case key.Matches(msg, o.keys.Decline):
			o.Hide()
			return o, func() tea.Msg { return DeclineSessionMsg{} }
		}
	}
	return o, nil
}

// View renders the overlay, or "" when hidden.
func (o SessionTimeoutOverlay) View() string {
	if !o.visible {
		return ""
	}
	if o.expired {
		return o.place(styles.Coral, o.expiredContent())
	}
	return o.place(styles.Sand, o.warningContent())
}

func (o SessionTimeoutOverlay) boxWidth() int {
	w := o.width - 8
	if w < 40 {
		w = 40
	}
	if w > 60 {
		w = 60
	}
	return w
}

func (o SessionTimeoutOverlay) warningContent() []string {
	inner := o.boxWidth() - 8
	title := lipgloss.NewStyle().Foreground(styles.Sand).Bold(true)
	timeStyle := lipgloss.NewStyle().Foreground(styles.Sand).Bold(true)
	msg := lipgloss.NewStyle().Foreground(styles.TextPrimary).Width(inner).Align(lipgloss.Center)
	hint := lipgloss.NewStyle().Foreground(styles.TextSecondary).Italic(true)

	bar := o.bar
	bar.Width = inner
	frac := 0.0
	if o.lead > 0 {
		frac = float64(o.remaining) / float64(o.lead)
	}

	return []string{
		title.Render(styles.StatusIndicators.Warning + " Session about to expire"),
		"",
		msg.Render("You will be signed out in " + timeStyle.Render(formatTimeRemaining(o.remaining))),
		"",
		bar.ViewAs(clamp01(frac)),
		"",
		hint.Render(o.keys.Extend.Help().Key + " " + o.keys.Extend.Help().Desc +
			"   " + o.keys.Decline.Help().Key + " " + o.keys.Decline.Help().Desc),
	}
}

func (o SessionTimeoutOverlay) expiredContent() []string {
	inner := o.boxWidth() - 8
	title := lipgloss.NewStyle().Foreground(styles.Coral).Bold(true)
	msg := lipgloss.NewStyle().Foreground(styles.TextPrimary).Width(inner).Align(lipgloss.Center)
	return []string{
		title.Render(styles.StatusIndicators.Error + " Session expired"),
		"",
		msg.Render("You were signed out after a period of inactivity."),
		"",
		lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(
			fmt.Sprintf("Returning to sign in in %s", formatTimeRemaining(o.remaining))),
	}
}

func (o SessionTimeoutOverlay) place(border lipgloss.AdaptiveColor, parts []string) string {
	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(border).
		Padding(1, 3).
		Width(o.boxWidth()).
		Align(lipgloss.Center).
		Render(lipgloss.JoinVertical(lipgloss.Center, parts...))

	width, height := o.width, o.height
	if width == 0 {
		width = 60
	}
	if height == 0 {
		height = 24
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim))
}

// formatTimeRemaining formats a duration as M:SS.
func formatTimeRemaining(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
