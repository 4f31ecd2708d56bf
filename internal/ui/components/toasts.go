// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/tidedesk/internal/telemetry"
	"github.com/jeranaias/tidedesk/internal/ui/styles"
	"github.com/jeranaias/tidedesk/internal/util"
)

// DefaultMaxToasts is how many toasts are stacked at once.
const DefaultMaxToasts = 3

// =============================================================================
// TOAST STACK
// =============================================================================

// ToastStack renders the notifier's active toasts, newest at the bottom.
// It holds no toasts itself; the notifier owns lifetimes and dismissal.
type ToastStack struct {
	Width int
	Max   int
}

// NewToastStack returns a stack of the given width.
func NewToastStack(width int) ToastStack {
	return ToastStack{Width: width, Max: DefaultMaxToasts}
}

// View renders toasts as of now. Older toasts beyond Max are hidden until
// newer ones expire.
func (s ToastStack) View(toasts []telemetry.Toast, now time.Time) string {
	if len(toasts) == 0 {
		return ""
	}
	limit := s.Max
	if limit <= 0 {
		limit = DefaultMaxToasts
	}
	if len(toasts) > limit {
		toasts = toasts[len(toasts)-limit:]
	}

	width := s.Width
	if width < 24 {
		width = 24
	}
	if width > 48 {
		width = 48
	}

	rendered := make([]string, 0, len(toasts))
	for _, t := range toasts {
		rendered = append(rendered, renderToast(t, now, width))
	}
	return lipgloss.JoinVertical(lipgloss.Right, rendered...)
}

func renderToast(t telemetry.Toast, now time.Time, width int) string {
	color, icon := toastLook(t.Level)

	secs := int(t.Remaining(now).Round(time.Second) / time.Second)
	timer := lipgloss.NewStyle().Foreground(styles.TextMuted).Render(strings.Repeat(".", min(secs, 10)))

	body := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(width - 4).
		Render(icon + " " + util.TruncateWidth(t.Message, (width-4)*3))

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, body, timer))
}

func toastLook(l telemetry.Level) (lipgloss.AdaptiveColor, string) {
	switch l {
	case telemetry.LevelError:
		return styles.Coral, styles.StatusIndicators.Error
	case telemetry.LevelWarning:
		return styles.Sand, styles.StatusIndicators.Warning
	case telemetry.LevelSuccess:
		return styles.Kelp, styles.StatusIndicators.Success
	default:
		return styles.Ocean, styles.StatusIndicators.Info
	}
}
