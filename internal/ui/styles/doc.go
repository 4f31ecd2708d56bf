// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles holds the tidedesk color palette and the Theme used by every
screen.

Colors are lipgloss.AdaptiveColor values, so one definition serves light
and dark terminals. The ui.theme setting forces one or the other.

	theme := styles.NewTheme(cfg.UI.Theme)
	title := theme.Title.Render("Dashboard")

Status text always carries an ASCII marker from StatusIndicators next to
its color.
*/
package styles
