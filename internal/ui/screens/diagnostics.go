// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package screens

import (
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/tidedesk/internal/telemetry"
)

// renderMarkdown renders md for the terminal, falling back to the raw text
// when glamour cannot.
func renderMarkdown(md string, width int) string {
	if width < 40 {
		width = 40
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func renderDiagnostics(msg diagnosticsMsg, width int) string {
	return renderMarkdown(telemetry.Markdown(msg.errors, msg.perf), width)
}
