// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/jeranaias/tidedesk/internal/ui/styles"
	"github.com/jeranaias/tidedesk/internal/util"
)

// partialBlocks are the eighth-width glyphs for bar ends.
var partialBlocks = []string{"", "▏", "▎", "▍", "▌", "▋", "▊", "▉"}

// =============================================================================
// BAR CHART
// =============================================================================

// BarChart draws one horizontal bar per label. Negative values draw as
// empty bars.
type BarChart struct {
	Title  string
	Labels []string
	Values []float64

	Width      int
	LabelWidth int
	Profile    termenv.Profile

	// Format renders the value column; nil prints whole numbers.
	Format func(float64) string
	// Colors overrides the per-bar color; nil uses the series palette.
	Colors func(i int) lipgloss.AdaptiveColor
	// Single draws every bar in the first palette color.
	Single bool
}

// View renders the chart.
func (c BarChart) View() string {
	var b strings.Builder
	if c.Title != "" {
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(styles.Ocean).Render(c.Title))
		b.WriteString("\n")
	}
	if len(c.Labels) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.TextMuted).Render("  no data"))
		return b.String()
	}

	format := c.Format
	if format == nil {
		format = func(v float64) string { return strconv.FormatInt(int64(math.Round(v)), 10) }
	}

	labelWidth := c.LabelWidth
	if labelWidth <= 0 {
		for _, l := range c.Labels {
			labelWidth = max(labelWidth, runewidth.StringWidth(l))
		}
		labelWidth = min(labelWidth, 20)
	}

	values := make([]string, len(c.Labels))
	valueWidth := 0
	peak := 0.0
	for i := range c.Labels {
		v := c.value(i)
		values[i] = format(v)
		valueWidth = max(valueWidth, runewidth.StringWidth(values[i]))
		peak = math.Max(peak, v)
	}

	width := c.Width
	if width <= 0 {
		width = 60
	}
	barWidth := width - labelWidth - valueWidth - 3
	if barWidth < 4 {
		barWidth = 4
	}

	for i, label := range c.Labels {
		if i > 0 {
			b.WriteString("\n")
		}
		v := c.value(i)
		frac := 0.0
		if peak > 0 && v > 0 {
			frac = v / peak
		}
		bar := c.bar(frac, barWidth)
		color := c.color(i)

		b.WriteString(util.PadRight(label, labelWidth))
		b.WriteString(" ")
		b.WriteString(lipgloss.NewStyle().Foreground(color).Render(bar))
		b.WriteString(strings.Repeat(" ", barWidth-runewidth.StringWidth(bar)+1))
		b.WriteString(util.PadLeft(values[i], valueWidth))
	}
	return b.String()
}

func (c BarChart) value(i int) float64 {
	if i < len(c.Values) {
		return c.Values[i]
	}
	return 0
}

func (c BarChart) color(i int) lipgloss.AdaptiveColor {
	switch {
	case c.Colors != nil:
		return c.Colors(i)
	case c.Single:
		return styles.SeriesColor(0)
	default:
		return styles.SeriesColor(i)
	}
}

// bar renders frac of width cells, with eighth-cell precision on terminals
// that can show block glyphs.
func (c BarChart) bar(frac float64, width int) string {
	if c.Profile == termenv.Ascii {
		return strings.Repeat("#", int(math.Round(frac*float64(width))))
	}
	eighths := int(math.Round(frac * float64(width) * 8))
	full, part := eighths/8, eighths%8
	return strings.Repeat("█", full) + partialBlocks[part]
}
