// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package screens

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/tidedesk/internal/backoffice"
	"github.com/jeranaias/tidedesk/internal/reports"
	"github.com/jeranaias/tidedesk/internal/ui/components"
	"github.com/jeranaias/tidedesk/internal/ui/styles"
)

func renderReports(theme *styles.Theme, v backoffice.ReportsView, width int) string {
	inv := v.Inventory
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card(theme, "สินค้าทั้งหมด", reports.FormatNumber(float64(inv.Total)), styles.Ocean),
		card(theme, "มีสินค้า", reports.FormatNumber(float64(inv.InStock)), styles.Kelp),
		card(theme, "สินค้าใกล้หมด", reports.FormatNumber(float64(inv.LowStock)), styles.Sand),
		card(theme, "สินค้าหมด", reports.FormatNumber(float64(inv.OutOfStock)), styles.Coral),
	)

	half := max(width/2-2, 30)
	chart := func(title string, labels []string, values []float64, format func(float64) string, single bool) string {
		return components.BarChart{
			Title:   title,
			Labels:  labels,
			Values:  values,
			Width:   half,
			Profile: theme.ColorProfile,
			Format:  format,
			Single:  single,
		}.View()
	}

	cat := v.Categories.Placeholder()
	catFormat := reports.FormatBaht
	if cat.Empty {
		catFormat = func(float64) string { return "" }
	}

	// Profit and loss share labels; draw them as interleaved bars.
	var plLabels []string
	var plValues []float64
	for i, l := range v.ProfitLoss.Labels {
		plLabels = append(plLabels, l+" +", l+" -")
		plValues = append(plValues, v.ProfitLoss.Profit[i], v.ProfitLoss.Loss[i])
	}
	plChart := components.BarChart{
		Title:   "กำไร / ขาดทุน",
		Labels:  plLabels,
		Values:  plValues,
		Width:   half,
		Profile: theme.ColorProfile,
		Format:  reports.FormatBaht,
		Colors: func(i int) lipgloss.AdaptiveColor {
			if i%2 == 0 {
				return styles.Kelp
			}
			return styles.Coral
		},
	}.View()

	ranked := reports.RankingSeries(v.Top)
	column := lipgloss.NewStyle().Width(half + 2)
	row1 := lipgloss.JoinHorizontal(lipgloss.Top,
		column.Render(chart("ยอดขายรายเดือน", v.Monthly.Labels, v.Monthly.Values, reports.FormatBaht, true)),
		chart("สัดส่วนตามหมวดหมู่", cat.Labels, cat.Values, catFormat, false),
	)
	row2 := lipgloss.JoinHorizontal(lipgloss.Top,
		column.Render(plChart),
		chart("สินค้าขายดี (จำนวน)", ranked.Labels, ranked.Values, reports.FormatNumber, false),
	)
	return lipgloss.JoinVertical(lipgloss.Left, cards, "", row1, "", row2)
}
