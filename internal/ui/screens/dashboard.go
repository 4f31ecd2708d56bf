// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package screens

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/tidedesk/internal/backoffice"
	"github.com/jeranaias/tidedesk/internal/reports"
	"github.com/jeranaias/tidedesk/internal/ui/components"
	"github.com/jeranaias/tidedesk/internal/ui/styles"
	"github.com/jeranaias/tidedesk/internal/util"
)

// card renders one headline figure.
func card(theme *styles.Theme, label, value string, color lipgloss.AdaptiveColor) string {
	return theme.Card.Render(lipgloss.JoinVertical(lipgloss.Left,
		theme.CardLabel.Render(label),
		theme.CardValue.Foreground(color).Render(value),
	))
}

func renderDashboard(theme *styles.Theme, v backoffice.DashboardView, width int, now time.Time) string {
	profit := styles.Kelp
	if v.Stats.Profit < 0 {
		profit = styles.Coral
	}
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card(theme, "ยอดขายวันนี้", reports.FormatBaht(v.Stats.Revenue), styles.Kelp),
		card(theme, "ค่าใช้จ่ายวันนี้", reports.FormatBaht(v.Stats.Expense), styles.Coral),
		card(theme, "กำไรวันนี้", reports.FormatBaht(v.Stats.Profit), profit),
		card(theme, "สินค้าทั้งหมด", reports.FormatNumber(float64(v.Stats.Products)), styles.Ocean),
	)

	half := max(width/2-2, 30)
	daily := components.BarChart{
		Title:   "ยอดขาย 7 วันล่าสุด",
		Labels:  shortDays(v.Daily.Labels),
		Values:  v.Daily.Values,
		Width:   half,
		Profile: theme.ColorProfile,
		Format:  reports.FormatBaht,
		Single:  true,
	}
	ranked := reports.RankingSeries(v.Top)
	top := components.BarChart{
		Title:   "สินค้าขายดี",
		Labels:  ranked.Labels,
		Values:  ranked.Values,
		Width:   half,
		Profile: theme.ColorProfile,
		Format:  reports.FormatBaht,
	}
	charts := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(half+2).Render(daily.View()),
		top.View(),
	)

	sections := []string{cards, "", charts, "", renderAlerts(theme, v.Alerts), "", renderRecent(theme, v.Recent, now)}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// shortDays turns "2024-05-10" labels into "05-10".
func shortDays(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		if len(l) == len("2006-01-02") {
			l = l[5:]
		}
		out[i] = l
	}
	return out
}

func renderAlerts(theme *styles.Theme, alerts []reports.StockAlert) string {
	var b strings.Builder
	b.WriteString(theme.Subtitle.Render("แจ้งเตือนสต็อก"))
	if len(alerts) == 0 {
		b.WriteString("\n" + theme.SuccessStyle.Render(styles.StatusIndicators.Success+" สต็อกเพียงพอ"))
		return b.String()
	}
	for _, a := range alerts {
		b.WriteString("\n")
		if a.Level == reports.AlertOut {
			b.WriteString(theme.ErrorStyle.Render(styles.StatusIndicators.Error + " " + a.Message))
		} else {
			b.WriteString(theme.WarningStyle.Render(styles.StatusIndicators.Warning + " " + a.Message))
		}
	}
	return b.String()
}

func renderRecent(theme *styles.Theme, txs []reports.Transaction, now time.Time) string {
	var b strings.Builder
	b.WriteString(theme.Subtitle.Render("รายการล่าสุด"))
	if len(txs) == 0 {
		b.WriteString("\n" + theme.Muted.Render("ยังไม่มีรายการ"))
		return b.String()
	}

	b.WriteString("\n" + theme.TableHeader.Render(
		util.PadRight("ประเภท", 8)+util.PadRight("สินค้า", 24)+util.PadLeft("จำนวน", 10)+util.PadLeft("ยอดรวม", 14)+"  "+"เวลา"))
	for _, tx := range txs {
		kind, style := "ขาย", theme.SuccessStyle
		if tx.Type == reports.TypeBuy {
			kind, style = "ซื้อ", theme.ErrorStyle
		}
		when := "-"
		if tx.HasDate {
			when = reports.FormatTimeAgo(tx.Date, now)
		}
		qty := reports.FormatNumber(tx.Quantity)
		if tx.Unit != "" {
			qty += " " + tx.Unit
		}
		b.WriteString("\n" + style.Render(util.PadRight(kind, 8)) + theme.TableCell.Render(
			util.PadRight(tx.ProductName, 24)+util.PadLeft(qty, 10)+util.PadLeft(reports.FormatBaht(tx.Total), 14)+"  "+when))
	}
	return b.String()
}
