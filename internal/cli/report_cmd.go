// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/tidedesk/internal/backoffice"
	"github.com/jeranaias/tidedesk/internal/reports"
	"github.com/jeranaias/tidedesk/internal/ui/components"
)

// reportKinds lists the report subcommand arguments in help order.
var reportKinds = []string{"daily", "monthly", "category", "profit", "top", "revenue", "inventory", "alerts", "dashboard"}

func newReportCommand(o *options) *cobra.Command {
	var (
		days int
		topN int
	)
	cmd := &cobra.Command{
		Use:       "report <" + strings.Join(reportKinds, "|") + ">",
		Short:     "Print a sales, stock or category report",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: reportKinds,
		Example: `  tidedesk report daily --days 14
  tidedesk report top -n 10
  tidedesk report inventory --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			txs, err := s.Transactions(ctx)
			if err != nil {
				return err
			}
			products, err := s.Products(ctx)
			if err != nil {
				return err
			}
			now := s.Clock.Now()
			width := min(GetTerminalWidth(), maxChartWidth)

			switch kind := args[0]; kind {
			case "daily":
				return o.emitSeries(cmd, "Daily sales", reports.DailySales(txs, now, days), width)
			case "monthly":
				return o.emitSeries(cmd, "Monthly sales", reports.MonthlySales(txs), width)
			case "top":
				return o.emitRanking(cmd, "Top products by quantity", reports.TopProducts(txs, topN), reports.FormatNumber, width)
			case "revenue":
				return o.emitRanking(cmd, "Top products by revenue", reports.TopProductsByRevenue(txs, topN), reports.FormatBaht, width)
			case "category":
				return o.emit(cmd, func() (any, error) {
					return reports.CategoryDistribution(txs, products), nil
				}, func(w io.Writer, data any) error {
					cs := data.(reports.CategorySeries).Placeholder()
					return writeChart(w, components.BarChart{
						Title: "Sales by category", Labels: cs.Labels, Values: cs.Values,
						Width: width, Profile: GetColorProfile(), Format: reports.FormatBaht,
					})
				})
			case "profit":
				return o.emit(cmd, func() (any, error) {
					return reports.ProfitLoss(txs), nil
				}, func(w io.Writer, data any) error {
					return writeProfitLoss(w, data.(reports.ProfitLossSeries))
				})
			case "inventory":
				return o.emit(cmd, func() (any, error) {
					return reports.InventoryStats(products), nil
				}, func(w io.Writer, data any) error {
					inv := data.(reports.Inventory)
					fmt.Fprintln(w, TitleStyle.Render("Inventory"))
					fmt.Fprintln(w, RenderField("Products", fmt.Sprint(inv.Total)))
					fmt.Fprintln(w, RenderField("In stock", fmt.Sprint(inv.InStock)))
					fmt.Fprintln(w, RenderField("Low stock", fmt.Sprint(inv.LowStock)))
					fmt.Fprintln(w, RenderField("Out of stock", fmt.Sprint(inv.OutOfStock)))
					return nil
				})
			case "alerts":
				return o.emit(cmd, func() (any, error) {
					return reports.LowStockAlertsAt(products, float64(s.Config.UI.LowStockThreshold)), nil
				}, func(w io.Writer, data any) error {
					alerts := data.([]reports.StockAlert)
					fmt.Fprintln(w, TitleStyle.Render("Stock alerts"))
					if len(alerts) == 0 {
						fmt.Fprintln(w, DimStyle.Render("  no alerts"))
					}
					for _, a := range alerts {
						status := "low"
						if a.Level == reports.AlertOut {
							status = "out"
						}
						fmt.Fprintf(w, "%s %s\n", RenderStatus(status), a.Message)
					}
					return nil
				})
			case "dashboard":
				return o.emit(cmd, func() (any, error) {
					return s.BuildDashboard(txs, products), nil
				}, func(w io.Writer, data any) error {
					st := data.(backoffice.DashboardView).Stats
					fmt.Fprintln(w, TitleStyle.Render("Today"))
					fmt.Fprintln(w, RenderField("Revenue", reports.FormatBaht(st.Revenue)))
					fmt.Fprintln(w, RenderField("Expense", reports.FormatBaht(st.Expense)))
					fmt.Fprintln(w, RenderField("Profit", reports.FormatBaht(st.Profit)))
					fmt.Fprintln(w, RenderField("Products", fmt.Sprint(st.Products)))
					return nil
				})
			default:
				return fmt.Errorf("unknown report %q", kind)
			}
		},
	}
	cmd.Flags().IntVar(&days, "days", reports.DefaultDailyDays, "days covered by the daily report")
	cmd.Flags().IntVarP(&topN, "limit", "n", reports.DefaultTopN, "products listed by top and revenue")
	return cmd
}

func (o *options) emitSeries(cmd *cobra.Command, title string, series reports.Series, width int) error {
	return o.emit(cmd, func() (any, error) {
		return series, nil
	}, func(w io.Writer, data any) error {
		return writeChart(w, components.BarChart{
			Title: title, Labels: series.Labels, Values: series.Values,
			Width: width, Profile: GetColorProfile(), Format: reports.FormatBaht, Single: true,
		})
	})
}

func (o *options) emitRanking(cmd *cobra.Command, title string, ranking []reports.ProductTotal, format func(float64) string, width int) error {
	return o.emit(cmd, func() (any, error) {
		return ranking, nil
	}, func(w io.Writer, data any) error {
		series := reports.RankingSeries(ranking)
		return writeChart(w, components.BarChart{
			Title: title, Labels: series.Labels, Values: series.Values,
			Width: width, Profile: GetColorProfile(), Format: format,
		})
	})
}

func writeChart(w io.Writer, chart components.BarChart) error {
	_, err := fmt.Fprintln(w, chart.View())
	return err
}

func writeProfitLoss(w io.Writer, pl reports.ProfitLossSeries) error {
	fmt.Fprintln(w, TitleStyle.Render("Profit and loss"))
	if len(pl.Labels) == 0 {
		fmt.Fprintln(w, DimStyle.Render("  no data"))
		return nil
	}
	for i, label := range pl.Labels {
		net := pl.Profit[i] - pl.Loss[i]
		style := SuccessStyle
		if net < 0 {
			style = ErrorStyle
		}
		fmt.Fprintf(w, "%s  %s %s  %s %s  %s\n",
			LabelStyle.Render(label),
			DimStyle.Render("sales"), ValueStyle.Render(reports.FormatBaht(pl.Profit[i])),
			DimStyle.Render("purchases"), ValueStyle.Render(reports.FormatBaht(pl.Loss[i])),
			style.Render(reports.FormatBaht(net)))
	}
	return nil
}
