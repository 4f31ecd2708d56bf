// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backoffice

import (
	"context"
	"fmt"

	"github.com/jeranaias/tidedesk/internal/reports"
	"github.com/jeranaias/tidedesk/internal/storage"
)

// =============================================================================
// LOADERS
// =============================================================================

// Transactions loads and decodes every transaction, newest first.
func (a *App) Transactions(ctx context.Context) ([]reports.Transaction, error) {
	docs, err := a.Docs.Query(ctx, storage.CollectionTransactions, storage.QueryOptions{OrderBy: "date", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return reports.Transactions(docs, a.Clock.Now().Location()), nil
}

// Products loads and decodes every product, by name.
func (a *App) Products(ctx context.Context) ([]reports.Product, error) {
	docs, err := a.Docs.Query(ctx, storage.CollectionProducts, storage.QueryOptions{OrderBy: "name"})
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return reports.Products(docs), nil
}

// =============================================================================
// VIEWS
// =============================================================================

// DashboardView is everything the dashboard screen shows.
type DashboardView struct {
	Stats  reports.Dashboard      `json:"stats"`
	Daily  reports.Series         `json:"dailySales"`
	Top    []reports.ProductTotal `json:"topProducts"`
	Alerts []reports.StockAlert   `json:"alerts"`
	Recent []reports.Transaction  `json:"recentTransactions"`
}

// BuildDashboard computes the dashboard from already loaded records.
func (a *App) BuildDashboard(txs []reports.Transaction, products []reports.Product) DashboardView {
	now := a.Clock.Now()
	return DashboardView{
		Stats:  reports.DashboardStats(txs, len(products), now),
		Daily:  reports.DailySales(txs, now, a.Config.UI.DashboardDays),
		Top:    reports.TopProductsByRevenue(txs, reports.DefaultTopN),
		Alerts: reports.LowStockAlertsAt(products, float64(a.lowStock())),
		Recent: reports.RecentTransactions(txs, reports.DefaultRecent),
	}
}

// Dashboard loads records and computes the dashboard.
func (a *App) Dashboard(ctx context.Context) (DashboardView, error) {
	txs, products, err := a.load(ctx)
	if err != nil {
		return DashboardView{}, err
	}
	return a.BuildDashboard(txs, products), nil
}

// ReportsView is everything the reports screen shows.
type ReportsView struct {
	Inventory  reports.Inventory        `json:"inventory"`
	Monthly    reports.Series           `json:"monthlySales"`
	Categories reports.CategorySeries   `json:"categories"`
	ProfitLoss reports.ProfitLossSeries `json:"profitLoss"`
	Top        []reports.ProductTotal   `json:"topProducts"`
}

// BuildReports computes the reports from already loaded records.
func BuildReports(txs []reports.Transaction, products []reports.Product) ReportsView {
	return ReportsView{
		Inventory:  reports.InventoryStats(products),
		Monthly:    reports.MonthlySales(txs),
		Categories: reports.CategoryDistribution(txs, products),
		ProfitLoss: reports.ProfitLoss(txs),
		Top:        reports.TopProducts(txs, reports.DefaultTopN),
	}
}

// Reports loads records and computes the reports.
func (a *App) Reports(ctx context.Context) (ReportsView, error) {
	txs, products, err := a.load(ctx)
	if err != nil {
		return ReportsView{}, err
	}
	return BuildReports(txs, products), nil
}

func (a *App) load(ctx context.Context) ([]reports.Transaction, []reports.Product, error) {
	txs, err := a.Transactions(ctx)
	if err != nil {
		return nil, nil, err
	}
	products, err := a.Products(ctx)
	if err != nil {
		return nil, nil, err
	}
	return txs, products, nil
}

func (a *App) lowStock() int {
	if a.Config.UI.LowStockThreshold > 0 {
		return a.Config.UI.LowStockThreshold
	}
	return reports.DefaultLowStock
}
