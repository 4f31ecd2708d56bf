// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reports

import (
	"sort"
	"time"
)

// DefaultRecent is how many transactions the dashboard lists.
const DefaultRecent = 5

// Dashboard holds the headline figures for today.
type Dashboard struct {
	Revenue  float64 `json:"todayRevenue"`
	Expense  float64 `json:"todayExpense"`
	Profit   float64 `json:"todayProfit"`
	Products int     `json:"totalProducts"`
}

// DashboardStats sums today's sales and purchases in now's zone.
func DashboardStats(txs []Transaction, productCount int, now time.Time) Dashboard {
	start := startOfDay(now)
	end := start.AddDate(0, 0, 1)

	d := Dashboard{Products: productCount}
	for _, tx := range txs {
		if !tx.HasDate || tx.Date.Before(start) || !tx.Date.Before(end) {
			continue
		}
		switch tx.Type {
		case TypeSell:
			d.Revenue += tx.Total
		case TypeBuy:
			d.Expense += tx.Total
		}
	}
	d.Profit = d.Revenue - d.Expense
	return d
}

// RecentTransactions returns the n newest transactions. Undated ones sort
// last. The input slice is not reordered.
func RecentTransactions(txs []Transaction, n int) []Transaction {
	if n <= 0 {
		n = DefaultRecent
	}
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].HasDate != out[b].HasDate {
			return out[a].HasDate
		}
		return out[a].Date.After(out[b].Date)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
