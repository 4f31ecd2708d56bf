// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reports

import (
	"fmt"
	"sort"
	"strconv"
)

const (
	// DefaultTopN is how many products the top-products charts show.
	DefaultTopN = 5

	// DefaultLowStock applies to products without their own minimum.
	DefaultLowStock = 10

	defaultUnit = "ชิ้น"
)

// ProductTotal is one bar of a top-products chart.
type ProductTotal struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// TopProducts ranks products by quantity sold. Ties keep the order in
// which the products were first sold.
func TopProducts(txs []Transaction, n int) []ProductTotal {
	return topBy(txs, n, func(tx Transaction) float64 { return tx.Quantity })
}

// TopProductsByRevenue ranks products by sales total.
func TopProductsByRevenue(txs []Transaction, n int) []ProductTotal {
	return topBy(txs, n, func(tx Transaction) float64 { return tx.Total })
}

func topBy(txs []Transaction, n int, value func(Transaction) float64) []ProductTotal {
	if n <= 0 {
		n = DefaultTopN
	}
	var out []ProductTotal
	index := make(map[string]int)
	for _, tx := range txs {
		if tx.Type != TypeSell || tx.ProductName == "" {
			continue
		}
		i, ok := index[tx.ProductName]
		if !ok {
			i = len(out)
			index[tx.ProductName] = i
			out = append(out, ProductTotal{Name: tx.ProductName})
		}
		out[i].Value += value(tx)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Value > out[b].Value })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// RankingSeries converts a ranking into chart form.
func RankingSeries(ranking []ProductTotal) Series {
	s := Series{Labels: make([]string, len(ranking)), Values: make([]float64, len(ranking))}
	for i, p := range ranking {
		s.Labels[i] = p.Name
		s.Values[i] = p.Value
	}
	return s
}

// Inventory summarises stock levels.
type Inventory struct {
	Total      int `json:"totalProducts"`
	InStock    int `json:"inStock"`
	LowStock   int `json:"lowStock"`
	OutOfStock int `json:"outOfStock"`
}

// InventoryStats counts products by stock level: more than 10 is in stock,
// 1 to 10 is low and anything else is out.
func InventoryStats(products []Product) Inventory {
	inv := Inventory{Total: len(products)}
	for _, p := range products {
		switch {
		case p.Stock > DefaultLowStock:
			inv.InStock++
		case p.Stock > 0:
			inv.LowStock++
		default:
			inv.OutOfStock++
		}
	}
	return inv
}

// AlertLevel tells a low-stock warning from an empty shelf.
type AlertLevel int

const (
	AlertLow AlertLevel = iota
	AlertOut
)

// StockAlert is one inventory notification.
type StockAlert struct {
	Product Product    `json:"product"`
	Level   AlertLevel `json:"level"`
	Message string     `json:"message"`
}

// LowStockAlerts lists products at or below their minimum stock, out of
// stock products first.
func LowStockAlerts(products []Product) []StockAlert {
	return LowStockAlertsAt(products, DefaultLowStock)
}

// LowStockAlertsAt is LowStockAlerts with a configurable fallback minimum.
func LowStockAlertsAt(products []Product, threshold float64) []StockAlert {
	var out, low []StockAlert
	for _, p := range products {
		unit := p.Unit
		if unit == "" {
			unit = defaultUnit
		}
		limit := p.MinStock
		if limit <= 0 {
			limit = threshold
		}
		switch {
		case p.Stock <= 0:
			out = append(out, StockAlert{
				Product: p,
				Level:   AlertOut,
				Message: fmt.Sprintf("%s หมดสต็อกแล้ว", p.Name),
			})
		case p.Stock <= limit:
			low = append(low, StockAlert{
				Product: p,
				Level:   AlertLow,
				Message: fmt.Sprintf("%s เหลือ %s %s", p.Name, strconv.FormatFloat(p.Stock, 'f', -1, 64), unit),
			})
		}
	}
	return append(out, low...)
}
