// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reports

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Category labels.
const (
	CategoryShrimp    = "กุ้ง"
	CategoryFish      = "ปลา"
	CategoryCrab      = "ปู"
	CategoryShellfish = "หอย"
	CategorySquid     = "ปลาหมึก"
	CategoryOther     = "อื่นๆ"

	// NoDataLabel labels the placeholder slice of an empty chart.
	NoDataLabel = "ไม่มีข้อมูล"
)

// categoryKeywords are tried in order; the first hit wins. Because "ปลา"
// is a prefix of "ปลาหมึก", Thai squid names land in the fish category.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{CategoryShrimp, []string{"shrimp", "กุ้ง"}},
	{CategoryFish, []string{"fish", "ปลา"}},
	{CategoryCrab, []string{"crab", "ปู"}},
	{CategoryShellfish, []string{"shellfish", "หอย"}},
	{CategorySquid, []string{"squid", "ปลาหมึก"}},
}

// CategorySeries is the category distribution. Empty is set when no sale
// contributed; Labels and Values are then empty too.
type CategorySeries struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Empty  bool      `json:"empty"`
}

// Placeholder returns s, or for an empty series a single "no data" slice
// of value 1 for renderers that cannot draw nothing.
func (s CategorySeries) Placeholder() CategorySeries {
	if !s.Empty {
		return s
	}
	return CategorySeries{Labels: []string{NoDataLabel}, Values: []float64{1}, Empty: true}
}

// CategoryDistribution sums sell totals per category, in the order
// categories are first met. A product's own category is used when its
// name is in products; otherwise the name is matched against keywords.
func CategoryDistribution(txs []Transaction, products []Product) CategorySeries {
	known := make(map[string]string, len(products))
	for _, p := range products {
		if p.Name != "" && p.Category != "" {
			known[p.Name] = p.Category
		}
	}
	for _, p := range products {
		if p.Name == "" || p.Category == "" {
			continue
		}
		if n := norm.NFC.String(p.Name); n != p.Name {
			if _, ok := known[n]; !ok {
				known[n] = p.Category
			}
		}
	}

	var out CategorySeries
	index := make(map[string]int)
	for _, tx := range txs {
		if tx.Type != TypeSell || tx.ProductName == "" {
			continue
		}
		cat, ok := known[tx.ProductName]
		if !ok {
			cat, ok = known[norm.NFC.String(tx.ProductName)]
		}
		if !ok {
			cat = ClassifyProduct(tx.ProductName)
		}
		i, seen := index[cat]
		if !seen {
			i = len(out.Labels)
			index[cat] = i
			out.Labels = append(out.Labels, cat)
			out.Values = append(out.Values, 0)
		}
		out.Values[i] += tx.Total
	}
	out.Empty = len(out.Labels) == 0
	return out
}

// ClassifyProduct guesses a category from a product name.
func ClassifyProduct(name string) string {
	n := strings.ToLower(norm.NFC.String(name))
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(n, kw) {
				return c.category
			}
		}
	}
	return CategoryOther
}
