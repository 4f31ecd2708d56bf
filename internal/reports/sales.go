// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reports

import (
	"sort"
	"time"
)

// DefaultDailyDays is the length of the dashboard sales chart.
const DefaultDailyDays = 7

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// Series is a labelled list of values for a bar chart.
type Series struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Labels) }

// Total returns the sum of all values.
func (s Series) Total() float64 {
	var sum float64
	for _, v := range s.Values {
		sum += v
	}
	return sum
}

// ProfitLossSeries pairs monthly sales (profit) with purchases (loss).
type ProfitLossSeries struct {
	Labels []string  `json:"labels"`
	Profit []float64 `json:"profits"`
	Loss   []float64 `json:"losses"`
}

// DailySales sums sell totals for each of the last days calendar days,
// today included, in now's zone. Every day appears, zero if nothing sold.
func DailySales(txs []Transaction, now time.Time, days int) Series {
	if days <= 0 {
		days = DefaultDailyDays
	}
	loc := now.Location()
	today := startOfDay(now)

	s := Series{Labels: make([]string, days), Values: make([]float64, days)}
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		key := today.AddDate(0, 0, i-days+1).Format(dayLayout)
		s.Labels[i] = key
		index[key] = i
	}

	for _, tx := range txs {
		if tx.Type != TypeSell || !tx.HasDate {
			continue
		}
		if i, ok := index[tx.Date.In(loc).Format(dayLayout)]; ok {
			s.Values[i] += tx.Total
		}
	}
	return s
}

// MonthlySales sums sell totals per month, oldest month first.
func MonthlySales(txs []Transaction) Series {
	totals := make(map[string]float64)
	for _, tx := range txs {
		if tx.Type != TypeSell || !tx.HasDate {
			continue
		}
		totals[tx.Date.Format(monthLayout)] += tx.Total
	}

	s := Series{Labels: sortedKeys(totals)}
	s.Values = make([]float64, len(s.Labels))
	for i, k := range s.Labels {
		s.Values[i] = totals[k]
	}
	return s
}

// ProfitLoss buckets sell totals as profit and buy totals as loss per
// month, oldest first. Months with only other kinds still appear.
func ProfitLoss(txs []Transaction) ProfitLossSeries {
	type pl struct{ profit, loss float64 }
	months := make(map[string]*pl)
	for _, tx := range txs {
		if !tx.HasDate {
			continue
		}
		key := tx.Date.Format(monthLayout)
		m, ok := months[key]
		if !ok {
			m = &pl{}
			months[key] = m
		}
		switch tx.Type {
		case TypeSell:
			m.profit += tx.Total
		case TypeBuy:
			m.loss += tx.Total
		}
	}

	labels := make([]string, 0, len(months))
	for k := range months {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	out := ProfitLossSeries{
		Labels: labels,
		Profit: make([]float64, len(labels)),
		Loss:   make([]float64, len(labels)),
	}
	for i, k := range labels {
		out.Profit[i] = months[k].profit
		out.Loss[i] = months[k].loss
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
