// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reports

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var thai = message.NewPrinter(language.Thai)

// FormatBaht renders an amount as whole baht with digit grouping.
func FormatBaht(v float64) string {
	n := int64(math.Round(v))
	if n < 0 {
		return "-฿" + thai.Sprintf("%d", -n)
	}
	return "฿" + thai.Sprintf("%d", n)
}

// FormatNumber renders a quantity with grouping and at most two decimals.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) {
		return thai.Sprintf("%d", int64(v))
	}
	return thai.Sprintf("%.2f", v)
}

// FormatTimeAgo describes how long before now t was.
func FormatTimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "เมื่อสักครู่"
	case d < time.Hour:
		return fmt.Sprintf("%d นาทีที่แล้ว", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d ชั่วโมงที่แล้ว", int(d.Hours()))
	default:
		return fmt.Sprintf("%d วันที่แล้ว", int(d.Hours()/24))
	}
}
