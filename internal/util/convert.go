// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// ToFloat reads a loosely typed document value as a number. Missing,
// non-numeric and non-finite values are 0.
func ToFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		f, _ = n.Float64()
	case string:
		f, _ = strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", ""), 64)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ToInt is ToFloat truncated toward zero.
func ToInt(v any) int {
	return int(ToFloat(v))
}

// ToString returns v when it is a string and "" otherwise.
func ToString(v any) string {
	s, _ := v.(string)
	return s
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate accepts the date shapes found in stored transactions: RFC 3339
// strings, bare dates, time.Time values and Unix milliseconds. Date-only and
// zone-less strings are read in loc. ok is false for anything else.
func ParseDate(v any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	switch d := v.(type) {
	case time.Time:
		if d.IsZero() {
			return time.Time{}, false
		}
		return d.In(loc), true
	case *time.Time:
		if d == nil || d.IsZero() {
			return time.Time{}, false
		}
		return d.In(loc), true
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t.In(loc), true
			}
		}
		return time.Time{}, false
	case float64, int64, int, json.Number:
		ms := ToFloat(d)
		if ms <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)).In(loc), true
	}
	return time.Time{}, false
}
