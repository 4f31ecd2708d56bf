// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_CreatesAndOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := AtomicWriteFile(path, []byte("first"), 0600); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("second"), 0600); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("content = %q, want %q", got, "second")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"shrimp", 10, "shrimp"},
		{"shrimp", 4, "shr…"},
		{"กุ้งแม่น้ำ", 20, "กุ้งแม่น้ำ"},
		{"anything", 0, ""},
		{"anything", 1, "…"},
	}
	for _, tt := range tests {
		if got := TruncateWidth(tt.in, tt.width); got != tt.want {
			t.Errorf("TruncateWidth(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestPadRight(t *testing.T) {
	if got := PadRight("ab", 4); got != "ab  " {
		t.Errorf("PadRight = %q", got)
	}
	if got := PadLeft("ab", 4); got != "  ab" {
		t.Errorf("PadLeft = %q", got)
	}
}

func TestMaskEmail(t *testing.T) {
	tests := map[string]string{
		"somchai@example.com": "s***@example.com",
		"":                    "",
		"anonymous":           "an***",
		"ab":                  "**",
	}
	for in, want := range tests {
		if got := MaskEmail(in); got != want {
			t.Errorf("MaskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

// =============================================================================
// CONVERSION TESTS
// =============================================================================

func TestToFloat(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{nil, 0},
		{"", 0},
		{"abc", 0},
		{"1,250.50", 1250.5},
		{float64(3), 3},
		{int64(4), 4},
		{7, 7},
		{json.Number("2.5"), 2.5},
		{true, 0},
	}
	for _, tt := range tests {
		if got := ToFloat(tt.in); got != tt.want {
			t.Errorf("ToFloat(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	loc := time.UTC

	d, ok := ParseDate("2024-01-15", loc)
	if !ok || d.Format("2006-01-02") != "2024-01-15" {
		t.Errorf("bare date: got %v ok=%v", d, ok)
	}

	d, ok = ParseDate("2024-02-03T10:00:00Z", loc)
	if !ok || d.Month() != time.February {
		t.Errorf("rfc3339: got %v ok=%v", d, ok)
	}

	if _, ok := ParseDate(nil, loc); ok {
		t.Error("nil should not parse")
	}
	if _, ok := ParseDate("not a date", loc); ok {
		t.Error("garbage should not parse")
	}

	ms := float64(time.Date(2024, 3, 1, 0, 0, 0, 0, loc).UnixMilli())
	d, ok = ParseDate(ms, loc)
	if !ok || d.Month() != time.March {
		t.Errorf("unix millis: got %v ok=%v", d, ok)
	}
}

// =============================================================================
// FAKE CLOCK TESTS
// =============================================================================

func TestFakeClock_FiresInOrder(t *testing.T) {
	c := NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	var fired []string

	c.AfterFunc(2*time.Minute, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Minute, func() { fired = append(fired, "a") })
	c.AfterFunc(5*time.Minute, func() { fired = append(fired, "c") })

	c.Advance(3 * time.Minute)
	if len(fired) != 2 || fired[0] != "a" || fired[1] != "b" {
		t.Fatalf("fired = %v, want [a b]", fired)
	}
	if c.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", c.Pending())
	}
}

func TestFakeClock_StopPreventsFire(t *testing.T) {
	c := NewFakeClock(time.Now())
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })

	if !tm.Stop() {
		t.Fatal("Stop should report true for a live timer")
	}
	if tm.Stop() {
		t.Error("second Stop should report false")
	}
	c.Advance(time.Minute)
	if fired {
		t.Error("stopped timer fired")
	}
	if c.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", c.Pending())
	}
}

func TestFakeClock_CallbackCanReschedule(t *testing.T) {
	c := NewFakeClock(time.Now())
	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 3 {
			c.AfterFunc(time.Second, tick)
		}
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(10 * time.Second)
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}
