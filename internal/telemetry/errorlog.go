// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jeranaias/tidedesk/internal/storage"
	"github.com/jeranaias/tidedesk/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	DefaultErrorWindow     = 60 * time.Second
	DefaultErrorCeiling    = 10
	DefaultMaxStoredErrors = 100
	recentErrorCount       = 5
)

// StormMessage is shown once when the error window overflows.
const StormMessage = "Too many errors occurred. Please restart the application."

// Warner shows a warning to the user.
type Warner interface {
	ShowWarning(msg string)
}

// =============================================================================
// ERROR LOG
// =============================================================================

// ErrorLog records application errors in a sliding window and mirrors them
// to the KV store.
type ErrorLog struct {
	clock   util.Clock
	filter  *NoiseFilter
	locator *Locator
	mirror  *mirror
	warner  Warner
	window  time.Duration
	ceiling int

	mu       sync.Mutex
	recent   []Entry
	storming bool
	captured int
	onError  func(Entry)
}

// ErrorLogOption configures an ErrorLog.
type ErrorLogOption func(*ErrorLog)

// WithErrorClock sets the time source.
func WithErrorClock(c util.Clock) ErrorLogOption {
	return func(l *ErrorLog) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithErrorWindow sets the sliding window and how many errors it may hold
// before the storm warning.
func WithErrorWindow(window time.Duration, ceiling int) ErrorLogOption {
	return func(l *ErrorLog) {
		if window > 0 {
			l.window = window
		}
		if ceiling > 0 {
			l.ceiling = ceiling
		}
	}
}

// WithErrorFilter replaces the default noise filter.
func WithErrorFilter(f *NoiseFilter) ErrorLogOption {
	return func(l *ErrorLog) { l.filter = f }
}

// WithErrorStore mirrors entries to kv under app_errors, keeping max.
func WithErrorStore(kv storage.KV, max int) ErrorLogOption {
	return func(l *ErrorLog) {
		if max <= 0 {
			max = DefaultMaxStoredErrors
		}
		l.mirror = newMirror(kv, storage.KeyAppErrors, max)
	}
}

// WithStormWarner sets who shows the storm warning.
func WithStormWarner(w Warner) ErrorLogOption {
	return func(l *ErrorLog) { l.warner = w }
}

// WithErrorLocator stamps entries with the current screen.
func WithErrorLocator(loc *Locator) ErrorLogOption {
	return func(l *ErrorLog) { l.locator = loc }
}

// NewErrorLog returns an ErrorLog with a 60s window, a ceiling of 10 and
// the default noise filter.
func NewErrorLog(opts ...ErrorLogOption) *ErrorLog {
	l := &ErrorLog{
		clock:   util.RealClock{},
		filter:  DefaultNoiseFilter(),
		window:  DefaultErrorWindow,
		ceiling: DefaultErrorCeiling,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OnError sets the hook that surfaces individual errors.
func (l *ErrorLog) OnError(fn func(Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onError = fn
}

// =============================================================================
// CAPTURE
// =============================================================================

// Capture records an error of type typ. Noise is dropped before anything
// is counted. Past the ceiling the first overflow raises the storm warning
// and later errors are stored without being surfaced until the window
// drains back to the ceiling.
func (l *ErrorLog) Capture(typ string, details map[string]any) CaptureResult {
	e := Entry{
		Type:      typ,
		Details:   details,
		Timestamp: l.clock.Now(),
		Context:   l.locator.Current(),
	}
	if l.filter.Matches(e) {
		return Filtered
	}

	l.mu.Lock()
	l.recent = append(l.recent, e)
	l.pruneLocked(e.Timestamp)
	l.captured++
	count := len(l.recent)

	surface, warn := true, false
	if count > l.ceiling {
		surface = false
		if !l.storming {
			l.storming = true
			warn = true
		}
	} else {
		l.storming = false
	}
	hook := l.onError
	l.mu.Unlock()

	l.mirror.append(e)

	if warn {
		log.Printf("ERROR_STORM | count=%d window=%s", count, l.window)
		if l.warner != nil {
			l.warner.ShowWarning(StormMessage)
		}
	}
	if !surface {
		return Suppressed
	}

	log.Printf("APP_ERROR | type=%s route=%s message=%q", e.Type, e.Context.URL, e.Message())
	if hook != nil {
		hook(e)
	}
	return Recorded
}

// CaptureError records err under typ with its text as the message.
func (l *ErrorLog) CaptureError(typ string, err error) CaptureResult {
	if err == nil {
		return Filtered
	}
	return l.Capture(typ, map[string]any{"message": err.Error()})
}

// Recover captures a panic in progress. Use it directly with defer:
//
//	defer errLog.Recover("dashboard refresh")
func (l *ErrorLog) Recover(where string) {
	if r := recover(); r != nil {
		l.CapturePanic(where, r)
	}
}

// CapturePanic records a value already taken from recover.
func (l *ErrorLog) CapturePanic(where string, r any) CaptureResult {
	return l.Capture(TypePanic, map[string]any{
		"message": fmt.Sprint(r),
		"where":   where,
		"stack":   string(debug.Stack()),
	})
}

func (l *ErrorLog) pruneLocked(now time.Time) {
	kept := l.recent[:0]
	for _, e := range l.recent {
		if now.Sub(e.Timestamp) < l.window {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(l.recent); i++ {
		l.recent[i] = Entry{}
	}
	l.recent = kept
}

// =============================================================================
// REPORTING
// =============================================================================

// ErrorReport summarises the log.
type ErrorReport struct {
	Timestamp     time.Time      `json:"timestamp"`
	CurrentErrors int            `json:"currentErrors"`
	StoredErrors  int            `json:"storedErrors"`
	TotalErrors   int            `json:"totalErrors"`
	RecentErrors  []Entry        `json:"recentErrors"`
	ErrorTypes    map[string]int `json:"errorTypes"`
	Storming      bool           `json:"storming"`
}

// Report returns a snapshot of the log. It changes nothing.
func (l *ErrorLog) Report(ctx context.Context) ErrorReport {
	stored := l.mirror.load(ctx)

	l.mu.Lock()
	current := append([]Entry(nil), l.recent...)
	storming := l.storming
	l.mu.Unlock()

	recent := current
	if len(recent) > recentErrorCount {
		recent = recent[len(recent)-recentErrorCount:]
	}
	return ErrorReport{
		Timestamp:     l.clock.Now(),
		CurrentErrors: len(current),
		StoredErrors:  len(stored),
		TotalErrors:   len(current) + len(stored),
		RecentErrors:  recent,
		ErrorTypes:    countTypes(current, stored),
		Storming:      storming,
	}
}

// Current returns the errors inside the window as of the last capture.
func (l *ErrorLog) Current() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.recent...)
}

// Stored returns the persisted errors, oldest first.
func (l *ErrorLog) Stored(ctx context.Context) []Entry {
	return l.mirror.load(ctx)
}

// Captured returns how many errors passed the filter since start.
func (l *ErrorLog) Captured() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.captured
}

// Clear empties the window and deletes the persisted list.
func (l *ErrorLog) Clear(ctx context.Context) error {
	l.mu.Lock()
	l.recent = nil
	l.storming = false
	l.mu.Unlock()
	return l.mirror.clear(ctx)
}
