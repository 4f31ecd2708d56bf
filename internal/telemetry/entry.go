// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

// Error entry types.
const (
	TypeAppError     = "app_error"
	TypePanic        = "panic_recovered"
	TypeStorageError = "storage_error"
	TypeRenderError  = "render_error"
)

// Performance entry types.
const (
	TypePageLoad       = "page_load"
	TypeAPICall        = "api_call"
	TypeAPIError       = "api_error"
	TypeFormSubmission = "form_submission"
	TypePageNavigation = "page_navigation"
	TypeMemory         = "memory"
)

// CaptureResult says what happened to a captured entry.
type CaptureResult int

const (
	// Filtered entries matched the noise filter and were dropped.
	Filtered CaptureResult = iota
	// Recorded entries were stored and surfaced.
	Recorded
	// Suppressed entries were stored but not surfaced (error storm).
	Suppressed
)

func (r CaptureResult) String() string {
	switch r {
	case Filtered:
		return "filtered"
	case Recorded:
		return "recorded"
	case Suppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// Context locates an entry within the app.
type Context struct {
	URL       string `json:"url"`
	UserAgent string `json:"userAgent"`
}

// Entry is one captured diagnostic event.
type Entry struct {
	Type      string         `json:"type"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Context   Context        `json:"context"`
}

// Message returns the "message" detail, if any.
func (e Entry) Message() string {
	if s, ok := e.Details["message"].(string); ok {
		return s
	}
	return ""
}

// =============================================================================
// LOCATOR
// =============================================================================

// Locator tracks the current screen so entries can be stamped with it.
type Locator struct {
	userAgent string

	mu    sync.RWMutex
	route string
}

// NewLocator returns a locator for the given app version, starting at the
// login screen.
func NewLocator(version string) *Locator {
	return &Locator{
		userAgent: fmt.Sprintf("tidedesk/%s (%s/%s)", version, runtime.GOOS, runtime.GOARCH),
		route:     "login",
	}
}

// SetRoute records the screen now showing.
func (l *Locator) SetRoute(screen string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.route = screen
}

// Route returns the current screen name.
func (l *Locator) Route() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.route
}

// Current returns the context for an entry captured now.
func (l *Locator) Current() Context {
	if l == nil {
		return Context{}
	}
	return Context{URL: "tidedesk://" + l.Route(), UserAgent: l.userAgent}
}

// countTypes tallies entries by type.
func countTypes(lists ...[]Entry) map[string]int {
	counts := make(map[string]int)
	for _, list := range lists {
		for _, e := range list {
			counts[e.Type]++
		}
	}
	return counts
}
