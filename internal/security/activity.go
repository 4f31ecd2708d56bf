// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"sync"
	"time"

	"github.com/jeranaias/tidedesk/internal/util"
)

// SignalKind is a kind of user interaction.
type SignalKind int

const (
	SignalPointerDown SignalKind = iota
	SignalPointerMove
	SignalKeyPress
	SignalScroll
	SignalTouchStart
	SignalClick
	SignalVisibilityRegained
)

var signalNames = [...]string{
	"pointer_down",
	"pointer_move",
	"key_press",
	"scroll",
	"touch_start",
	"click",
	"visibility_regained",
}

func (k SignalKind) String() string {
	if int(k) < len(signalNames) {
		return signalNames[k]
	}
	return "unknown"
}

// ActivityTracker notes user interaction and forwards it to an observer.
// It never touches session timers itself.
type ActivityTracker struct {
	clock util.Clock

	mu       sync.Mutex
	last     time.Time
	lastKind SignalKind
	count    uint64
	observer func(at time.Time)
}

// NewActivityTracker returns a tracker that reports to observer, which
// may be nil.
func NewActivityTracker(clock util.Clock, observer func(at time.Time)) *ActivityTracker {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &ActivityTracker{clock: clock, observer: observer}
}

// SetObserver replaces the observer.
func (t *ActivityTracker) SetObserver(observer func(at time.Time)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observer = observer
}

// Record notes a signal of kind now. Every signal is forwarded; there is
// no debouncing.
func (t *ActivityTracker) Record(kind SignalKind) {
	now := t.clock.Now()

	t.mu.Lock()
	t.last = now
	t.lastKind = kind
	t.count++
	observer := t.observer
	t.mu.Unlock()

	if observer != nil {
		observer(now)
	}
}

// LastActivity returns when the most recent signal arrived and its kind.
func (t *ActivityTracker) LastActivity() (time.Time, SignalKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.lastKind
}

// Count returns the number of signals recorded.
func (t *ActivityTracker) Count() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}
