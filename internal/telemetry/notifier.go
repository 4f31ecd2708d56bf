// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/jeranaias/tidedesk/internal/util"
)

// Default toast lifetimes.
const (
	ErrorTTL   = 10 * time.Second
	SuccessTTL = 5 * time.Second
	WarningTTL = 7 * time.Second
	InfoTTL    = 5 * time.Second
)

const toastBuffer = 32

// Level is a toast severity.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Toast is a dismissible notification.
type Toast struct {
	ID      uint64
	Level   Level
	Message string
	Created time.Time
	TTL     time.Duration
}

// ExpiresAt returns when the toast disappears on its own.
func (t Toast) ExpiresAt() time.Time { return t.Created.Add(t.TTL) }

// Remaining returns how long the toast has left at now.
func (t Toast) Remaining(now time.Time) time.Duration {
	if r := t.ExpiresAt().Sub(now); r > 0 {
		return r
	}
	return 0
}

// Notifier queues toasts. Nothing it does blocks the caller.
type Notifier struct {
	clock util.Clock
	ch    chan Toast

	mu     sync.Mutex
	nextID uint64
	active []Toast
}

// NewNotifier returns a notifier using clock for lifetimes.
func NewNotifier(clock util.Clock) *Notifier {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Notifier{clock: clock, ch: make(chan Toast, toastBuffer)}
}

// ShowError shows msg for 10 seconds.
func (n *Notifier) ShowError(msg string) { n.Notify(LevelError, msg, ErrorTTL) }

// ShowSuccess shows msg for 5 seconds.
func (n *Notifier) ShowSuccess(msg string) { n.Notify(LevelSuccess, msg, SuccessTTL) }

// ShowWarning shows msg for 7 seconds.
func (n *Notifier) ShowWarning(msg string) { n.Notify(LevelWarning, msg, WarningTTL) }

// ShowWarningFor shows a warning with a custom lifetime.
func (n *Notifier) ShowWarningFor(msg string, ttl time.Duration) { n.Notify(LevelWarning, msg, ttl) }

// Notify adds a toast and offers it on the Toasts channel. A full channel
// drops the delivery; the toast still appears in Active.
func (n *Notifier) Notify(level Level, msg string, ttl time.Duration) Toast {
	if ttl <= 0 {
		ttl = InfoTTL
	}
	n.mu.Lock()
	n.nextID++
	t := Toast{ID: n.nextID, Level: level, Message: msg, Created: n.clock.Now(), TTL: ttl}
	n.pruneLocked(t.Created)
	n.active = append(n.active, t)
	n.mu.Unlock()

	select {
	case n.ch <- t:
	default:
		log.Printf("TOAST_DROPPED | level=%s", level)
	}
	return t
}

// Toasts delivers each toast as it is raised.
func (n *Notifier) Toasts() <-chan Toast { return n.ch }

// Active returns unexpired toasts, oldest first.
func (n *Notifier) Active() []Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pruneLocked(n.clock.Now())
	return append([]Toast(nil), n.active...)
}

// Dismiss removes a toast early. It reports whether the toast was showing.
func (n *Notifier) Dismiss(id uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, t := range n.active {
		if t.ID == id {
			n.active = append(n.active[:i], n.active[i+1:]...)
			return true
		}
	}
	return false
}

// DismissAll clears every toast.
func (n *Notifier) DismissAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.active = nil
}

func (n *Notifier) pruneLocked(now time.Time) {
	kept := n.active[:0]
	for _, t := range n.active {
		if now.Before(t.ExpiresAt()) {
			kept = append(kept, t)
		}
	}
	n.active = kept
}
