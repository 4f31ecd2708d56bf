// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/tidedesk/internal/util"
)

func TestActivityTracker_ForwardsEverySignal(t *testing.T) {
	clock := util.NewFakeClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	var seen []time.Time
	tracker := NewActivityTracker(clock, func(at time.Time) { seen = append(seen, at) })

	tracker.Record(SignalKeyPress)
	clock.Advance(time.Millisecond)
	tracker.Record(SignalPointerMove)
	tracker.Record(SignalPointerMove)

	assert.Len(t, seen, 3)
	assert.Equal(t, uint64(3), tracker.Count())
	last, kind := tracker.LastActivity()
	assert.Equal(t, clock.Now(), last)
	assert.Equal(t, SignalPointerMove, kind)
}

func TestActivityTracker_NilObserver(t *testing.T) {
	tracker := NewActivityTracker(nil, nil)
	assert.NotPanics(t, func() { tracker.Record(SignalClick) })

	called := false
	tracker.SetObserver(func(time.Time) { called = true })
	tracker.Record(SignalScroll)
	assert.True(t, called)
}

func TestActivityTracker_FeedsController(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	tracker := NewActivityTracker(h.clock, func(at time.Time) { _ = h.ctrl.Activity(at) })
	h.clock.Advance(20 * time.Minute)
	tracker.Record(SignalTouchStart)

	assert.Equal(t, 30*time.Minute, h.ctrl.Status().TimeRemaining)
}

func TestSignalKind_String(t *testing.T) {
	assert.Equal(t, "key_press", SignalKeyPress.String())
	assert.Equal(t, "visibility_regained", SignalVisibilityRegained.String())
	assert.Equal(t, "unknown", SignalKind(99).String())
}
