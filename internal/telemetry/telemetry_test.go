// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/tidedesk/internal/storage"
	"github.com/jeranaias/tidedesk/internal/util"
)

var epoch = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

type warnings struct {
	mu   sync.Mutex
	msgs []string
}

func (w *warnings) ShowWarning(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msg)
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, storage.ErrNotFound }
func (failingKV) Set(context.Context, string, []byte) error   { return storage.ErrQuotaExceeded }
func (failingKV) Delete(context.Context, string) error        { return nil }

// =============================================================================
// NOISE FILTER
// =============================================================================

func TestNoiseFilter(t *testing.T) {
	f := DefaultNoiseFilter()

	assert.True(t, f.Ignore("Script error.", ""))
	assert.True(t, f.Ignore("TypeError: Failed to fetch", ""))
	assert.True(t, f.Ignore("", "https://www.googletagmanager.com/gtag/js?id=G-EP0RBFGLW6"))
	assert.True(t, f.Ignore("request to region1.google-analytics.com/g/collect failed", ""))
	assert.False(t, f.Ignore("cannot load products", "store://query:products"))

	assert.True(t, f.Matches(Entry{Details: map[string]any{"filename": "/fonts/bootstrap-icons.woff2"}}))
	assert.False(t, f.Matches(Entry{Details: map[string]any{"message": "boom"}}))

	var none *NoiseFilter
	assert.False(t, none.Ignore("Script error.", ""))
}

// =============================================================================
// ERROR LOG
// =============================================================================

func TestErrorLog_StormRaisesOneWarning(t *testing.T) {
	clock := util.NewFakeClock(epoch)
	warn := &warnings{}
	log := NewErrorLog(WithErrorClock(clock), WithStormWarner(warn))

	var surfaced int
	log.OnError(func(Entry) { surfaced++ })

	var results []CaptureResult
	for i := 0; i < 11; i++ {
		results = append(results, log.Capture(TypeAppError, map[string]any{"message": "render failed"}))
		clock.Advance(time.Second)
	}

	assert.Equal(t, 10, surfaced)
	assert.Equal(t, []string{StormMessage}, warn.msgs)
	assert.Equal(t, Suppressed, results[10])

	log.Capture(TypeAppError, map[string]any{"message": "again"})
	assert.Equal(t, 10, surfaced)
	assert.Len(t, warn.msgs, 1)
	assert.True(t, log.Report(context.Background()).Storming)
}

func TestErrorLog_SurfacingResumesAfterWindow(t *testing.T) {
	clock := util.NewFakeClock(epoch)
	warn := &warnings{}
	log := NewErrorLog(WithErrorClock(clock), WithStormWarner(warn))

	for i := 0; i < 12; i++ {
		log.Capture(TypeAppError, map[string]any{"message": "x"})
	}
	require.Len(t, warn.msgs, 1)

	clock.Advance(61 * time.Second)
	assert.Equal(t, Recorded, log.Capture(TypeAppError, map[string]any{"message": "after"}))
	assert.Len(t, log.Current(), 1)

	for i := 0; i < 10; i++ {
		log.Capture(TypeAppError, map[string]any{"message": "second storm"})
	}
	assert.Len(t, warn.msgs, 2)
}

func TestErrorLog_NoiseNeverStored(t *testing.T) {
	kv := storage.NewMemoryKV()
	log := NewErrorLog(WithErrorStore(kv, 100))
	ctx := context.Background()

	res := log.Capture(TypeAppError, map[string]any{
		"message": "load failed",
		"source":  "https://ssl.google-analytics.com/collect",
	})
	assert.Equal(t, Filtered, res)
	assert.Empty(t, log.Current())
	assert.Empty(t, log.Stored(ctx))
	assert.Zero(t, log.Captured())
}

func TestErrorLog_PersistedListIsCapped(t *testing.T) {
	clock := util.NewFakeClock(epoch)
	kv := storage.NewMemoryKV()
	log := NewErrorLog(WithErrorClock(clock), WithErrorStore(kv, 5))
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		log.Capture(TypeAppError, map[string]any{"message": "e", "n": i})
	}
	stored := log.Stored(ctx)
	require.Len(t, stored, 5)
	assert.Equal(t, float64(3), stored[0].Details["n"])
	assert.Equal(t, float64(7), stored[4].Details["n"])

	report := log.Report(ctx)
	assert.Equal(t, 8, report.CurrentErrors)
	assert.Equal(t, 5, report.StoredErrors)
	assert.Equal(t, 13, report.TotalErrors)
	assert.Len(t, report.RecentErrors, 5)
	assert.Equal(t, 13, report.ErrorTypes[TypeAppError])

	require.NoError(t, log.Clear(ctx))
	assert.Empty(t, log.Stored(ctx))
	assert.Empty(t, log.Current())
}

func TestErrorLog_StorageFailureIsSwallowed(t *testing.T) {
	log := NewErrorLog(WithErrorStore(failingKV{}, 100))
	assert.NotPanics(t, func() {
		for i := 0; i < 5; i++ {
			assert.Equal(t, Recorded, log.Capture(TypeAppError, map[string]any{"message": "x"}))
		}
	})
}

func TestErrorLog_ContextAndRecover(t *testing.T) {
	loc := NewLocator("1.2.0")
	loc.SetRoute("reports")
	log := NewErrorLog(WithErrorLocator(loc))

	func() {
		defer log.Recover("chart render")
		panic("index out of range")
	}()

	cur := log.Current()
	require.Len(t, cur, 1)
	assert.Equal(t, TypePanic, cur[0].Type)
	assert.Equal(t, "index out of range", cur[0].Message())
	assert.Equal(t, "tidedesk://reports", cur[0].Context.URL)
	assert.Contains(t, cur[0].Context.UserAgent, "tidedesk/1.2.0 (")

	assert.Equal(t, Filtered, log.CaptureError(TypeAppError, nil))
	assert.Equal(t, Recorded, log.CaptureError(TypeAppError, errors.New("x")))
}

// =============================================================================
// PERFORMANCE LOG
// =============================================================================

func TestPerformanceLog_Report(t *testing.T) {
	clock := util.NewFakeClock(epoch)
	kv := storage.NewMemoryKV()
	perf := NewPerformanceLog(WithPerfClock(clock), WithPerfStore(kv, 1000))
	ctx := context.Background()

	clock.Advance(250 * time.Millisecond)
	perf.PageLoaded()
	perf.PageLoaded()

	perf.APICall("query:products", 10*time.Millisecond, nil)
	perf.APICall("query:transactions", 30*time.Millisecond, nil)
	perf.APICall("get:products", 20*time.Millisecond, errors.New("disk full"))
	perf.FormSubmitted("login", 5*time.Millisecond, nil)
	perf.Navigated("login", "dashboard")
	perf.SampleMemory()

	r := perf.Report(ctx)
	assert.Equal(t, 250.0, r.PageLoad["totalLoadTime"])
	assert.Equal(t, 3, r.APICalls)
	assert.Equal(t, 1, r.Errors)
	assert.InDelta(t, 20.0, r.AverageAPITime, 0.001)
	assert.Equal(t, 6, r.TotalStoredMetrics)
	assert.Equal(t, 1, r.MetricTypes[TypePageLoad])
	assert.Equal(t, 2, r.MetricTypes[TypeAPICall])
	assert.Equal(t, 1, r.MetricTypes[TypeAPIError])
	assert.Equal(t, 1, r.MetricTypes[TypeMemory])
	require.NotNil(t, r.Memory)
	assert.NotZero(t, r.Memory.Sys)

	// Reporting does not change state.
	assert.Equal(t, r.TotalStoredMetrics, perf.Report(ctx).TotalStoredMetrics)

	require.NoError(t, perf.Clear(ctx))
	cleared := perf.Report(ctx)
	assert.Zero(t, cleared.APICalls)
	assert.Zero(t, cleared.TotalStoredMetrics)
	assert.Nil(t, cleared.Memory)
}

func TestPerformanceLog_CapsPersistedSamples(t *testing.T) {
	kv := storage.NewMemoryKV()
	perf := NewPerformanceLog(WithPerfStore(kv, 3))
	for i := 0; i < 5; i++ {
		perf.Navigated("a", "b")
	}
	assert.Len(t, perf.Stored(context.Background()), 3)
}

func TestPerformanceLog_MemorySampler(t *testing.T) {
	clock := util.NewFakeClock(epoch)
	perf := NewPerformanceLog(WithPerfClock(clock))
	ctx, cancel := context.WithCancel(context.Background())

	perf.StartMemorySampler(ctx, 5*time.Second)
	clock.Advance(5 * time.Second)
	clock.Advance(5 * time.Second)
	clock.Advance(5 * time.Second)
	assert.Len(t, perf.MemorySamples(), 3)

	cancel()
	require.Eventually(t, func() bool { return clock.Pending() == 0 }, time.Second, 5*time.Millisecond)
	clock.Advance(time.Minute)
	assert.Len(t, perf.MemorySamples(), 3)
}

func TestPerformanceLog_KeepsLastHundredMemorySamples(t *testing.T) {
	perf := NewPerformanceLog()
	for i := 0; i < 120; i++ {
		perf.SampleMemory()
	}
	assert.Len(t, perf.MemorySamples(), 100)
}

// =============================================================================
// NOTIFIER
// =============================================================================

func TestNotifier_Lifetimes(t *testing.T) {
	clock := util.NewFakeClock(epoch)
	n := NewNotifier(clock)

	n.ShowSuccess("saved")
	n.ShowWarning("low stock")
	n.ShowError("failed")
	n.ShowWarningFor("Session expired. You have been signed out.", 3*time.Second)

	assert.Len(t, n.Active(), 4)
	clock.Advance(3 * time.Second)
	assert.Len(t, n.Active(), 3)
	clock.Advance(2 * time.Second)
	assert.Len(t, n.Active(), 2)
	clock.Advance(2 * time.Second)
	active := n.Active()
	require.Len(t, active, 1)
	assert.Equal(t, LevelError, active[0].Level)
	clock.Advance(3 * time.Second)
	assert.Empty(t, n.Active())

	first := <-n.Toasts()
	assert.Equal(t, "saved", first.Message)
	assert.Equal(t, SuccessTTL, first.TTL)
}

func TestNotifier_DismissAndNeverBlocks(t *testing.T) {
	n := NewNotifier(nil)
	toast := n.Notify(LevelInfo, "hello", 0)
	assert.Equal(t, InfoTTL, toast.TTL)
	assert.True(t, n.Dismiss(toast.ID))
	assert.False(t, n.Dismiss(toast.ID))

	done := make(chan struct{})
	go func() {
		for i := 0; i < toastBuffer*2; i++ {
			n.ShowError("flood")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full channel")
	}
	n.DismissAll()
	assert.Empty(t, n.Active())
}

// =============================================================================
// INSTRUMENTED STORE
// =============================================================================

func TestInstrumentedStore(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "t.db"))
	require.NoError(t, err)
	defer db.Close()
	inner := storage.NewSQLiteDocumentStore(db, storage.WithExternalWatch(false))
	defer inner.Close()

	perf := NewPerformanceLog()
	errs := NewErrorLog()
	store := Instrument(inner, perf, errs)
	ctx := context.Background()

	id, err := store.Create(ctx, storage.CollectionProducts, map[string]any{"name": "กุ้งขาว", "quantity": 20})
	require.NoError(t, err)
	_, err = store.Get(ctx, storage.CollectionProducts, id)
	require.NoError(t, err)
	_, err = store.Get(ctx, storage.CollectionProducts, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.Query(ctx, storage.CollectionProducts, storage.QueryOptions{OrderBy: "bad field"})
	assert.Error(t, err)

	r := perf.Report(ctx)
	assert.Equal(t, 4, r.APICalls)
	assert.Equal(t, 2, r.Errors)

	// Not-found is an expected outcome; the invalid query is a fault.
	cur := errs.Current()
	require.Len(t, cur, 1)
	assert.Equal(t, TypeStorageError, cur[0].Type)
}

// =============================================================================
// ARCHIVE
// =============================================================================

func TestReportArchive(t *testing.T) {
	archive, err := NewReportArchive(filepath.Join(t.TempDir(), "reports"))
	require.NoError(t, err)
	ctx := context.Background()

	errs := NewErrorLog()
	errs.Capture(TypeAppError, map[string]any{"message": "x"})
	snap := TakeSnapshot(ctx, errs, NewPerformanceLog())

	path, err := archive.Save(snap)
	require.NoError(t, err)
	assert.FileExists(t, path)

	loaded, err := archive.Load(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Errors.CurrentErrors)

	ids, err := archive.List(time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{snap.ID}, ids)

	n, err := archive.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	removed, err := archive.DeleteBefore(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

// =============================================================================
// MARKDOWN
// =============================================================================

func TestMarkdown(t *testing.T) {
	errs := ErrorReport{
		Timestamp:     epoch,
		CurrentErrors: 2,
		StoredErrors:  5,
		TotalErrors:   7,
		Storming:      true,
		ErrorTypes:    map[string]int{TypeAppError: 1, TypeStorageError: 1},
		RecentErrors: []Entry{{
			Type:      TypeStorageError,
			Details:   map[string]any{"message": "disk | full"},
			Timestamp: epoch,
			Context:   Context{URL: "tidedesk://reports"},
		}},
	}
	perf := PerformanceReport{
		PageLoad:    map[string]float64{"totalLoadTime": 42},
		APICalls:    3,
		MetricTypes: map[string]int{TypePageLoad: 1},
	}

	md := Markdown(errs, perf)
	assert.Contains(t, md, "# Diagnostics")
	assert.Contains(t, md, "| Total | 7 |")
	assert.Contains(t, md, "Error storm in progress")
	assert.Contains(t, md, `disk \| full`)
	assert.Contains(t, md, "tidedesk://reports")
	assert.Contains(t, md, "| Startup | 42 ms |")
	assert.Contains(t, md, "| Store calls | 3 |")
	assert.NotContains(t, md, "Heap in use")

	// Counts are listed in key order.
	assert.Less(t, strings.Index(md, "- "+TypeAppError), strings.Index(md, "- "+TypeStorageError))
}
