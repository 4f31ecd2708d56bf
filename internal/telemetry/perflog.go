// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/jeranaias/tidedesk/internal/storage"
	"github.com/jeranaias/tidedesk/internal/util"
)

const (
	DefaultMaxStoredMetrics = 1000
	DefaultMemoryInterval   = 5 * time.Second
	maxMemorySamples        = 100
	maxRecentSamples        = 100
	recentSampleCount       = 10
)

// MemorySample is one reading of the Go runtime's memory statistics.
type MemorySample struct {
	Timestamp  time.Time `json:"timestamp"`
	HeapAlloc  uint64    `json:"heapAlloc"`
	HeapSys    uint64    `json:"heapSys"`
	Sys        uint64    `json:"sys"`
	NumGC      uint32    `json:"numGC"`
	Goroutines int       `json:"goroutines"`
}

// PerformanceLog records timing samples and mirrors them to the KV store.
type PerformanceLog struct {
	clock   util.Clock
	filter  *NoiseFilter
	locator *Locator
	mirror  *mirror

	mu        sync.Mutex
	started   time.Time
	pageLoad  map[string]float64
	apiCalls  int
	apiTotal  time.Duration
	apiErrors int
	memory    []MemorySample
	recent    []Entry
	counts    map[string]int
}

// PerformanceOption configures a PerformanceLog.
type PerformanceOption func(*PerformanceLog)

// WithPerfClock sets the time source.
func WithPerfClock(c util.Clock) PerformanceOption {
	return func(p *PerformanceLog) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithPerfStore mirrors samples to kv under performance_metrics, keeping max.
func WithPerfStore(kv storage.KV, max int) PerformanceOption {
	return func(p *PerformanceLog) {
		if max <= 0 {
			max = DefaultMaxStoredMetrics
		}
		p.mirror = newMirror(kv, storage.KeyPerformanceMetrics, max)
	}
}

// WithPerfLocator stamps samples with the current screen.
func WithPerfLocator(loc *Locator) PerformanceOption {
	return func(p *PerformanceLog) { p.locator = loc }
}

// WithPerfFilter replaces the default noise filter.
func WithPerfFilter(f *NoiseFilter) PerformanceOption {
	return func(p *PerformanceLog) { p.filter = f }
}

// NewPerformanceLog returns a log whose startup clock starts now.
func NewPerformanceLog(opts ...PerformanceOption) *PerformanceLog {
	p := &PerformanceLog{
		clock:  util.RealClock{},
		filter: DefaultNoiseFilter(),
		counts: make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.started = p.clock.Now()
	return p
}

// Record stores a sample of type typ. Noise is dropped first.
func (p *PerformanceLog) Record(typ string, details map[string]any) CaptureResult {
	e := Entry{
		Type:      typ,
		Details:   details,
		Timestamp: p.clock.Now(),
		Context:   p.locator.Current(),
	}
	if p.filter.Matches(e) {
		return Filtered
	}

	p.mu.Lock()
	p.recent = append(p.recent, e)
	if len(p.recent) > maxRecentSamples {
		p.recent = p.recent[len(p.recent)-maxRecentSamples:]
	}
	p.counts[typ]++
	p.mu.Unlock()

	p.mirror.append(e)
	return Recorded
}

// =============================================================================
// SAMPLE SOURCES
// =============================================================================

// PageLoaded records the time from startup to the first rendered screen.
// Only the first call counts.
func (p *PerformanceLog) PageLoaded() {
	now := p.clock.Now()
	p.mu.Lock()
	if p.pageLoad != nil {
		p.mu.Unlock()
		return
	}
	total := float64(now.Sub(p.started)) / float64(time.Millisecond)
	p.pageLoad = map[string]float64{"totalLoadTime": total}
	p.mu.Unlock()

	p.Record(TypePageLoad, map[string]any{"totalLoadTime": total})
}

// APICall records one document-store operation.
func (p *PerformanceLog) APICall(op string, d time.Duration, err error) {
	ms := float64(d) / float64(time.Millisecond)

	p.mu.Lock()
	p.apiCalls++
	p.apiTotal += d
	if err != nil {
		p.apiErrors++
	}
	p.mu.Unlock()

	if err != nil {
		p.Record(TypeAPIError, map[string]any{"url": op, "error": err.Error(), "duration": ms})
		return
	}
	p.Record(TypeAPICall, map[string]any{"url": op, "duration": ms, "status": "ok"})
}

// FormSubmitted records a login or register submit.
func (p *PerformanceLog) FormSubmitted(form string, d time.Duration, err error) {
	details := map[string]any{
		"formId":   form,
		"duration": float64(d) / float64(time.Millisecond),
		"success":  err == nil,
	}
	p.Record(TypeFormSubmission, details)
}

// Navigated records a screen switch.
func (p *PerformanceLog) Navigated(from, to string) {
	p.Record(TypePageNavigation, map[string]any{"from": from, "to": "tidedesk://" + to})
}

// SampleMemory reads runtime memory statistics and keeps the last 100.
func (p *PerformanceLog) SampleMemory() MemorySample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s := MemorySample{
		Timestamp:  p.clock.Now(),
		HeapAlloc:  ms.HeapAlloc,
		HeapSys:    ms.HeapSys,
		Sys:        ms.Sys,
		NumGC:      ms.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}

	p.mu.Lock()
	p.memory = append(p.memory, s)
	if len(p.memory) > maxMemorySamples {
		p.memory = p.memory[len(p.memory)-maxMemorySamples:]
	}
	p.counts[TypeMemory]++
	p.mu.Unlock()
	return s
}

// StartMemorySampler samples memory every interval until ctx is done.
// Samples stay in memory only.
func (p *PerformanceLog) StartMemorySampler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultMemoryInterval
	}
	var (
		mu    sync.Mutex
		timer util.Timer
		tick  func()
	)
	tick = func() {
		if ctx.Err() != nil {
			return
		}
		p.SampleMemory()
		mu.Lock()
		timer = p.clock.AfterFunc(interval, tick)
		mu.Unlock()
	}

	mu.Lock()
	timer = p.clock.AfterFunc(interval, tick)
	mu.Unlock()

	go func() {
		<-ctx.Done()
		mu.Lock()
		timer.Stop()
		mu.Unlock()
	}()
}

// MemorySamples returns the retained memory readings, oldest first.
func (p *PerformanceLog) MemorySamples() []MemorySample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]MemorySample(nil), p.memory...)
}

// =============================================================================
// REPORTING
// =============================================================================

// PerformanceReport summarises the log.
type PerformanceReport struct {
	Timestamp          time.Time          `json:"timestamp"`
	PageLoad           map[string]float64 `json:"pageLoad"`
	Memory             *MemorySample      `json:"memory"`
	Errors             int                `json:"errors"`
	APICalls           int                `json:"apiCalls"`
	AverageAPITime     float64            `json:"averageAPITime"`
	TotalStoredMetrics int                `json:"totalStoredMetrics"`
	MetricTypes        map[string]int     `json:"metricTypes"`
	RecentSamples      []Entry            `json:"recentSamples"`
}

// Report returns a snapshot of the log. It changes nothing.
func (p *PerformanceLog) Report(ctx context.Context) PerformanceReport {
	stored := p.mirror.load(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	r := PerformanceReport{
		Timestamp:          p.clock.Now(),
		PageLoad:           make(map[string]float64, len(p.pageLoad)),
		Errors:             p.apiErrors,
		APICalls:           p.apiCalls,
		TotalStoredMetrics: len(stored),
		MetricTypes:        make(map[string]int, len(p.counts)),
	}
	for k, v := range p.pageLoad {
		r.PageLoad[k] = v
	}
	for k, v := range p.counts {
		r.MetricTypes[k] = v
	}
	if n := len(p.memory); n > 0 {
		last := p.memory[n-1]
		r.Memory = &last
	}
	if p.apiCalls > 0 {
		r.AverageAPITime = float64(p.apiTotal) / float64(p.apiCalls) / float64(time.Millisecond)
	}
	recent := p.recent
	if len(recent) > recentSampleCount {
		recent = recent[len(recent)-recentSampleCount:]
	}
	r.RecentSamples = append([]Entry(nil), recent...)
	return r
}

// Stored returns the persisted samples, oldest first.
func (p *PerformanceLog) Stored(ctx context.Context) []Entry {
	return p.mirror.load(ctx)
}

// Clear resets the in-memory state and deletes the persisted list. The
// startup time is kept.
func (p *PerformanceLog) Clear(ctx context.Context) error {
	p.mu.Lock()
	p.pageLoad = nil
	p.apiCalls, p.apiTotal, p.apiErrors = 0, 0, 0
	p.memory = nil
	p.recent = nil
	p.counts = make(map[string]int)
	p.mu.Unlock()
	return p.mirror.clear(ctx)
}
