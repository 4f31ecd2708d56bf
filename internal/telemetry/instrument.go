// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/jeranaias/tidedesk/internal/storage"
)

// InstrumentedStore wraps a DocumentStore, timing every call into a
// PerformanceLog and capturing unexpected failures in an ErrorLog.
type InstrumentedStore struct {
	inner storage.DocumentStore
	perf  *PerformanceLog
	errs  *ErrorLog
}

// Instrument wraps inner. Either log may be nil.
func Instrument(inner storage.DocumentStore, perf *PerformanceLog, errs *ErrorLog) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, perf: perf, errs: errs}
}

func (s *InstrumentedStore) observe(op, collection string, start time.Time, err error) {
	name := op + ":" + collection
	if s.perf != nil {
		s.perf.APICall(name, time.Since(start), err)
	}
	if err != nil && s.errs != nil && !expected(err) {
		s.errs.Capture(TypeStorageError, map[string]any{
			"message": err.Error(),
			"url":     "store://" + name,
		})
	}
}

// expected errors are normal outcomes, not faults.
func expected(err error) bool {
	return errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Query implements storage.DocumentStore.
func (s *InstrumentedStore) Query(ctx context.Context, collection string, opts storage.QueryOptions) ([]storage.Document, error) {
	start := time.Now()
	docs, err := s.inner.Query(ctx, collection, opts)
	s.observe("query", collection, start, err)
	return docs, err
}

// Get implements storage.DocumentStore.
func (s *InstrumentedStore) Get(ctx context.Context, collection, id string) (storage.Document, error) {
	start := time.Now()
	doc, err := s.inner.Get(ctx, collection, id)
	s.observe("get", collection, start, err)
	return doc, err
}

// Create implements storage.DocumentStore.
func (s *InstrumentedStore) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	start := time.Now()
	id, err := s.inner.Create(ctx, collection, data)
	s.observe("create", collection, start, err)
	return id, err
}

// Update implements storage.DocumentStore.
func (s *InstrumentedStore) Update(ctx context.Context, collection, id string, data map[string]any) error {
	start := time.Now()
	err := s.inner.Update(ctx, collection, id, data)
	s.observe("update", collection, start, err)
	return err
}

// Delete implements storage.DocumentStore.
func (s *InstrumentedStore) Delete(ctx context.Context, collection, id string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, collection, id)
	s.observe("delete", collection, start, err)
	return err
}

// Subscribe implements storage.DocumentStore. Only the subscribe call is
// timed; deliveries are not.
func (s *InstrumentedStore) Subscribe(ctx context.Context, collection string, opts storage.QueryOptions) (<-chan []storage.Document, error) {
	start := time.Now()
	ch, err := s.inner.Subscribe(ctx, collection, opts)
	s.observe("subscribe", collection, start, err)
	return ch, err
}
