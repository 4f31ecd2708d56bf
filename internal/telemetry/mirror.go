// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/tidedesk/internal/storage"
)

const storeTimeout = 2 * time.Second

// mirror keeps a capped copy of captured entries under one KV key. Storage
// failures are logged, with the logging throttled, and never returned to
// the capturing caller.
type mirror struct {
	kv  storage.KV
	key string
	max int

	mu   sync.Mutex
	warn rate.Sometimes
}

func newMirror(kv storage.KV, key string, max int) *mirror {
	return &mirror{
		kv:   kv,
		key:  key,
		max:  max,
		warn: rate.Sometimes{First: 3, Interval: time.Minute},
	}
}

func (m *mirror) append(e Entry) {
	if m == nil || m.kv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	m.mu.Lock()
	err := storage.AppendCapped(ctx, m.kv, m.key, e, m.max)
	m.mu.Unlock()
	if err != nil {
		m.warn.Do(func() {
			log.Printf("TELEMETRY_STORE_ERROR | key=%s type=%s err=%v", m.key, e.Type, err)
		})
	}
}

func (m *mirror) load(ctx context.Context) []Entry {
	if m == nil || m.kv == nil {
		return nil
	}
	entries, err := storage.LoadList[Entry](ctx, m.kv, m.key)
	if err != nil {
		m.warn.Do(func() {
			log.Printf("TELEMETRY_READ_ERROR | key=%s err=%v", m.key, err)
		})
		return nil
	}
	return entries
}

func (m *mirror) clear(ctx context.Context) error {
	if m == nil || m.kv == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kv.Delete(ctx, m.key)
}
