// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// Fixed keys used by the application.
const (
	KeyAppErrors          = "app_errors"
	KeyPerformanceMetrics = "performance_metrics"
	KeyRememberedEmail    = "rememberedEmail"
)

// KV is a small key/value store for opaque, droppable values.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// =============================================================================
// SQLITE KV
// =============================================================================

// SQLiteKV stores values in the kv table. A positive quota caps the total
// bytes held across all keys.
type SQLiteKV struct {
	db    *sql.DB
	quota int
}

// NewSQLiteKV returns a KV on db. quotaBytes <= 0 disables the quota.
func NewSQLiteKV(db *DB, quotaBytes int) *SQLiteKV {
	return &SQLiteKV{db: db.sql, quota: quotaBytes}
}

// Get returns ErrNotFound when key is absent.
func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, failing with ErrQuotaExceeded when the write
// would push the store past its quota.
func (s *SQLiteKV) Set(ctx context.Context, key string, value []byte) error {
	if s.quota > 0 {
		var others int64
		err := s.db.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(LENGTH(value)), 0) FROM kv WHERE key != ?", key).Scan(&others)
		if err != nil {
			return fmt.Errorf("kv size check: %w", err)
		}
		if others+int64(len(value)) > int64(s.quota) {
			return fmt.Errorf("kv set %s (%d bytes): %w", key, len(value), ErrQuotaExceeded)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}

// =============================================================================
// MEMORY KV
// =============================================================================

// MemoryKV is an in-process KV used when no database is configured and in tests.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// =============================================================================
// LIST HELPERS
// =============================================================================

// LoadList decodes the JSON array stored under key. A missing key is an
// empty list. A corrupt value is reported so callers can decide to drop it.
func LoadList[T any](ctx context.Context, kv KV, key string) ([]T, error) {
	raw, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []T
	if err := sonic.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", key, ErrCorrupt, err)
	}
	return items, nil
}

// AppendCapped appends item to the list under key and trims the oldest
// entries so at most max remain. A corrupt stored list is replaced.
func AppendCapped[T any](ctx context.Context, kv KV, key string, item T, max int) error {
	items, err := LoadList[T](ctx, kv, key)
	if errors.Is(err, ErrCorrupt) {
		items = nil
	} else if err != nil {
		return err
	}
	items = append(items, item)
	if max > 0 && len(items) > max {
		items = items[len(items)-max:]
	}
	data, err := sonic.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, data)
}
