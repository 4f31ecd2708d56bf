// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// Collections used by the back office.
const (
	CollectionProducts     = "products"
	CollectionTransactions = "transactions"
	CollectionSuppliers    = "suppliers"
)

// Document is one stored record.
type Document struct {
	ID        string         `json:"id"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Field returns a top-level value of the document.
func (d Document) Field(name string) any {
	if d.Data == nil {
		return nil
	}
	return d.Data[name]
}

// QueryOptions orders and limits a collection query. OrderBy names a
// top-level JSON field; an empty OrderBy orders by creation time.
type QueryOptions struct {
	OrderBy string
	Desc    bool
	Limit   int
}

// DocumentStore is the document database used by the screens and reports.
type DocumentStore interface {
	Query(ctx context.Context, collection string, opts QueryOptions) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Create(ctx context.Context, collection string, data map[string]any) (string, error)
	Update(ctx context.Context, collection, id string, data map[string]any) error
	Delete(ctx context.Context, collection, id string) error

	// Subscribe delivers the full query result now and again after every
	// change to the collection, until ctx is cancelled. Slow readers only
	// ever see the latest result set.
	Subscribe(ctx context.Context, collection string, opts QueryOptions) (<-chan []Document, error)
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// =============================================================================
// SQLITE DOCUMENT STORE
// =============================================================================

// SQLiteDocumentStore keeps documents as JSON text in the documents table.
type SQLiteDocumentStore struct {
	db  *DB
	now func() time.Time

	mu      sync.Mutex
	subs    map[int]*subscription
	nextSub int
	watcher *dbWatcher
	watch   bool
	closed  bool
}

type subscription struct {
	collection string
	opts       QueryOptions
	ch         chan []Document
	ctx        context.Context
	closed     bool

	// refresh is held across query and delivery so results land in order.
	refresh sync.Mutex
}

// DocumentOption configures a SQLiteDocumentStore.
type DocumentOption func(*SQLiteDocumentStore)

// WithExternalWatch re-delivers subscriptions when another process writes
// to the database file.
func WithExternalWatch(enabled bool) DocumentOption {
	return func(s *SQLiteDocumentStore) { s.watch = enabled }
}

// NewSQLiteDocumentStore returns a document store on db.
func NewSQLiteDocumentStore(db *DB, opts ...DocumentOption) *SQLiteDocumentStore {
	s := &SQLiteDocumentStore{
		db:   db,
		now:  time.Now,
		subs: make(map[int]*subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query returns the documents of collection in the requested order.
func (s *SQLiteDocumentStore) Query(ctx context.Context, collection string, opts QueryOptions) ([]Document, error) {
	if collection == "" {
		return nil, ErrEmptyNamespace
	}

	q := "SELECT id, data, created_at, updated_at FROM documents WHERE collection = ?"
	args := []any{collection}

	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}
	if opts.OrderBy != "" {
		if !fieldName.MatchString(opts.OrderBy) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidField, opts.OrderBy)
		}
		q += fmt.Sprintf(" ORDER BY json_extract(data, ?) %s, created_at %s", dir, dir)
		args = append(args, "$."+opts.OrderBy)
	} else {
		q += fmt.Sprintf(" ORDER BY created_at %s, id %s", dir, dir)
	}
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Get returns one document or ErrNotFound.
func (s *SQLiteDocumentStore) Get(ctx context.Context, collection, id string) (Document, error) {
	row := s.db.sql.QueryRowContext(ctx,
		"SELECT id, data, created_at, updated_at FROM documents WHERE collection = ? AND id = ?",
		collection, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// Create stores data under a new id. An "id" string field in data is used
// as the document id when present.
func (s *SQLiteDocumentStore) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	if collection == "" {
		return "", ErrEmptyNamespace
	}

	id, _ := data["id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	body := make(map[string]any, len(data))
	for k, v := range data {
		if k != "id" {
			body[k] = v
		}
	}

	raw, err := sonic.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	ts := s.now().UnixMilli()
	_, err = s.db.sql.ExecContext(ctx,
		"INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		collection, id, string(raw), ts, ts)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", collection, err)
	}

	s.notify(collection)
	return id, nil
}

// Update merges data into the stored document. A nil value removes the field.
func (s *SQLiteDocumentStore) Update(ctx context.Context, collection, id string, data map[string]any) error {
	existing, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	if existing.Data == nil {
		existing.Data = make(map[string]any)
	}
	for k, v := range data {
		if k == "id" {
			continue
		}
		if v == nil {
			delete(existing.Data, k)
			continue
		}
		existing.Data[k] = v
	}

	raw, err := sonic.Marshal(existing.Data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = s.db.sql.ExecContext(ctx,
		"UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?",
		string(raw), s.now().UnixMilli(), collection, id)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}

	s.notify(collection)
	return nil
}

// Delete removes a document. Deleting a missing document reports ErrNotFound.
func (s *SQLiteDocumentStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.sql.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?", collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}

	s.notify(collection)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (Document, error) {
	var (
		doc              Document
		raw              string
		created, updated int64
	)
	if err := r.Scan(&doc.ID, &raw, &created, &updated); err != nil {
		return Document{}, err
	}
	doc.CreatedAt = time.UnixMilli(created)
	doc.UpdatedAt = time.UnixMilli(updated)
	if err := sonic.UnmarshalString(raw, &doc.Data); err != nil {
		// A damaged body still yields a document so aggregations can
		// treat its fields as missing.
		doc.Data = map[string]any{}
	}
	return doc, nil
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe implements DocumentStore.
func (s *SQLiteDocumentStore) Subscribe(ctx context.Context, collection string, opts QueryOptions) (<-chan []Document, error) {
	if opts.OrderBy != "" && !fieldName.MatchString(opts.OrderBy) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, opts.OrderBy)
	}
	initial, err := s.Query(ctx, collection, opts)
	if err != nil {
		return nil, err
	}

	sub := &subscription{
		collection: collection,
		opts:       opts,
		ch:         make(chan []Document, 1),
		ctx:        ctx,
	}
	sub.ch <- initial

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	if s.watch && s.watcher == nil {
		w, err := newDBWatcher(s.db, defaultDebounce, func() { s.notify("") })
		if err == nil {
			s.watcher = w
		}
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			sub.closed = true
			close(sub.ch)
		}
		s.mu.Unlock()
	}()

	return sub.ch, nil
}

// notify re-queries every subscription on collection; "" means all.
func (s *SQLiteDocumentStore) notify(collection string) {
	s.mu.Lock()
	var targets []*subscription
	for _, sub := range s.subs {
		if collection == "" || sub.collection == collection {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range targets {
		s.refresh(sub)
	}
}

func (s *SQLiteDocumentStore) refresh(sub *subscription) {
	sub.refresh.Lock()
	defer sub.refresh.Unlock()
	docs, err := s.Query(sub.ctx, sub.collection, sub.opts)
	if err != nil {
		return
	}
	s.deliver(sub, docs)
}

// deliver replaces any undelivered result with docs.
func (s *SQLiteDocumentStore) deliver(sub *subscription, docs []Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.closed || sub.ctx.Err() != nil {
		return
	}
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- docs:
	default:
	}
}

// Close ends all subscriptions and stops the file watcher.
func (s *SQLiteDocumentStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, sub := range s.subs {
		delete(s.subs, id)
		sub.closed = true
		close(sub.ch)
	}
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if w != nil {
		return w.Close()
	}
	return nil
}

// Collections lists the collection names that hold documents.
func (s *SQLiteDocumentStore) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.sql.QueryContext(ctx, "SELECT DISTINCT collection FROM documents ORDER BY collection")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, strings.TrimSpace(n))
	}
	return names, rows.Err()
}
