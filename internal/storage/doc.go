// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides local persistence for tidedesk.
//
// Two stores share one SQLite database:
//
//   - KV: opaque values under fixed keys (app_errors, performance_metrics,
//     rememberedEmail). Values may be dropped at any time without harm.
//   - DocumentStore: schemaless JSON documents grouped in collections
//     (products, transactions, suppliers) with ordered queries and live
//     subscriptions.
//
// # Usage
//
//	db, err := storage.Open(cfg.DatabasePath())
//	kv := storage.NewSQLiteKV(db, cfg.Storage.KVQuotaBytes)
//	docs := storage.NewSQLiteDocumentStore(db)
//	updates, err := docs.Subscribe(ctx, "transactions", storage.QueryOptions{OrderBy: "date", Desc: true})
package storage
