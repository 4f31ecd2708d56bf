// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry provides client diagnostics for tidedesk.
//
// Two buffers record diagnostic entries in memory and mirror them to the
// key/value store:
//
//   - ErrorLog: application errors under "app_errors" (capped at 100). A
//     60 second sliding window limits how many errors reach the user; past
//     10 in the window a single storm warning replaces individual reports.
//   - PerformanceLog: startup, document-store call, form submission,
//     navigation and memory samples under "performance_metrics" (capped at
//     1000).
//
// Both run a NoiseFilter first. Filtered entries are never counted or stored.
//
// # Key Types
//
//   - Entry: one captured event with its screen context
//   - Notifier: toast queue for success, warning and error messages
//   - InstrumentedStore: DocumentStore wrapper that times every call
//   - ReportArchive: saved report snapshots on disk
//
// # Usage
//
//	errs := telemetry.NewErrorLog(telemetry.WithErrorStore(kv), telemetry.WithStormWarner(notifier))
//	errs.Capture(telemetry.TypeAppError, map[string]any{"message": "render failed"})
//	report := errs.Report(ctx)
//
// # Privacy
//
// Entries stay on this machine. Nothing is sent anywhere.
package telemetry
