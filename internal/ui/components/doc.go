// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components holds the reusable pieces of the tidedesk screens:
//
//   - SessionTimeoutOverlay: the expiry warning with a countdown bar
//   - ToastStack: renders the notifier's active toasts
//   - BarChart: horizontal bars for sales, categories and rankings
//
// Components render state they are given. They never talk to the session
// controller or the stores directly; user answers come back as messages.
package components
