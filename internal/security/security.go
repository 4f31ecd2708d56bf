// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package security implements session protection for the tidedesk back office.
//
// # Components
//
//   - ActivityTracker: notes keyboard, mouse and focus signals and forwards
//     them to an observer (normally SessionController.Activity).
//   - SessionController: owns the inactivity timer pair. It warns the user
//     before the session ends, extends on request and signs out on expiry.
//     All state changes happen on one goroutine; callers talk to it through
//     methods and read notifications from Events().
//   - RateLimiter: sliding-window request limiter keyed by identifier.
//   - AuditLogger: JSON-lines security log with masking and rotation.
//   - Validation helpers and auth error message tables for the login and
//     register forms.
//
// The auth subpackage holds the local account provider and login service.
//
// # Session Lifecycle
//
//	Inactive --sign in--> Active --idle (total-lead)--> Warning
//	Warning --Extend--> Active
//	Warning --idle lead / Decline--> Expired --signed out--> (countdown) --> Inactive
//	Active|Warning --provider sign-out--> Inactive
//
// # Usage
//
//	ctrl := security.NewSessionController(provider,
//	    security.WithRecorder(auditLogger),
//	    security.WithToaster(notifier),
//	)
//	ctrl.Initialize(ctx)
//	tracker := security.NewActivityTracker(nil, func(at time.Time) { _ = ctrl.Activity(at) })
//
//	limiter := security.NewRateLimiter()
//	if !limiter.IsAllowed(email) {
//	    return security.NewAuthError(security.CodeTooManyRequests)
//	}
package security
