// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth provides account sign-in for tidedesk.
//
// # Provider
//
// Provider is the authentication backend the session controller watches.
// LocalProvider keeps accounts in the shared SQLite database:
//
//   - passwords are hashed with PBKDF2-SHA-256 and a per-user salt;
//   - accounts may carry a TOTP secret, in which case a one-time code is
//     required at sign-in;
//   - Subscribe delivers the current AuthState first and then every change.
//
// # Login Service
//
// LoginService runs the login and register forms: rate limiting per email,
// input sanitisation, validation, sign-in, audit events and the remembered
// email.
//
//	svc := auth.NewLoginService(provider, limiter, auth.WithLoginRecorder(auditLogger), auth.WithRememberStore(kv))
//	user, err := svc.Login(ctx, auth.LoginRequest{Email: email, Password: pw, Remember: true})
//	if err != nil {
//	    msg := auth.ErrorMessage(security.OpLogin, err)
//	}
package auth
