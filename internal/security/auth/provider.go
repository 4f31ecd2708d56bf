// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"time"

	"github.com/jeranaias/tidedesk/internal/security"
)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account as seen by the rest of the app. Credentials never
// leave the provider.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	TOTPEnabled bool      `json:"totp_enabled"`
	Disabled    bool      `json:"disabled"`
	CreatedAt   time.Time `json:"created_at"`
}

// State converts u to the auth stream value.
func (u User) State() security.AuthState {
	return security.AuthState{UserID: u.ID, Email: u.Email}
}

// RegisterRequest carries the fields of the register form.
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
}

// Provider is an authentication backend.
type Provider interface {
	security.Authenticator

	// SignIn verifies credentials and makes the user current. code is the
	// one-time password for accounts with a second factor, else ignored.
	SignIn(ctx context.Context, email, password, code string) (User, error)

	// Register creates an account and signs it in.
	Register(ctx context.Context, req RegisterRequest) (User, error)

	// CurrentUser returns the signed-in user, if any.
	CurrentUser() (User, bool)
}
