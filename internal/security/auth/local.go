// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/pbkdf2"

	"github.com/jeranaias/tidedesk/internal/security"
	"github.com/jeranaias/tidedesk/internal/storage"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// PBKDF2Iterations is the default work factor for password hashes.
	PBKDF2Iterations = 600000

	// KeySize is the derived hash length in bytes.
	KeySize = 32

	// SaltSize is the per-user salt length in bytes.
	SaltSize = 16

	// DefaultMinPasswordLength matches the register form rule.
	DefaultMinPasswordLength = 6

	// TOTPIssuer labels enrolled authenticator entries.
	TOTPIssuer = "tidedesk"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
	display_name  TEXT NOT NULL,
	role          TEXT NOT NULL,
	password_hash BLOB NOT NULL,
	salt          BLOB NOT NULL,
	iterations    INTEGER NOT NULL,
	totp_secret   TEXT NOT NULL DEFAULT '',
	disabled      INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL,
	last_login_at INTEGER
);
`

// NewUser describes an account created by an administrator.
type NewUser struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
	EnableTOTP  bool
}

// =============================================================================
// LOCAL PROVIDER
// =============================================================================

// LocalProvider is a Provider backed by the users table.
type LocalProvider struct {
	db *sql.DB

	iterations  int
	minPassword int
	requireTOTP bool
	allowSignUp bool
	now         func() time.Time

	mu      sync.Mutex
	current *User
	subs    map[int]chan security.AuthState
	nextSub int
	closed  bool
}

// LocalOption configures a LocalProvider.
type LocalOption func(*LocalProvider)

// WithIterations sets the PBKDF2 work factor for new hashes.
func WithIterations(n int) LocalOption {
	return func(p *LocalProvider) {
		if n > 0 {
			p.iterations = n
		}
	}
}

// WithMinPasswordLength sets the shortest password Register accepts.
func WithMinPasswordLength(n int) LocalOption {
	return func(p *LocalProvider) {
		if n > 0 {
			p.minPassword = n
		}
	}
}

// WithRequireTOTP refuses sign-in for accounts without a second factor.
func WithRequireTOTP(required bool) LocalOption {
	return func(p *LocalProvider) { p.requireTOTP = required }
}

// WithRegistration enables or disables self-service Register.
func WithRegistration(enabled bool) LocalOption {
	return func(p *LocalProvider) { p.allowSignUp = enabled }
}

// WithProviderClock sets the time source used for TOTP checks.
func WithProviderClock(now func() time.Time) LocalOption {
	return func(p *LocalProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// NewLocalProvider creates the users table if needed and returns a provider
// with nobody signed in.
func NewLocalProvider(db *storage.DB, opts ...LocalOption) (*LocalProvider, error) {
	if _, err := db.SQL().Exec(usersSchema); err != nil {
		return nil, fmt.Errorf("failed to initialize users table: %w", err)
	}
	p := &LocalProvider{
		db:          db.SQL(),
		iterations:  PBKDF2Iterations,
		minPassword: DefaultMinPasswordLength,
		allowSignUp: true,
		now:         time.Now,
		subs:        make(map[int]chan security.AuthState),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// =============================================================================
// STATE STREAM
// =============================================================================

// Subscribe returns a channel that holds the latest auth state. The current
// state is available immediately; a slow reader only ever sees the newest
// value. The returned function unsubscribes and closes the channel.
func (p *LocalProvider) Subscribe() (<-chan security.AuthState, func()) {
	ch := make(chan security.AuthState, 1)

	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	ch <- p.stateLocked()
	if p.closed {
		close(ch)
		p.mu.Unlock()
		return ch, func() {}
	}
	p.subs[id] = ch
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if c, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(c)
			}
		})
	}
}

func (p *LocalProvider) stateLocked() security.AuthState {
	if p.current == nil {
		return security.AuthState{}
	}
	return p.current.State()
}

func (p *LocalProvider) broadcastLocked() {
	st := p.stateLocked()
	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

// Close ends every subscription.
func (p *LocalProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
	return nil
}

// CurrentUser returns the signed-in user.
func (p *LocalProvider) CurrentUser() (User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return User{}, false
	}
	return *p.current, true
}

// =============================================================================
// SIGN IN / OUT
// =============================================================================

// SignIn checks email and password, then the one-time code when the account
// has a second factor. Failures are *security.AuthError values.
func (p *LocalProvider) SignIn(ctx context.Context, email, password, code string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	email = normalizeEmail(email)
	if !security.ValidateEmail(email) {
		return User{}, security.NewAuthError(security.CodeInvalidEmail)
	}

	rec, err := p.lookup(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return User{}, security.NewAuthError(security.CodeUserNotFound)
	}
	if err != nil {
		return User{}, err
	}
	if rec.user.Disabled {
		return User{}, security.NewAuthError(security.CodeUserDisabled)
	}
	if !rec.matches(password) {
		return User{}, security.NewAuthError(security.CodeWrongPassword)
	}

	switch {
	case rec.totpSecret != "":
		if !p.validCode(code, rec.totpSecret) {
			return User{}, security.NewAuthError(security.CodeInvalidOTP)
		}
	case p.requireTOTP:
		return User{}, &security.AuthError{
			Code: security.CodeOperationNotAllowed,
			Err:  errors.New("second factor required but not enrolled"),
		}
	}

	if _, err := p.db.ExecContext(ctx, "UPDATE users SET last_login_at = ? WHERE id = ?",
		p.now().UnixMilli(), rec.user.ID); err != nil {
		return User{}, fmt.Errorf("record login time: %w", err)
	}

	p.setCurrent(&rec.user)
	return rec.user, nil
}

// SignOut clears the current user. Signing out with nobody signed in is a
// no-op.
func (p *LocalProvider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.setCurrent(nil)
	return nil
}

func (p *LocalProvider) setCurrent(u *User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u == nil && p.current == nil {
		return
	}
	if u != nil {
		cp := *u
		u = &cp
	}
	p.current = u
	p.broadcastLocked()
}

func (p *LocalProvider) validCode(code, secret string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, p.now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// Register creates a user account with the "user" role and signs it in.
func (p *LocalProvider) Register(ctx context.Context, req RegisterRequest) (User, error) {
	if !p.allowSignUp {
		return User{}, security.NewAuthError(security.CodeOperationNotAllowed)
	}
	u, _, err := p.create(ctx, NewUser{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        RoleUser,
	})
	if err != nil {
		return User{}, err
	}
	p.setCurrent(&u)
	return u, nil
}

// AddUser creates an account without signing it in. When EnableTOTP is set
// the returned key holds the secret and provisioning URL to show once.
func (p *LocalProvider) AddUser(ctx context.Context, nu NewUser) (User, *otp.Key, error) {
	if nu.Role == "" {
		nu.Role = RoleUser
	}
	return p.create(ctx, nu)
}

func (p *LocalProvider) create(ctx context.Context, nu NewUser) (User, *otp.Key, error) {
	email := normalizeEmail(nu.Email)
	if !security.ValidateEmail(email) {
		return User{}, nil, security.NewAuthError(security.CodeInvalidEmail)
	}
	if len([]rune(nu.Password)) < p.minPassword {
		return User{}, nil, security.NewAuthError(security.CodeWeakPassword)
	}

	var exists int
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", email).Scan(&exists); err != nil {
		return User{}, nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists > 0 {
		return User{}, nil, security.NewAuthError(security.CodeEmailAlreadyInUse)
	}

	var key *otp.Key
	if nu.EnableTOTP {
		k, err := totp.Generate(totp.GenerateOpts{Issuer: TOTPIssuer, AccountName: email})
		if err != nil {
			return User{}, nil, fmt.Errorf("generate totp secret: %w", err)
		}
		key = k
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return User{}, nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	hash := derive(nu.Password, salt, p.iterations)

	displayName := strings.TrimSpace(nu.DisplayName)
	if displayName == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}
	u := User{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: displayName,
		Role:        nu.Role,
		TOTPEnabled: key != nil,
		CreatedAt:   p.now().UTC().Truncate(time.Millisecond),
	}
	secret := ""
	if key != nil {
		secret = key.Secret()
	}

	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, role, password_hash, salt, iterations, totp_secret, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.DisplayName, u.Role, hash, salt, p.iterations, secret, u.CreatedAt.UnixMilli())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return User{}, nil, security.NewAuthError(security.CodeEmailAlreadyInUse)
		}
		return User{}, nil, fmt.Errorf("insert user: %w", err)
	}
	return u, key, nil
}

// ListUsers returns every account ordered by email.
func (p *LocalProvider) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, email, display_name, role, totp_secret != '', disabled, created_at
		 FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var (
			u       User
			created int64
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.TOTPEnabled, &u.Disabled, &created); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.CreatedAt = time.UnixMilli(created).UTC()
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetDisabled blocks or unblocks sign-in for email. Disabling the current
// user signs them out.
func (p *LocalProvider) SetDisabled(ctx context.Context, email string, disabled bool) error {
	email = normalizeEmail(email)
	res, err := p.db.ExecContext(ctx, "UPDATE users SET disabled = ? WHERE email = ?", disabled, email)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
	}
	if disabled {
		if cur, ok := p.CurrentUser(); ok && cur.Email == email {
			p.setCurrent(nil)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

type userRecord struct {
	user       User
	hash       []byte
	salt       []byte
	iterations int
	totpSecret string
}

func (r userRecord) matches(password string) bool {
	got := derive(password, r.salt, r.iterations)
	return subtle.ConstantTimeCompare(got, r.hash) == 1
}

func (p *LocalProvider) lookup(ctx context.Context, email string) (userRecord, error) {
	var (
		rec     userRecord
		created int64
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, role, password_hash, salt, iterations, totp_secret, disabled, created_at
		 FROM users WHERE email = ?`, email).Scan(
		&rec.user.ID, &rec.user.Email, &rec.user.DisplayName, &rec.user.Role,
		&rec.hash, &rec.salt, &rec.iterations, &rec.totpSecret, &rec.user.Disabled, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return userRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return userRecord{}, fmt.Errorf("lookup user: %w", err)
	}
	rec.user.TOTPEnabled = rec.totpSecret != ""
	rec.user.CreatedAt = time.UnixMilli(created).UTC()
	return rec, nil
}

func derive(password string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, KeySize, sha256.New)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
