// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/jeranaias/tidedesk/internal/security"
	"github.com/jeranaias/tidedesk/internal/storage"
)

// AnonymousID is the rate-limit identifier used when no email was entered.
const AnonymousID = "anonymous"

// Form names reported to the submit hook.
const (
	FormLogin    = "login"
	FormRegister = "register"
)

// ErrRateLimited is wrapped by the too-many-requests AuthError that Login
// returns when the caller is over the limit.
var ErrRateLimited = errors.New("too many login attempts")

// ErrPasswordMismatch reports differing password and confirmation fields.
var ErrPasswordMismatch = errors.New("passwords do not match")

// LoginRequest carries the login form.
type LoginRequest struct {
	Email    string
	Password string
	Code     string
	Remember bool
}

// SignUpRequest carries the register form.
type SignUpRequest struct {
	DisplayName string
	Email       string
	Password    string
	Confirm     string
}

// SubmitHook observes form submissions: which form, how long it took and
// the outcome.
type SubmitHook func(form string, elapsed time.Duration, err error)

// LoginService runs the login and register forms against a Provider.
type LoginService struct {
	provider Provider
	limiter  *security.RateLimiter
	recorder security.EventRecorder
	kv       storage.KV
	onSubmit SubmitHook
	now      func() time.Time
}

// LoginOption configures a LoginService.
type LoginOption func(*LoginService)

// WithLoginRecorder sets where login events are recorded.
func WithLoginRecorder(r security.EventRecorder) LoginOption {
	return func(s *LoginService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithRememberStore sets the KV that holds the remembered email.
func WithRememberStore(kv storage.KV) LoginOption {
	return func(s *LoginService) { s.kv = kv }
}

// WithSubmitHook sets the form submission observer.
func WithSubmitHook(h SubmitHook) LoginOption {
	return func(s *LoginService) { s.onSubmit = h }
}

// NewLoginService returns a service using limiter for attempt throttling.
// A nil limiter gets the default 10 per minute.
func NewLoginService(provider Provider, limiter *security.RateLimiter, opts ...LoginOption) *LoginService {
	if limiter == nil {
		limiter = security.NewRateLimiter()
	}
	s := &LoginService{
		provider: provider,
		limiter:  limiter,
		recorder: security.NopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login validates the form and signs in. On success the limiter entry for
// the email is cleared and the remembered email updated.
func (s *LoginService) Login(ctx context.Context, req LoginRequest) (user User, err error) {
	start := s.now()
	defer func() { s.submitted(FormLogin, start, err) }()

	email := security.SanitizeInput(req.Email)
	id := strings.ToLower(email)
	if id == "" {
		id = AnonymousID
	}

	if !s.limiter.IsAllowed(id) {
		s.recorder.Record(security.SecurityEvent{
			Type:    security.EventLoginThrottled,
			Subject: email,
			Details: map[string]string{"retry_after": s.limiter.RetryAfter(id).Round(time.Second).String()},
		})
		return User{}, &security.AuthError{Code: security.CodeTooManyRequests, Err: ErrRateLimited}
	}

	if err := security.ValidateForm(map[string]string{
		"email":    email,
		"password": req.Password,
	}, map[string]security.FieldRule{
		"email":    security.RuleEmail,
		"password": security.RulePassword,
	}); err != nil {
		return User{}, err
	}

	user, err = s.provider.SignIn(ctx, email, req.Password, req.Code)
	if err != nil {
		code := security.AuthErrorCode(err)
		if code == "" {
			code = "unknown"
		}
		s.recorder.Record(security.SecurityEvent{
			Type:    security.EventLoginFailed,
			Subject: email,
			Details: map[string]string{"code": code},
		})
		return User{}, err
	}

	s.limiter.Reset(id)
	s.recorder.Record(security.SecurityEvent{Type: security.EventLoginSuccess, Subject: user.Email, Success: true})
	s.remember(ctx, email, req.Remember)
	return user, nil
}

// Register validates the register form and creates the account.
func (s *LoginService) Register(ctx context.Context, req SignUpRequest) (user User, err error) {
	start := s.now()
	defer func() { s.submitted(FormRegister, start, err) }()

	email := security.SanitizeInput(req.Email)
	name := security.SanitizeInput(req.DisplayName)

	if err := security.ValidateForm(map[string]string{
		"email":    email,
		"password": req.Password,
	}, map[string]security.FieldRule{
		"email":    security.RuleEmail,
		"password": security.RulePassword,
	}); err != nil {
		return User{}, err
	}
	if req.Password != req.Confirm {
		return User{}, ErrPasswordMismatch
	}

	user, err = s.provider.Register(ctx, RegisterRequest{Email: email, Password: req.Password, DisplayName: name})
	if err != nil {
		s.recorder.Record(security.SecurityEvent{
			Type:    security.EventRegister,
			Subject: email,
			Details: map[string]string{"code": security.AuthErrorCode(err)},
		})
		return User{}, err
	}
	s.recorder.Record(security.SecurityEvent{Type: security.EventRegister, Subject: user.Email, Success: true})
	return user, nil
}

// RememberedEmail returns the email saved by a "remember me" login.
func (s *LoginService) RememberedEmail(ctx context.Context) (string, bool) {
	if s.kv == nil {
		return "", false
	}
	b, err := s.kv.Get(ctx, storage.KeyRememberedEmail)
	if err != nil || len(b) == 0 {
		return "", false
	}
	return string(b), true
}

func (s *LoginService) remember(ctx context.Context, email string, on bool) {
	if s.kv == nil {
		return
	}
	var err error
	if on {
		err = s.kv.Set(ctx, storage.KeyRememberedEmail, []byte(email))
	} else {
		err = s.kv.Delete(ctx, storage.KeyRememberedEmail)
	}
	if err != nil {
		log.Printf("REMEMBER_EMAIL_ERROR | err=%v", err)
	}
}

func (s *LoginService) submitted(form string, start time.Time, err error) {
	if s.onSubmit != nil {
		s.onSubmit(form, s.now().Sub(start), err)
	}
}

// ErrorMessage returns the text to show for a failed form submission.
func ErrorMessage(op security.AuthOperation, err error) string {
	var fe security.FieldErrors
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fe):
		return fe.Error()
	case errors.Is(err, ErrPasswordMismatch):
		return "รหัสผ่านไม่ตรงกัน"
	default:
		return security.AuthErrorMessage(op, err)
	}
}
