// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backoffice owns the long-lived objects of a tidedesk process.
//
// New builds each collaborator exactly once from a Config and hands them to
// each other by reference: the document store is wrapped for timing, the
// login service shares the rate limiter, and the session controller
// listens to the auth provider. Screens and commands receive the *App
// rather than reaching for globals.
package backoffice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jeranaias/tidedesk/internal/config"
	"github.com/jeranaias/tidedesk/internal/security"
	"github.com/jeranaias/tidedesk/internal/security/auth"
	"github.com/jeranaias/tidedesk/internal/storage"
	"github.com/jeranaias/tidedesk/internal/telemetry"
	"github.com/jeranaias/tidedesk/internal/util"
)

const (
	auditFile  = "security.log"
	archiveDir = "reports"
)

// App is the application context.
type App struct {
	Config *config.Config
	Clock  util.Clock

	DB   *storage.DB
	KV   storage.KV
	Docs *telemetry.InstrumentedStore

	Audit    *security.AuditLogger
	Limiter  *security.RateLimiter
	Auth     *auth.LocalProvider
	Login    *auth.LoginService
	Session  *security.SessionController
	Activity *security.ActivityTracker

	Errors   *telemetry.ErrorLog
	Perf     *telemetry.PerformanceLog
	Notifier *telemetry.Notifier
	Locator  *telemetry.Locator
	Archive  *telemetry.ReportArchive

	rawDocs   *storage.SQLiteDocumentStore
	startOnce sync.Once
	closeOnce sync.Once
	closeErr  error
}

// Option configures New.
type Option func(*options)

type options struct {
	clock    util.Clock
	version  string
	authOpts []auth.LocalOption
}

// WithClock replaces the wall clock, for tests.
func WithClock(c util.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithVersion sets the version reported in telemetry context.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// WithAuthOptions passes extra options to the local auth provider.
func WithAuthOptions(opts ...auth.LocalOption) Option {
	return func(o *options) { o.authOpts = append(o.authOpts, opts...) }
}

// New opens the data directory and constructs every component. Nothing
// runs until Start.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
		cfg.SetDefaults()
	}
	o := options{clock: util.RealClock{}, version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}

	dataDir := cfg.Storage.DataDir
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := storage.Open(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Clock: o.clock, DB: db}
	a.KV = storage.NewSQLiteKV(db, cfg.Storage.KVQuotaBytes)

	a.Audit, err = security.NewAuditLogger(filepath.Join(dataDir, auditFile))
	if err != nil {
		db.Close()
		return nil, err
	}

	a.Locator = telemetry.NewLocator(o.version)
	a.Notifier = telemetry.NewNotifier(o.clock)
	a.buildTelemetry()

	a.rawDocs = storage.NewSQLiteDocumentStore(db, storage.WithExternalWatch(cfg.Storage.WatchExternal))
	a.Docs = telemetry.Instrument(a.rawDocs, a.Perf, a.Errors)

	a.Limiter = security.NewRateLimiter(
		security.WithMaxRequests(cfg.RateLimit.MaxRequests),
		security.WithWindow(cfg.RateWindow()),
		security.WithRateClock(o.clock),
	)

	authOpts := append([]auth.LocalOption{
		auth.WithMinPasswordLength(cfg.Auth.MinPasswordLength),
		auth.WithRequireTOTP(cfg.Auth.RequireTOTP),
		auth.WithProviderClock(o.clock.Now),
	}, o.authOpts...)
	a.Auth, err = auth.NewLocalProvider(db, authOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Login = auth.NewLoginService(a.Auth, a.Limiter,
		auth.WithLoginRecorder(a.Audit),
		auth.WithRememberStore(a.KV),
		auth.WithSubmitHook(a.Perf.FormSubmitted),
	)

	a.Session = security.NewSessionController(a.Auth,
		security.WithSessionClock(o.clock),
		security.WithTimeouts(cfg.SessionTimeout(), cfg.WarningLead()),
		security.WithLogoutCountdown(time.Duration(cfg.Session.LogoutCountdownSecs)*time.Second),
		security.WithRecorder(a.Audit),
		security.WithToaster(a.Notifier),
	)
	a.Activity = security.NewActivityTracker(o.clock, a.onActivity)

	a.Archive, err = telemetry.NewReportArchive(filepath.Join(dataDir, archiveDir))
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) buildTelemetry() {
	cfg := a.Config.Telemetry
	filter := telemetry.DefaultNoiseFilter()

	errOpts := []telemetry.ErrorLogOption{
		telemetry.WithErrorClock(a.Clock),
		telemetry.WithErrorWindow(time.Duration(cfg.ErrorWindowSecs)*time.Second, cfg.ErrorCeiling),
		telemetry.WithErrorFilter(filter),
		telemetry.WithStormWarner(a.Notifier),
		telemetry.WithErrorLocator(a.Locator),
	}
	perfOpts := []telemetry.PerformanceOption{
		telemetry.WithPerfClock(a.Clock),
		telemetry.WithPerfFilter(filter),
		telemetry.WithPerfLocator(a.Locator),
	}
	// Disabled telemetry still buffers in memory for the diagnostics
	// screen; it just never persists.
	if cfg.Enabled {
		errOpts = append(errOpts, telemetry.WithErrorStore(a.KV, cfg.MaxStoredErrors))
		perfOpts = append(perfOpts, telemetry.WithPerfStore(a.KV, cfg.MaxStoredMetrics))
	}

	a.Errors = telemetry.NewErrorLog(errOpts...)
	a.Perf = telemetry.NewPerformanceLog(perfOpts...)
}

func (a *App) onActivity(at time.Time) {
	err := a.Session.Activity(at)
	if err == nil || errors.Is(err, security.ErrNotInitialized) || errors.Is(err, security.ErrControllerStopped) {
		return
	}
	log.Printf("ACTIVITY_DROPPED | err=%v", err)
}

// Start wires the session controller to the auth stream and begins memory
// sampling. Both stop when ctx is cancelled. Calling Start again is a no-op.
func (a *App) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		a.Session.Initialize(ctx)
		a.Perf.StartMemorySampler(ctx, time.Duration(a.Config.Telemetry.MemorySampleSecs)*time.Second)
		log.Printf("APP_STARTED | data_dir=%s db=%s", a.Config.Storage.DataDir, a.DB.Path())
	})
}

// Navigate records a screen change for telemetry context and timing.
func (a *App) Navigate(to string) {
	from := a.Locator.Route()
	if from == to {
		return
	}
	a.Locator.SetRoute(to)
	a.Perf.Navigated(from, to)
}

// Snapshot archives the current error and performance reports and returns
// the snapshot id.
func (a *App) Snapshot(ctx context.Context) (string, error) {
	return a.Archive.Save(telemetry.TakeSnapshot(ctx, a.Errors, a.Perf))
}

// Close stops the controller and releases storage. Safe to call twice.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		var errs []error
		if a.Session != nil {
			a.Session.Close()
		}
		if a.Auth != nil {
			errs = append(errs, a.Auth.Close())
		}
		if a.rawDocs != nil {
			errs = append(errs, a.rawDocs.Close())
		}
		if a.Audit != nil {
			errs = append(errs, a.Audit.Close())
		}
		errs = append(errs, a.DB.Close())
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}
