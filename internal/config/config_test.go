// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TIDEDESK_HOME", dir)
	t.Setenv("TIDEDESK_DATA_DIR", "")
	t.Setenv("TIDEDESK_SESSION_TIMEOUT_MINUTES", "")
	t.Setenv("TIDEDESK_RATE_LIMIT_MAX", "")
	t.Setenv("TIDEDESK_THEME", "")
	t.Setenv("TIDEDESK_TELEMETRY", "")
	return dir
}

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if cfg.SessionTimeout() != 30*time.Minute {
		t.Errorf("SessionTimeout = %v, want 30m", cfg.SessionTimeout())
	}
	if cfg.WarningLead() != 5*time.Minute {
		t.Errorf("WarningLead = %v, want 5m", cfg.WarningLead())
	}
	if cfg.RateLimit.MaxRequests != 10 || cfg.RateWindow() != time.Minute {
		t.Errorf("rate limit = %d per %v, want 10 per 1m", cfg.RateLimit.MaxRequests, cfg.RateWindow())
	}
	if cfg.Telemetry.MaxStoredErrors != 100 || cfg.Telemetry.MaxStoredMetrics != 1000 {
		t.Errorf("telemetry caps = %d/%d", cfg.Telemetry.MaxStoredErrors, cfg.Telemetry.MaxStoredMetrics)
	}
	if cfg.Telemetry.ErrorCeiling != 10 {
		t.Errorf("ErrorCeiling = %d, want 10", cfg.Telemetry.ErrorCeiling)
	}
}

func TestConfig_LoadDefaultsWhenNoFile(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.DataDir != dir {
		t.Errorf("DataDir = %q, want %q", cfg.Storage.DataDir, dir)
	}
	if cfg.DatabasePath() != filepath.Join(dir, "tidedesk.db") {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath())
	}
}

func TestConfig_LoadTOMLPartial(t *testing.T) {
	dir := isolate(t)
	content := "[session]\ntimeout_minutes = 15\n\n[ui]\ntheme = \"dark\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.TimeoutMinutes != 15 {
		t.Errorf("TimeoutMinutes = %d, want 15", cfg.Session.TimeoutMinutes)
	}
	if cfg.Session.WarningLeadMinutes != 5 {
		t.Errorf("WarningLeadMinutes = %d, want default 5", cfg.Session.WarningLeadMinutes)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("Theme = %q, want dark", cfg.UI.Theme)
	}
}

func TestConfig_LoadJSONFallback(t *testing.T) {
	dir := isolate(t)
	content := `{"rate_limit": {"max_requests": 3, "window_secs": 30}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RateLimit.MaxRequests != 3 || cfg.RateLimit.WindowSecs != 30 {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
}

func TestConfig_LoadMalformedFileFails(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[session\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("TIDEDESK_SESSION_TIMEOUT_MINUTES", "20")
	t.Setenv("TIDEDESK_RATE_LIMIT_MAX", "4")
	t.Setenv("TIDEDESK_THEME", "light")
	t.Setenv("TIDEDESK_TELEMETRY", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.TimeoutMinutes != 20 {
		t.Errorf("TimeoutMinutes = %d, want 20", cfg.Session.TimeoutMinutes)
	}
	if cfg.RateLimit.MaxRequests != 4 {
		t.Errorf("MaxRequests = %d, want 4", cfg.RateLimit.MaxRequests)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
	if cfg.Telemetry.Enabled {
		t.Error("telemetry should be disabled")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero timeout", func(c *Config) { c.Session.TimeoutMinutes = 0 }, "session.timeout_minutes"},
		{"lead >= timeout", func(c *Config) { c.Session.WarningLeadMinutes = 30 }, "session.warning_lead_minutes"},
		{"zero max requests", func(c *Config) { c.RateLimit.MaxRequests = 0 }, "rate_limit.max_requests"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"short password", func(c *Config) { c.Auth.MinPasswordLength = 2 }, "auth.min_password_length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verrs ValidateErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidateErrors, got %v", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.field, err)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("session.timeout_minutes", "45"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := cfg.Get("session.timeout_minutes")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.(int) != 45 {
		t.Errorf("timeout = %v, want 45", v)
	}

	if err := cfg.Set("storage.kv_quota_bytes", "1024"); err != nil {
		t.Fatalf("Set kv quota: %v", err)
	}
	if cfg.Storage.KVQuotaBytes != 1024 {
		t.Errorf("KVQuotaBytes = %d", cfg.Storage.KVQuotaBytes)
	}

	if err := cfg.Set("auth.require_totp", "yes"); err != nil || !cfg.Auth.RequireTOTP {
		t.Errorf("bool set failed: %v", err)
	}

	if _, err := cfg.Get("session.nope"); err == nil {
		t.Error("expected unknown field error")
	}
	if _, err := cfg.Get("session.timeout_minutes.deeper"); err == nil {
		t.Error("expected not-a-struct error")
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	cfg.Session.TimeoutMinutes = 25
	cfg.Storage.DataDir = dir

	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("perm = %o, want 600", info.Mode().Perm())
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Session.TimeoutMinutes != 25 {
		t.Errorf("TimeoutMinutes = %d, want 25", loaded.Session.TimeoutMinutes)
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	want := map[string]bool{"session.timeout_minutes": false, "rate_limit.window_secs": false, "version": false}
	for _, k := range keys {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("Keys() missing %s", k)
		}
	}
}
