// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates tidedesk settings.
//
// Configuration file locations (in order of precedence):
//   - $TIDEDESK_HOME/config.toml (default ~/.tidedesk/config.toml)
//   - $TIDEDESK_HOME/config.json
//   - Built-in defaults
//
// Environment overrides are applied after the file is read.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bytedance/sonic"

	"github.com/jeranaias/tidedesk/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete tidedesk configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Session   SessionConfig   `toml:"session" json:"session"`
	RateLimit RateLimitConfig `toml:"rate_limit" json:"rate_limit"`
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry"`
	Storage   StorageConfig   `toml:"storage" json:"storage"`
	Auth      AuthConfig      `toml:"auth" json:"auth"`
	UI        UIConfig        `toml:"ui" json:"ui"`
}

// SessionConfig controls the inactivity timeout.
type SessionConfig struct {
	TimeoutMinutes      int `toml:"timeout_minutes" json:"timeout_minutes"`
	WarningLeadMinutes  int `toml:"warning_lead_minutes" json:"warning_lead_minutes"`
	LogoutCountdownSecs int `toml:"logout_countdown_secs" json:"logout_countdown_secs"`
}

// RateLimitConfig controls the login attempt limiter.
type RateLimitConfig struct {
	MaxRequests int `toml:"max_requests" json:"max_requests"`
	WindowSecs  int `toml:"window_secs" json:"window_secs"`
}

// TelemetryConfig controls the error and performance buffers.
type TelemetryConfig struct {
	ErrorWindowSecs  int  `toml:"error_window_secs" json:"error_window_secs"`
	ErrorCeiling     int  `toml:"error_ceiling" json:"error_ceiling"`
	MaxStoredErrors  int  `toml:"max_stored_errors" json:"max_stored_errors"`
	MaxStoredMetrics int  `toml:"max_stored_metrics" json:"max_stored_metrics"`
	MemorySampleSecs int  `toml:"memory_sample_secs" json:"memory_sample_secs"`
	Enabled          bool `toml:"enabled" json:"enabled"`
}

// StorageConfig locates the local database.
type StorageConfig struct {
	DataDir       string `toml:"data_dir" json:"data_dir"`
	DatabaseFile  string `toml:"database_file" json:"database_file"`
	KVQuotaBytes  int    `toml:"kv_quota_bytes" json:"kv_quota_bytes"`
	WatchExternal bool   `toml:"watch_external" json:"watch_external"`
}

// AuthConfig controls local sign-in.
type AuthConfig struct {
	RequireTOTP       bool `toml:"require_totp" json:"require_totp"`
	MinPasswordLength int  `toml:"min_password_length" json:"min_password_length"`
}

// UIConfig controls presentation.
type UIConfig struct {
	Theme             string `toml:"theme" json:"theme"`
	LowStockThreshold int    `toml:"low_stock_threshold" json:"low_stock_threshold"`
	DashboardDays     int    `toml:"dashboard_days" json:"dashboard_days"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Session: SessionConfig{
			TimeoutMinutes:      30,
			WarningLeadMinutes:  5,
			LogoutCountdownSecs: 3,
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 10,
			WindowSecs:  60,
		},
		Telemetry: TelemetryConfig{
			ErrorWindowSecs:  60,
			ErrorCeiling:     10,
			MaxStoredErrors:  100,
			MaxStoredMetrics: 1000,
			MemorySampleSecs: 5,
			Enabled:          true,
		},
		Storage: StorageConfig{
			DatabaseFile:  "tidedesk.db",
			KVQuotaBytes:  5 * 1024 * 1024,
			WatchExternal: true,
		},
		Auth: AuthConfig{
			MinPasswordLength: 6,
		},
		UI: UIConfig{
			Theme:             "auto",
			LowStockThreshold: 10,
			DashboardDays:     7,
		},
	}
}

// SessionTimeout returns the total inactivity timeout.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Session.TimeoutMinutes) * time.Minute
}

// WarningLead returns how long before expiry the warning appears.
func (c *Config) WarningLead() time.Duration {
	return time.Duration(c.Session.WarningLeadMinutes) * time.Minute
}

// RateWindow returns the limiter's trailing window.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSecs) * time.Second
}

// DatabasePath returns the absolute path of the SQLite database.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Storage.DatabaseFile) {
		return c.Storage.DatabaseFile
	}
	return filepath.Join(c.Storage.DataDir, c.Storage.DatabaseFile)
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// ConfigDir returns the tidedesk home directory. TIDEDESK_HOME wins over
// ~/.tidedesk.
func ConfigDir() (string, error) {
	if dir := os.Getenv("TIDEDESK_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".tidedesk"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads config.toml, then config.json, then falls back to defaults.
// A file that exists but cannot be decoded is an error.
func Load() (*Config, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(tomlPath); statErr == nil {
		return LoadFromPath(tomlPath)
	}

	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(jsonPath); statErr == nil {
		return LoadFromPath(jsonPath)
	}

	cfg := Default()
	return finish(cfg)
}

// LoadFromPath loads one file; the extension selects JSON, anything else is TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := sonic.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config %s: %w", path, err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config %s: %w", path, err)
		}
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the configuration to config.toml.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# tidedesk configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid field.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate reports every out-of-range setting at once.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Session.TimeoutMinutes <= 0 {
		add("session.timeout_minutes", "must be positive, got %d", c.Session.TimeoutMinutes)
	}
	if c.Session.WarningLeadMinutes <= 0 || c.Session.WarningLeadMinutes >= c.Session.TimeoutMinutes {
		add("session.warning_lead_minutes", "must be between 1 and timeout_minutes-1, got %d", c.Session.WarningLeadMinutes)
	}
	if c.Session.LogoutCountdownSecs < 0 {
		add("session.logout_countdown_secs", "cannot be negative")
	}

	if c.RateLimit.MaxRequests <= 0 {
		add("rate_limit.max_requests", "must be positive, got %d", c.RateLimit.MaxRequests)
	}
	if c.RateLimit.WindowSecs <= 0 {
		add("rate_limit.window_secs", "must be positive, got %d", c.RateLimit.WindowSecs)
	}

	if c.Telemetry.ErrorWindowSecs <= 0 {
		add("telemetry.error_window_secs", "must be positive")
	}
	if c.Telemetry.ErrorCeiling <= 0 {
		add("telemetry.error_ceiling", "must be positive")
	}
	if c.Telemetry.MaxStoredErrors <= 0 {
		add("telemetry.max_stored_errors", "must be positive")
	}
	if c.Telemetry.MaxStoredMetrics <= 0 {
		add("telemetry.max_stored_metrics", "must be positive")
	}
	if c.Telemetry.MemorySampleSecs < 0 {
		add("telemetry.memory_sample_secs", "cannot be negative")
	}

	if c.Storage.DatabaseFile == "" {
		add("storage.database_file", "cannot be empty")
	}
	if c.Storage.KVQuotaBytes < 0 {
		add("storage.kv_quota_bytes", "cannot be negative")
	}

	if c.Auth.MinPasswordLength < 6 || c.Auth.MinPasswordLength > 50 {
		add("auth.min_password_length", "must be between 6 and 50, got %d", c.Auth.MinPasswordLength)
	}

	validThemes := map[string]bool{"auto": true, "dark": true, "light": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		add("ui.theme", "invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme)
	}
	if c.UI.LowStockThreshold < 0 {
		add("ui.low_stock_threshold", "cannot be negative")
	}
	if c.UI.DashboardDays <= 0 || c.UI.DashboardDays > 31 {
		add("ui.dashboard_days", "must be between 1 and 31, got %d", c.UI.DashboardDays)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values left by a partial file.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Session.TimeoutMinutes == 0 {
		c.Session.TimeoutMinutes = d.Session.TimeoutMinutes
	}
	if c.Session.WarningLeadMinutes == 0 {
		c.Session.WarningLeadMinutes = d.Session.WarningLeadMinutes
	}
	if c.RateLimit.MaxRequests == 0 {
		c.RateLimit.MaxRequests = d.RateLimit.MaxRequests
	}
	if c.RateLimit.WindowSecs == 0 {
		c.RateLimit.WindowSecs = d.RateLimit.WindowSecs
	}
	if c.Telemetry.ErrorWindowSecs == 0 {
		c.Telemetry.ErrorWindowSecs = d.Telemetry.ErrorWindowSecs
	}
	if c.Telemetry.ErrorCeiling == 0 {
		c.Telemetry.ErrorCeiling = d.Telemetry.ErrorCeiling
	}
	if c.Telemetry.MaxStoredErrors == 0 {
		c.Telemetry.MaxStoredErrors = d.Telemetry.MaxStoredErrors
	}
	if c.Telemetry.MaxStoredMetrics == 0 {
		c.Telemetry.MaxStoredMetrics = d.Telemetry.MaxStoredMetrics
	}
	if c.Storage.DataDir == "" {
		if dir, err := ConfigDir(); err == nil {
			c.Storage.DataDir = dir
		}
	}
	if c.Storage.DatabaseFile == "" {
		c.Storage.DatabaseFile = d.Storage.DatabaseFile
	}
	if c.Auth.MinPasswordLength == 0 {
		c.Auth.MinPasswordLength = d.Auth.MinPasswordLength
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.DashboardDays == 0 {
		c.UI.DashboardDays = d.UI.DashboardDays
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variables:
//   - TIDEDESK_DATA_DIR: storage.data_dir
//   - TIDEDESK_SESSION_TIMEOUT_MINUTES: session.timeout_minutes
//   - TIDEDESK_RATE_LIMIT_MAX: rate_limit.max_requests
//   - TIDEDESK_THEME: ui.theme
//   - TIDEDESK_TELEMETRY: telemetry.enabled
func (c *Config) ApplyEnvOverrides() {
	if dir := os.Getenv("TIDEDESK_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
	if v := os.Getenv("TIDEDESK_SESSION_TIMEOUT_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.TimeoutMinutes = n
		}
	}
	if v := os.Getenv("TIDEDESK_RATE_LIMIT_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.MaxRequests = n
		}
	}
	if theme := os.Getenv("TIDEDESK_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if v := os.Getenv("TIDEDESK_TELEMETRY"); v != "" {
		c.Telemetry.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
}

// =============================================================================
// GET/SET (DOT NOTATION)
// =============================================================================

// Get reads a value by dotted key, e.g. "session.timeout_minutes".
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set writes a value by dotted key. String values are converted to the
// field's type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		name := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(n string) bool {
			return strings.EqualFold(n, name)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName turns snake_case or kebab-case into a Go field name.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(strings.ToLower(p[1:]))
	}
	return b.String()
}

func setFieldValue(field reflect.Value, value any) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %w", err)
			}
			field.SetInt(n)
			return nil
		case reflect.Bool:
			field.SetBool(s == "1" || strings.EqualFold(s, "true") || strings.EqualFold(s, "yes"))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys lists every dotted key accepted by Get and Set.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := strings.Split(f.Tag.Get("toml"), ",")[0]
		if f.Type.Kind() != reflect.Struct {
			keys = append(keys, tag)
			continue
		}
		for j := 0; j < f.Type.NumField(); j++ {
			sub := strings.Split(f.Type.Field(j).Tag.Get("toml"), ",")[0]
			keys = append(keys, tag+"."+sub)
		}
	}
	return keys
}
