// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/jeranaias/tidedesk/internal/util"
)

// DefaultMaxFileSize is the size at which the security log rotates (5MB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

// Security event types.
const (
	EventLoginSuccess    = "login_success"
	EventLoginFailed     = "login_failed"
	EventLoginThrottled  = "login_rate_limited"
	EventRegister        = "register"
	EventSessionStarted  = "session_started"
	EventSessionExtended = "session_extended"
	EventAutoLogout      = "auto_logout"
	EventManualLogout    = "manual_logout"
	EventSessionEnded    = "session_ended"
)

// =============================================================================
// SECURITY EVENT
// =============================================================================

// SecurityEvent is one entry in the security log.
type SecurityEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Type      string            `json:"type"`
	Subject   string            `json:"subject,omitempty"` // masked email or user id
	Success   bool              `json:"success"`
	Details   map[string]string `json:"details,omitempty"`
}

// ToLogLine formats the event as a single pipe-delimited line.
func (e *SecurityEvent) ToLogLine() string {
	status := "SUCCESS"
	if !e.Success {
		status = "FAILURE"
	}

	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+e.Details[k])
	}

	return fmt.Sprintf("%s | %s | %s | %s | %s",
		e.Timestamp.Format("2006-01-02 15:04:05"),
		strings.ToUpper(e.Type),
		e.Subject,
		status,
		strings.Join(pairs, " "),
	)
}

// EventRecorder receives security events. Recording never fails the caller.
type EventRecorder interface {
	Record(event SecurityEvent)
}

// NopRecorder discards events.
type NopRecorder struct{}

// Record implements EventRecorder.
func (NopRecorder) Record(SecurityEvent) {}

// =============================================================================
// REDACTION
// =============================================================================

var secretPatterns = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[=:]\s*\S+`), "[PASSWORD_REDACTED]"},
	{regexp.MustCompile(`(?i)(otp|totp|code)\s*[=:]\s*\d{6,8}`), "[OTP_REDACTED]"},
	{regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-_.]+`), "Bearer [TOKEN_REDACTED]"},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`), "[JWT_REDACTED]"},
	{regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`), ""},
}

// RedactSecrets masks passwords, one-time codes, tokens and email addresses in s.
func RedactSecrets(s string) string {
	for _, sp := range secretPatterns {
		if sp.replace == "" {
			s = sp.pattern.ReplaceAllStringFunc(s, maskEmail)
			continue
		}
		s = sp.pattern.ReplaceAllString(s, sp.replace)
	}
	return s
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

// AuditLogger appends security events as JSON lines to a file and rotates
// it when it grows past maxSize.
type AuditLogger struct {
	path    string
	file    *os.File
	mu      sync.Mutex
	enabled bool
	maxSize int64
	now     func() time.Time
}

// NewAuditLogger opens (or creates) the security log at path.
func NewAuditLogger(path string) (*AuditLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create security log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open security log: %w", err)
	}
	return &AuditLogger{
		path:    path,
		file:    file,
		enabled: true,
		maxSize: DefaultMaxFileSize,
		now:     time.Now,
	}, nil
}

// Record implements EventRecorder. Write failures go to the process log.
func (l *AuditLogger) Record(event SecurityEvent) {
	if err := l.Log(event); err != nil {
		log.Printf("AUDIT_ERROR | type=%s err=%v", event.Type, err)
	}
}

// Log writes event, filling in the id and timestamp and redacting details.
func (l *AuditLogger) Log(event SecurityEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || l.file == nil {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	event.Subject = maskEmail(event.Subject)
	if len(event.Details) > 0 {
		clean := make(map[string]string, len(event.Details))
		for k, v := range event.Details {
			clean[k] = RedactSecrets(v)
		}
		event.Details = clean
	}

	data, err := sonic.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode security event: %w", err)
	}

	if err := l.checkRotationLocked(); err != nil {
		return err
	}
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write security event: %w", err)
	}
	return nil
}

// Rotate renames the current file with a timestamp suffix and starts a new one.
func (l *AuditLogger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rotateLocked()
}

func (l *AuditLogger) rotateLocked() error {
	if l.file == nil {
		return nil
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close security log for rotation: %w", err)
	}

	ext := filepath.Ext(l.path)
	rotated := fmt.Sprintf("%s_%s%s", strings.TrimSuffix(l.path, ext), l.now().Format("20060102_150405"), ext)
	if err := os.Rename(l.path, rotated); err != nil {
		l.file, _ = os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		return fmt.Errorf("failed to rotate security log: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		l.file = nil
		return fmt.Errorf("failed to reopen security log: %w", err)
	}
	l.file = file
	return nil
}

func (l *AuditLogger) checkRotationLocked() error {
	if l.maxSize <= 0 {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return nil
	}
	if info.Size() >= l.maxSize {
		return l.rotateLocked()
	}
	return nil
}

// SetMaxSize sets the rotation threshold; 0 disables rotation.
func (l *AuditLogger) SetMaxSize(size int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxSize = size
}

// SetEnabled turns recording on or off.
func (l *AuditLogger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// Path returns the log file path.
func (l *AuditLogger) Path() string { return l.path }

// Close flushes and closes the log file.
func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	l.file.Sync()
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadEvents returns the most recent limit events from path, oldest first.
// Undecodable lines are skipped.
func ReadEvents(path string, limit int) ([]SecurityEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var events []SecurityEvent
	for _, line := range lines {
		if line == "" {
			continue
		}
		var ev SecurityEvent
		if err := sonic.UnmarshalString(line, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

// maskEmail masks addresses and leaves other identifiers alone.
func maskEmail(s string) string {
	if !strings.Contains(s, "@") {
		return s
	}
	return util.MaskEmail(s)
}
