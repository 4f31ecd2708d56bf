// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogger_WritesMaskedEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "security.log")
	logger, err := NewAuditLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	logger.Record(SecurityEvent{
		Type:    EventLoginFailed,
		Subject: "somchai@example.com",
		Details: map[string]string{"note": "password=hunter2 from somchai@example.com"},
	})
	logger.Record(SecurityEvent{Type: EventAutoLogout, Success: true, Details: map[string]string{"reason": ReasonNoActivity}})
	require.NoError(t, logger.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")
	assert.NotContains(t, string(raw), "somchai@example.com")

	events, err := ReadEvents(path, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "s***@example.com", events[0].Subject)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, ReasonNoActivity, events[1].Details["reason"])

	last, err := ReadEvents(path, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, EventAutoLogout, last[0].Type)
}

func TestAuditLogger_Disabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "security.log")
	logger, err := NewAuditLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	logger.SetEnabled(false)
	require.NoError(t, logger.Log(SecurityEvent{Type: EventRegister}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestAuditLogger_Rotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "security.log")
	logger, err := NewAuditLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	logger.SetMaxSize(64)
	for i := 0; i < 3; i++ {
		require.NoError(t, logger.Log(SecurityEvent{Type: EventSessionStarted, Success: true}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Greater(t, len(entries), 1)
}

func TestRedactSecrets(t *testing.T) {
	tests := []struct {
		in      string
		absent  string
		present string
	}{
		{"password=hunter2", "hunter2", "[PASSWORD_REDACTED]"},
		{"otp: 123456", "123456", "[OTP_REDACTED]"},
		{"Authorization: Bearer abc.def-123", "abc.def-123", "[TOKEN_REDACTED]"},
		{"user somchai@example.com failed", "somchai@", "s***@example.com"},
	}
	for _, tt := range tests {
		got := RedactSecrets(tt.in)
		assert.NotContains(t, got, tt.absent, tt.in)
		assert.Contains(t, got, tt.present, tt.in)
	}
}

func TestSecurityEvent_ToLogLine(t *testing.T) {
	ev := SecurityEvent{
		Timestamp: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		Type:      EventLoginFailed,
		Subject:   "s***@example.com",
		Details:   map[string]string{"code": CodeWrongPassword, "attempt": "2"},
	}
	line := ev.ToLogLine()
	assert.True(t, strings.HasPrefix(line, "2024-03-01 08:00:00 | LOGIN_FAILED | s***@example.com | FAILURE"))
	assert.True(t, strings.HasSuffix(line, "attempt=2 code=wrong-password"))
}
