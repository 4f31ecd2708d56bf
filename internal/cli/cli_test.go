// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/tidedesk/internal/reports"
	"github.com/jeranaias/tidedesk/internal/security/auth"
)

const seed = `{
  "products": [
    {"name": "กุ้งขาว", "category": "กุ้ง", "stock": 4},
    {"name": "ปูม้า", "stock": 0},
    {"name": "ปลากะพง", "stock": 40}
  ],
  "transactions": [
    {"type": "sell", "productName": "กุ้งขาว", "quantity": 3, "total": 900, "date": "2024-01-15T08:00:00Z"},
    {"type": "buy", "productName": "ปูม้า", "quantity": 5, "total": 400, "date": "2024-01-20T07:00:00Z"},
    {"type": "sell", "productName": "ปลากะพง", "quantity": 1, "total": 250, "date": "2024-02-02"},
    {"type": "refund", "productName": "ปลากะพง", "total": 10}
  ]
}`

type response[T any] struct {
	Success bool    `json:"success"`
	Data    T       `json:"data"`
	Error   *string `json:"error"`
	Command string  `json:"command"`
}

type result struct {
	out, err string
}

// run executes the command line against a private TIDEDESK_HOME.
func run(t *testing.T, home, stdin string, args ...string) (result, error) {
	t.Helper()
	t.Setenv("TIDEDESK_HOME", home)
	t.Setenv("NO_COLOR", "1")

	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return result{out: out.String(), err: errOut.String()}, err
}

func mustRun(t *testing.T, home, stdin string, args ...string) string {
	t.Helper()
	res, err := run(t, home, stdin, args...)
	require.NoError(t, err, "tidedesk %s\nstderr: %s", strings.Join(args, " "), res.err)
	return res.out
}

func seeded(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	out := mustRun(t, home, seed, "import", "-")
	require.Contains(t, out, "Imported 6 records")
	require.Contains(t, out, "transactions[3]")
	return home
}

// =============================================================================
// ROOT
// =============================================================================

func TestRoot_RequiresTerminal(t *testing.T) {
	if IsTTY() && IsStdoutTTY() {
		t.Skip("running in a terminal")
	}
	_, err := run(t, t.TempDir(), "")
	assert.ErrorIs(t, err, ErrNoTerminal)
}

func TestRoot_Version(t *testing.T) {
	out := mustRun(t, t.TempDir(), "", "--version")
	assert.Contains(t, out, "tidedesk "+Version)
}

func TestRoot_WritesLogFile(t *testing.T) {
	home := seeded(t)
	assert.FileExists(t, filepath.Join(home, LogFileName))
}

// =============================================================================
// REPORTS
// =============================================================================

func TestReport_MonthlyJSON(t *testing.T) {
	home := seeded(t)
	out := mustRun(t, home, "", "report", "monthly", "--json")

	var resp response[reports.Series]
	require.NoError(t, sonic.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "tidedesk report", resp.Command)
	assert.Equal(t, []string{"2024-01", "2024-02"}, resp.Data.Labels)
	assert.Equal(t, []float64{900, 250}, resp.Data.Values)
}

func TestReport_ProfitJSON(t *testing.T) {
	home := seeded(t)
	out := mustRun(t, home, "", "report", "profit", "--json")

	var resp response[reports.ProfitLossSeries]
	require.NoError(t, sonic.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []float64{900, 250}, resp.Data.Profit)
	assert.Equal(t, []float64{400, 0}, resp.Data.Loss)
}

func TestReport_HumanOutput(t *testing.T) {
	home := seeded(t)

	out := mustRun(t, home, "", "report", "category")
	assert.Contains(t, out, "Sales by category")
	assert.Contains(t, out, "กุ้ง")
	assert.Contains(t, out, "฿900")
	assert.Contains(t, out, "#")

	out = mustRun(t, home, "", "report", "inventory")
	assert.Contains(t, out, "Out of stock")

	out = mustRun(t, home, "", "report", "alerts")
	assert.Contains(t, out, "ปูม้า หมดสต็อกแล้ว")
	assert.Less(t, strings.Index(out, "ปูม้า"), strings.Index(out, "กุ้งขาว"))

	out = mustRun(t, home, "", "report", "top", "-n", "1")
	assert.Contains(t, out, "กุ้งขาว")
	assert.NotContains(t, out, "ปลากะพง")
}

func TestReport_EmptyCategoryPlaceholder(t *testing.T) {
	out := mustRun(t, t.TempDir(), "", "report", "category")
	assert.Contains(t, out, reports.NoDataLabel)
}

func TestReport_RejectsUnknownKind(t *testing.T) {
	_, err := run(t, t.TempDir(), "", "report", "weekly")
	assert.Error(t, err)
}

// =============================================================================
// USERS
// =============================================================================

func TestUser_AddListDisable(t *testing.T) {
	home := t.TempDir()
	out := mustRun(t, home, "seafood-2024\n", "user", "add", "Owner@Example.com", "--name", "Owner", "--admin", "--password-stdin")
	assert.Contains(t, out, "owner@example.com")
	assert.Contains(t, out, auth.RoleAdmin)

	mustRun(t, home, "", "user", "disable", "owner@example.com")

	out = mustRun(t, home, "", "user", "list", "--json")
	var resp response[[]auth.User]
	require.NoError(t, sonic.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.True(t, resp.Data[0].Disabled)
	assert.Equal(t, "Owner", resp.Data[0].DisplayName)

	mustRun(t, home, "", "user", "enable", "owner@example.com")
	out = mustRun(t, home, "", "user", "list")
	assert.Contains(t, out, "[OK]")
}

func TestUser_AddWithTOTP(t *testing.T) {
	out := mustRun(t, t.TempDir(), "seafood-2024\n", "user", "add", "clerk@example.com", "--totp", "--password-stdin", "--json")

	var resp response[addedUser]
	require.NoError(t, sonic.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.User.TOTPEnabled)
	assert.NotEmpty(t, resp.Data.TOTPSecret)
	assert.True(t, strings.HasPrefix(resp.Data.TOTPURL, "otpauth://totp/"))
}

func TestUser_DisableUnknownJSON(t *testing.T) {
	res, err := run(t, t.TempDir(), "", "user", "disable", "nobody@example.com", "--json")
	require.Error(t, err)

	var resp response[any]
	require.NoError(t, sonic.Unmarshal([]byte(res.out), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, "nobody@example.com")
}

func TestReadPassword(t *testing.T) {
	pw, err := readPassword(strings.NewReader("s3cret\r\nignored\n"), true)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)

	_, err = readPassword(strings.NewReader(""), true)
	assert.Error(t, err)
}

// =============================================================================
// TELEMETRY
// =============================================================================

func TestTelemetry_ReportAndExport(t *testing.T) {
	home := seeded(t)

	out := mustRun(t, home, "", "telemetry")
	assert.Contains(t, out, "# Diagnostics")

	out = mustRun(t, home, "", "telemetry", "export", "--json")
	var resp response[map[string]string]
	require.NoError(t, sonic.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data["id"])

	entries, err := os.ReadDir(resp.Data["dir"])
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTelemetry_ClearNeedsConfirmation(t *testing.T) {
	home := t.TempDir()
	_, err := run(t, home, "", "telemetry", "clear", "--json")
	assert.ErrorIs(t, err, ErrConfirmationRequired)

	out := mustRun(t, home, "", "telemetry", "clear", "--yes")
	assert.Contains(t, out, "diagnostics cleared")
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig_SetGet(t *testing.T) {
	home := t.TempDir()
	mustRun(t, home, "", "config", "set", "session.timeout_minutes", "15")
	assert.FileExists(t, filepath.Join(home, "config.toml"))

	out := mustRun(t, home, "", "config", "get", "session.timeout_minutes")
	assert.Equal(t, "15\n", out)

	out = mustRun(t, home, "", "config", "show")
	assert.Contains(t, out, "timeout_minutes = 15")

	_, err := run(t, home, "", "config", "get", "session.nope")
	assert.Error(t, err)
}

func TestConfig_SetRejectsInvalid(t *testing.T) {
	home := t.TempDir()
	_, err := run(t, home, "", "config", "set", "rate_limit.max_requests", "-1")
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(home, "config.toml"))
}

func TestConfig_Keys(t *testing.T) {
	out := mustRun(t, t.TempDir(), "", "config", "keys")
	assert.Contains(t, out, "session.timeout_minutes")
	assert.Contains(t, out, "rate_limit.max_requests")
}

// =============================================================================
// STYLES
// =============================================================================

func TestRenderStatus(t *testing.T) {
	assert.Contains(t, RenderStatus("ok"), "[OK]")
	assert.Contains(t, RenderStatus("out"), "[X]")
	assert.Contains(t, RenderStatus("low"), "[!]")
	assert.Contains(t, RenderStatus("other"), "[OTHER]")
}
