// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backoffice

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/tidedesk/internal/config"
	"github.com/jeranaias/tidedesk/internal/reports"
	"github.com/jeranaias/tidedesk/internal/security"
	"github.com/jeranaias/tidedesk/internal/security/auth"
	"github.com/jeranaias/tidedesk/internal/storage"
	"github.com/jeranaias/tidedesk/internal/telemetry"
	"github.com/jeranaias/tidedesk/internal/util"
)

var epoch = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func newApp(t *testing.T) (*App, *util.FakeClock) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.WatchExternal = false

	clock := util.NewFakeClock(epoch)
	app, err := New(cfg,
		WithClock(clock),
		WithVersion("test"),
		WithAuthOptions(auth.WithIterations(1000)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app, clock
}

const seed = `{
  "products": [
    {"name": "กุ้งขาว", "category": "กุ้ง", "stock": 4, "unit": "กก."},
    {"name": "ปูม้า", "stock": 0},
    {"name": "ปลากะพง", "stock": 40},
    {"name": ""}
  ],
  "suppliers": [
    {"name": "Andaman Catch", "phone": "0812345678"}
  ],
  "transactions": [
    {"type": "sell", "productName": "กุ้งขาว", "quantity": 3, "total": 900, "date": "2024-06-15T08:00:00Z"},
    {"type": "BUY", "productName": "ปูม้า", "quantity": 5, "total": 400, "date": "2024-06-15T07:00:00Z"},
    {"type": "sell", "productName": "ปลากะพง", "quantity": 1, "total": 250, "date": "2024-05-02"},
    {"type": "refund", "productName": "ปลากะพง", "total": 10}
  ]
}`

func TestApp_NewAndClose(t *testing.T) {
	app, _ := newApp(t)

	assert.NotNil(t, app.Docs)
	assert.NotNil(t, app.Session)
	assert.FileExists(t, app.Config.DatabasePath())
	assert.Equal(t, "tidedesk://login", app.Locator.Current().URL)

	require.NoError(t, app.Close())
	require.NoError(t, app.Close())
}

func TestApp_ImportAndViews(t *testing.T) {
	app, _ := newApp(t)
	ctx := context.Background()

	res, err := app.Import(ctx, strings.NewReader(seed))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created[storage.CollectionProducts])
	assert.Equal(t, 1, res.Created[storage.CollectionSuppliers])
	assert.Equal(t, 3, res.Created[storage.CollectionTransactions])
	assert.Equal(t, 7, res.Total())
	assert.Len(t, res.Rejected, 2)

	dash, err := app.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, reports.Dashboard{Revenue: 900, Expense: 400, Profit: 500, Products: 3}, dash.Stats)
	assert.Equal(t, 7, dash.Daily.Len())
	assert.Equal(t, 900.0, dash.Daily.Values[6])
	require.Len(t, dash.Alerts, 2)
	assert.Equal(t, "ปูม้า หมดสต็อกแล้ว", dash.Alerts[0].Message)
	assert.Equal(t, "กุ้งขาว", dash.Recent[0].ProductName)

	rep, err := app.Reports(ctx)
	require.NoError(t, err)
	assert.Equal(t, reports.Inventory{Total: 3, InStock: 1, LowStock: 1, OutOfStock: 1}, rep.Inventory)
	assert.Equal(t, []string{"2024-05", "2024-06"}, rep.Monthly.Labels)
	assert.Equal(t, []string{"กุ้ง", "ปลา"}, rep.Categories.Labels)
	assert.Equal(t, []float64{0, 400}, rep.ProfitLoss.Loss)

	// Every store call was timed.
	assert.Positive(t, app.Perf.Report(ctx).APICalls)
}

func TestApp_ImportRejectsBadJSON(t *testing.T) {
	app, _ := newApp(t)
	_, err := app.Import(context.Background(), strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestApp_LoginDrivesSession(t *testing.T) {
	app, clock := newApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.Start(ctx)
	app.Start(ctx)

	_, _, err := app.Auth.AddUser(ctx, auth.NewUser{Email: "malee@example.com", Password: "secret1"})
	require.NoError(t, err)

	// Activity before sign-in is harmless.
	app.Activity.Record(security.SignalKeyPress)

	_, err = app.Login.Login(ctx, auth.LoginRequest{Email: "malee@example.com", Password: "secret1", Remember: true})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return app.Session.Status().IsActive }, 2*time.Second, 10*time.Millisecond)

	clock.Advance(2 * time.Minute)
	app.Activity.Record(security.SignalPointerDown)
	assert.Equal(t, clock.Now(), app.Session.Status().LastActivityAt)

	email, ok := app.Login.RememberedEmail(ctx)
	assert.True(t, ok)
	assert.Equal(t, "malee@example.com", email)

	perf := app.Perf.Report(ctx)
	assert.Equal(t, 1, perf.MetricTypes[telemetry.TypeFormSubmission])

	events, err := security.ReadEvents(app.Audit.Path(), 0)
	require.NoError(t, err)
	assert.NotEmpty(t, events)
}

func TestApp_NavigateAndSnapshot(t *testing.T) {
	app, _ := newApp(t)
	ctx := context.Background()

	app.Navigate("dashboard")
	app.Navigate("dashboard")
	app.Navigate("reports")
	assert.Equal(t, "reports", app.Locator.Route())

	rep := app.Perf.Report(ctx)
	assert.Equal(t, 2, rep.MetricTypes[telemetry.TypePageNavigation])

	app.Errors.Capture(telemetry.TypeAppError, map[string]any{"message": "boom"})
	id, err := app.Snapshot(ctx)
	require.NoError(t, err)

	snap, err := app.Archive.Load(id)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Errors.CurrentErrors)
	assert.Equal(t, "tidedesk://reports", snap.Errors.RecentErrors[0].Context.URL)
}
