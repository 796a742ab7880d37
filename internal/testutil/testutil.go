// Package testutil sets up the shared dependencies of package tests.
package testutil

import (
	"database/sql"
	"isugrades-backend/internal/components/chrono"
	"isugrades-backend/internal/components/telemetry"
	"isugrades-backend/internal/db"
	"isugrades-backend/internal/gradestore"
	"isugrades-backend/pkg/sqliteutil"
	"testing"
	"time"
)

// Instant is the time every test clock is fixed at.
var Instant = time.Date(2024, time.September, 2, 9, 0, 0, 0, time.UTC)

type StoreResult struct {
	DB        *sql.DB
	Store     gradestore.Store
	Time      chrono.FixedImpl
	Telemetry *telemetry.Recorder
}

// SetupStore opens an in-memory gradebook store that is closed with the test.
func SetupStore(t testing.TB) StoreResult {
	t.Helper()

	sqlite, err := sqliteutil.Config{File: ":memory:"}.OpenDB(db.Schema)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlite.Close() })

	clock := chrono.FixedImpl{Instant: Instant}
	recorder := telemetry.NewRecorder()
	return StoreResult{
		DB:        sqlite,
		Store:     gradestore.NewStore(sqlite, clock, recorder),
		Time:      clock,
		Telemetry: recorder,
	}
}
