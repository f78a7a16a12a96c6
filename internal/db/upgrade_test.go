package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMigrate_UpgradePath_LegacyActivities simulates opening a database created
// before risk holds existed. Verifies that:
// 1. Activities inserted under the old schema survive migration
// 2. hold_reason is added as a nullable column
// 3. The version row keeps its committed value
// 4. Indexes are created
func TestMigrate_UpgradePath_LegacyActivities(t *testing.T) {
	// Create a raw DB without using OpenDB (to manually control schema).
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`PRAGMA foreign_keys = ON`)
	require.NoError(t, err)

	legacyStatements := []string{
		`CREATE TABLE schedule_state (
			id         INTEGER PRIMARY KEY CHECK(id = 1),
			version    INTEGER NOT NULL DEFAULT 0,
			epoch      TEXT,
			updated_at TEXT NOT NULL DEFAULT ''
		)`,
		`INSERT INTO schedule_state (id, version, updated_at) VALUES (1, 7, '2026-03-01T00:00:00Z')`,
		`CREATE TABLE activities (
			id                TEXT PRIMARY KEY,
			name              TEXT NOT NULL DEFAULT '',
			type              TEXT NOT NULL DEFAULT '',
			trip_id           TEXT NOT NULL DEFAULT '',
			transport_unit_id TEXT NOT NULL DEFAULT '',
			location_id       TEXT NOT NULL DEFAULT '',
			state             TEXT NOT NULL DEFAULT 'planned',
			lock_level        TEXT NOT NULL DEFAULT 'none',
			priority          INTEGER NOT NULL DEFAULT 0,
			plan_start        TEXT,
			plan_end          TEXT,
			duration_min      INTEGER NOT NULL DEFAULT 0,
			duration_mode     TEXT NOT NULL DEFAULT 'fixed',
			actual_start      TEXT,
			actual_end        TEXT,
			progress_pct      INTEGER,
			calc_es           TEXT,
			calc_ef           TEXT,
			calc_ls           TEXT,
			calc_lf           TEXT,
			total_float_min   INTEGER NOT NULL DEFAULT 0,
			free_float_min    INTEGER NOT NULL DEFAULT 0,
			pin_start         TEXT,
			pin_reason        TEXT NOT NULL DEFAULT '',
			constraints_json  TEXT NOT NULL DEFAULT '[]',
			resources_json    TEXT NOT NULL DEFAULT '[]'
		)`,
		`INSERT INTO activities (id, name, plan_start, plan_end, duration_min)
		 VALUES ('LOAD-1', 'Load SPMT', '2026-03-01T06:00:00Z', '2026-03-01T08:00:00Z', 120)`,
	}
	for _, stmt := range legacyStatements {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	require.NoError(t, Migrate(db))
	// Second run exercises the duplicate column tolerance.
	require.NoError(t, Migrate(db))

	var name string
	var hold sql.NullString
	err = db.QueryRow(`SELECT name, hold_reason FROM activities WHERE id = 'LOAD-1'`).Scan(&name, &hold)
	require.NoError(t, err)
	assert.Equal(t, "Load SPMT", name)
	assert.False(t, hold.Valid, "hold_reason defaults to NULL for existing rows")

	var version int
	require.NoError(t, db.QueryRow(`SELECT version FROM schedule_state WHERE id = 1`).Scan(&version))
	assert.Equal(t, 7, version)

	var idx string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name='idx_activities_trip'`).Scan(&idx)
	require.NoError(t, err)
}
