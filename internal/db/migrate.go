package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Every statement is idempotent, so the
// full list is replayed on each open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	// Single-row version counter guarding snapshot commits.
	`CREATE TABLE IF NOT EXISTS schedule_state (
		id         INTEGER PRIMARY KEY CHECK(id = 1),
		version    INTEGER NOT NULL DEFAULT 0,
		epoch      TEXT,
		updated_at TEXT NOT NULL DEFAULT ''
	)`,

	`INSERT OR IGNORE INTO schedule_state (id, version) VALUES (1, 0)`,

	`CREATE TABLE IF NOT EXISTS activities (
		id                TEXT PRIMARY KEY,
		name              TEXT NOT NULL DEFAULT '',
		type              TEXT NOT NULL DEFAULT '',
		trip_id           TEXT NOT NULL DEFAULT '',
		transport_unit_id TEXT NOT NULL DEFAULT '',
		location_id       TEXT NOT NULL DEFAULT '',
		state             TEXT NOT NULL DEFAULT 'planned'
		                  CHECK(state IN ('draft','planned','ready','in_progress','paused','blocked','completed','canceled','aborted')),
		lock_level        TEXT NOT NULL DEFAULT 'none'
		                  CHECK(lock_level IN ('none','soft','hard','baseline')),
		priority          INTEGER NOT NULL DEFAULT 0,
		plan_start        TEXT,
		plan_end          TEXT,
		duration_min      INTEGER NOT NULL DEFAULT 0,
		duration_mode     TEXT NOT NULL DEFAULT 'fixed'
		                  CHECK(duration_mode IN ('fixed','work_driven')),
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

	// Risk holds were added after the first release.
	`ALTER TABLE activities ADD COLUMN hold_reason TEXT`,

	`CREATE INDEX IF NOT EXISTS idx_activities_trip ON activities(trip_id)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_location ON activities(location_id)`,

	// Predecessors are not foreign keys: a snapshot may reference an unknown
	// activity, which the graph builder reports.
	`CREATE TABLE IF NOT EXISTS activity_dependencies (
		successor_id   TEXT NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		ord            INTEGER NOT NULL,
		predecessor_id TEXT NOT NULL,
		relation       TEXT NOT NULL CHECK(relation IN ('FS','SS','FF','SF')),
		lag_min        INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (successor_id, ord)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_dependencies_predecessor ON activity_dependencies(predecessor_id)`,

	`CREATE TABLE IF NOT EXISTS resources (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL DEFAULT '',
		capacity        INTEGER NOT NULL DEFAULT 1,
		available_start TEXT,
		available_end   TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS groups (
		kind      TEXT NOT NULL CHECK(kind IN ('trip','transport_unit','location')),
		id        TEXT NOT NULL,
		name      TEXT NOT NULL DEFAULT '',
		exclusive INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (kind, id)
	)`,

	`CREATE TABLE IF NOT EXISTS baselines (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		captured_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS baseline_entries (
		baseline_id TEXT NOT NULL REFERENCES baselines(id) ON DELETE CASCADE,
		activity_id TEXT NOT NULL,
		plan_start  TEXT NOT NULL,
		plan_end    TEXT NOT NULL,
		PRIMARY KEY (baseline_id, activity_id)
	)`,

	`CREATE TABLE IF NOT EXISTS reflow_runs (
		id                 TEXT PRIMARY KEY,
		trigger_kind       TEXT NOT NULL
		                   CHECK(trigger_kind IN ('actuals','locks','pins','recompute')),
		actor              TEXT NOT NULL DEFAULT '',
		requested_at       TEXT NOT NULL,
		state              TEXT NOT NULL
		                   CHECK(state IN ('pending','computing','committed','aborted')),
		base_version       INTEGER NOT NULL,
		committed_version  INTEGER NOT NULL DEFAULT 0,
		full_recompute     INTEGER NOT NULL DEFAULT 0,
		perturbations_json TEXT NOT NULL DEFAULT '[]',
		collisions_json    TEXT NOT NULL DEFAULT '[]',
		warnings_json      TEXT NOT NULL DEFAULT '[]',
		error              TEXT NOT NULL DEFAULT '',
		created_at         TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_created ON reflow_runs(created_at)`,

	`CREATE TABLE IF NOT EXISTS reflow_changes (
		run_id      TEXT NOT NULL REFERENCES reflow_runs(id) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		activity_id TEXT NOT NULL,
		old_start   TEXT,
		old_end     TEXT,
		new_start   TEXT NOT NULL,
		new_end     TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`,

	// Append-only field history for the external store.
	`CREATE TABLE IF NOT EXISTS history_events (
		id          TEXT PRIMARY KEY,
		run_id      TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		at          TEXT NOT NULL,
		actor       TEXT NOT NULL DEFAULT '',
		activity_id TEXT NOT NULL,
		field       TEXT NOT NULL,
		old_value   TEXT NOT NULL DEFAULT '',
		new_value   TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE INDEX IF NOT EXISTS idx_history_activity ON history_events(activity_id)`,
	`CREATE INDEX IF NOT EXISTS idx_history_run ON history_events(run_id, seq)`,
}
