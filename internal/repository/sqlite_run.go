package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/macho715/tr-dash/internal/db"
	"github.com/macho715/tr-dash/internal/domain"
)

type SQLiteRunRepo struct {
	db db.DBTX
}

func NewSQLiteRunRepo(conn db.DBTX) *SQLiteRunRepo {
	return &SQLiteRunRepo{db: conn}
}

type perturbationRow struct {
	ActivityID  string     `json:"activity_id"`
	ActualStart *time.Time `json:"actual_start,omitempty"`
	ActualEnd   *time.Time `json:"actual_end,omitempty"`
	ProgressPct *int       `json:"progress_pct,omitempty"`
	LockLevel   *string    `json:"lock_level,omitempty"`
	Pin         *time.Time `json:"pin,omitempty"`
	ClearPin    bool       `json:"clear_pin,omitempty"`
	State       *string    `json:"state,omitempty"`
}

type collisionRow struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Severity    string     `json:"severity"`
	ActivityIDs []string   `json:"activity_ids"`
	ResourceIDs []string   `json:"resource_ids,omitempty"`
	Window      *windowRow `json:"window,omitempty"`
	Message     string     `json:"message"`
}

func toPerturbationRows(ps []domain.Perturbation) []perturbationRow {
	out := make([]perturbationRow, 0, len(ps))
	for _, p := range ps {
		row := perturbationRow{
			ActivityID:  p.ActivityID,
			ActualStart: p.ActualStart,
			ActualEnd:   p.ActualEnd,
			ProgressPct: p.ProgressPct,
			Pin:         p.Pin,
			ClearPin:    p.ClearPin,
		}
		if p.LockLevel != nil {
			l := string(*p.LockLevel)
			row.LockLevel = &l
		}
		if p.State != nil {
			s := string(*p.State)
			row.State = &s
		}
		out = append(out, row)
	}
	return out
}

func fromPerturbationRows(rows []perturbationRow) []domain.Perturbation {
	var out []domain.Perturbation
	for _, row := range rows {
		p := domain.Perturbation{
			ActivityID:  row.ActivityID,
			ActualStart: row.ActualStart,
			ActualEnd:   row.ActualEnd,
			ProgressPct: row.ProgressPct,
			Pin:         row.Pin,
			ClearPin:    row.ClearPin,
		}
		if row.LockLevel != nil {
			l := domain.LockLevel(*row.LockLevel)
			p.LockLevel = &l
		}
		if row.State != nil {
			s := domain.ActivityState(*row.State)
			p.State = &s
		}
		out = append(out, p)
	}
	return out
}

func toCollisionRows(cs []domain.Collision) []collisionRow {
	out := make([]collisionRow, 0, len(cs))
	for _, c := range cs {
		row := collisionRow{
			ID:          c.ID,
			Kind:        string(c.Kind),
			Severity:    string(c.Severity),
			ActivityIDs: c.ActivityIDs,
			ResourceIDs: c.ResourceIDs,
			Message:     c.Message,
		}
		if c.Window != nil {
			row.Window = &windowRow{Start: c.Window.Start, End: c.Window.End}
		}
		out = append(out, row)
	}
	return out
}

func fromCollisionRows(rows []collisionRow) []domain.Collision {
	var out []domain.Collision
	for _, row := range rows {
		c := domain.Collision{
			ID:          row.ID,
			Kind:        domain.CollisionKind(row.Kind),
			Severity:    domain.Severity(row.Severity),
			ActivityIDs: row.ActivityIDs,
			ResourceIDs: row.ResourceIDs,
			Message:     row.Message,
		}
		if row.Window != nil {
			c.Window = &domain.Window{Start: row.Window.Start, End: row.Window.End}
		}
		out = append(out, c)
	}
	return out
}

func (r *SQLiteRunRepo) Create(ctx context.Context, run *domain.ReflowRun) error {
	perturbations, err := marshalJSON(toPerturbationRows(run.Trigger.Perturbations))
	if err != nil {
		return err
	}
	collisions, err := marshalJSON(toCollisionRows(run.Collisions))
	if err != nil {
		return err
	}
	warnings := run.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := marshalJSON(warnings)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reflow_runs (id, trigger_kind, actor, requested_at, state, base_version,
			committed_version, full_recompute, perturbations_json, collisions_json, warnings_json, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Trigger.Kind), run.Trigger.Actor, run.RequestedAt.UTC().Format(timeLayout),
		string(run.State), run.BaseVersion, run.CommittedVersion, boolToInt(run.Trigger.FullRecompute),
		perturbations, collisions, warningsJSON, run.Error, nowUTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting reflow run: %w", err)
	}

	for i, c := range run.Changes {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO reflow_changes (run_id, seq, activity_id, old_start, old_end, new_start, new_end)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, c.ActivityID, timeToValue(c.Old.Start), timeToValue(c.Old.End),
			c.New.Start.UTC().Format(timeLayout), c.New.End.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("inserting change for %s: %w", c.ActivityID, err)
		}
	}
	return nil
}

const runColumns = `id, trigger_kind, actor, requested_at, state, base_version, committed_version,
	full_recompute, perturbations_json, collisions_json, warnings_json, error`

func (r *SQLiteRunRepo) GetByID(ctx context.Context, id string) (*domain.ReflowRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM reflow_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("reflow run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadChanges(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (r *SQLiteRunRepo) ListRecent(ctx context.Context, limit int) ([]*domain.ReflowRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM reflow_runs ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing reflow runs: %w", err)
	}
	var out []*domain.ReflowRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, run := range out {
		if err := r.loadChanges(ctx, run); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanRun(s scanner) (*domain.ReflowRun, error) {
	var run domain.ReflowRun
	var kind, state, requested string
	var full int
	var perturbations, collisions, warnings string
	err := s.Scan(&run.ID, &kind, &run.Trigger.Actor, &requested, &state, &run.BaseVersion,
		&run.CommittedVersion, &full, &perturbations, &collisions, &warnings, &run.Error)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning reflow run: %w", err)
	}
	run.Trigger.Kind = domain.TriggerKind(kind)
	run.State = domain.RunState(state)
	run.RequestedAt = parseTime(sql.NullString{String: requested, Valid: true})
	run.Trigger.RequestedAt = run.RequestedAt
	run.Trigger.FullRecompute = intToBool(full)

	var prow []perturbationRow
	if err := unmarshalJSON(perturbations, &prow); err != nil {
		return nil, err
	}
	run.Trigger.Perturbations = fromPerturbationRows(prow)

	var crow []collisionRow
	if err := unmarshalJSON(collisions, &crow); err != nil {
		return nil, err
	}
	run.Collisions = fromCollisionRows(crow)

	if err := unmarshalJSON(warnings, &run.Warnings); err != nil {
		return nil, err
	}
	if len(run.Warnings) == 0 {
		run.Warnings = nil
	}
	return &run, nil
}

func (r *SQLiteRunRepo) loadChanges(ctx context.Context, run *domain.ReflowRun) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT activity_id, old_start, old_end, new_start, new_end FROM reflow_changes WHERE run_id = ? ORDER BY seq`, run.ID)
	if err != nil {
		return fmt.Errorf("querying reflow changes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Change
		var oldStart, oldEnd, newStart, newEnd sql.NullString
		if err := rows.Scan(&c.ActivityID, &oldStart, &oldEnd, &newStart, &newEnd); err != nil {
			return fmt.Errorf("scanning reflow change: %w", err)
		}
		c.Old = domain.Window{Start: parseTime(oldStart), End: parseTime(oldEnd)}
		c.New = domain.Window{Start: parseTime(newStart), End: parseTime(newEnd)}
		run.Changes = append(run.Changes, c)
	}
	return rows.Err()
}
