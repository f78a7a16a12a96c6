package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/macho715/tr-dash/internal/db"
	"github.com/macho715/tr-dash/internal/domain"
)

type SQLiteHistoryRepo struct {
	db db.DBTX
}

func NewSQLiteHistoryRepo(conn db.DBTX) *SQLiteHistoryRepo {
	return &SQLiteHistoryRepo{db: conn}
}

func (r *SQLiteHistoryRepo) Append(ctx context.Context, events []domain.HistoryEvent) error {
	for _, e := range events {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO history_events (id, run_id, seq, at, actor, activity_id, field, old_value, new_value)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.RunID, e.Seq, e.At.UTC().Format(timeLayout), e.Actor, e.ActivityID, e.Field, e.Old, e.New,
		)
		if err != nil {
			return fmt.Errorf("appending history event %s/%d: %w", e.RunID, e.Seq, err)
		}
	}
	return nil
}

func (r *SQLiteHistoryRepo) ListByActivity(ctx context.Context, activityID string) ([]domain.HistoryEvent, error) {
	return r.list(ctx, `WHERE activity_id = ? ORDER BY at, run_id, seq`, activityID)
}

func (r *SQLiteHistoryRepo) ListByRun(ctx context.Context, runID string) ([]domain.HistoryEvent, error) {
	return r.list(ctx, `WHERE run_id = ? ORDER BY seq`, runID)
}

func (r *SQLiteHistoryRepo) list(ctx context.Context, where string, arg string) ([]domain.HistoryEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, run_id, seq, at, actor, activity_id, field, old_value, new_value FROM history_events `+where, arg)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryEvent
	for rows.Next() {
		var e domain.HistoryEvent
		var at string
		if err := rows.Scan(&e.ID, &e.RunID, &e.Seq, &at, &e.Actor, &e.ActivityID, &e.Field, &e.Old, &e.New); err != nil {
			return nil, fmt.Errorf("scanning history event: %w", err)
		}
		e.At = parseTime(sql.NullString{String: at, Valid: true})
		out = append(out, e)
	}
	return out, rows.Err()
}
