package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/macho715/tr-dash/internal/db"
	"github.com/macho715/tr-dash/internal/domain"
)

type SQLiteBaselineRepo struct {
	db db.DBTX
}

func NewSQLiteBaselineRepo(conn db.DBTX) *SQLiteBaselineRepo {
	return &SQLiteBaselineRepo{db: conn}
}

func (r *SQLiteBaselineRepo) Create(ctx context.Context, b *domain.Baseline) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO baselines (id, name, captured_at) VALUES (?, ?, ?)`,
		b.ID, b.Name, b.CapturedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting baseline: %w", err)
	}
	for _, id := range sortedKeys(b.Entries) {
		w := b.Entries[id]
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO baseline_entries (baseline_id, activity_id, plan_start, plan_end) VALUES (?, ?, ?, ?)`,
			b.ID, id, w.Start.UTC().Format(timeLayout), w.End.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("inserting baseline entry %s: %w", id, err)
		}
	}
	return nil
}

func (r *SQLiteBaselineRepo) GetByID(ctx context.Context, id string) (*domain.Baseline, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, captured_at FROM baselines WHERE id = ?`, id)
	return r.scanOne(ctx, row, id)
}

func (r *SQLiteBaselineRepo) Latest(ctx context.Context) (*domain.Baseline, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, captured_at FROM baselines ORDER BY captured_at DESC, id DESC LIMIT 1`)
	return r.scanOne(ctx, row, "latest")
}

func (r *SQLiteBaselineRepo) List(ctx context.Context) ([]*domain.Baseline, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, captured_at FROM baselines ORDER BY captured_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing baselines: %w", err)
	}
	var out []*domain.Baseline
	for rows.Next() {
		b, err := scanBaselineHeader(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, b := range out {
		if err := r.loadEntries(ctx, b); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBaselineHeader(s scanner) (*domain.Baseline, error) {
	var b domain.Baseline
	var captured string
	if err := s.Scan(&b.ID, &b.Name, &captured); err != nil {
		return nil, err
	}
	b.CapturedAt = parseTime(sql.NullString{String: captured, Valid: true})
	b.Entries = make(map[string]domain.Window)
	return &b, nil
}

func (r *SQLiteBaselineRepo) scanOne(ctx context.Context, row *sql.Row, key string) (*domain.Baseline, error) {
	b, err := scanBaselineHeader(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("baseline %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning baseline: %w", err)
	}
	if err := r.loadEntries(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *SQLiteBaselineRepo) loadEntries(ctx context.Context, b *domain.Baseline) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT activity_id, plan_start, plan_end FROM baseline_entries WHERE baseline_id = ? ORDER BY activity_id`, b.ID)
	if err != nil {
		return fmt.Errorf("querying baseline entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, start, end string
		if err := rows.Scan(&id, &start, &end); err != nil {
			return fmt.Errorf("scanning baseline entry: %w", err)
		}
		b.Entries[id] = domain.Window{
			Start: parseTime(sql.NullString{String: start, Valid: true}),
			End:   parseTime(sql.NullString{String: end, Valid: true}),
		}
	}
	return rows.Err()
}
