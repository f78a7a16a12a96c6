package repository

import (
	"context"
	"database/sql"

	"github.com/macho715/tr-dash/internal/db"
)

// SQLiteStore builds tx-scoped SQLite repositories on top of a UnitOfWork.
type SQLiteStore struct {
	db  *sql.DB
	uow db.UnitOfWork
}

// NewSQLiteStore returns a store over conn. uow may be nil, in which case a
// plain SQLite unit of work over conn is used.
func NewSQLiteStore(conn *sql.DB, uow db.UnitOfWork) *SQLiteStore {
	if uow == nil {
		uow = db.NewSQLiteUnitOfWork(conn)
	}
	return &SQLiteStore{db: conn, uow: uow}
}

func sqliteRepos(conn db.DBTX) Repos {
	return Repos{
		Schedule:  NewSQLiteScheduleRepo(conn),
		Baselines: NewSQLiteBaselineRepo(conn),
		Runs:      NewSQLiteRunRepo(conn),
		History:   NewSQLiteHistoryRepo(conn),
	}
}

func (s *SQLiteStore) Repos() Repos {
	return sqliteRepos(s.db)
}

func (s *SQLiteStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, sqliteRepos(tx))
	})
}

var _ Store = (*SQLiteStore)(nil)
