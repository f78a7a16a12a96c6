package repository

import (
	"context"
	"errors"

	"github.com/macho715/tr-dash/internal/domain"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConcurrentSnapshotConflict is returned when the live snapshot moved
	// past the version a run was computed against.
	ErrConcurrentSnapshotConflict = errors.New("concurrent snapshot conflict")
)

// ScheduleRepo holds the single live snapshot.
type ScheduleRepo interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
	Version(ctx context.Context) (int64, error)
	// Replace swaps the live snapshot for s when the stored version still
	// equals expectedVersion, and returns the new version.
	Replace(ctx context.Context, expectedVersion int64, s *domain.Snapshot) (int64, error)
}

type BaselineRepo interface {
	Create(ctx context.Context, b *domain.Baseline) error
	GetByID(ctx context.Context, id string) (*domain.Baseline, error)
	Latest(ctx context.Context) (*domain.Baseline, error)
	List(ctx context.Context) ([]*domain.Baseline, error)
}

type RunRepo interface {
	Create(ctx context.Context, r *domain.ReflowRun) error
	GetByID(ctx context.Context, id string) (*domain.ReflowRun, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.ReflowRun, error)
}

// HistoryRepo is append-only.
type HistoryRepo interface {
	Append(ctx context.Context, events []domain.HistoryEvent) error
	ListByActivity(ctx context.Context, activityID string) ([]domain.HistoryEvent, error)
	ListByRun(ctx context.Context, runID string) ([]domain.HistoryEvent, error)
}

// Repos bundles the repositories a commit touches together.
type Repos struct {
	Schedule  ScheduleRepo
	Baselines BaselineRepo
	Runs      RunRepo
	History   HistoryRepo
}

// Store hands out repositories, either directly or scoped to one atomic unit.
// When fn returns an error nothing it wrote is kept.
type Store interface {
	Repos() Repos
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}
