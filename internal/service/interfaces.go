package service

import (
	"context"

	"github.com/macho715/tr-dash/internal/app"
	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/importer"
)

type ReflowService interface {
	app.ReflowUseCase
}

// ScheduleService answers read-only questions about the committed snapshot.
type ScheduleService interface {
	app.ValidateUseCase
	app.TimingUseCase
	app.CollisionUseCase
}

type BaselineService interface {
	app.CaptureBaselineUseCase
	GetByID(ctx context.Context, id string) (*domain.Baseline, error)
	List(ctx context.Context) ([]*domain.Baseline, error)
}

type ActivityService interface {
	app.TransitionUseCase
	GetByID(ctx context.Context, id string) (*domain.Activity, error)
	List(ctx context.Context) ([]domain.Activity, error)
}

type HistoryService interface {
	ListByActivity(ctx context.Context, activityID string) ([]domain.HistoryEvent, error)
	ListByRun(ctx context.Context, runID string) ([]domain.HistoryEvent, error)
	GetRun(ctx context.Context, runID string) (*domain.ReflowRun, error)
	RecentRuns(ctx context.Context, limit int) ([]*domain.ReflowRun, error)
}

type ImportService interface {
	app.ImportScheduleUseCase
}

type ExportService interface {
	Export(ctx context.Context) (*importer.SnapshotSchema, error)
}
