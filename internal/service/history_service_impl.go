package service

import (
	"context"

	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/repository"
)

type historyService struct {
	store repository.Store
}

func NewHistoryService(store repository.Store) HistoryService {
	return &historyService{store: store}
}

func (s *historyService) ListByActivity(ctx context.Context, activityID string) ([]domain.HistoryEvent, error) {
	return s.store.Repos().History.ListByActivity(ctx, activityID)
}

func (s *historyService) ListByRun(ctx context.Context, runID string) ([]domain.HistoryEvent, error) {
	return s.store.Repos().History.ListByRun(ctx, runID)
}

func (s *historyService) GetRun(ctx context.Context, runID string) (*domain.ReflowRun, error) {
	return s.store.Repos().Runs.GetByID(ctx, runID)
}

func (s *historyService) RecentRuns(ctx context.Context, limit int) ([]*domain.ReflowRun, error) {
	return s.store.Repos().Runs.ListRecent(ctx, limit)
}
