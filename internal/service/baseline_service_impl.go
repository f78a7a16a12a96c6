package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/repository"
)

type baselineService struct {
	store repository.Store
	rt    runtime
}

func NewBaselineService(store repository.Store, opts ...Option) BaselineService {
	return &baselineService{store: store, rt: newRuntime(opts)}
}

// Capture freezes the current plan windows under a new baseline id.
func (s *baselineService) Capture(ctx context.Context, name string) (b *domain.Baseline, err error) {
	startedAt := time.Now()
	fields := map[string]any{"name": name}
	defer func() {
		s.rt.observe(ctx, "capture-baseline", startedAt, err, fields)
	}()

	err = s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		snap, err := r.Schedule.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading snapshot: %w", err)
		}
		if len(snap.Activities) == 0 {
			return fmt.Errorf("nothing to capture: the schedule is empty")
		}
		b = domain.CaptureBaseline(uuid.New().String(), name, snap, s.rt.now())
		return r.Baselines.Create(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	fields["baseline_id"] = b.ID
	fields["entries"] = len(b.Entries)
	return b, nil
}

func (s *baselineService) GetByID(ctx context.Context, id string) (*domain.Baseline, error) {
	return s.store.Repos().Baselines.GetByID(ctx, id)
}

func (s *baselineService) List(ctx context.Context) ([]*domain.Baseline, error) {
	return s.store.Repos().Baselines.List(ctx)
}
