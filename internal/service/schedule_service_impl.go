package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/macho715/tr-dash/internal/collision"
	"github.com/macho715/tr-dash/internal/contract"
	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/graph"
	"github.com/macho715/tr-dash/internal/repository"
	"github.com/macho715/tr-dash/internal/scheduler"
)

type scheduleService struct {
	store    repository.Store
	defaults Defaults
	rt       runtime
}

func NewScheduleService(store repository.Store, defaults Defaults, opts ...Option) ScheduleService {
	return &scheduleService{
		store:    store,
		defaults: defaults,
		rt:       newRuntime(opts),
	}
}

// Validate runs the structural and cycle checks on the committed snapshot.
// Findings are reported in the response; only storage failures are errors.
func (s *scheduleService) Validate(ctx context.Context) (resp *contract.ValidateResponse, err error) {
	startedAt := time.Now()
	fields := map[string]any{}
	defer func() {
		s.rt.observe(ctx, "validate", startedAt, err, fields)
	}()

	snap, err := s.store.Repos().Schedule.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	resp = &contract.ValidateResponse{Version: snap.Version, Activities: len(snap.Activities)}

	g, berr := graph.Build(snap)
	if berr != nil {
		var merr *graph.MalformedError
		if !errors.As(berr, &merr) {
			return nil, berr
		}
		resp.Structural = []string{berr.Error()}
		fields["structural"] = 1
		return resp, nil
	}
	resp.Cycles = graph.Validate(g)
	fields["cycles"] = len(resp.Cycles)
	return resp, nil
}

// Compute returns the critical-path timing of the committed snapshot, ordered
// by early start then id.
func (s *scheduleService) Compute(ctx context.Context, req contract.TimingRequest) (resp *contract.TimingResponse, err error) {
	startedAt := time.Now()
	fields := map[string]any{"critical_only": req.CriticalOnly}
	defer func() {
		s.rt.observe(ctx, "timing", startedAt, err, fields)
	}()

	snap, err := s.store.Repos().Schedule.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	g, err := graph.Build(snap)
	if err != nil {
		return nil, err
	}
	if cycles := graph.Validate(g); len(cycles) > 0 {
		return nil, fmt.Errorf("%w: %d cycle(s)", scheduler.ErrCycleDetected, len(cycles))
	}

	opts := scheduler.TimingOptions{AsOf: s.rt.now()}
	if req.AsOf != nil {
		opts.AsOf = req.AsOf.UTC()
	}
	timing, err := scheduler.ComputeTiming(ctx, g, opts)
	if err != nil {
		return nil, err
	}

	resp = &contract.TimingResponse{Version: snap.Version}
	for _, id := range snap.ActivityIDs() {
		t := timing[id]
		if t.EF.After(resp.ProjectFinish) {
			resp.ProjectFinish = t.EF
		}
		if req.CriticalOnly && !t.Critical() {
			continue
		}
		resp.Rows = append(resp.Rows, contract.ActivityTiming{
			ActivityID: id,
			Name:       snap.Activities[id].Name,
			Timing:     t,
		})
	}
	sort.SliceStable(resp.Rows, func(i, j int) bool {
		a, b := resp.Rows[i], resp.Rows[j]
		if !a.Timing.ES.Equal(b.Timing.ES) {
			return a.Timing.ES.Before(b.Timing.ES)
		}
		return a.ActivityID < b.ActivityID
	})
	fields["rows"] = len(resp.Rows)
	return resp, nil
}

// Detect runs every collision check on the committed snapshot, adding cycle
// collisions when the graph is cyclic.
func (s *scheduleService) Detect(ctx context.Context, req contract.CollisionRequest) (resp *contract.CollisionResponse, err error) {
	startedAt := time.Now()
	fields := map[string]any{}
	defer func() {
		s.rt.observe(ctx, "detect", startedAt, err, fields)
	}()

	repos := s.store.Repos()
	snap, err := repos.Schedule.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	baseline, err := resolveBaseline(ctx, repos.Baselines, req.Baseline, s.defaults.Baseline)
	if err != nil {
		return nil, err
	}

	cs := collision.Detect(snap, collision.Options{Baseline: baseline, BaselineOptions: s.defaults.BaselineOptions})
	if g, berr := graph.Build(snap); berr == nil {
		cs = append(cs, graph.Validate(g)...)
		domain.SortCollisions(cs)
	}
	s.rt.metrics.RecordCollisions(cs)

	cs = filterBySeverity(cs, req.MinSeverity)
	resp = &contract.CollisionResponse{
		Version:     snap.Version,
		Collisions:  cs,
		Summary:     collision.Summary(cs),
		MaxSeverity: domain.MaxSeverity(cs),
	}
	if baseline != nil {
		resp.BaselineID = baseline.ID
	}
	fields["collisions"] = len(cs)
	return resp, nil
}
