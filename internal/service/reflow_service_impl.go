package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/macho715/tr-dash/internal/collision"
	"github.com/macho715/tr-dash/internal/contract"
	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/repository"
	"github.com/macho715/tr-dash/internal/scheduler"
)

type reflowService struct {
	store    repository.Store
	defaults Defaults
	rt       runtime
}

func NewReflowService(store repository.Store, defaults Defaults, opts ...Option) ReflowService {
	return &reflowService{
		store:    store,
		defaults: defaults,
		rt:       newRuntime(opts),
	}
}

// Reflow loads the live snapshot, computes a run on a copy and, unless the
// request is a dry run, commits plan, run record and history in one
// transaction guarded by the snapshot version. A version conflict aborts the
// run; the caller may retry on a fresh load.
func (s *reflowService) Reflow(ctx context.Context, req contract.ReflowRequest) (resp *contract.ReflowResponse, err error) {
	startedAt := time.Now()
	fields := map[string]any{
		"trigger": string(req.Trigger),
		"dry_run": req.DryRun,
	}
	defer func() {
		s.rt.observe(ctx, "reflow", startedAt, err, fields)
	}()

	now := s.rt.now()
	if req.Now != nil {
		now = req.Now.UTC()
	}
	trig := domain.Trigger{
		Kind:          req.Trigger,
		Actor:         domain.CoalesceStr(req.Actor, s.defaults.Actor),
		RequestedAt:   now,
		Perturbations: req.Perturbations,
		FullRecompute: req.FullRecompute,
	}
	opts := scheduler.Options{}
	if req.AsOf != nil {
		opts.AsOf = req.AsOf.UTC()
	}

	repos := s.store.Repos()
	snap, err := repos.Schedule.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	baseline, err := resolveBaseline(ctx, repos.Baselines, req.Baseline, s.defaults.Baseline)
	if err != nil {
		return nil, err
	}
	fields["base_version"] = snap.Version

	out, err := scheduler.Reflow(ctx, snap, trig, opts)
	if err != nil {
		s.recordAborted(ctx, out.Run, startedAt)
		return nil, toReflowError(err, out.Run)
	}
	run := out.Run
	fields["run_id"] = run.ID

	detectOpts := collision.Options{Baseline: baseline, BaselineOptions: s.defaults.BaselineOptions}
	run.Collisions = collision.Merge(collision.Detect(out.Snapshot, detectOpts), run.Collisions)
	fields["changes"] = len(run.Changes)
	fields["collisions"] = len(run.Collisions)

	resp = &contract.ReflowResponse{
		Run:         run,
		DryRun:      req.DryRun,
		Collisions:  run.Collisions,
		MaxSeverity: domain.MaxSeverity(run.Collisions),
		History:     out.History,
		Warnings:    append([]string(nil), run.Warnings...),
		Snapshot:    out.Snapshot,
	}
	s.rt.metrics.RecordCollisions(run.Collisions)
	if req.DryRun {
		return resp, nil
	}

	var version int64
	err = s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		v, err := r.Schedule.Replace(ctx, run.BaseVersion, out.Snapshot)
		if err != nil {
			return err
		}
		record := *run
		if err := record.Advance(domain.RunCommitted); err != nil {
			return err
		}
		record.CommittedVersion = v
		if err := r.Runs.Create(ctx, &record); err != nil {
			return err
		}
		if err := r.History.Append(ctx, out.History); err != nil {
			return err
		}
		version = v
		return nil
	})
	if err != nil {
		s.abort(ctx, out, err, startedAt)
		return nil, toReflowError(err, run)
	}
	if err := out.Commit(version); err != nil {
		return nil, toReflowError(err, run)
	}
	resp.Committed = true
	resp.Snapshot = out.Snapshot
	fields["committed_version"] = version
	s.rt.metrics.RecordRun(run, time.Since(startedAt))

	if perr := s.rt.publisher.PublishRun(ctx, run, out.History); perr != nil {
		s.rt.log.Warnf("publishing run %s: %v", run.ID, perr)
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("history publish failed: %v", perr))
	}
	return resp, nil
}

func (s *reflowService) abort(ctx context.Context, out *scheduler.Outcome, cause error, startedAt time.Time) {
	if err := out.Abort(cause); err != nil {
		s.rt.log.Errorf("aborting run %s: %v", out.Run.ID, err)
		return
	}
	s.recordAborted(ctx, out.Run, startedAt)
}

// recordAborted keeps an audit row for runs that never committed. Failures
// here are logged only; the caller already has the real error.
func (s *reflowService) recordAborted(ctx context.Context, run *domain.ReflowRun, startedAt time.Time) {
	if run == nil || run.State != domain.RunAborted {
		return
	}
	s.rt.metrics.RecordRun(run, time.Since(startedAt))
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		ctx = context.WithoutCancel(ctx)
	}
	if err := s.store.Repos().Runs.Create(ctx, run); err != nil {
		s.rt.log.Warnf("recording aborted run %s: %v", run.ID, err)
	}
}
