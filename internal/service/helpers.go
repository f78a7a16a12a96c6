package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/macho715/tr-dash/internal/contract"
	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/graph"
	"github.com/macho715/tr-dash/internal/repository"
	"github.com/macho715/tr-dash/internal/scheduler"
)

// resolveBaseline returns the baseline named by sel, falling back to def.
// A missing "latest" baseline is not an error: nothing has been captured yet.
func resolveBaseline(ctx context.Context, repo repository.BaselineRepo, sel, def string) (*domain.Baseline, error) {
	if sel == "" {
		sel = def
	}
	switch sel {
	case "", contract.BaselineNone:
		return nil, nil
	case contract.BaselineLatest:
		b, err := repo.Latest(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("loading latest baseline: %w", err)
		}
		return b, nil
	default:
		b, err := repo.GetByID(ctx, sel)
		if err != nil {
			return nil, fmt.Errorf("loading baseline: %w", err)
		}
		return b, nil
	}
}

// toReflowError classifies a failed run for the caller.
func toReflowError(err error, run *domain.ReflowRun) *contract.ReflowError {
	code := contract.ReflowErrInternal
	switch {
	case errors.Is(err, scheduler.ErrInvalidTrigger):
		code = contract.ReflowErrInvalidTrigger
	case errors.Is(err, scheduler.ErrUnknownActivity):
		code = contract.ReflowErrUnknownActivity
	case errors.Is(err, scheduler.ErrCycleDetected):
		code = contract.ReflowErrCycleDetected
	case errors.Is(err, graph.ErrMalformedDependency), errors.Is(err, graph.ErrMalformedConstraint):
		code = contract.ReflowErrMalformedInput
	case errors.Is(err, repository.ErrConcurrentSnapshotConflict):
		code = contract.ReflowErrConcurrentConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = contract.ReflowErrCanceled
	}
	return &contract.ReflowError{Code: code, Message: err.Error(), Run: run, Err: err}
}

func filterBySeverity(cs []domain.Collision, min domain.Severity) []domain.Collision {
	if min == "" {
		return cs
	}
	var out []domain.Collision
	for _, c := range cs {
		if c.Severity.Rank() >= min.Rank() {
			out = append(out, c)
		}
	}
	return out
}

func formatValidationErrors(errs []error) error {
	msg := fmt.Sprintf("import validation failed (%d errors):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
