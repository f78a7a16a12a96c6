package service

import (
	"context"
	"fmt"

	"github.com/macho715/tr-dash/internal/contract"
	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/repository"
	"github.com/macho715/tr-dash/internal/scheduler"
)

type activityService struct {
	store  repository.Store
	reflow ReflowService
}

// NewActivityService commits state transitions through reflow so every
// change gets a run record, history and a fresh plan.
func NewActivityService(store repository.Store, reflow ReflowService) ActivityService {
	return &activityService{store: store, reflow: reflow}
}

func (s *activityService) GetByID(ctx context.Context, id string) (*domain.Activity, error) {
	snap, err := s.store.Repos().Schedule.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	a, ok := snap.Activities[id]
	if !ok {
		return nil, fmt.Errorf("activity %s: %w", id, repository.ErrNotFound)
	}
	return &a, nil
}

func (s *activityService) List(ctx context.Context) ([]domain.Activity, error) {
	snap, err := s.store.Repos().Schedule.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	out := make([]domain.Activity, 0, len(snap.Activities))
	for _, id := range snap.ActivityIDs() {
		out = append(out, snap.Activities[id])
	}
	return out, nil
}

// Transition moves one activity through the state machine. Illegal moves are
// returned as domain.ErrInvalidTransition instead of run warnings.
func (s *activityService) Transition(ctx context.Context, req contract.TransitionRequest) (*contract.TransitionResponse, error) {
	a, err := s.GetByID(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(a.State, req.To) {
		return nil, fmt.Errorf("%w: %s -> %s (activity %s)", domain.ErrInvalidTransition, a.State, req.To, a.ID)
	}

	to := req.To
	reflowReq := contract.NewReflowRequest(domain.TriggerActuals)
	reflowReq.Actor = req.Actor
	reflowReq.Now = req.Now
	reflowReq.Perturbations = []domain.Perturbation{{ActivityID: a.ID, State: &to}}

	resp, err := s.reflow.Reflow(ctx, reflowReq)
	if err != nil {
		return nil, err
	}
	out := &contract.TransitionResponse{
		ActivityID: a.ID,
		From:       a.State,
		To:         to,
		Version:    resp.Run.CommittedVersion,
	}
	for _, e := range resp.History {
		if e.ActivityID == a.ID && e.Field == scheduler.FieldState {
			out.Event = e
			break
		}
	}
	return out, nil
}
