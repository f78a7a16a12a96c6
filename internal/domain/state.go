package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when an activity state change is not allowed.
var ErrInvalidTransition = errors.New("invalid state transition")

// forwardTransitions lists the non-terminal moves. Cancel and abort are
// handled separately because they are reachable from any open state.
var forwardTransitions = map[ActivityState][]ActivityState{
	StateDraft:      {StatePlanned},
	StatePlanned:    {StateReady, StateBlocked},
	StateReady:      {StateInProgress, StateBlocked},
	StateInProgress: {StatePaused, StateBlocked, StateCompleted},
	StatePaused:     {StateInProgress, StateBlocked},
	StateBlocked:    {StateReady},
}

// CanTransition reports whether an activity may move from one state to another.
func CanTransition(from, to ActivityState) bool {
	if !from.Valid() || !to.Valid() || from.Frozen() {
		return false
	}
	if to == StateCanceled || to == StateAborted {
		return true
	}
	for _, next := range forwardTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the activity to state to, or returns ErrInvalidTransition.
func (a *Activity) Transition(to ActivityState) error {
	if !CanTransition(a.State, to) {
		return fmt.Errorf("%w: %s -> %s (activity %s)", ErrInvalidTransition, a.State, to, a.ID)
	}
	a.State = to
	return nil
}
