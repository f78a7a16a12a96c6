package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRunTransition is returned when a reflow run is moved out of order.
var ErrInvalidRunTransition = errors.New("invalid run transition")

var runTransitions = map[RunState][]RunState{
	RunPending:   {RunComputing, RunAborted},
	RunComputing: {RunCommitted, RunAborted},
}

// Perturbation is one operator- or field-supplied change fed into a reflow run.
// Nil fields are left untouched.
type Perturbation struct {
	ActivityID  string
	ActualStart *time.Time
	ActualEnd   *time.Time
	ProgressPct *int
	LockLevel   *LockLevel
	Pin         *time.Time
	ClearPin    bool
	State       *ActivityState
}

// Trigger describes why a reflow run was requested.
type Trigger struct {
	Kind          TriggerKind
	Actor         string
	RequestedAt   time.Time
	Perturbations []Perturbation
	// FullRecompute asks for a recompute of the whole graph with no perturbations.
	FullRecompute bool
}

// Change records one activity whose plan window moved during a run.
type Change struct {
	ActivityID string
	Old        Window
	New        Window
}

// ReflowRun is the record of one reflow invocation. It is finalized once the
// run reaches RunCommitted or RunAborted.
type ReflowRun struct {
	ID               string
	Trigger          Trigger
	RequestedAt      time.Time
	State            RunState
	BaseVersion      int64
	CommittedVersion int64
	Changes          []Change
	Collisions       []Collision
	Warnings         []string
	Error            string
}

// Advance moves the run to the next lifecycle state.
func (r *ReflowRun) Advance(to RunState) error {
	for _, next := range runTransitions[r.State] {
		if next == to {
			r.State = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s (run %s)", ErrInvalidRunTransition, r.State, to, r.ID)
}

// Finalized reports whether the run reached a terminal state.
func (r *ReflowRun) Finalized() bool {
	return r.State == RunCommitted || r.State == RunAborted
}

// HistoryEvent is one changed field of one activity in one run.
type HistoryEvent struct {
	ID         string
	RunID      string
	Seq        int
	At         time.Time
	Actor      string
	ActivityID string
	Field      string
	Old        string
	New        string
}
