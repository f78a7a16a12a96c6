package domain

type ActivityState string

const (
	StateDraft      ActivityState = "draft"
	StatePlanned    ActivityState = "planned"
	StateReady      ActivityState = "ready"
	StateInProgress ActivityState = "in_progress"
	StatePaused     ActivityState = "paused"
	StateBlocked    ActivityState = "blocked"
	StateCompleted  ActivityState = "completed"
	StateCanceled   ActivityState = "canceled"
	StateAborted    ActivityState = "aborted"
)

// Valid reports whether s is one of the known activity states.
func (s ActivityState) Valid() bool {
	switch s {
	case StateDraft, StatePlanned, StateReady, StateInProgress, StatePaused,
		StateBlocked, StateCompleted, StateCanceled, StateAborted:
		return true
	}
	return false
}

// Frozen reports whether reflow must leave the activity untouched.
func (s ActivityState) Frozen() bool {
	switch s {
	case StateCompleted, StateCanceled, StateAborted:
		return true
	}
	return false
}

// Live reports whether the activity still occupies resources and space.
func (s ActivityState) Live() bool {
	return s != StateCanceled && s != StateAborted
}

type LockLevel string

const (
	LockNone     LockLevel = "none"
	LockSoft     LockLevel = "soft"
	LockHard     LockLevel = "hard"
	LockBaseline LockLevel = "baseline"
)

// Valid reports whether l is one of the known lock levels. The empty string
// is accepted and treated as LockNone.
func (l LockLevel) Valid() bool {
	switch l {
	case "", LockNone, LockSoft, LockHard, LockBaseline:
		return true
	}
	return false
}

// Rank orders lock levels for tie-breaking (higher = stronger).
func (l LockLevel) Rank() int {
	switch l {
	case LockBaseline:
		return 3
	case LockHard:
		return 2
	case LockSoft:
		return 1
	default:
		return 0
	}
}

// Fixes reports whether the lock prevents reflow from moving the plan window.
func (l LockLevel) Fixes() bool {
	return l == LockHard || l == LockBaseline
}

type RelationType string

const (
	FinishToStart  RelationType = "FS"
	StartToStart   RelationType = "SS"
	FinishToFinish RelationType = "FF"
	StartToFinish  RelationType = "SF"
)

func (r RelationType) Valid() bool {
	switch r {
	case FinishToStart, StartToStart, FinishToFinish, StartToFinish:
		return true
	}
	return false
}

type ConstraintKind string

const (
	// ConstraintStartWindow bounds the activity start.
	ConstraintStartWindow ConstraintKind = "start_window"
	// ConstraintFinishWindow bounds the activity finish.
	ConstraintFinishWindow ConstraintKind = "finish_window"
	// ConstraintActivityWindow requires the whole activity to fit inside the window.
	ConstraintActivityWindow ConstraintKind = "activity_window"
)

func (k ConstraintKind) Valid() bool {
	switch k {
	case ConstraintStartWindow, ConstraintFinishWindow, ConstraintActivityWindow:
		return true
	}
	return false
}

type DurationMode string

const (
	DurationFixed      DurationMode = "fixed"
	DurationWorkDriven DurationMode = "work_driven"
)

type CollisionKind string

const (
	CollisionDependencyCycle      CollisionKind = "dependency_cycle"
	CollisionDependencyViolation  CollisionKind = "dependency_violation"
	CollisionConstraintWindow     CollisionKind = "constraint_window_violation"
	CollisionResourceOverallocate CollisionKind = "resource_overallocated"
	CollisionResourceUnavailable  CollisionKind = "resource_unavailable"
	CollisionSpatialConflict      CollisionKind = "spatial_conflict"
	CollisionBaselineConflict     CollisionKind = "baseline_conflict"
	CollisionDataIncomplete       CollisionKind = "data_incomplete"
	CollisionRiskHold             CollisionKind = "risk_hold"
)

// CollisionKinds is the canonical ordering used when presenting collisions.
var CollisionKinds = []CollisionKind{
	CollisionDependencyCycle,
	CollisionDependencyViolation,
	CollisionConstraintWindow,
	CollisionResourceOverallocate,
	CollisionResourceUnavailable,
	CollisionSpatialConflict,
	CollisionBaselineConflict,
	CollisionDataIncomplete,
	CollisionRiskHold,
}

// Ordinal returns the position of k in CollisionKinds, or len(CollisionKinds)
// for unknown kinds.
func (k CollisionKind) Ordinal() int {
	for i, known := range CollisionKinds {
		if k == known {
			return i
		}
	}
	return len(CollisionKinds)
}

type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityBlocking Severity = "blocking"
)

// Rank orders severities (higher = more severe).
func (s Severity) Rank() int {
	switch s {
	case SeverityBlocking:
		return 2
	case SeverityMajor:
		return 1
	default:
		return 0
	}
}

type RunState string

const (
	RunPending   RunState = "pending"
	RunComputing RunState = "computing"
	RunCommitted RunState = "committed"
	RunAborted   RunState = "aborted"
)

type TriggerKind string

const (
	TriggerActuals   TriggerKind = "actuals"
	TriggerLocks     TriggerKind = "locks"
	TriggerPins      TriggerKind = "pins"
	TriggerRecompute TriggerKind = "recompute"
)

func (k TriggerKind) Valid() bool {
	switch k {
	case TriggerActuals, TriggerLocks, TriggerPins, TriggerRecompute:
		return true
	}
	return false
}
