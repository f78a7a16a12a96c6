package app

import (
	"time"

	"github.com/macho715/tr-dash/internal/domain"
)

// BaselineNone disables the baseline comparison for a request.
const BaselineNone = "none"

// BaselineLatest compares against the most recently captured baseline.
const BaselineLatest = "latest"

type ReflowRequest struct {
	Trigger       domain.TriggerKind
	Actor         string
	Now           *time.Time
	// AsOf projects started, unfinished work to this instant. Nil counts
	// remaining work from the actual start.
	AsOf          *time.Time
	Perturbations []domain.Perturbation
	FullRecompute bool
	// DryRun computes and reports the run without committing it.
	DryRun bool
	// Baseline is a baseline id, BaselineLatest or BaselineNone. Empty uses
	// the service default.
	Baseline string
}

func NewReflowRequest(trigger domain.TriggerKind) ReflowRequest {
	return ReflowRequest{
		Trigger:       trigger,
		FullRecompute: trigger == domain.TriggerRecompute,
	}
}

type ReflowResponse struct {
	Run       *domain.ReflowRun
	Committed bool
	DryRun    bool
	// Collisions is the full detection pass over the resulting plan, including
	// any collisions raised by the run itself.
	Collisions  []domain.Collision
	MaxSeverity domain.Severity
	History     []domain.HistoryEvent
	Warnings    []string
	// Snapshot is the plan the run produced. Committed runs carry the new version.
	Snapshot *domain.Snapshot
}

type ReflowErrorCode string

const (
	ReflowErrInvalidTrigger     ReflowErrorCode = "INVALID_TRIGGER"
	ReflowErrUnknownActivity    ReflowErrorCode = "UNKNOWN_ACTIVITY"
	ReflowErrCycleDetected      ReflowErrorCode = "CYCLE_DETECTED"
	ReflowErrMalformedInput     ReflowErrorCode = "MALFORMED_INPUT"
	ReflowErrConcurrentConflict ReflowErrorCode = "CONCURRENT_CONFLICT"
	ReflowErrCanceled           ReflowErrorCode = "CANCELED"
	ReflowErrInternal           ReflowErrorCode = "INTERNAL_ERROR"
)

// ReflowError is a failed reflow. Run is set when the run was recorded as
// aborted; Err keeps the underlying cause for errors.Is.
type ReflowError struct {
	Code    ReflowErrorCode
	Message string
	Run     *domain.ReflowRun
	Err     error
}

func (e *ReflowError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func (e *ReflowError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the request on a fresh load may succeed.
func (e *ReflowError) Retryable() bool {
	return e.Code == ReflowErrConcurrentConflict
}
