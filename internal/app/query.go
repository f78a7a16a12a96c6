package app

import (
	"time"

	"github.com/macho715/tr-dash/internal/domain"
)

type ValidateResponse struct {
	Version    int64
	Activities int
	// Structural lists malformed dependencies and constraints; the graph could
	// not be built when it is non-empty.
	Structural []string
	Cycles     []domain.Collision
}

// OK reports whether the schedule is structurally sound and acyclic.
func (r *ValidateResponse) OK() bool {
	return len(r.Structural) == 0 && len(r.Cycles) == 0
}

type TimingRequest struct {
	AsOf *time.Time
	// CriticalOnly keeps only zero-float activities.
	CriticalOnly bool
}

type ActivityTiming struct {
	ActivityID string
	Name       string
	Timing     domain.Timing
}

type TimingResponse struct {
	Version int64
	Rows    []ActivityTiming
	// ProjectFinish is the latest early finish.
	ProjectFinish time.Time
}

type CollisionRequest struct {
	// Baseline is a baseline id, BaselineLatest or BaselineNone. Empty uses
	// the service default.
	Baseline string
	// MinSeverity drops collisions below it. Empty keeps all.
	MinSeverity domain.Severity
}

type CollisionResponse struct {
	Version     int64
	BaselineID  string
	Collisions  []domain.Collision
	Summary     map[domain.CollisionKind]int
	MaxSeverity domain.Severity
}

type TransitionRequest struct {
	ActivityID string
	To         domain.ActivityState
	Actor      string
	Now        *time.Time
}

type TransitionResponse struct {
	ActivityID string
	From       domain.ActivityState
	To         domain.ActivityState
	Version    int64
	Event      domain.HistoryEvent
}

type ImportResult struct {
	Version       int64
	Activities    int
	Resources     int
	Dependencies  int
	Groups        int
	Cycles        []domain.Collision
	ReplacedCount int
}
