package testutil

import (
	"time"

	"github.com/macho715/tr-dash/internal/domain"
)

// Epoch anchors every fixture timestamp; fixtures speak in minutes after it.
var Epoch = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

// At returns the instant min minutes after Epoch.
func At(min int64) time.Time {
	return domain.AddMinutes(Epoch, min)
}

// AtPtr is At returning a pointer.
func AtPtr(min int64) *time.Time {
	t := At(min)
	return &t
}

// Activity options
type ActivityOption func(*domain.Activity)

func WithDependency(predecessorID string, rel domain.RelationType, lagMin int64) ActivityOption {
	return func(a *domain.Activity) {
		a.Dependencies = append(a.Dependencies, domain.Dependency{PredecessorID: predecessorID, Type: rel, LagMin: lagMin})
	}
}

// After adds a zero-lag finish-to-start dependency on each predecessor.
func After(predecessorIDs ...string) ActivityOption {
	return func(a *domain.Activity) {
		for _, id := range predecessorIDs {
			a.Dependencies = append(a.Dependencies, domain.Dependency{PredecessorID: id, Type: domain.FinishToStart})
		}
	}
}

func WithLock(l domain.LockLevel) ActivityOption {
	return func(a *domain.Activity) { a.LockLevel = l }
}

func WithPriority(p int) ActivityOption {
	return func(a *domain.Activity) { a.Priority = p }
}

func WithState(s domain.ActivityState) ActivityOption {
	return func(a *domain.Activity) { a.State = s }
}

func WithPin(startMin int64) ActivityOption {
	return func(a *domain.Activity) { a.Pin = &domain.ReflowPin{Start: At(startMin), Reason: "test pin"} }
}

// WithActual records an observed start; endMin < 0 leaves the activity running.
func WithActual(startMin, endMin int64, progress int) ActivityOption {
	return func(a *domain.Activity) {
		a.Actual = &domain.Actual{Start: At(startMin), ProgressPct: progress}
		if endMin >= 0 {
			a.Actual.End = AtPtr(endMin)
		}
	}
}

func WithConstraint(kind domain.ConstraintKind, notBefore, notAfter *time.Time) ActivityOption {
	return func(a *domain.Activity) {
		a.Constraints = append(a.Constraints, domain.Constraint{Kind: kind, NotBefore: notBefore, NotAfter: notAfter})
	}
}

func WithResource(resourceID string, qty int) ActivityOption {
	return func(a *domain.Activity) {
		a.Resources = append(a.Resources, domain.ResourceAssignment{ResourceID: resourceID, Quantity: qty})
	}
}

func WithTrip(id string) ActivityOption {
	return func(a *domain.Activity) { a.TripID = id }
}

func WithTransportUnit(id string) ActivityOption {
	return func(a *domain.Activity) { a.TransportUnitID = id }
}

func WithLocation(id string) ActivityOption {
	return func(a *domain.Activity) { a.LocationID = id }
}

func WithHold(reason string) ActivityOption {
	return func(a *domain.Activity) { a.Hold = &domain.RiskHold{Reason: reason} }
}

func WithWorkDriven() ActivityOption {
	return func(a *domain.Activity) { a.DurationMode = domain.DurationWorkDriven }
}

// WithoutPlan clears the plan window, leaving only the duration.
func WithoutPlan() ActivityOption {
	return func(a *domain.Activity) { a.Plan = domain.Window{} }
}

// NewTestActivity builds a planned, unlocked activity occupying
// [startMin, startMin+durMin) minutes after Epoch.
func NewTestActivity(id string, startMin, durMin int64, opts ...ActivityOption) domain.Activity {
	a := domain.Activity{
		ID:           id,
		Name:         id,
		Type:         "transport",
		State:        domain.StatePlanned,
		LockLevel:    domain.LockNone,
		Plan:         domain.Window{Start: At(startMin), End: At(startMin + durMin)},
		DurationMin:  durMin,
		DurationMode: domain.DurationFixed,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// NewTestSnapshot wraps activities in a snapshot anchored at Epoch.
func NewTestSnapshot(activities ...domain.Activity) *domain.Snapshot {
	s := domain.NewSnapshot()
	s.Epoch = Epoch
	s.Version = 1
	for _, a := range activities {
		s.Activities[a.ID] = a
	}
	return s
}

// AddResource registers a resource available for the whole schedule.
func AddResource(s *domain.Snapshot, id string, capacity int) {
	s.Resources[id] = domain.Resource{ID: id, Name: id, Capacity: capacity}
}
