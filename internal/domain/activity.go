package domain

import "time"

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the window has no start.
func (w Window) IsZero() bool {
	return w.Start.IsZero()
}

// Overlaps reports whether two half-open windows share any instant.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Within reports whether w lies entirely inside o.
func (w Window) Within(o Window) bool {
	return !w.Start.Before(o.Start) && !w.End.After(o.End)
}

func (w Window) Equal(o Window) bool {
	return w.Start.Equal(o.Start) && w.End.Equal(o.End)
}

// Minutes converts a duration to whole minutes, truncating toward zero.
func Minutes(d time.Duration) int64 {
	return int64(d / time.Minute)
}

// AddMinutes offsets t by n minutes.
func AddMinutes(t time.Time, n int64) time.Time {
	return t.Add(time.Duration(n) * time.Minute)
}

type Dependency struct {
	PredecessorID string
	Type          RelationType
	LagMin        int64
}

type Constraint struct {
	Kind      ConstraintKind
	NotBefore *time.Time
	NotAfter  *time.Time
}

// Admits reports whether the plan window w satisfies the constraint.
func (c Constraint) Admits(w Window) bool {
	var lo, hi time.Time
	switch c.Kind {
	case ConstraintStartWindow:
		lo, hi = w.Start, w.Start
	case ConstraintFinishWindow:
		lo, hi = w.End, w.End
	case ConstraintActivityWindow:
		lo, hi = w.Start, w.End
	default:
		return true
	}
	if c.NotBefore != nil && lo.Before(*c.NotBefore) {
		return false
	}
	if c.NotAfter != nil && hi.After(*c.NotAfter) {
		return false
	}
	return true
}

type ResourceAssignment struct {
	ResourceID string
	Quantity   int
	// Window overrides the activity window when the resource is only needed
	// for part of the activity.
	Window *Window
}

type Actual struct {
	Start       time.Time
	End         *time.Time
	ProgressPct int
}

// ReflowPin is an operator-supplied placement that overrides computed timing.
type ReflowPin struct {
	Start  time.Time
	Reason string
}

// RiskHold marks an activity as manually held for risk review.
type RiskHold struct {
	Reason string
}

// Timing holds the derived critical-path values. Never edited by hand.
type Timing struct {
	ES            time.Time
	EF            time.Time
	LS            time.Time
	LF            time.Time
	TotalFloatMin int64
	FreeFloatMin  int64
}

// Critical reports whether the activity has no total float.
func (t Timing) Critical() bool {
	return t.TotalFloatMin <= 0
}

type Activity struct {
	ID              string
	Name            string
	Type            string
	TripID          string
	TransportUnitID string
	LocationID      string

	State     ActivityState
	LockLevel LockLevel
	Priority  int

	Plan         Window
	DurationMin  int64
	DurationMode DurationMode

	Actual *Actual
	Calc   Timing

	Dependencies []Dependency
	Constraints  []Constraint
	Resources    []ResourceAssignment

	Pin  *ReflowPin
	Hold *RiskHold
}

func (a *Activity) Duration() time.Duration {
	return time.Duration(a.DurationMin) * time.Minute
}

// NominalDuration is the planned duration, taken from the plan window when no
// explicit duration is stored. Negative values count as zero.
func (a *Activity) NominalDuration() time.Duration {
	if a.DurationMin > 0 {
		return a.Duration()
	}
	if !a.Plan.Start.IsZero() && a.Plan.End.After(a.Plan.Start) {
		return a.Plan.End.Sub(a.Plan.Start)
	}
	return 0
}

// Started reports whether work on the activity has been observed.
func (a *Activity) Started() bool {
	return a.Actual != nil && !a.Actual.Start.IsZero()
}

// FixedReason returns why reflow may not move the activity, or "" when it is movable.
func (a *Activity) FixedReason() string {
	switch {
	case a.State.Frozen():
		return "state:" + string(a.State)
	case a.LockLevel.Fixes():
		return "lock:" + string(a.LockLevel)
	case a.Pin != nil:
		return "pin"
	}
	return ""
}

// Fixed reports whether reflow must keep the activity where it is.
func (a *Activity) Fixed() bool {
	return a.FixedReason() != ""
}

// PlanEnd returns the plan end, deriving it from duration when unset.
func (a *Activity) PlanEnd() time.Time {
	if !a.Plan.End.IsZero() {
		return a.Plan.End
	}
	return a.Plan.Start.Add(a.Duration())
}

// OccupiedWindow is the window the activity really holds: the actual window
// once work began, the plan window otherwise. ok is false when neither has a start.
func (a *Activity) OccupiedWindow() (w Window, ok bool) {
	if a.Started() {
		w.Start = a.Actual.Start
		if a.Actual.End != nil {
			w.End = *a.Actual.End
		} else {
			w.End = w.Start.Add(a.NominalDuration())
		}
		return w, true
	}
	if a.Plan.Start.IsZero() {
		return Window{}, false
	}
	return Window{Start: a.Plan.Start, End: a.PlanEnd()}, true
}

// Clone returns a deep copy of the activity.
func (a Activity) Clone() Activity {
	out := a
	if a.Actual != nil {
		act := *a.Actual
		if a.Actual.End != nil {
			end := *a.Actual.End
			act.End = &end
		}
		out.Actual = &act
	}
	if a.Pin != nil {
		pin := *a.Pin
		out.Pin = &pin
	}
	if a.Hold != nil {
		hold := *a.Hold
		out.Hold = &hold
	}
	if a.Dependencies != nil {
		out.Dependencies = append([]Dependency(nil), a.Dependencies...)
	}
	if a.Constraints != nil {
		out.Constraints = make([]Constraint, len(a.Constraints))
		for i, c := range a.Constraints {
			out.Constraints[i] = Constraint{Kind: c.Kind, NotBefore: cloneTime(c.NotBefore), NotAfter: cloneTime(c.NotAfter)}
		}
	}
	if a.Resources != nil {
		out.Resources = make([]ResourceAssignment, len(a.Resources))
		for i, r := range a.Resources {
			out.Resources[i] = r
			if r.Window != nil {
				w := *r.Window
				out.Resources[i].Window = &w
			}
		}
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
