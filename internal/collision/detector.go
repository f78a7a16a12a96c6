// Package collision runs the post-reflow consistency checks over a snapshot.
// Every check is a pure function of the snapshot; all findings are collected,
// never short-circuited.
package collision

import (
	"fmt"
	"sort"
	"time"

	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/scheduler"
)

// Options selects the optional checks.
type Options struct {
	// Baseline, when set, adds baseline_conflict collisions.
	Baseline        *domain.Baseline
	BaselineOptions BaselineOptions
}

// Check is one independent collision check.
type Check func(s *domain.Snapshot) []domain.Collision

// Checks lists the snapshot checks in presentation order.
var Checks = []Check{
	DependencyViolations,
	ConstraintViolations,
	ResourceOverallocations,
	ResourceUnavailability,
	SpatialConflicts,
	IncompleteData,
	RiskHolds,
}

// Detect runs every check and returns the sorted union of their findings.
func Detect(s *domain.Snapshot, opts Options) []domain.Collision {
	var out []domain.Collision
	for _, check := range Checks {
		out = append(out, check(s)...)
	}
	if opts.Baseline != nil {
		out = append(out, CompareBaseline(opts.Baseline, s, opts.BaselineOptions)...)
	}
	domain.SortCollisions(out)
	return out
}

// Merge unions collision sets. Findings that name the same kind, activities,
// resources and window are kept once, first set first.
func Merge(sets ...[]domain.Collision) []domain.Collision {
	seen := make(map[string]bool)
	var out []domain.Collision
	for _, set := range sets {
		for _, c := range set {
			k := mergeKey(c)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, c)
		}
	}
	domain.SortCollisions(out)
	return out
}

func mergeKey(c domain.Collision) string {
	k := fmt.Sprintf("%s|%v|%v", c.Kind, c.ActivityIDs, c.ResourceIDs)
	if c.Window != nil {
		k += "|" + c.Window.Start.UTC().Format(time.RFC3339) + "/" + c.Window.End.UTC().Format(time.RFC3339)
	}
	return k
}

// Summary counts collisions per kind.
func Summary(cs []domain.Collision) map[domain.CollisionKind]int {
	out := make(map[domain.CollisionKind]int)
	for _, c := range cs {
		out[c.Kind]++
	}
	return out
}

// live returns the activities that still hold time, in id order.
func live(s *domain.Snapshot) []domain.Activity {
	var out []domain.Activity
	for _, id := range s.ActivityIDs() {
		a := s.Activities[id]
		if a.State.Live() {
			out = append(out, a)
		}
	}
	return out
}

// DependencyViolations reports edges whose successor starts (or finishes)
// before its predecessor allows.
func DependencyViolations(s *domain.Snapshot) []domain.Collision {
	var out []domain.Collision
	for _, a := range live(s) {
		sw, ok := a.OccupiedWindow()
		if !ok {
			continue
		}
		for _, d := range a.Dependencies {
			pred, found := s.Activities[d.PredecessorID]
			if !found || !pred.State.Live() {
				continue
			}
			pw, ok := pred.OccupiedWindow()
			if !ok {
				continue
			}
			implied, actual := impliedBound(d, pw), sw.Start
			if d.Type == domain.FinishToFinish || d.Type == domain.StartToFinish {
				actual = sw.End
			}
			if !actual.Before(implied) {
				continue
			}
			gap := domain.Minutes(implied.Sub(actual))
			out = append(out, domain.NewCollision(
				domain.CollisionDependencyViolation,
				domain.SeverityMajor,
				[]string{pred.ID, a.ID},
				fmt.Sprintf("%s violates %s%+d on %s by %dm", a.ID, d.Type, d.LagMin, pred.ID, gap),
			).WithWindow(sw))
		}
	}
	return out
}

// impliedBound is the earliest successor start (FS, SS) or finish (FF, SF)
// the dependency allows.
func impliedBound(d domain.Dependency, pred domain.Window) time.Time {
	switch d.Type {
	case domain.StartToStart, domain.StartToFinish:
		return domain.AddMinutes(pred.Start, d.LagMin)
	default:
		return domain.AddMinutes(pred.End, d.LagMin)
	}
}

// ConstraintViolations reports plan windows outside a declared constraint.
// Violations on fixed activities are blocking since reflow cannot fix them.
func ConstraintViolations(s *domain.Snapshot) []domain.Collision {
	var out []domain.Collision
	for _, a := range live(s) {
		w, ok := a.OccupiedWindow()
		if !ok {
			continue
		}
		sev := domain.SeverityMajor
		if a.Fixed() {
			sev = domain.SeverityBlocking
		}
		for _, c := range a.Constraints {
			if c.Admits(w) {
				continue
			}
			out = append(out, domain.NewCollision(
				domain.CollisionConstraintWindow,
				sev,
				[]string{a.ID},
				fmt.Sprintf("%s window %s outside %s %s", a.ID, formatWindow(w), c.Kind, formatBounds(c)),
			).WithWindow(w))
		}
	}
	return out
}

// ResourceUnavailability reports assignments that fall outside the resource's
// availability window.
func ResourceUnavailability(s *domain.Snapshot) []domain.Collision {
	var out []domain.Collision
	for _, a := range live(s) {
		for _, ra := range a.Resources {
			r, ok := s.Resources[ra.ResourceID]
			if !ok || r.Available == nil {
				continue
			}
			w, ok := assignmentWindow(&a, ra)
			if !ok || w.Within(*r.Available) {
				continue
			}
			out = append(out, domain.NewCollision(
				domain.CollisionResourceUnavailable,
				domain.SeverityMajor,
				[]string{a.ID},
				fmt.Sprintf("%s needs %s during %s, available %s", a.ID, r.ID, formatWindow(w), formatWindow(*r.Available)),
			).WithResources(r.ID).WithWindow(w))
		}
	}
	return out
}

// SpatialConflicts reports overlapping activities inside an exclusive trip,
// transport unit or location.
func SpatialConflicts(s *domain.Snapshot) []domain.Collision {
	scopes := []struct {
		name   string
		groups map[string]domain.Group
		key    func(*domain.Activity) string
	}{
		{"trip", s.Trips, func(a *domain.Activity) string { return a.TripID }},
		{"transport unit", s.TransportUnits, func(a *domain.Activity) string { return a.TransportUnitID }},
		{"location", s.Locations, func(a *domain.Activity) string { return a.LocationID }},
	}

	var out []domain.Collision
	for _, scope := range scopes {
		members := make(map[string][]placed)
		for _, a := range live(s) {
			key := scope.key(&a)
			if g, ok := scope.groups[key]; !ok || !g.Exclusive {
				continue
			}
			if w, ok := a.OccupiedWindow(); ok {
				members[key] = append(members[key], placed{id: a.ID, w: w})
			}
		}
		keys := make([]string, 0, len(members))
		for k := range members {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			for _, pair := range overlappingPairs(members[key]) {
				x, y := pair[0], pair[1]
				overlap := domain.Window{Start: later(x.w.Start, y.w.Start), End: earlier(x.w.End, y.w.End)}
				out = append(out, domain.NewCollision(
					domain.CollisionSpatialConflict,
					domain.SeverityMajor,
					[]string{x.id, y.id},
					fmt.Sprintf("%s and %s overlap in exclusive %s %s", x.id, y.id, scope.name, key),
				).WithWindow(overlap))
			}
		}
	}
	return out
}

// IncompleteData reports activities missing the timestamps or references the
// other checks need.
func IncompleteData(s *domain.Snapshot) []domain.Collision {
	var out []domain.Collision
	report := func(a *domain.Activity, msg string) {
		out = append(out, domain.NewCollision(domain.CollisionDataIncomplete, domain.SeverityMajor, []string{a.ID}, a.ID+": "+msg))
	}
	for _, a := range live(s) {
		if a.Plan.Start.IsZero() && !a.Started() {
			report(&a, "no plan start")
		}
		if a.DurationMin < 0 {
			report(&a, fmt.Sprintf("negative duration %dm", a.DurationMin))
		}
		if a.Actual != nil && a.Actual.End != nil {
			switch {
			case a.Actual.Start.IsZero():
				report(&a, "actual end without actual start")
			case a.Actual.End.Before(a.Actual.Start):
				report(&a, "actual end before actual start")
			}
		}
		for _, d := range a.Dependencies {
			if _, ok := s.Activities[d.PredecessorID]; !ok {
				report(&a, fmt.Sprintf("predecessor %q not found", d.PredecessorID))
			}
		}
		for _, ra := range a.Resources {
			if _, ok := s.Resources[ra.ResourceID]; !ok {
				report(&a, fmt.Sprintf("resource %q not found", ra.ResourceID))
			}
		}
	}
	return out
}

// RiskHolds surfaces manual risk holds. Holds are advisory: they neither block
// reflow nor change the severity of other findings.
func RiskHolds(s *domain.Snapshot) []domain.Collision {
	var out []domain.Collision
	for _, a := range live(s) {
		if a.Hold == nil {
			continue
		}
		out = append(out, domain.NewCollision(
			domain.CollisionRiskHold,
			domain.SeverityMinor,
			[]string{a.ID},
			fmt.Sprintf("%s on risk hold: %s", a.ID, a.Hold.Reason),
		))
	}
	return out
}

// tieBreakIDs orders implicated activities the way reflow would rank them.
func tieBreakIDs(s *domain.Snapshot, ids []string) []string {
	acts := make([]*domain.Activity, 0, len(ids))
	for _, id := range ids {
		a := s.Activities[id]
		acts = append(acts, &a)
	}
	return scheduler.TieBreakOrder(acts)
}
