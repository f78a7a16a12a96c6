package importer

import (
	"sort"
	"time"

	"github.com/macho715/tr-dash/internal/domain"
)

// FromSnapshot renders a snapshot in the import format, ids sorted, with the
// derived timing attached. Convert(FromSnapshot(s)) reproduces s minus Calc.
func FromSnapshot(s *domain.Snapshot) *SnapshotSchema {
	out := &SnapshotSchema{Activities: make([]ActivityImport, 0, len(s.Activities))}
	if !s.Epoch.IsZero() {
		out.Epoch = formatTime(s.Epoch)
	}

	for _, id := range sortedIDs(s.Resources) {
		r := s.Resources[id]
		ri := ResourceImport{ID: r.ID, Name: r.Name, Capacity: r.Capacity}
		if r.Available != nil {
			ri.AvailableStart = formatTimePtr(r.Available.Start)
			ri.AvailableEnd = formatTimePtr(r.Available.End)
		}
		out.Resources = append(out.Resources, ri)
	}
	out.Trips = exportGroups(s.Trips)
	out.TransportUnits = exportGroups(s.TransportUnits)
	out.Locations = exportGroups(s.Locations)

	for _, id := range s.ActivityIDs() {
		a := s.Activities[id]
		ai := ActivityImport{
			ID:              a.ID,
			Name:            a.Name,
			Type:            a.Type,
			TripID:          a.TripID,
			TransportUnitID: a.TransportUnitID,
			LocationID:      a.LocationID,
			State:           string(a.State),
			LockLevel:       string(a.LockLevel),
			Priority:        a.Priority,
			PlanStart:       formatTimePtr(a.Plan.Start),
			PlanEnd:         formatTimePtr(a.Plan.End),
			DurationMin:     a.DurationMin,
			DurationMode:    string(a.DurationMode),
		}
		if a.Actual != nil {
			ai.Actual = &ActualImport{Start: formatTime(a.Actual.Start), ProgressPct: a.Actual.ProgressPct}
			if a.Actual.End != nil {
				ai.Actual.End = formatTimePtr(*a.Actual.End)
			}
		}
		for _, d := range a.Dependencies {
			ai.Dependencies = append(ai.Dependencies, DependencyImport{Predecessor: d.PredecessorID, Type: string(d.Type), LagMin: d.LagMin})
		}
		for _, c := range a.Constraints {
			ci := ConstraintImport{Kind: string(c.Kind)}
			if c.NotBefore != nil {
				ci.NotBefore = formatTimePtr(*c.NotBefore)
			}
			if c.NotAfter != nil {
				ci.NotAfter = formatTimePtr(*c.NotAfter)
			}
			ai.Constraints = append(ai.Constraints, ci)
		}
		for _, r := range a.Resources {
			q := r.Quantity
			assignment := AssignmentImport{ResourceID: r.ResourceID, Quantity: &q}
			if r.Window != nil {
				assignment.Start = formatTimePtr(r.Window.Start)
				assignment.End = formatTimePtr(r.Window.End)
			}
			ai.Resources = append(ai.Resources, assignment)
		}
		if a.Pin != nil {
			ai.Pin = &PinImport{Start: formatTime(a.Pin.Start), Reason: a.Pin.Reason}
		}
		if a.Hold != nil {
			reason := a.Hold.Reason
			ai.RiskHold = &reason
		}
		if !a.Calc.ES.IsZero() {
			ai.Calc = &TimingExport{
				ES:            formatTime(a.Calc.ES),
				EF:            formatTime(a.Calc.EF),
				LS:            formatTime(a.Calc.LS),
				LF:            formatTime(a.Calc.LF),
				TotalFloatMin: a.Calc.TotalFloatMin,
				FreeFloatMin:  a.Calc.FreeFloatMin,
				Critical:      a.Calc.Critical(),
			}
		}
		out.Activities = append(out.Activities, ai)
	}
	return out
}

func exportGroups(m map[string]domain.Group) []GroupImport {
	var out []GroupImport
	for _, id := range sortedIDs(m) {
		g := m[id]
		out = append(out, GroupImport{ID: g.ID, Name: g.Name, Exclusive: g.Exclusive})
	}
	return out
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func formatTimePtr(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := formatTime(t)
	return &s
}
