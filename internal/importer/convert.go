package importer

import (
	"fmt"
	"time"

	"github.com/macho715/tr-dash/internal/domain"
)

// Convert transforms a validated SnapshotSchema into a snapshot ready for
// persistence. Call ValidateSnapshotSchema first; Convert assumes the schema
// is valid. Calc timing is left zero for the next reflow to fill in.
func Convert(schema *SnapshotSchema) (*domain.Snapshot, error) {
	snap := domain.NewSnapshot()
	if schema.Epoch != "" {
		epoch, err := time.Parse(TimeLayout, schema.Epoch)
		if err != nil {
			return nil, fmt.Errorf("parsing epoch: %w", err)
		}
		snap.Epoch = epoch.UTC()
	}

	for _, r := range schema.Resources {
		res := domain.Resource{ID: r.ID, Name: r.Name, Capacity: r.Capacity}
		if r.AvailableStart != nil || r.AvailableEnd != nil {
			w := domain.Window{Start: parseOptionalTime(r.AvailableStart), End: parseOptionalTime(r.AvailableEnd)}
			res.Available = &w
		}
		snap.Resources[r.ID] = res
	}
	addGroups(snap.Trips, schema.Trips)
	addGroups(snap.TransportUnits, schema.TransportUnits)
	addGroups(snap.Locations, schema.Locations)

	defaults := schema.Defaults
	if defaults == nil {
		defaults = &DefaultsImport{}
	}

	for _, ai := range schema.Activities {
		// Activity field > file defaults > hardcoded.
		a := domain.Activity{
			ID:              ai.ID,
			Name:            ai.Name,
			Type:            ai.Type,
			TripID:          ai.TripID,
			TransportUnitID: ai.TransportUnitID,
			LocationID:      ai.LocationID,
			State:           domain.ActivityState(domain.CoalesceStr(ai.State, defaults.State, string(domain.StatePlanned))),
			LockLevel:       domain.LockLevel(domain.CoalesceStr(ai.LockLevel, defaults.LockLevel, string(domain.LockNone))),
			Priority:        ai.Priority,
			DurationMin:     ai.DurationMin,
			DurationMode:    domain.DurationMode(domain.CoalesceStr(ai.DurationMode, defaults.DurationMode, string(domain.DurationFixed))),
			Plan: domain.Window{
				Start: parseOptionalTime(ai.PlanStart),
				End:   parseOptionalTime(ai.PlanEnd),
			},
		}
		if a.DurationMin == 0 && !a.Plan.Start.IsZero() && !a.Plan.End.IsZero() {
			a.DurationMin = domain.Minutes(a.Plan.End.Sub(a.Plan.Start))
		}

		if ai.Actual != nil {
			a.Actual = &domain.Actual{
				Start:       parseOptionalTime(&ai.Actual.Start),
				ProgressPct: ai.Actual.ProgressPct,
			}
			if ai.Actual.End != nil {
				end := parseOptionalTime(ai.Actual.End)
				a.Actual.End = &end
			}
		}

		for _, d := range ai.Dependencies {
			a.Dependencies = append(a.Dependencies, domain.Dependency{
				PredecessorID: d.Predecessor,
				Type:          domain.RelationType(domain.CoalesceStr(d.Type, string(domain.FinishToStart))),
				LagMin:        d.LagMin,
			})
		}
		for _, c := range ai.Constraints {
			a.Constraints = append(a.Constraints, domain.Constraint{
				Kind:      domain.ConstraintKind(c.Kind),
				NotBefore: parseOptionalTimePtr(c.NotBefore),
				NotAfter:  parseOptionalTimePtr(c.NotAfter),
			})
		}
		for _, r := range ai.Resources {
			ra := domain.ResourceAssignment{
				ResourceID: r.ResourceID,
				Quantity:   domain.IntFromPtrWithDefault(1, r.Quantity),
			}
			if r.Start != nil && r.End != nil {
				ra.Window = &domain.Window{Start: parseOptionalTime(r.Start), End: parseOptionalTime(r.End)}
			}
			a.Resources = append(a.Resources, ra)
		}
		if ai.Pin != nil {
			a.Pin = &domain.ReflowPin{Start: parseOptionalTime(&ai.Pin.Start), Reason: ai.Pin.Reason}
		}
		if ai.RiskHold != nil {
			a.Hold = &domain.RiskHold{Reason: *ai.RiskHold}
		}

		if _, dup := snap.Activities[a.ID]; dup {
			return nil, fmt.Errorf("duplicate activity id %q", a.ID)
		}
		snap.Activities[a.ID] = a
	}
	return snap, nil
}

func addGroups(dst map[string]domain.Group, src []GroupImport) {
	for _, g := range src {
		dst[g.ID] = domain.Group{ID: g.ID, Name: g.Name, Exclusive: g.Exclusive}
	}
}

func parseOptionalTime(s *string) time.Time {
	if s == nil || *s == "" {
		return time.Time{}
	}
	t, err := time.Parse(TimeLayout, *s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func parseOptionalTimePtr(s *string) *time.Time {
	t := parseOptionalTime(s)
	if t.IsZero() {
		return nil
	}
	return &t
}
