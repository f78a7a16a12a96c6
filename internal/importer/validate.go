package importer

import (
	"fmt"
	"time"

	"github.com/macho715/tr-dash/internal/domain"
)

// TimeLayout is the wire format of every timestamp in a schedule file.
const TimeLayout = time.RFC3339

var validDurationModes = map[string]bool{"fixed": true, "work_driven": true}

// ValidateSnapshotSchema checks the schema for errors before conversion and
// returns all of them. Dependency cycles are not errors here: they are
// reported as collisions once the schedule is loaded.
func ValidateSnapshotSchema(schema *SnapshotSchema) []error {
	var errs []error

	errs = append(errs, validateOptionalTime("epoch", strPtr(schema.Epoch))...)
	errs = append(errs, validateDefaults(schema.Defaults)...)

	resources := make(map[string]bool)
	errs = append(errs, validateResources(schema.Resources, resources)...)
	errs = append(errs, validateGroups("trips", schema.Trips)...)
	errs = append(errs, validateGroups("transport_units", schema.TransportUnits)...)
	errs = append(errs, validateGroups("locations", schema.Locations)...)

	ids := make(map[string]bool)
	for i, a := range schema.Activities {
		prefix := fmt.Sprintf("activities[%d]", i)
		if a.ID == "" {
			errs = append(errs, fmt.Errorf("%s.id is required", prefix))
		} else if ids[a.ID] {
			errs = append(errs, fmt.Errorf("%s.id: duplicate id %q", prefix, a.ID))
		} else {
			ids[a.ID] = true
		}
	}
	for i, a := range schema.Activities {
		errs = append(errs, validateActivity(fmt.Sprintf("activities[%d]", i), a, ids, resources)...)
	}
	return errs
}

func validateDefaults(d *DefaultsImport) []error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.State != "" && !domain.ActivityState(d.State).Valid() {
		errs = append(errs, fmt.Errorf("defaults.state: invalid value %q", d.State))
	}
	if d.LockLevel != "" && !domain.LockLevel(d.LockLevel).Valid() {
		errs = append(errs, fmt.Errorf("defaults.lock_level: invalid value %q", d.LockLevel))
	}
	if d.DurationMode != "" && !validDurationModes[d.DurationMode] {
		errs = append(errs, fmt.Errorf("defaults.duration_mode: invalid value %q", d.DurationMode))
	}
	return errs
}

func validateResources(rs []ResourceImport, seen map[string]bool) []error {
	var errs []error
	for i, r := range rs {
		prefix := fmt.Sprintf("resources[%d]", i)
		if r.ID == "" {
			errs = append(errs, fmt.Errorf("%s.id is required", prefix))
		} else if seen[r.ID] {
			errs = append(errs, fmt.Errorf("%s.id: duplicate id %q", prefix, r.ID))
		} else {
			seen[r.ID] = true
		}
		if r.Capacity <= 0 {
			errs = append(errs, fmt.Errorf("%s.capacity must be positive", prefix))
		}
		errs = append(errs, validateRange(prefix+".available", r.AvailableStart, r.AvailableEnd)...)
	}
	return errs
}

func validateGroups(field string, gs []GroupImport) []error {
	var errs []error
	seen := make(map[string]bool)
	for i, g := range gs {
		prefix := fmt.Sprintf("%s[%d]", field, i)
		if g.ID == "" {
			errs = append(errs, fmt.Errorf("%s.id is required", prefix))
		} else if seen[g.ID] {
			errs = append(errs, fmt.Errorf("%s.id: duplicate id %q", prefix, g.ID))
		} else {
			seen[g.ID] = true
		}
	}
	return errs
}

func validateActivity(prefix string, a ActivityImport, ids, resources map[string]bool) []error {
	var errs []error

	if a.State != "" && !domain.ActivityState(a.State).Valid() {
		errs = append(errs, fmt.Errorf("%s.state: invalid value %q", prefix, a.State))
	}
	if a.LockLevel != "" && !domain.LockLevel(a.LockLevel).Valid() {
		errs = append(errs, fmt.Errorf("%s.lock_level: invalid value %q", prefix, a.LockLevel))
	}
	if a.DurationMode != "" && !validDurationModes[a.DurationMode] {
		errs = append(errs, fmt.Errorf("%s.duration_mode: invalid value %q", prefix, a.DurationMode))
	}
	if a.DurationMin < 0 {
		errs = append(errs, fmt.Errorf("%s.duration_min must not be negative", prefix))
	}
	errs = append(errs, validateRange(prefix+".plan", a.PlanStart, a.PlanEnd)...)

	if a.Actual != nil {
		if a.Actual.Start == "" {
			errs = append(errs, fmt.Errorf("%s.actual.start is required", prefix))
		} else {
			errs = append(errs, validateRange(prefix+".actual", &a.Actual.Start, a.Actual.End)...)
		}
		if a.Actual.ProgressPct < 0 || a.Actual.ProgressPct > 100 {
			errs = append(errs, fmt.Errorf("%s.actual.progress_pct must be within 0..100", prefix))
		}
	}

	for j, d := range a.Dependencies {
		dp := fmt.Sprintf("%s.dependencies[%d]", prefix, j)
		switch {
		case d.Predecessor == "":
			errs = append(errs, fmt.Errorf("%s.predecessor is required", dp))
		case d.Predecessor == a.ID:
			errs = append(errs, fmt.Errorf("%s: self-dependency on %q", dp, a.ID))
		case !ids[d.Predecessor]:
			errs = append(errs, fmt.Errorf("%s.predecessor: id %q not found in activities", dp, d.Predecessor))
		}
		if d.Type != "" && !domain.RelationType(d.Type).Valid() {
			errs = append(errs, fmt.Errorf("%s.type: invalid value %q", dp, d.Type))
		}
	}

	for j, c := range a.Constraints {
		cp := fmt.Sprintf("%s.constraints[%d]", prefix, j)
		if !domain.ConstraintKind(c.Kind).Valid() {
			errs = append(errs, fmt.Errorf("%s.kind: invalid value %q", cp, c.Kind))
		}
		if c.NotBefore == nil && c.NotAfter == nil {
			errs = append(errs, fmt.Errorf("%s: one of not_before or not_after is required", cp))
		}
		errs = append(errs, validateRange(cp, c.NotBefore, c.NotAfter)...)
	}

	for j, r := range a.Resources {
		rp := fmt.Sprintf("%s.resources[%d]", prefix, j)
		if r.ResourceID == "" {
			errs = append(errs, fmt.Errorf("%s.resource_id is required", rp))
		} else if !resources[r.ResourceID] {
			errs = append(errs, fmt.Errorf("%s.resource_id: id %q not found in resources", rp, r.ResourceID))
		}
		if r.Quantity != nil && *r.Quantity <= 0 {
			errs = append(errs, fmt.Errorf("%s.quantity must be positive", rp))
		}
		if (r.Start == nil) != (r.End == nil) {
			errs = append(errs, fmt.Errorf("%s: start and end must be given together", rp))
		}
		errs = append(errs, validateRange(rp, r.Start, r.End)...)
	}

	if a.Pin != nil {
		errs = append(errs, validateOptionalTime(prefix+".pin.start", &a.Pin.Start)...)
		if a.Pin.Start == "" {
			errs = append(errs, fmt.Errorf("%s.pin.start is required", prefix))
		}
	}
	return errs
}

// validateRange checks both bounds parse and that end does not precede start.
func validateRange(field string, start, end *string) []error {
	errs := validateOptionalTime(field+".start", start)
	errs = append(errs, validateOptionalTime(field+".end", end)...)
	if len(errs) > 0 || start == nil || end == nil || *start == "" || *end == "" {
		return errs
	}
	s, _ := time.Parse(TimeLayout, *start)
	e, _ := time.Parse(TimeLayout, *end)
	if e.Before(s) {
		errs = append(errs, fmt.Errorf("%s: end %q precedes start %q", field, *end, *start))
	}
	return errs
}

func validateOptionalTime(field string, s *string) []error {
	if s == nil || *s == "" {
		return nil
	}
	if _, err := time.Parse(TimeLayout, *s); err != nil {
		return []error{fmt.Errorf("%s: invalid time %q (expected RFC 3339)", field, *s)}
	}
	return nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
