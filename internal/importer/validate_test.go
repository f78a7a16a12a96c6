package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptrStr(s string) *string { return &s }
func ptrInt(i int) *int       { return &i }

func validMinimalSchema() *SnapshotSchema {
	return &SnapshotSchema{
		Activities: []ActivityImport{
			{ID: "LOAD", PlanStart: ptrStr("2026-03-01T06:00:00Z"), DurationMin: 120},
		},
	}
}

func validFullSchema() *SnapshotSchema {
	return &SnapshotSchema{
		Epoch:    "2026-03-01T00:00:00Z",
		Defaults: &DefaultsImport{State: "ready", LockLevel: "soft"},
		Resources: []ResourceImport{
			{ID: "crane", Name: "SPMT crane", Capacity: 1},
			{ID: "tug", Capacity: 2, AvailableStart: ptrStr("2026-03-01T00:00:00Z"), AvailableEnd: ptrStr("2026-03-05T00:00:00Z")},
		},
		Trips:          []GroupImport{{ID: "TR1", Name: "Voyage 1"}},
		TransportUnits: []GroupImport{{ID: "TU1"}},
		Locations:      []GroupImport{{ID: "BAY-A", Exclusive: true}},
		Activities: []ActivityImport{
			{
				ID: "LOAD", TripID: "TR1", LocationID: "BAY-A", Priority: 2,
				PlanStart: ptrStr("2026-03-01T06:00:00Z"), PlanEnd: ptrStr("2026-03-01T08:00:00Z"), DurationMin: 120,
				Resources: []AssignmentImport{{ResourceID: "crane"}},
				Actual:    &ActualImport{Start: "2026-03-01T06:10:00Z", ProgressPct: 40},
			},
			{
				ID: "SAIL", TripID: "TR1", DurationMin: 600, DurationMode: "work_driven", LockLevel: "hard",
				Dependencies: []DependencyImport{{Predecessor: "LOAD", Type: "FS", LagMin: 30}},
				Constraints:  []ConstraintImport{{Kind: "start_window", NotBefore: ptrStr("2026-03-01T09:00:00Z")}},
				Resources:    []AssignmentImport{{ResourceID: "tug", Quantity: ptrInt(2)}},
				Pin:          &PinImport{Start: "2026-03-01T10:00:00Z", Reason: "tide"},
				RiskHold:     ptrStr("weather review"),
			},
		},
	}
}

func TestValidateSnapshotSchema_Valid(t *testing.T) {
	assert.Empty(t, ValidateSnapshotSchema(validMinimalSchema()))
	assert.Empty(t, ValidateSnapshotSchema(validFullSchema()))
}

func TestValidateSnapshotSchema_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *SnapshotSchema)
		want   string
	}{
		{"missing id", func(s *SnapshotSchema) { s.Activities[0].ID = "" }, "activities[0].id is required"},
		{"duplicate id", func(s *SnapshotSchema) { s.Activities[1].ID = "LOAD" }, `duplicate id "LOAD"`},
		{"bad state", func(s *SnapshotSchema) { s.Activities[0].State = "done" }, `state: invalid value "done"`},
		{"bad lock", func(s *SnapshotSchema) { s.Activities[0].LockLevel = "frozen" }, `lock_level: invalid value "frozen"`},
		{"bad default lock", func(s *SnapshotSchema) { s.Defaults.LockLevel = "frozen" }, "defaults.lock_level"},
		{"bad duration mode", func(s *SnapshotSchema) { s.Activities[1].DurationMode = "estimate" }, "duration_mode"},
		{"negative duration", func(s *SnapshotSchema) { s.Activities[0].DurationMin = -1 }, "duration_min must not be negative"},
		{"plan end before start", func(s *SnapshotSchema) { s.Activities[0].PlanEnd = ptrStr("2026-03-01T05:00:00Z") }, "precedes start"},
		{"bad time", func(s *SnapshotSchema) { s.Activities[0].PlanStart = ptrStr("2026-03-01 06:00") }, "expected RFC 3339"},
		{"progress out of range", func(s *SnapshotSchema) { s.Activities[0].Actual.ProgressPct = 120 }, "progress_pct"},
		{"unknown predecessor", func(s *SnapshotSchema) { s.Activities[1].Dependencies[0].Predecessor = "GHOST" }, `"GHOST" not found`},
		{"self dependency", func(s *SnapshotSchema) { s.Activities[1].Dependencies[0].Predecessor = "SAIL" }, "self-dependency"},
		{"bad relation", func(s *SnapshotSchema) { s.Activities[1].Dependencies[0].Type = "XX" }, `type: invalid value "XX"`},
		{"bad constraint kind", func(s *SnapshotSchema) { s.Activities[1].Constraints[0].Kind = "deadline" }, "kind: invalid value"},
		{"empty constraint", func(s *SnapshotSchema) { s.Activities[1].Constraints[0].NotBefore = nil }, "one of not_before or not_after"},
		{"unknown resource", func(s *SnapshotSchema) { s.Activities[0].Resources[0].ResourceID = "barge" }, `"barge" not found in resources`},
		{"zero quantity", func(s *SnapshotSchema) { s.Activities[1].Resources[0].Quantity = ptrInt(0) }, "quantity must be positive"},
		{"half assignment window", func(s *SnapshotSchema) { s.Activities[0].Resources[0].Start = ptrStr("2026-03-01T06:00:00Z") }, "start and end must be given together"},
		{"zero capacity", func(s *SnapshotSchema) { s.Resources[0].Capacity = 0 }, "capacity must be positive"},
		{"duplicate location", func(s *SnapshotSchema) { s.Locations = append(s.Locations, GroupImport{ID: "BAY-A"}) }, "locations[1].id"},
		{"bad epoch", func(s *SnapshotSchema) { s.Epoch = "yesterday" }, "epoch"},
		{"pin without start", func(s *SnapshotSchema) { s.Activities[1].Pin.Start = "" }, "pin.start is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validFullSchema()
			tt.mutate(s)
			errs := ValidateSnapshotSchema(s)
			if assert.NotEmpty(t, errs) {
				var msgs []string
				for _, e := range errs {
					msgs = append(msgs, e.Error())
				}
				assert.Contains(t, strings.Join(msgs, "\n"), tt.want)
			}
		})
	}
}

func TestValidateSnapshotSchema_CyclesAreNotErrors(t *testing.T) {
	s := &SnapshotSchema{Activities: []ActivityImport{
		{ID: "A", DurationMin: 10, Dependencies: []DependencyImport{{Predecessor: "B"}}},
		{ID: "B", DurationMin: 10, Dependencies: []DependencyImport{{Predecessor: "A"}}},
	}}
	assert.Empty(t, ValidateSnapshotSchema(s))
}

func TestValidateSnapshotSchema_CollectsAllErrors(t *testing.T) {
	s := &SnapshotSchema{Activities: []ActivityImport{
		{ID: "", DurationMin: -5, State: "bogus"},
	}}
	assert.Len(t, ValidateSnapshotSchema(s), 3)
}

func TestParseSnapshotSchema_RejectsUnknownFields(t *testing.T) {
	_, err := ParseSnapshotSchema(strings.NewReader(`{"activities": [], "projects": []}`))
	assert.Error(t, err)
}
