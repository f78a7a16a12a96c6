package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// SnapshotSchema is the top-level JSON structure for schedule import and export.
type SnapshotSchema struct {
	Epoch          string           `json:"epoch,omitempty"`
	Defaults       *DefaultsImport  `json:"defaults,omitempty"`
	Resources      []ResourceImport `json:"resources,omitempty"`
	Trips          []GroupImport    `json:"trips,omitempty"`
	TransportUnits []GroupImport    `json:"transport_units,omitempty"`
	Locations      []GroupImport    `json:"locations,omitempty"`
	Activities     []ActivityImport `json:"activities"`
}

// DefaultsImport defines file-wide defaults that cascade to activities.
type DefaultsImport struct {
	State        string `json:"state,omitempty"`
	LockLevel    string `json:"lock_level,omitempty"`
	DurationMode string `json:"duration_mode,omitempty"`
}

type ResourceImport struct {
	ID             string  `json:"id"`
	Name           string  `json:"name,omitempty"`
	Capacity       int     `json:"capacity"`
	AvailableStart *string `json:"available_start,omitempty"`
	AvailableEnd   *string `json:"available_end,omitempty"`
}

// GroupImport defines a trip, transport unit or location.
type GroupImport struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Exclusive bool   `json:"exclusive,omitempty"`
}

type ActivityImport struct {
	ID              string `json:"id"`
	Name            string `json:"name,omitempty"`
	Type            string `json:"type,omitempty"`
	TripID          string `json:"trip_id,omitempty"`
	TransportUnitID string `json:"transport_unit_id,omitempty"`
	LocationID      string `json:"location_id,omitempty"`
	State           string `json:"state,omitempty"`
	LockLevel       string `json:"lock_level,omitempty"`
	Priority        int    `json:"priority,omitempty"`

	PlanStart    *string `json:"plan_start,omitempty"`
	PlanEnd      *string `json:"plan_end,omitempty"`
	DurationMin  int64   `json:"duration_min"`
	DurationMode string  `json:"duration_mode,omitempty"`

	Actual *ActualImport `json:"actual,omitempty"`

	Dependencies []DependencyImport `json:"dependencies,omitempty"`
	Constraints  []ConstraintImport `json:"constraints,omitempty"`
	Resources    []AssignmentImport `json:"resources,omitempty"`

	Pin      *PinImport `json:"pin,omitempty"`
	RiskHold *string    `json:"risk_hold,omitempty"`

	// Calc is written on export only; import ignores it and recomputes.
	Calc *TimingExport `json:"calc,omitempty"`
}

type ActualImport struct {
	Start       string  `json:"start"`
	End         *string `json:"end,omitempty"`
	ProgressPct int     `json:"progress_pct,omitempty"`
}

type DependencyImport struct {
	Predecessor string `json:"predecessor"`
	Type        string `json:"type,omitempty"`
	LagMin      int64  `json:"lag_min,omitempty"`
}

type ConstraintImport struct {
	Kind      string  `json:"kind"`
	NotBefore *string `json:"not_before,omitempty"`
	NotAfter  *string `json:"not_after,omitempty"`
}

type AssignmentImport struct {
	ResourceID string  `json:"resource_id"`
	Quantity   *int    `json:"quantity,omitempty"`
	Start      *string `json:"start,omitempty"`
	End        *string `json:"end,omitempty"`
}

type PinImport struct {
	Start  string `json:"start"`
	Reason string `json:"reason,omitempty"`
}

type TimingExport struct {
	ES            string `json:"es"`
	EF            string `json:"ef"`
	LS            string `json:"ls"`
	LF            string `json:"lf"`
	TotalFloatMin int64  `json:"total_float_min"`
	FreeFloatMin  int64  `json:"free_float_min"`
	Critical      bool   `json:"critical"`
}

// LoadSnapshotSchema reads and parses a schedule JSON file.
func LoadSnapshotSchema(path string) (*SnapshotSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSnapshotSchema(f)
}

// ParseSnapshotSchema decodes a schedule document. Unknown fields are rejected.
func ParseSnapshotSchema(r io.Reader) (*SnapshotSchema, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var schema SnapshotSchema
	if err := dec.Decode(&schema); err != nil {
		return nil, fmt.Errorf("parsing schedule file: %w", err)
	}
	return &schema, nil
}
