package domain

import (
	"sort"
	"time"
)

type Resource struct {
	ID       string
	Name     string
	Capacity int
	// Available is the window the resource can be used in; nil means always.
	Available *Window
}

// Group is a trip, transport unit or location. Exclusive groups cannot host
// two overlapping activities.
type Group struct {
	ID        string
	Name      string
	Exclusive bool
}

// Snapshot is a versioned, self-contained copy of the schedule. Runs operate
// on clones; only a compare-and-swap on Version replaces the live copy.
type Snapshot struct {
	Version        int64
	Epoch          time.Time
	Activities     map[string]Activity
	Resources      map[string]Resource
	Trips          map[string]Group
	TransportUnits map[string]Group
	Locations      map[string]Group
}

// NewSnapshot returns an empty snapshot with all maps allocated.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Activities:     make(map[string]Activity),
		Resources:      make(map[string]Resource),
		Trips:          make(map[string]Group),
		TransportUnits: make(map[string]Group),
		Locations:      make(map[string]Group),
	}
}

// Clone returns a deep copy sharing no mutable state with s.
func (s *Snapshot) Clone() *Snapshot {
	out := NewSnapshot()
	out.Version = s.Version
	out.Epoch = s.Epoch
	for id, a := range s.Activities {
		out.Activities[id] = a.Clone()
	}
	for id, r := range s.Resources {
		if r.Available != nil {
			w := *r.Available
			r.Available = &w
		}
		out.Resources[id] = r
	}
	for id, g := range s.Trips {
		out.Trips[id] = g
	}
	for id, g := range s.TransportUnits {
		out.TransportUnits[id] = g
	}
	for id, g := range s.Locations {
		out.Locations[id] = g
	}
	return out
}

// ActivityIDs returns all activity ids in lexical order.
func (s *Snapshot) ActivityIDs() []string {
	ids := make([]string, 0, len(s.Activities))
	for id := range s.Activities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Baseline is an immutable record of plan windows captured at a point in time.
type Baseline struct {
	ID         string
	Name       string
	CapturedAt time.Time
	Entries    map[string]Window
}

// CaptureBaseline records the current plan window of every activity with a plan.
func CaptureBaseline(id, name string, s *Snapshot, at time.Time) *Baseline {
	b := &Baseline{ID: id, Name: name, CapturedAt: at, Entries: make(map[string]Window)}
	for _, aid := range s.ActivityIDs() {
		a := s.Activities[aid]
		if a.Plan.Start.IsZero() {
			continue
		}
		b.Entries[aid] = Window{Start: a.Plan.Start, End: a.PlanEnd()}
	}
	return b
}
