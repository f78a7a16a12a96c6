package collision

import (
	"fmt"
	"sort"
	"time"

	"github.com/macho715/tr-dash/internal/domain"
)

type placed struct {
	id  string
	qty int
	w   domain.Window
}

type sweepEvent struct {
	at    time.Time
	start bool
	p     placed
}

// sortEvents orders events by time; on ties starts come before ends, so an
// activity starting exactly when another ends still counts as concurrent.
func sortEvents(evs []sweepEvent) {
	sort.SliceStable(evs, func(i, j int) bool {
		a, b := evs[i], evs[j]
		if !a.at.Equal(b.at) {
			return a.at.Before(b.at)
		}
		if a.start != b.start {
			return a.start
		}
		return a.p.id < b.p.id
	})
}

// overload is one contiguous interval where load exceeded capacity.
type overload struct {
	window domain.Window
	peak   int
	ids    []string
}

// sweep walks start/end events and returns every contiguous interval whose
// summed quantity exceeds capacity, with the activities active during it.
func sweep(items []placed, capacity int) []overload {
	evs := make([]sweepEvent, 0, 2*len(items))
	for _, it := range items {
		evs = append(evs, sweepEvent{at: it.w.Start, start: true, p: it}, sweepEvent{at: it.w.End, p: it})
	}
	sortEvents(evs)

	var (
		out      []overload
		load     int
		active   = make(map[string]int)
		cur      *overload
		involved map[string]bool
	)
	for _, ev := range evs {
		if ev.start {
			load += ev.p.qty
			active[ev.p.id]++
		} else {
			load -= ev.p.qty
			if active[ev.p.id]--; active[ev.p.id] == 0 {
				delete(active, ev.p.id)
			}
		}

		switch {
		case cur == nil && load > capacity:
			cur = &overload{window: domain.Window{Start: ev.at}, peak: load}
			involved = make(map[string]bool, len(active))
			for id := range active {
				involved[id] = true
			}
		case cur != nil && load > capacity:
			cur.peak = max(cur.peak, load)
			if ev.start {
				involved[ev.p.id] = true
			}
		case cur != nil:
			cur.window.End = ev.at
			for id := range involved {
				cur.ids = append(cur.ids, id)
			}
			sort.Strings(cur.ids)
			out = append(out, *cur)
			cur = nil
		}
	}
	return out
}

// ResourceOverallocations reports every interval where concurrent demand on a
// resource exceeds its capacity.
func ResourceOverallocations(s *domain.Snapshot) []domain.Collision {
	demand := make(map[string][]placed)
	for _, a := range live(s) {
		for _, ra := range a.Resources {
			if ra.Quantity <= 0 {
				continue
			}
			if _, ok := s.Resources[ra.ResourceID]; !ok {
				continue
			}
			if w, ok := assignmentWindow(&a, ra); ok {
				demand[ra.ResourceID] = append(demand[ra.ResourceID], placed{id: a.ID, qty: ra.Quantity, w: w})
			}
		}
	}

	ids := make([]string, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []domain.Collision
	for _, rid := range ids {
		r := s.Resources[rid]
		for _, ov := range sweep(demand[rid], r.Capacity) {
			out = append(out, domain.NewCollision(
				domain.CollisionResourceOverallocate,
				domain.SeverityMajor,
				tieBreakIDs(s, ov.ids),
				fmt.Sprintf("%s over capacity during %s: demand %d > %d", rid, formatWindow(ov.window), ov.peak, r.Capacity),
			).WithResources(rid).WithWindow(ov.window))
		}
	}
	return out
}

// overlappingPairs returns every pair of items whose windows overlap, ordered
// by start time then id.
func overlappingPairs(items []placed) [][2]placed {
	sorted := append([]placed(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].w.Start.Equal(sorted[j].w.Start) {
			return sorted[i].w.Start.Before(sorted[j].w.Start)
		}
		return sorted[i].id < sorted[j].id
	})

	var out [][2]placed
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if !sorted[j].w.Start.Before(sorted[i].w.End) {
				break
			}
			if sorted[i].w.Overlaps(sorted[j].w) {
				out = append(out, [2]placed{sorted[i], sorted[j]})
			}
		}
	}
	return out
}

// assignmentWindow is the time a resource is held: the assignment's own
// window when given, else the activity's occupied window.
func assignmentWindow(a *domain.Activity, ra domain.ResourceAssignment) (domain.Window, bool) {
	if ra.Window != nil {
		return *ra.Window, true
	}
	return a.OccupiedWindow()
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

const timeLayout = "2006-01-02T15:04Z07:00"

func formatWindow(w domain.Window) string {
	return fmt.Sprintf("[%s, %s)", w.Start.UTC().Format(timeLayout), w.End.UTC().Format(timeLayout))
}

func formatBounds(c domain.Constraint) string {
	nb, na := "-inf", "+inf"
	if c.NotBefore != nil {
		nb = c.NotBefore.UTC().Format(timeLayout)
	}
	if c.NotAfter != nil {
		na = c.NotAfter.UTC().Format(timeLayout)
	}
	return "[" + nb + ", " + na + "]"
}
