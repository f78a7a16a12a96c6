package scheduler

import (
	"sort"
	"time"

	"github.com/macho715/tr-dash/internal/domain"
)

// Candidate is the slice of an activity the tie-break looks at. PlanStart is
// the plan start before the run began.
type Candidate struct {
	ID        string
	Lock      domain.LockLevel
	Priority  int
	PlanStart time.Time
}

// CandidateOf captures the tie-break keys of an activity.
func CandidateOf(a *domain.Activity) Candidate {
	return Candidate{
		ID:        a.ID,
		Lock:      a.LockLevel,
		Priority:  a.Priority,
		PlanStart: a.Plan.Start,
	}
}

// TieBreakSort sorts candidates by the deterministic reflow rules:
// 1. Lock level: baseline > hard > soft > none
// 2. Priority: higher first
// 3. Original plan start: earliest first (unplanned last)
// 4. Activity ID: lexical ascending
func TieBreakSort(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]

		// 1. Lock rank
		if ra, rb := a.Lock.Rank(), b.Lock.Rank(); ra != rb {
			return ra > rb
		}

		// 2. Priority (higher first)
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}

		// 3. Plan start (earliest first, zero last)
		if a.PlanStart.IsZero() != b.PlanStart.IsZero() {
			return !a.PlanStart.IsZero()
		}
		if !a.PlanStart.Equal(b.PlanStart) {
			return a.PlanStart.Before(b.PlanStart)
		}

		// 4. Activity ID (lexical)
		return a.ID < b.ID
	})
}

// TieBreakOrder returns the ids of the given activities in tie-break order.
func TieBreakOrder(activities []*domain.Activity) []string {
	cs := make([]Candidate, len(activities))
	for i, a := range activities {
		cs[i] = CandidateOf(a)
	}
	TieBreakSort(cs)
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids
}
