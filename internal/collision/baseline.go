package collision

import (
	"fmt"
	"time"

	"github.com/macho715/tr-dash/internal/domain"
)

// BaselineOptions tunes the baseline differ.
type BaselineOptions struct {
	// Tolerance is the drift, start or end, ignored entirely.
	Tolerance time.Duration
	// MajorAfter escalates drift beyond it from minor to major. Zero keeps
	// every drift minor.
	MajorAfter time.Duration
}

// CompareBaseline reports activities whose current plan window drifted from
// the baseline beyond the tolerance. Activities missing on either side are
// skipped. Drift on a baseline-locked activity is blocking.
func CompareBaseline(b *domain.Baseline, s *domain.Snapshot, opts BaselineOptions) []domain.Collision {
	var out []domain.Collision
	for _, id := range s.ActivityIDs() {
		base, ok := b.Entries[id]
		if !ok {
			continue
		}
		a := s.Activities[id]
		if a.Plan.Start.IsZero() {
			continue
		}
		cur := domain.Window{Start: a.Plan.Start, End: a.PlanEnd()}
		startDrift := cur.Start.Sub(base.Start)
		endDrift := cur.End.Sub(base.End)
		drift := max(abs(startDrift), abs(endDrift))
		if drift <= opts.Tolerance {
			continue
		}

		sev := domain.SeverityMinor
		switch {
		case a.LockLevel == domain.LockBaseline:
			sev = domain.SeverityBlocking
		case opts.MajorAfter > 0 && drift > opts.MajorAfter:
			sev = domain.SeverityMajor
		}
		out = append(out, domain.NewCollision(
			domain.CollisionBaselineConflict,
			sev,
			[]string{id},
			fmt.Sprintf("%s drifted from baseline %s: %s -> %s (start %+dm, end %+dm)",
				id, b.Name, formatWindow(base), formatWindow(cur),
				domain.Minutes(startDrift), domain.Minutes(endDrift)),
		).WithWindow(cur))
	}
	domain.SortCollisions(out)
	return out
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
