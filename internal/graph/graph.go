// Package graph turns a schedule snapshot into an index-based dependency graph
// and runs the static checks that must pass before any timing math.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/macho715/tr-dash/internal/domain"
)

var (
	// ErrMalformedDependency indicates a dependency that references an unknown
	// activity or carries an unknown relation type.
	ErrMalformedDependency = errors.New("malformed dependency")

	// ErrMalformedConstraint indicates a constraint window that cannot be satisfied
	// by construction (start after end, empty, or unknown kind).
	ErrMalformedConstraint = errors.New("malformed constraint")

	// ErrCycleDetected indicates the dependency graph is not acyclic.
	ErrCycleDetected = errors.New("dependency cycle detected")
)

// MalformedError locates a structural problem in one activity record.
type MalformedError struct {
	Err        error
	ActivityID string
	Index      int
	Detail     string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%v: activity %q [%d]: %s", e.Err, e.ActivityID, e.Index, e.Detail)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Edge is a dependency between two arena indices, predecessor to successor.
type Edge struct {
	From   int
	To     int
	Type   domain.RelationType
	LagMin int64
}

// Graph is an arena of activities indexed by lexical id order, with edges
// stored as index pairs. It is read-only once built.
type Graph struct {
	epoch      time.Time
	ids        []string
	index      map[string]int
	activities []domain.Activity
	edges      []Edge
	succ       [][]int
	pred       [][]int
}

// Build assembles the dependency graph for s. All structural problems are
// reported together, joined into one error.
func Build(s *domain.Snapshot) (*Graph, error) {
	ids := s.ActivityIDs()
	g := &Graph{
		epoch:      s.Epoch,
		ids:        ids,
		index:      make(map[string]int, len(ids)),
		activities: make([]domain.Activity, len(ids)),
		succ:       make([][]int, len(ids)),
		pred:       make([][]int, len(ids)),
	}
	for i, id := range ids {
		g.index[id] = i
		g.activities[i] = s.Activities[id]
	}

	var errs []error
	for i, id := range ids {
		a := &g.activities[i]
		for ci, c := range a.Constraints {
			if err := checkConstraint(id, ci, c); err != nil {
				errs = append(errs, err)
			}
		}
		for di, d := range a.Dependencies {
			from, ok := g.index[d.PredecessorID]
			if !ok {
				errs = append(errs, &MalformedError{
					Err: ErrMalformedDependency, ActivityID: id, Index: di,
					Detail: fmt.Sprintf("predecessor %q does not exist", d.PredecessorID),
				})
				continue
			}
			if !d.Type.Valid() {
				errs = append(errs, &MalformedError{
					Err: ErrMalformedDependency, ActivityID: id, Index: di,
					Detail: fmt.Sprintf("unknown relation type %q", d.Type),
				})
				continue
			}
			e := len(g.edges)
			g.edges = append(g.edges, Edge{From: from, To: i, Type: d.Type, LagMin: d.LagMin})
			g.succ[from] = append(g.succ[from], e)
			g.pred[i] = append(g.pred[i], e)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// Successor lists are already in ascending successor index because
	// activities are walked in lexical order; keep that explicit.
	for i := range g.succ {
		sort.SliceStable(g.succ[i], func(x, y int) bool {
			return g.edges[g.succ[i][x]].To < g.edges[g.succ[i][y]].To
		})
	}
	return g, nil
}

func checkConstraint(id string, idx int, c domain.Constraint) error {
	malformed := func(detail string) error {
		return &MalformedError{Err: ErrMalformedConstraint, ActivityID: id, Index: idx, Detail: detail}
	}
	if !c.Kind.Valid() {
		return malformed(fmt.Sprintf("unknown constraint kind %q", c.Kind))
	}
	if c.NotBefore == nil && c.NotAfter == nil {
		return malformed("window has neither start nor end")
	}
	if c.NotBefore != nil && c.NotAfter != nil && c.NotBefore.After(*c.NotAfter) {
		return malformed(fmt.Sprintf("window start %s after end %s",
			c.NotBefore.Format(time.RFC3339), c.NotAfter.Format(time.RFC3339)))
	}
	return nil
}

// Len returns the number of activities.
func (g *Graph) Len() int { return len(g.ids) }

// Epoch is the fallback start for activities with no known start.
func (g *Graph) Epoch() time.Time { return g.epoch }

// ID returns the activity id at arena index i.
func (g *Graph) ID(i int) string { return g.ids[i] }

// Index returns the arena index for an activity id.
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Activity returns the activity stored at index i. Callers must not mutate it.
func (g *Graph) Activity(i int) *domain.Activity { return &g.activities[i] }

// Edges returns all dependency edges in build order.
func (g *Graph) Edges() []Edge { return g.edges }

// Successors returns the outgoing edges of node i.
func (g *Graph) Successors(i int) []Edge {
	out := make([]Edge, len(g.succ[i]))
	for k, e := range g.succ[i] {
		out[k] = g.edges[e]
	}
	return out
}

// Predecessors returns the incoming edges of node i.
func (g *Graph) Predecessors(i int) []Edge {
	out := make([]Edge, len(g.pred[i]))
	for k, e := range g.pred[i] {
		out[k] = g.edges[e]
	}
	return out
}
