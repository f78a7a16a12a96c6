package domain

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// collisionNamespace scopes deterministic collision ids.
var collisionNamespace = uuid.MustParse("6f0c6b8e-3f0a-4b53-9d6c-2a51c1d0e7a4")

// Collision is a detected scheduling inconsistency. Collisions are produced
// fresh on every detection pass and are never mutated.
type Collision struct {
	ID          string
	Kind        CollisionKind
	Severity    Severity
	ActivityIDs []string
	ResourceIDs []string
	Window      *Window
	Message     string
}

// NewCollision builds a collision whose id is derived from its content, so the
// same inconsistency always gets the same id.
func NewCollision(kind CollisionKind, sev Severity, activityIDs []string, message string) Collision {
	c := Collision{
		Kind:        kind,
		Severity:    sev,
		ActivityIDs: activityIDs,
		Message:     message,
	}
	c.ID = c.fingerprint()
	return c
}

// WithResources returns a copy of c naming the implicated resources.
func (c Collision) WithResources(ids ...string) Collision {
	c.ResourceIDs = append([]string(nil), ids...)
	c.ID = c.fingerprint()
	return c
}

// WithWindow returns a copy of c scoped to the given time range.
func (c Collision) WithWindow(w Window) Collision {
	c.Window = &w
	c.ID = c.fingerprint()
	return c
}

func (c Collision) fingerprint() string {
	var b strings.Builder
	b.WriteString(string(c.Kind))
	b.WriteByte('|')
	b.WriteString(strings.Join(c.ActivityIDs, ","))
	b.WriteByte('|')
	b.WriteString(strings.Join(c.ResourceIDs, ","))
	if c.Window != nil {
		b.WriteByte('|')
		b.WriteString(c.Window.Start.UTC().Format("2006-01-02T15:04:05Z"))
		b.WriteByte('/')
		b.WriteString(c.Window.End.UTC().Format("2006-01-02T15:04:05Z"))
	}
	b.WriteByte('|')
	b.WriteString(c.Message)
	return uuid.NewSHA1(collisionNamespace, []byte(b.String())).String()
}

// SortCollisions orders collisions by kind, first implicated activity, then id.
func SortCollisions(cs []Collision) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Kind != b.Kind {
			return a.Kind.Ordinal() < b.Kind.Ordinal()
		}
		fa, fb := firstID(a.ActivityIDs), firstID(b.ActivityIDs)
		if fa != fb {
			return fa < fb
		}
		return a.ID < b.ID
	})
}

// MaxSeverity returns the most severe level among cs, or "" when cs is empty.
func MaxSeverity(cs []Collision) Severity {
	var out Severity
	for _, c := range cs {
		if out == "" || c.Severity.Rank() > out.Rank() {
			out = c.Severity
		}
	}
	return out
}

func firstID(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
