package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/graph"
)

var (
	// ErrCycleDetected aborts a run whose dependency graph is cyclic.
	ErrCycleDetected = graph.ErrCycleDetected

	// ErrUnknownActivity indicates a perturbation naming an activity that is
	// not in the snapshot.
	ErrUnknownActivity = errors.New("unknown activity")

	// ErrInvalidTrigger indicates a trigger with an unknown kind.
	ErrInvalidTrigger = errors.New("invalid trigger")
)

// runNamespace scopes deterministic run ids.
var runNamespace = uuid.MustParse("1d5d3c8a-8f44-4f8e-9a57-5c2f0b7e6a21")

// Options tunes a reflow run.
type Options struct {
	// AsOf is the instant remaining work of started activities is counted
	// from. Zero counts from the actual start, so an overdue activity keeps
	// its planned finish until a caller projects it explicitly.
	AsOf time.Time
}

// Outcome is the result of one reflow computation. Snapshot and History are
// nil when the run aborted.
type Outcome struct {
	Run      *domain.ReflowRun
	Snapshot *domain.Snapshot
	History  []domain.HistoryEvent
}

// Commit finalizes the run once the caller has stored the snapshot under
// version.
func (o *Outcome) Commit(version int64) error {
	if err := o.Run.Advance(domain.RunCommitted); err != nil {
		return err
	}
	o.Run.CommittedVersion = version
	o.Snapshot.Version = version
	return nil
}

// Abort finalizes the run without effect and discards the computed plan.
func (o *Outcome) Abort(cause error) error {
	if err := o.Run.Advance(domain.RunAborted); err != nil {
		return err
	}
	if cause != nil {
		o.Run.Error = cause.Error()
	}
	o.Snapshot = nil
	o.History = nil
	return nil
}

func (o *Outcome) fail(err error) (*Outcome, error) {
	_ = o.Abort(err)
	return o, err
}

// RunID derives the run id from the base version and the trigger, so the same
// input always yields the same run.
func RunID(version int64, t domain.Trigger) string {
	return uuid.NewSHA1(runNamespace, []byte(canonicalTrigger(version, t))).String()
}

func canonicalTrigger(version int64, t domain.Trigger) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(version, 10))
	b.WriteByte('|')
	b.WriteString(string(t.Kind))
	b.WriteByte('|')
	b.WriteString(t.Actor)
	b.WriteByte('|')
	b.WriteString(t.RequestedAt.UTC().Format(time.RFC3339Nano))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(t.FullRecompute))
	for _, p := range t.Perturbations {
		fmt.Fprintf(&b, "|%s;%s;%s;", p.ActivityID, formatTimePtr(p.ActualStart), formatTimePtr(p.ActualEnd))
		if p.ProgressPct != nil {
			b.WriteString(strconv.Itoa(*p.ProgressPct))
		}
		b.WriteByte(';')
		if p.LockLevel != nil {
			b.WriteString(string(*p.LockLevel))
		}
		fmt.Fprintf(&b, ";%s;%t;", formatTimePtr(p.Pin), p.ClearPin)
		if p.State != nil {
			b.WriteString(string(*p.State))
		}
	}
	return b.String()
}

// Reflow applies the trigger's perturbations to a copy of snap and computes a
// forward-snapped plan. The live snapshot is never touched. On success the run
// is left in RunComputing; the caller commits it with Outcome.Commit after a
// successful compare-and-swap, or discards it with Outcome.Abort.
//
// Structural errors and cycles abort the run and are returned together with
// the aborted outcome; cycle collisions are attached to the run.
func Reflow(ctx context.Context, snap *domain.Snapshot, trig domain.Trigger, opts Options) (*Outcome, error) {
	run := &domain.ReflowRun{
		ID:          RunID(snap.Version, trig),
		Trigger:     trig,
		RequestedAt: trig.RequestedAt,
		State:       domain.RunPending,
		BaseVersion: snap.Version,
	}
	out := &Outcome{Run: run}
	if err := ctx.Err(); err != nil {
		return out.fail(err)
	}
	if !trig.Kind.Valid() {
		return out.fail(fmt.Errorf("%w: kind %q", ErrInvalidTrigger, trig.Kind))
	}
	if err := run.Advance(domain.RunComputing); err != nil {
		return out.fail(err)
	}

	work := snap.Clone()
	rec := newRecorder(run.ID, trig.Actor, trig.RequestedAt)
	warnings, err := applyPerturbations(work, trig, rec)
	if err != nil {
		return out.fail(err)
	}
	run.Warnings = warnings

	g, err := graph.Build(work)
	if err != nil {
		return out.fail(err)
	}
	if cycles := graph.Validate(g); len(cycles) > 0 {
		run.Collisions = cycles
		return out.fail(fmt.Errorf("%w: %d cycle(s)", ErrCycleDetected, len(cycles)))
	}

	p, err := newPass(g, opts.AsOf)
	if err != nil {
		return out.fail(err)
	}
	if err := p.forward(ctx, true); err != nil {
		return out.fail(err)
	}
	p.backward()
	run.Warnings = append(run.Warnings, pinWarnings(g)...)

	candidates := make([]Candidate, g.Len())
	for i := range candidates {
		candidates[i] = CandidateOf(g.Activity(i))
	}
	TieBreakSort(candidates)

	for _, c := range candidates {
		i, _ := g.Index(c.ID)
		a := work.Activities[c.ID]
		if moves(&a) {
			old := domain.Window{}
			if !a.Plan.Start.IsZero() {
				old = domain.Window{Start: a.Plan.Start, End: a.PlanEnd()}
			}
			next := p.window(i)
			if holdsPlan(&a, old, next) {
				next = old
			}
			if !old.Equal(next) {
				run.Changes = append(run.Changes, domain.Change{ActivityID: c.ID, Old: old, New: next})
				rec.record(c.ID, FieldPlanStart, formatTime(old.Start), formatTime(next.Start))
				rec.record(c.ID, FieldPlanEnd, formatTime(old.End), formatTime(next.End))
				a.Plan = next
			}
		}
		timing := p.timing(i)
		rec.recordTiming(c.ID, a.Calc, timing)
		a.Calc = timing
		work.Activities[c.ID] = a
	}

	run.Collisions = fixedViolations(g, p)
	if err := ctx.Err(); err != nil {
		return out.fail(err)
	}

	out.Snapshot = work
	out.History = rec.events
	return out, nil
}

// moves reports whether reflow may rewrite the plan window. Movable
// activities snap forward; a pin that no lock outranks relocates the plan.
func moves(a *domain.Activity) bool {
	r := a.FixedReason()
	return r == "" || r == "pin"
}

// holdsPlan reports whether a movable activity that has not started keeps its
// stored window: it only moves once its computed start is later than planned.
func holdsPlan(a *domain.Activity, old, next domain.Window) bool {
	if a.Fixed() || a.Started() || old.Start.IsZero() {
		return false
	}
	return !next.Start.After(old.Start)
}

// applyPerturbations writes the trigger's changes into work. Changes that
// would move a frozen or locked activity are rejected and returned as
// warnings.
func applyPerturbations(work *domain.Snapshot, trig domain.Trigger, rec *recorder) ([]string, error) {
	var warnings []string
	reject := func(id, what, why string) {
		warnings = append(warnings, fmt.Sprintf("%s on %s rejected: %s", what, id, why))
	}

	for _, p := range trig.Perturbations {
		a, ok := work.Activities[p.ActivityID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownActivity, p.ActivityID)
		}
		a = a.Clone()
		frozen := a.State.Frozen()

		if p.ActualStart != nil || p.ActualEnd != nil || p.ProgressPct != nil {
			switch {
			case frozen:
				reject(a.ID, "actuals", "state:"+string(a.State))
			case p.ProgressPct != nil && (*p.ProgressPct < 0 || *p.ProgressPct > 100):
				reject(a.ID, "actuals", fmt.Sprintf("progress %d out of range", *p.ProgressPct))
			default:
				applyActuals(&a, p, rec)
			}
		}

		if p.LockLevel != nil {
			switch {
			case !p.LockLevel.Valid():
				reject(a.ID, "lock", fmt.Sprintf("unknown lock level %q", *p.LockLevel))
			case frozen:
				reject(a.ID, "lock", "state:"+string(a.State))
			default:
				rec.record(a.ID, FieldLockLevel, string(a.LockLevel), string(*p.LockLevel))
				a.LockLevel = *p.LockLevel
			}
		}

		if p.Pin != nil || p.ClearPin {
			old := ""
			if a.Pin != nil {
				old = formatTime(a.Pin.Start)
			}
			switch {
			case frozen:
				reject(a.ID, "pin", "state:"+string(a.State))
			case a.LockLevel.Fixes():
				reject(a.ID, "pin", "lock:"+string(a.LockLevel))
			case p.ClearPin:
				rec.record(a.ID, FieldPin, old, "")
				a.Pin = nil
			default:
				rec.record(a.ID, FieldPin, old, formatTime(*p.Pin))
				a.Pin = &domain.ReflowPin{Start: *p.Pin, Reason: string(trig.Kind)}
			}
		}

		if p.State != nil {
			from := a.State
			if err := a.Transition(*p.State); err != nil {
				reject(a.ID, "state", err.Error())
			} else {
				rec.record(a.ID, FieldState, string(from), string(a.State))
			}
		}

		work.Activities[a.ID] = a
	}
	return warnings, nil
}

func applyActuals(a *domain.Activity, p domain.Perturbation, rec *recorder) {
	if a.Actual == nil {
		a.Actual = &domain.Actual{}
	}
	if p.ActualStart != nil {
		rec.record(a.ID, FieldActualStart, formatTime(a.Actual.Start), formatTime(*p.ActualStart))
		a.Actual.Start = *p.ActualStart
	}
	if p.ActualEnd != nil {
		end := *p.ActualEnd
		rec.record(a.ID, FieldActualEnd, formatTimePtr(a.Actual.End), formatTime(end))
		a.Actual.End = &end
	}
	if p.ProgressPct != nil {
		rec.record(a.ID, FieldProgress, strconv.Itoa(a.Actual.ProgressPct), strconv.Itoa(*p.ProgressPct))
		a.Actual.ProgressPct = *p.ProgressPct
	}
}

// pinWarnings names every pin that a hard or baseline lock overrides.
func pinWarnings(g *graph.Graph) []string {
	var out []string
	for i := 0; i < g.Len(); i++ {
		a := g.Activity(i)
		if a.Pin != nil && a.LockLevel.Fixes() {
			out = append(out, fmt.Sprintf("pin on %s ignored: lock:%s outranks pin", a.ID, a.LockLevel))
		}
	}
	return out
}

// fixedViolations reports fixed activities whose clamped window breaks one of
// their constraints. The run still proceeds; these are for the operator.
func fixedViolations(g *graph.Graph, p *pass) []domain.Collision {
	var out []domain.Collision
	for i := 0; i < g.Len(); i++ {
		if p.fixed[i] == "" {
			continue
		}
		a := g.Activity(i)
		w := p.window(i)
		for _, c := range a.Constraints {
			if c.Admits(w) {
				continue
			}
			out = append(out, domain.NewCollision(
				domain.CollisionConstraintWindow,
				domain.SeverityBlocking,
				[]string{a.ID},
				fmt.Sprintf("fixed activity %s (%s) violates %s", a.ID, p.fixed[i], c.Kind),
			).WithWindow(w))
		}
	}
	domain.SortCollisions(out)
	return out
}

// ChangedIDs returns the ids of the changed activities in run order.
func ChangedIDs(run *domain.ReflowRun) []string {
	ids := make([]string, len(run.Changes))
	for i, c := range run.Changes {
		ids[i] = c.ActivityID
	}
	return ids
}
