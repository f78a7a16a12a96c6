package scheduler

import (
	"context"
	"time"

	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/graph"
)

// TimingOptions tunes the critical-path computation.
type TimingOptions struct {
	// AsOf is the instant remaining work is counted from for activities that
	// have started but not finished. Zero means "at actual start".
	AsOf time.Time
}

// ComputeTiming runs the forward and backward passes over an acyclic graph
// and returns the derived timing of every activity, keyed by id.
func ComputeTiming(ctx context.Context, g *graph.Graph, opts TimingOptions) (map[string]domain.Timing, error) {
	p, err := newPass(g, opts.AsOf)
	if err != nil {
		return nil, err
	}
	if err := p.forward(ctx, false); err != nil {
		return nil, err
	}
	p.backward()

	out := make(map[string]domain.Timing, g.Len())
	for i := 0; i < g.Len(); i++ {
		out[g.ID(i)] = p.timing(i)
	}
	return out, nil
}

// pass holds one forward/backward computation. Every value is an integer
// minute offset from origin.
type pass struct {
	g       *graph.Graph
	origin  time.Time
	asOf    int64
	hasAsOf bool
	order   []int

	dur []int64
	es  []int64
	ef  []int64
	ls  []int64
	lf  []int64
	ff  []int64

	// fixed[i] is the reason node i was clamped during a snapping pass.
	fixed []string
}

func newPass(g *graph.Graph, asOf time.Time) (*pass, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	n := g.Len()
	p := &pass{
		g:      g,
		origin: originOf(g),
		order:  order,
		dur:    make([]int64, n),
		es:     make([]int64, n),
		ef:     make([]int64, n),
		ls:     make([]int64, n),
		lf:     make([]int64, n),
		ff:     make([]int64, n),
		fixed:  make([]string, n),
	}
	if !asOf.IsZero() {
		p.asOf, p.hasAsOf = p.minutes(asOf), true
	}
	for i := 0; i < n; i++ {
		p.dur[i] = nominalDuration(g.Activity(i))
	}
	return p, nil
}

// originOf picks the zero point for minute offsets: the snapshot epoch, else
// the earliest known start in the graph.
func originOf(g *graph.Graph) time.Time {
	if !g.Epoch().IsZero() {
		return g.Epoch()
	}
	var origin time.Time
	for i := 0; i < g.Len(); i++ {
		a := g.Activity(i)
		for _, t := range []time.Time{a.Plan.Start, actualStart(a)} {
			if !t.IsZero() && (origin.IsZero() || t.Before(origin)) {
				origin = t
			}
		}
	}
	if origin.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return origin
}

func actualStart(a *domain.Activity) time.Time {
	if a.Started() {
		return a.Actual.Start
	}
	return time.Time{}
}

// nominalDuration is the planned duration in whole minutes.
func nominalDuration(a *domain.Activity) int64 {
	return domain.Minutes(a.NominalDuration())
}

func (p *pass) minutes(t time.Time) int64 { return domain.Minutes(t.Sub(p.origin)) }

func (p *pass) at(m int64) time.Time { return domain.AddMinutes(p.origin, m) }

// relationStart is the earliest start a dependency edge allows its successor.
func relationStart(e graph.Edge, predES, predEF, succDur int64) int64 {
	switch e.Type {
	case domain.StartToStart:
		return predES + e.LagMin
	case domain.FinishToFinish:
		return predEF + e.LagMin - succDur
	case domain.StartToFinish:
		return predES + e.LagMin - succDur
	default: // FS
		return predEF + e.LagMin
	}
}

// relationFinish is the latest finish a dependency edge allows its predecessor.
func relationFinish(e graph.Edge, succLS, succLF, predDur int64) int64 {
	switch e.Type {
	case domain.StartToStart:
		return succLS - e.LagMin + predDur
	case domain.FinishToFinish:
		return succLF - e.LagMin
	case domain.StartToFinish:
		return succLF - e.LagMin + predDur
	default: // FS
		return succLS - e.LagMin
	}
}

// relationSlack is how far the predecessor can slip before the edge binds.
func relationSlack(e graph.Edge, predES, predEF, succES, succEF int64) int64 {
	switch e.Type {
	case domain.StartToStart:
		return succES - e.LagMin - predES
	case domain.FinishToFinish:
		return succEF - e.LagMin - predEF
	case domain.StartToFinish:
		return succEF - e.LagMin - predES
	default: // FS
		return succES - e.LagMin - predEF
	}
}

// forward computes ES/EF in topological order. With snap set it applies the
// reflow rules: fixed activities keep their window and movable activities are
// never placed before their current plan start.
func (p *pass) forward(ctx context.Context, snap bool) error {
	for k, i := range p.order {
		if k%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		a := p.g.Activity(i)
		d := p.dur[i]

		if snap {
			if reason := a.FixedReason(); reason != "" {
				if es, ef, ok := p.fixedWindow(a, d); ok {
					p.es[i], p.ef[i], p.fixed[i] = es, ef, reason
					continue
				}
			}
		}

		if a.Started() {
			es := p.minutes(a.Actual.Start)
			ef := p.startedFinish(a, d, es)
			if snap && !a.Plan.Start.IsZero() {
				if ps := p.minutes(a.Plan.Start); ps > es {
					es = ps
					ef = max(ef, es)
				}
			}
			p.es[i], p.ef[i] = es, ef
			continue
		}

		var es int64
		preds := p.g.Predecessors(i)
		if len(preds) == 0 {
			es = p.ownStart(a)
		}
		for j, e := range preds {
			c := relationStart(e, p.es[e.From], p.ef[e.From], d)
			if j == 0 || c > es {
				es = c
			}
		}
		if snap && !a.Plan.Start.IsZero() {
			es = max(es, p.minutes(a.Plan.Start))
		}
		if nb, ok := p.notBefore(a, d); ok {
			es = max(es, nb)
		}
		p.es[i], p.ef[i] = es, es+d
	}
	return nil
}

// ownStart is the earliest known start of an activity with no predecessors.
func (p *pass) ownStart(a *domain.Activity) int64 {
	if !a.Plan.Start.IsZero() {
		return p.minutes(a.Plan.Start)
	}
	return 0
}

// startedFinish is the expected finish of an activity already under way.
func (p *pass) startedFinish(a *domain.Activity, d, es int64) int64 {
	if a.Actual.End != nil {
		return max(p.minutes(*a.Actual.End), es)
	}
	if a.DurationMode == domain.DurationWorkDriven {
		from := es
		if p.hasAsOf {
			from = max(from, p.asOf)
		}
		return from + remaining(d, a.Actual.ProgressPct)
	}
	ef := es + d
	if p.hasAsOf {
		ef = max(ef, p.asOf)
	}
	return ef
}

// remaining is the work left on a duration at the given progress, rounded up.
func remaining(d int64, progressPct int) int64 {
	pct := int64(min(max(progressPct, 0), 100))
	return (d*(100-pct) + 99) / 100
}

// fixedWindow is where a fixed activity stays: its actual window once
// started, its pin when no lock outranks it, else its plan window.
func (p *pass) fixedWindow(a *domain.Activity, d int64) (es, ef int64, ok bool) {
	switch {
	case a.Started():
		es = p.minutes(a.Actual.Start)
		return es, p.startedFinish(a, d, es), true
	case a.Pin != nil && !a.LockLevel.Fixes() && !a.State.Frozen():
		es = p.minutes(a.Pin.Start)
		return es, es + d, true
	case !a.Plan.Start.IsZero():
		return p.minutes(a.Plan.Start), p.minutes(a.PlanEnd()), true
	}
	return 0, 0, false
}

// notBefore is the earliest start allowed by the activity's constraints.
func (p *pass) notBefore(a *domain.Activity, d int64) (int64, bool) {
	var out int64
	var ok bool
	for _, c := range a.Constraints {
		if c.NotBefore == nil {
			continue
		}
		v := p.minutes(*c.NotBefore)
		if c.Kind == domain.ConstraintFinishWindow {
			v -= d
		}
		if !ok || v > out {
			out, ok = v, true
		}
	}
	return out, ok
}

// notAfter is the latest finish allowed by the activity's constraints.
func (p *pass) notAfter(a *domain.Activity, d int64) (int64, bool) {
	var out int64
	var ok bool
	for _, c := range a.Constraints {
		if c.NotAfter == nil {
			continue
		}
		v := p.minutes(*c.NotAfter)
		if c.Kind == domain.ConstraintStartWindow {
			v += d
		}
		if !ok || v < out {
			out, ok = v, true
		}
	}
	return out, ok
}

// backward computes LS/LF seeded by the latest earliest finish, then floats.
func (p *pass) backward() {
	if len(p.order) == 0 {
		return
	}
	target := p.ef[p.order[0]]
	for _, i := range p.order {
		target = max(target, p.ef[i])
	}

	for k := len(p.order) - 1; k >= 0; k-- {
		i := p.order[k]
		d := p.ef[i] - p.es[i]
		lf := target
		for _, e := range p.g.Successors(i) {
			lf = min(lf, relationFinish(e, p.ls[e.To], p.lf[e.To], d))
		}
		if na, ok := p.notAfter(p.g.Activity(i), d); ok {
			lf = min(lf, na)
		}
		p.lf[i], p.ls[i] = lf, lf-d
	}

	for i := range p.ff {
		succ := p.g.Successors(i)
		if len(succ) == 0 {
			p.ff[i] = 0
			continue
		}
		var ff int64
		for k, e := range succ {
			s := relationSlack(e, p.es[i], p.ef[i], p.es[e.To], p.ef[e.To])
			if k == 0 || s < ff {
				ff = s
			}
		}
		// Negative lags can leave more room to the next successor than to
		// the project end; free float never exceeds total float.
		p.ff[i] = max(min(ff, p.ls[i]-p.es[i]), 0)
	}
}

func (p *pass) timing(i int) domain.Timing {
	return domain.Timing{
		ES:            p.at(p.es[i]),
		EF:            p.at(p.ef[i]),
		LS:            p.at(p.ls[i]),
		LF:            p.at(p.lf[i]),
		TotalFloatMin: p.ls[i] - p.es[i],
		FreeFloatMin:  p.ff[i],
	}
}

func (p *pass) window(i int) domain.Window {
	return domain.Window{Start: p.at(p.es[i]), End: p.at(p.ef[i])}
}
