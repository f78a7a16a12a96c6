package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/macho715/tr-dash/internal/domain"
)

// parseTime accepts RFC3339 timestamps; a missing zone means UTC.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02T15:04", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (want RFC3339, e.g. 2026-03-01T06:00:00Z)", s)
	}
	return t.UTC(), nil
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// splitAssignment splits "ID=value".
func splitAssignment(flag, s string) (id, value string, err error) {
	id, value, ok := strings.Cut(s, "=")
	if !ok || id == "" || value == "" {
		return "", "", fmt.Errorf("--%s expects ACTIVITY=VALUE, got %q", flag, s)
	}
	return id, value, nil
}

// perturbationFlags collects the per-activity reflow inputs given on the
// command line.
type perturbationFlags struct {
	actualStart []string
	actualEnd   []string
	progress    []string
	lock        []string
	pin         []string
	clearPin    []string
	state       []string
}

func (f *perturbationFlags) register(fs *pflag.FlagSet) {
	fs.StringArrayVar(&f.actualStart, "actual-start", nil, "Record an actual start, ACTIVITY=TIME")
	fs.StringArrayVar(&f.actualEnd, "actual-end", nil, "Record an actual end, ACTIVITY=TIME")
	fs.StringArrayVar(&f.progress, "progress", nil, "Record progress, ACTIVITY=PCT")
	fs.StringArrayVar(&f.lock, "lock", nil, "Set a lock level, ACTIVITY=none|soft|hard|baseline")
	fs.StringArrayVar(&f.pin, "pin", nil, "Pin an activity start, ACTIVITY=TIME")
	fs.StringArrayVar(&f.clearPin, "clear-pin", nil, "Remove the pin on ACTIVITY")
	fs.StringArrayVar(&f.state, "state", nil, "Move an activity to a state, ACTIVITY=STATE")
}

func (f *perturbationFlags) empty() bool {
	return len(f.actualStart)+len(f.actualEnd)+len(f.progress)+len(f.lock)+len(f.pin)+len(f.clearPin)+len(f.state) == 0
}

// build merges the flags into one perturbation per activity, in order of
// first mention.
func (f *perturbationFlags) build() ([]domain.Perturbation, error) {
	var order []string
	byID := make(map[string]*domain.Perturbation)
	get := func(id string) *domain.Perturbation {
		if p, ok := byID[id]; ok {
			return p
		}
		order = append(order, id)
		byID[id] = &domain.Perturbation{ActivityID: id}
		return byID[id]
	}

	for _, s := range f.actualStart {
		id, v, err := splitAssignment("actual-start", s)
		if err != nil {
			return nil, err
		}
		t, err := parseTime(v)
		if err != nil {
			return nil, err
		}
		get(id).ActualStart = &t
	}
	for _, s := range f.actualEnd {
		id, v, err := splitAssignment("actual-end", s)
		if err != nil {
			return nil, err
		}
		t, err := parseTime(v)
		if err != nil {
			return nil, err
		}
		get(id).ActualEnd = &t
	}
	for _, s := range f.progress {
		id, v, err := splitAssignment("progress", s)
		if err != nil {
			return nil, err
		}
		pct, err := strconv.Atoi(strings.TrimSuffix(v, "%"))
		if err != nil || pct < 0 || pct > 100 {
			return nil, fmt.Errorf("--progress for %s must be 0..100, got %q", id, v)
		}
		get(id).ProgressPct = &pct
	}
	for _, s := range f.lock {
		id, v, err := splitAssignment("lock", s)
		if err != nil {
			return nil, err
		}
		l := domain.LockLevel(v)
		if !l.Valid() {
			return nil, fmt.Errorf("--lock for %s: unknown lock level %q", id, v)
		}
		get(id).LockLevel = &l
	}
	for _, s := range f.pin {
		id, v, err := splitAssignment("pin", s)
		if err != nil {
			return nil, err
		}
		t, err := parseTime(v)
		if err != nil {
			return nil, err
		}
		get(id).Pin = &t
	}
	for _, id := range f.clearPin {
		get(id).ClearPin = true
	}
	for _, s := range f.state {
		id, v, err := splitAssignment("state", s)
		if err != nil {
			return nil, err
		}
		st := domain.ActivityState(v)
		if !st.Valid() {
			return nil, fmt.Errorf("--state for %s: unknown state %q", id, v)
		}
		get(id).State = &st
	}

	out := make([]domain.Perturbation, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

// inferTrigger picks the trigger kind from the kinds of input given.
func (f *perturbationFlags) inferTrigger() domain.TriggerKind {
	switch {
	case len(f.actualStart)+len(f.actualEnd)+len(f.progress)+len(f.state) > 0:
		return domain.TriggerActuals
	case len(f.lock) > 0:
		return domain.TriggerLocks
	case len(f.pin)+len(f.clearPin) > 0:
		return domain.TriggerPins
	default:
		return domain.TriggerRecompute
	}
}
