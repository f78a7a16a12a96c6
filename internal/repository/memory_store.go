package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/macho715/tr-dash/internal/domain"
)

// MemoryStore keeps everything in process. Transactions work on a copy that
// replaces the live state only when fn succeeds. fn must not call Repos on
// the same store.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	snap      *domain.Snapshot
	baselines map[string]*domain.Baseline
	runs      []*domain.ReflowRun
	history   []domain.HistoryEvent
}

func (m *memState) clone() *memState {
	out := &memState{
		snap:      m.snap.Clone(),
		baselines: make(map[string]*domain.Baseline, len(m.baselines)),
		runs:      append([]*domain.ReflowRun(nil), m.runs...),
		history:   append([]domain.HistoryEvent(nil), m.history...),
	}
	for id, b := range m.baselines {
		out.baselines[id] = b
	}
	return out
}

// NewMemoryStore returns a store seeded with an empty snapshot at version 0.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		snap:      domain.NewSnapshot(),
		baselines: make(map[string]*domain.Baseline),
	}}
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

type memRepos struct {
	lock  sync.Locker
	state func() *memState
}

func (s *MemoryStore) Repos() Repos {
	r := &memRepos{lock: &s.mu, state: func() *memState { return s.state }}
	return r.repos()
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	r := &memRepos{lock: noopLocker{}, state: func() *memState { return work }}
	if err := fn(ctx, r.repos()); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (r *memRepos) repos() Repos {
	return Repos{
		Schedule:  (*memSchedule)(r),
		Baselines: (*memBaselines)(r),
		Runs:      (*memRuns)(r),
		History:   (*memHistory)(r),
	}
}

type memSchedule memRepos

func (m *memSchedule) Load(ctx context.Context) (*domain.Snapshot, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state().snap.Clone(), nil
}

func (m *memSchedule) Version(ctx context.Context) (int64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state().snap.Version, nil
}

func (m *memSchedule) Replace(ctx context.Context, expectedVersion int64, s *domain.Snapshot) (int64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	st := m.state()
	if st.snap.Version != expectedVersion {
		return 0, fmt.Errorf("%w: expected version %d, store is at %d", ErrConcurrentSnapshotConflict, expectedVersion, st.snap.Version)
	}
	next := s.Clone()
	next.Version = expectedVersion + 1
	st.snap = next
	return next.Version, nil
}

type memBaselines memRepos

func (m *memBaselines) Create(ctx context.Context, b *domain.Baseline) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	st := m.state()
	if _, ok := st.baselines[b.ID]; ok {
		return fmt.Errorf("baseline %s already exists", b.ID)
	}
	cp := *b
	cp.Entries = make(map[string]domain.Window, len(b.Entries))
	for id, w := range b.Entries {
		cp.Entries[id] = w
	}
	st.baselines[b.ID] = &cp
	return nil
}

func (m *memBaselines) GetByID(ctx context.Context, id string) (*domain.Baseline, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	b, ok := m.state().baselines[id]
	if !ok {
		return nil, fmt.Errorf("baseline %s: %w", id, ErrNotFound)
	}
	return b, nil
}

func (m *memBaselines) Latest(ctx context.Context) (*domain.Baseline, error) {
	all, _ := m.List(ctx)
	if len(all) == 0 {
		return nil, fmt.Errorf("baseline latest: %w", ErrNotFound)
	}
	return all[len(all)-1], nil
}

func (m *memBaselines) List(ctx context.Context) ([]*domain.Baseline, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	var out []*domain.Baseline
	for _, b := range m.state().baselines {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CapturedAt.Equal(out[j].CapturedAt) {
			return out[i].CapturedAt.Before(out[j].CapturedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type memRuns memRepos

func (m *memRuns) Create(ctx context.Context, run *domain.ReflowRun) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	st := m.state()
	for _, existing := range st.runs {
		if existing.ID == run.ID {
			return fmt.Errorf("reflow run %s already exists", run.ID)
		}
	}
	cp := *run
	st.runs = append(st.runs, &cp)
	return nil
}

func (m *memRuns) GetByID(ctx context.Context, id string) (*domain.ReflowRun, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, run := range m.state().runs {
		if run.ID == id {
			cp := *run
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("reflow run %s: %w", id, ErrNotFound)
}

func (m *memRuns) ListRecent(ctx context.Context, limit int) ([]*domain.ReflowRun, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if limit <= 0 {
		limit = 20
	}
	runs := m.state().runs
	var out []*domain.ReflowRun
	for i := len(runs) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *runs[i]
		out = append(out, &cp)
	}
	return out, nil
}

type memHistory memRepos

func (m *memHistory) Append(ctx context.Context, events []domain.HistoryEvent) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	st := m.state()
	st.history = append(st.history, events...)
	return nil
}

func (m *memHistory) ListByActivity(ctx context.Context, activityID string) ([]domain.HistoryEvent, error) {
	out := m.filter(func(e domain.HistoryEvent) bool { return e.ActivityID == activityID })
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		if out[i].RunID != out[j].RunID {
			return out[i].RunID < out[j].RunID
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (m *memHistory) ListByRun(ctx context.Context, runID string) ([]domain.HistoryEvent, error) {
	out := m.filter(func(e domain.HistoryEvent) bool { return e.RunID == runID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *memHistory) filter(keep func(domain.HistoryEvent) bool) []domain.HistoryEvent {
	m.lock.Lock()
	defer m.lock.Unlock()
	var out []domain.HistoryEvent
	for _, e := range m.state().history {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
