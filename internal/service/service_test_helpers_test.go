package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/macho715/tr-dash/internal/collision"
	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/repository"
	"github.com/macho715/tr-dash/internal/testutil"
	"github.com/stretchr/testify/require"
)

var testDefaults = Defaults{
	Actor:           "planner",
	Baseline:        "latest",
	BaselineOptions: collision.BaselineOptions{MajorAfter: 4 * time.Hour},
}

func fixedClock() time.Time { return testutil.At(0) }

// stores runs a test against both store implementations.
func stores(t *testing.T, fn func(t *testing.T, store repository.Store)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, repository.NewSQLiteStore(testutil.NewTestDB(t), nil))
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, repository.NewMemoryStore())
	})
}

func seed(t *testing.T, store repository.Store, snap *domain.Snapshot) {
	t.Helper()
	_, err := store.Repos().Schedule.Replace(context.Background(), 0, snap)
	require.NoError(t, err)
}

// chain is A(0..60) -> B planned too early at 50 -> C planned too early at 80.
func chain() *domain.Snapshot {
	return testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 60),
		testutil.NewTestActivity("B", 50, 30, testutil.After("A")),
		testutil.NewTestActivity("C", 80, 15, testutil.After("B")),
	)
}

type recordingPublisher struct {
	mu     sync.Mutex
	runs   []*domain.ReflowRun
	events int
	err    error
}

func (p *recordingPublisher) PublishRun(_ context.Context, run *domain.ReflowRun, events []domain.HistoryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.runs = append(p.runs, run)
	p.events += len(events)
	return nil
}

func (p *recordingPublisher) Close() {}

type recordingObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (o *recordingObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

// interleavingStore lets another writer commit right before the next
// transaction starts.
type interleavingStore struct {
	repository.Store
	before func()
}

func (s *interleavingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repos) error) error {
	if s.before != nil {
		f := s.before
		s.before = nil
		f()
	}
	return s.Store.WithinTx(ctx, fn)
}

var errBrokerDown = errors.New("broker down")
