package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ReplaceAndLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	repo := store.Repos().Schedule

	v, err := repo.Replace(ctx, 0, richSnapshot())
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, []string{"LOAD", "SAIL", "TIDE"}, got.ActivityIDs())

	// Loads are copies.
	delete(got.Activities, "LOAD")
	again, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, again.Activities, 3)

	_, err = repo.Replace(ctx, 0, richSnapshot())
	assert.True(t, errors.Is(err, ErrConcurrentSnapshotConflict))
}

func TestMemoryStore_TxRollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		if _, err := r.Schedule.Replace(ctx, 0, richSnapshot()); err != nil {
			return err
		}
		if err := r.Runs.Create(ctx, newTestRun("run-1")); err != nil {
			return err
		}
		return errors.New("history store offline")
	})
	require.Error(t, err)

	v, err := store.Repos().Schedule.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
	_, err = store.Repos().Runs.GetByID(ctx, "run-1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore_TxCommitsTogether(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		if _, err := r.Schedule.Replace(ctx, 0, richSnapshot()); err != nil {
			return err
		}
		if err := r.Runs.Create(ctx, newTestRun("run-1")); err != nil {
			return err
		}
		return r.History.Append(ctx, historyFixture())
	})
	require.NoError(t, err)

	repos := store.Repos()
	run, err := repos.Runs.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunCommitted, run.State)

	events, err := repos.History.ListByActivity(ctx, "A")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e3", events[0].ID)

	byRun, err := repos.History.ListByRun(ctx, "run-2")
	require.NoError(t, err)
	assert.Len(t, byRun, 2)
}

func TestMemoryStore_Baselines(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	repo := store.Repos().Baselines
	snap := richSnapshot()

	_, err := repo.Latest(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, repo.Create(ctx, domain.CaptureBaseline("b-2", "rev A", snap, testutil.At(60))))
	require.NoError(t, repo.Create(ctx, domain.CaptureBaseline("b-1", "initial", snap, testutil.At(0))))
	assert.Error(t, repo.Create(ctx, domain.CaptureBaseline("b-1", "again", snap, testutil.At(90))))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b-1", all[0].ID)

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b-2", latest.ID)
}

func TestMemoryStore_ListRecentRuns(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	repo := store.Repos().Runs

	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, repo.Create(ctx, newTestRun(id)))
	}
	runs, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].ID)
}
