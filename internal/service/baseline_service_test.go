package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macho715/tr-dash/internal/contract"
	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/logger"
	"github.com/macho715/tr-dash/internal/repository"
)

func TestCaptureBaseline(t *testing.T) {
	stores(t, func(t *testing.T, store repository.Store) {
		seed(t, store, chain())
		svc := NewBaselineService(store, WithClock(fixedClock))
		ctx := context.Background()

		b, err := svc.Capture(ctx, "rev A")
		require.NoError(t, err)
		assert.NotEmpty(t, b.ID)
		assert.Equal(t, "rev A", b.Name)
		assert.Len(t, b.Entries, 3)

		got, err := svc.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)

		all, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestCaptureBaseline_EmptySchedule(t *testing.T) {
	store := repository.NewMemoryStore()

	_, err := NewBaselineService(store).Capture(context.Background(), "empty")
	require.Error(t, err)

	all, err := store.Repos().Baselines.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestHistoryService_RunsAndEvents(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, chain())
	ctx := context.Background()

	resp, err := NewReflowService(store, testDefaults, WithClock(fixedClock)).Reflow(ctx, contract.NewReflowRequest(domain.TriggerRecompute))
	require.NoError(t, err)

	h := NewHistoryService(store)
	run, err := h.GetRun(ctx, resp.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCommitted, run.State)

	recent, err := h.RecentRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	byRun, err := h.ListByRun(ctx, resp.Run.ID)
	require.NoError(t, err)
	assert.Len(t, byRun, len(resp.History))

	byActivity, err := h.ListByActivity(ctx, "C")
	require.NoError(t, err)
	for _, e := range byActivity {
		assert.Equal(t, "C", e.ActivityID)
	}
	assert.NotEmpty(t, byActivity)

	_, err = h.GetRun(ctx, "nope")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestLogUseCaseObserver(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithOptions("service", logger.Options{Out: &buf})
	store := repository.NewMemoryStore()

	svc := NewBaselineService(store, WithObserver(NewLogUseCaseObserver(log)))
	_, err := svc.Capture(context.Background(), "empty")
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `"use_case":"capture-baseline"`)
	assert.Contains(t, out, `"success":false`)
	assert.Contains(t, out, "schedule is empty")
}

func TestLogUseCaseObserver_NilLogger(t *testing.T) {
	assert.IsType(t, NoopUseCaseObserver{}, NewLogUseCaseObserver(nil))
}
