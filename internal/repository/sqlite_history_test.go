package repository

import (
	"context"
	"testing"

	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyFixture() []domain.HistoryEvent {
	return []domain.HistoryEvent{
		{ID: "e1", RunID: "run-2", Seq: 0, At: testutil.At(60), Actor: "planner", ActivityID: "A", Field: "plan_start", Old: "x", New: "y"},
		{ID: "e2", RunID: "run-2", Seq: 1, At: testutil.At(60), Actor: "planner", ActivityID: "B", Field: "plan_start", Old: "", New: "z"},
		{ID: "e3", RunID: "run-1", Seq: 0, At: testutil.At(0), Actor: "field", ActivityID: "A", Field: "actual_start", Old: "", New: "w"},
	}
}

func TestHistoryRepo_ListByActivityChronological(t *testing.T) {
	repo := NewSQLiteHistoryRepo(testutil.NewTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, historyFixture()))

	events, err := repo.ListByActivity(ctx, "A")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e3", events[0].ID)
	assert.Equal(t, "e1", events[1].ID)
	assert.Equal(t, "planner", events[1].Actor)
	assert.True(t, testutil.At(60).Equal(events[1].At))
}

func TestHistoryRepo_ListByRunInSequence(t *testing.T) {
	repo := NewSQLiteHistoryRepo(testutil.NewTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, historyFixture()))

	events, err := repo.ListByRun(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 0, events[0].Seq)
	assert.Equal(t, 1, events[1].Seq)
	assert.Equal(t, "", events[1].Old)
}

func TestHistoryRepo_AppendOnly(t *testing.T) {
	repo := NewSQLiteHistoryRepo(testutil.NewTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, historyFixture()))

	err := repo.Append(ctx, historyFixture()[:1])
	assert.Error(t, err, "event ids are unique")
}
