package scheduler

import (
	"context"
	"testing"

	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recompute() domain.Trigger {
	return domain.Trigger{
		Kind:          domain.TriggerRecompute,
		Actor:         "planner",
		RequestedAt:   testutil.At(0),
		FullRecompute: true,
	}
}

func mustReflow(t *testing.T, snap *domain.Snapshot, trig domain.Trigger) *Outcome {
	t.Helper()
	out, err := Reflow(context.Background(), snap, trig, Options{})
	require.NoError(t, err)
	require.Equal(t, domain.RunComputing, out.Run.State)
	return out
}

func TestReflow_SnapsSuccessorForward(t *testing.T) {
	snap := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 60),
		testutil.NewTestActivity("B", 50, 30, testutil.After("A")),
	)

	out := mustReflow(t, snap, recompute())

	require.Len(t, out.Run.Changes, 1)
	ch := out.Run.Changes[0]
	assert.Equal(t, "B", ch.ActivityID)
	assert.Equal(t, testutil.At(50), ch.Old.Start)
	assert.Equal(t, testutil.At(60), ch.New.Start)
	assert.Equal(t, testutil.At(90), ch.New.End)
	assert.Equal(t, testutil.At(60), out.Snapshot.Activities["B"].Plan.Start)
	assert.Equal(t, testutil.At(50), snap.Activities["B"].Plan.Start, "live snapshot untouched")

	require.NoError(t, out.Commit(2))
	assert.Equal(t, domain.RunCommitted, out.Run.State)
	assert.Equal(t, int64(2), out.Snapshot.Version)

	again := mustReflow(t, out.Snapshot, recompute())
	assert.Empty(t, again.Run.Changes, "second run must not move anything")
	assert.Empty(t, again.History, "second run must not emit history")
}

func TestReflow_NeverPullsLeft(t *testing.T) {
	snap := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 60),
		testutil.NewTestActivity("B", 300, 30, testutil.After("A")),
	)

	out := mustReflow(t, snap, recompute())

	assert.Empty(t, out.Run.Changes)
	assert.Equal(t, testutil.At(300), out.Snapshot.Activities["B"].Plan.Start)
}

func TestReflow_KeepsStoredWindowUntilDelayed(t *testing.T) {
	long := testutil.NewTestActivity("A", 0, 60)
	long.Plan.End = testutil.At(120)
	late := testutil.NewTestActivity("X", 0, 60, testutil.After("P"))
	late.Plan.End = testutil.At(120)
	snap := testutil.NewTestSnapshot(long, late, testutil.NewTestActivity("P", 0, 30))

	out := mustReflow(t, snap, recompute())

	assert.Equal(t, []string{"X"}, ChangedIDs(out.Run), "an undelayed window is left alone")
	assert.Equal(t, testutil.At(120), out.Snapshot.Activities["A"].Plan.End)
	x := out.Snapshot.Activities["X"].Plan
	assert.Equal(t, testutil.At(30), x.Start)
	assert.Equal(t, testutil.At(90), x.End)

	again := mustReflow(t, out.Snapshot, recompute())
	assert.Empty(t, again.Run.Changes)
}

func TestReflow_FixedActivitiesStay(t *testing.T) {
	snap := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 60),
		testutil.NewTestActivity("H", 30, 30, testutil.After("A"), testutil.WithLock(domain.LockHard)),
		testutil.NewTestActivity("S", 30, 30, testutil.After("A"), testutil.WithLock(domain.LockSoft)),
		testutil.NewTestActivity("D", 30, 30, testutil.After("A"), testutil.WithState(domain.StateCompleted)),
		testutil.NewTestActivity("N", 70, 10, testutil.After("H")),
	)

	out := mustReflow(t, snap, recompute())

	assert.Equal(t, []string{"S"}, ChangedIDs(out.Run), "soft lock does not fix an activity")
	assert.Equal(t, testutil.At(30), out.Snapshot.Activities["H"].Plan.Start)
	assert.Equal(t, testutil.At(30), out.Snapshot.Activities["D"].Plan.Start)
	assert.Equal(t, testutil.At(70), out.Snapshot.Activities["N"].Plan.Start, "successor follows clamped window")
}

func TestReflow_ActualsPropagate(t *testing.T) {
	snap := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 60, testutil.WithState(domain.StateInProgress)),
		testutil.NewTestActivity("B", 60, 30, testutil.After("A")),
		testutil.NewTestActivity("C", 90, 30, testutil.After("B")),
	)
	start := testutil.At(20)
	trig := domain.Trigger{
		Kind:          domain.TriggerActuals,
		Actor:         "field",
		RequestedAt:   testutil.At(20),
		Perturbations: []domain.Perturbation{{ActivityID: "A", ActualStart: &start}},
	}

	out := mustReflow(t, snap, trig)

	assert.Equal(t, []string{"A", "B", "C"}, ChangedIDs(out.Run))
	assert.Equal(t, testutil.At(80), out.Snapshot.Activities["B"].Plan.Start)
	assert.Equal(t, testutil.At(110), out.Snapshot.Activities["C"].Plan.Start)

	require.NotEmpty(t, out.History)
	first := out.History[0]
	assert.Equal(t, "A", first.ActivityID)
	assert.Equal(t, FieldActualStart, first.Field)
	assert.Equal(t, "field", first.Actor)
	assert.Equal(t, 1, first.Seq)
	for i, ev := range out.History {
		assert.Equal(t, i+1, ev.Seq)
		assert.Equal(t, out.Run.ID, ev.RunID)
	}
}

func TestReflow_OverdueActivityProjectsOnlyWithAsOf(t *testing.T) {
	snap := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 60, testutil.WithState(domain.StateInProgress), testutil.WithActual(0, -1, 50)),
		testutil.NewTestActivity("B", 60, 30, testutil.After("A")),
	)

	for _, at := range []int64{120, 240} {
		trig := recompute()
		trig.RequestedAt = testutil.At(at)
		out := mustReflow(t, snap, trig)
		assert.Empty(t, out.Run.Changes, "request time alone does not move work (t=%d)", at)
	}

	out, err := Reflow(context.Background(), snap, recompute(), Options{AsOf: testutil.At(120)})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ChangedIDs(out.Run))
	assert.Equal(t, testutil.At(120), out.Snapshot.Activities["A"].Plan.End)
	assert.Equal(t, testutil.At(120), out.Snapshot.Activities["B"].Plan.Start)
}

func TestReflow_PinRelocatesAndIsFixed(t *testing.T) {
	snap := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 60),
		testutil.NewTestActivity("B", 100, 30, testutil.After("A")),
	)
	pin := testutil.At(40)
	trig := domain.Trigger{
		Kind:          domain.TriggerPins,
		RequestedAt:   testutil.At(0),
		Perturbations: []domain.Perturbation{{ActivityID: "B", Pin: &pin}},
	}

	out := mustReflow(t, snap, trig)

	b := out.Snapshot.Activities["B"]
	require.NotNil(t, b.Pin)
	assert.Equal(t, testutil.At(40), b.Plan.Start, "pin overrides computed placement")
	assert.Equal(t, []string{"B"}, ChangedIDs(out.Run))
}

func TestReflow_RejectsPerturbationsOnLockedAndFrozen(t *testing.T) {
	snap := testutil.NewTestSnapshot(
		testutil.NewTestActivity("H", 0, 60, testutil.WithLock(domain.LockHard)),
		testutil.NewTestActivity("D", 0, 60, testutil.WithState(domain.StateCompleted)),
	)
	pin := testutil.At(500)
	start := testutil.At(10)
	ready := domain.StateReady
	trig := domain.Trigger{
		Kind:        domain.TriggerPins,
		RequestedAt: testutil.At(0),
		Perturbations: []domain.Perturbation{
			{ActivityID: "H", Pin: &pin},
			{ActivityID: "D", ActualStart: &start, State: &ready},
		},
	}

	out := mustReflow(t, snap, trig)

	require.Len(t, out.Run.Warnings, 3)
	assert.Contains(t, out.Run.Warnings[0], "pin on H rejected: lock:hard")
	assert.Contains(t, out.Run.Warnings[1], "actuals on D rejected")
	assert.Contains(t, out.Run.Warnings[2], "state on D rejected")
	assert.Nil(t, out.Snapshot.Activities["H"].Pin)
	assert.Nil(t, out.Snapshot.Activities["D"].Actual)
	assert.Empty(t, out.Run.Changes)
}

func TestReflow_WarnsWhenLockOutranksStoredPin(t *testing.T) {
	snap := testutil.NewTestSnapshot(
		testutil.NewTestActivity("H", 0, 60, testutil.WithLock(domain.LockBaseline), testutil.WithPin(500)),
	)

	out := mustReflow(t, snap, recompute())

	assert.Equal(t, []string{"pin on H ignored: lock:baseline outranks pin"}, out.Run.Warnings)
	assert.Equal(t, testutil.At(0), out.Snapshot.Activities["H"].Plan.Start)
}

func TestReflow_CycleAbortsWithoutMutation(t *testing.T) {
	snap := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 10, testutil.After("C")),
		testutil.NewTestActivity("B", 0, 10, testutil.After("A")),
		testutil.NewTestActivity("C", 0, 10, testutil.After("B")),
	)
	before := snap.Clone()

	out, err := Reflow(context.Background(), snap, recompute(), Options{})

	require.ErrorIs(t, err, ErrCycleDetected)
	require.NotNil(t, out)
	assert.Equal(t, domain.RunAborted, out.Run.State)
	assert.Nil(t, out.Snapshot)
	assert.Empty(t, out.Run.Changes)
	require.Len(t, out.Run.Collisions, 1)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, out.Run.Collisions[0].ActivityIDs)
	assert.Equal(t, before, snap)
}

func TestReflow_MalformedAborts(t *testing.T) {
	snap := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 10, testutil.After("ghost")),
	)

	out, err := Reflow(context.Background(), snap, recompute(), Options{})

	require.Error(t, err)
	assert.Equal(t, domain.RunAborted, out.Run.State)
	assert.NotEmpty(t, out.Run.Error)
}

func TestReflow_UnknownPerturbationTarget(t *testing.T) {
	snap := testutil.NewTestSnapshot(testutil.NewTestActivity("A", 0, 10))
	trig := recompute()
	trig.Perturbations = []domain.Perturbation{{ActivityID: "nope", ClearPin: true}}

	_, err := Reflow(context.Background(), snap, trig, Options{})
	assert.ErrorIs(t, err, ErrUnknownActivity)
}

func TestReflow_InvalidTrigger(t *testing.T) {
	snap := testutil.NewTestSnapshot(testutil.NewTestActivity("A", 0, 10))

	_, err := Reflow(context.Background(), snap, domain.Trigger{Kind: "bogus"}, Options{})
	assert.ErrorIs(t, err, ErrInvalidTrigger)
}

func TestReflow_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap := testutil.NewTestSnapshot(testutil.NewTestActivity("A", 0, 10))

	out, err := Reflow(ctx, snap, recompute(), Options{})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.RunAborted, out.Run.State)
}

func TestReflow_FixedConstraintViolationStillCommits(t *testing.T) {
	snap := testutil.NewTestSnapshot(
		testutil.NewTestActivity("H", 100, 30,
			testutil.WithLock(domain.LockHard),
			testutil.WithConstraint(domain.ConstraintFinishWindow, nil, testutil.AtPtr(120))),
	)

	out := mustReflow(t, snap, recompute())

	require.Len(t, out.Run.Collisions, 1)
	c := out.Run.Collisions[0]
	assert.Equal(t, domain.CollisionConstraintWindow, c.Kind)
	assert.Equal(t, domain.SeverityBlocking, c.Severity)
	assert.Equal(t, []string{"H"}, c.ActivityIDs)
	require.NoError(t, out.Commit(2))
}

func TestReflow_ChangesFollowTieBreakOrder(t *testing.T) {
	snap := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 60),
		testutil.NewTestActivity("b", 10, 10, testutil.After("A")),
		testutil.NewTestActivity("a", 10, 10, testutil.After("A")),
		testutil.NewTestActivity("p", 20, 10, testutil.After("A"), testutil.WithPriority(5)),
		testutil.NewTestActivity("s", 30, 10, testutil.After("A"), testutil.WithLock(domain.LockSoft)),
	)

	out := mustReflow(t, snap, recompute())

	assert.Equal(t, []string{"s", "p", "a", "b"}, ChangedIDs(out.Run))
}

func TestReflow_Deterministic(t *testing.T) {
	build := func() *domain.Snapshot {
		return testutil.NewTestSnapshot(
			testutil.NewTestActivity("A", 0, 60),
			testutil.NewTestActivity("B", 10, 30, testutil.After("A")),
			testutil.NewTestActivity("C", 10, 30, testutil.After("A")),
			testutil.NewTestActivity("D", 0, 15, testutil.After("B", "C")),
		)
	}
	start := testutil.At(15)
	trig := domain.Trigger{
		Kind:          domain.TriggerActuals,
		Actor:         "ops",
		RequestedAt:   testutil.At(15),
		Perturbations: []domain.Perturbation{{ActivityID: "A", ActualStart: &start}},
	}

	first := mustReflow(t, build(), trig)
	for i := 0; i < 10; i++ {
		next := mustReflow(t, build(), trig)
		assert.Equal(t, first.Run, next.Run)
		assert.Equal(t, first.History, next.History)
		assert.Equal(t, first.Snapshot, next.Snapshot)
	}
}

func TestRunID_DependsOnVersionAndTrigger(t *testing.T) {
	trig := recompute()
	assert.Equal(t, RunID(1, trig), RunID(1, trig))
	assert.NotEqual(t, RunID(1, trig), RunID(2, trig))

	other := trig
	other.Actor = "someone-else"
	assert.NotEqual(t, RunID(1, trig), RunID(1, other))
}

func TestOutcome_AbortDiscardsPlan(t *testing.T) {
	out := mustReflow(t, testutil.NewTestSnapshot(testutil.NewTestActivity("A", 0, 10)), recompute())

	require.NoError(t, out.Abort(nil))
	assert.Equal(t, domain.RunAborted, out.Run.State)
	assert.Nil(t, out.Snapshot)
	assert.Error(t, out.Abort(nil), "already finalized")
}
