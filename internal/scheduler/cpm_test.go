package scheduler

import (
	"context"
	"testing"

	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/graph"
	"github.com/macho715/tr-dash/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGraph(t *testing.T, activities ...domain.Activity) *graph.Graph {
	t.Helper()
	g, err := graph.Build(testutil.NewTestSnapshot(activities...))
	require.NoError(t, err)
	return g
}

func mustTiming(t *testing.T, opts TimingOptions, activities ...domain.Activity) map[string]domain.Timing {
	t.Helper()
	timing, err := ComputeTiming(context.Background(), mustGraph(t, activities...), opts)
	require.NoError(t, err)
	return timing
}

func TestComputeTiming_Chain(t *testing.T) {
	timing := mustTiming(t, TimingOptions{},
		testutil.NewTestActivity("A", 0, 60),
		testutil.NewTestActivity("B", 0, 30, testutil.After("A")),
	)

	b := timing["B"]
	assert.Equal(t, testutil.At(60), b.ES)
	assert.Equal(t, testutil.At(90), b.EF)
	assert.Equal(t, testutil.At(60), b.LS)
	assert.Equal(t, testutil.At(90), b.LF)
	assert.True(t, b.Critical())

	a := timing["A"]
	assert.Equal(t, int64(0), a.TotalFloatMin)
	assert.Equal(t, int64(0), a.FreeFloatMin)
}

func TestComputeTiming_ParallelBranchHasFloat(t *testing.T) {
	timing := mustTiming(t, TimingOptions{},
		testutil.NewTestActivity("A", 0, 60),
		testutil.NewTestActivity("C", 0, 10),
		testutil.NewTestActivity("D", 0, 20, testutil.After("A", "C")),
	)

	c := timing["C"]
	assert.Equal(t, int64(50), c.TotalFloatMin)
	assert.Equal(t, int64(50), c.FreeFloatMin)
	assert.Equal(t, testutil.At(50), c.LS)
	assert.False(t, c.Critical())

	assert.Equal(t, testutil.At(80), timing["D"].EF)
	assert.True(t, timing["A"].Critical())
}

func TestComputeTiming_RelationTypes(t *testing.T) {
	timing := mustTiming(t, TimingOptions{},
		testutil.NewTestActivity("A", 0, 60),
		testutil.NewTestActivity("SS", 0, 30, testutil.WithDependency("A", domain.StartToStart, 10)),
		testutil.NewTestActivity("FF", 0, 20, testutil.WithDependency("A", domain.FinishToFinish, 0)),
		testutil.NewTestActivity("SF", 0, 50, testutil.WithDependency("A", domain.StartToFinish, 100)),
		testutil.NewTestActivity("FS", 0, 10, testutil.WithDependency("A", domain.FinishToStart, -15)),
	)

	assert.Equal(t, testutil.At(10), timing["SS"].ES, "SS: pred ES + lag")
	assert.Equal(t, testutil.At(40), timing["FF"].ES, "FF: pred EF + lag - duration")
	assert.Equal(t, testutil.At(60), timing["FF"].EF)
	assert.Equal(t, testutil.At(50), timing["SF"].ES, "SF: pred ES + lag - duration")
	assert.Equal(t, testutil.At(45), timing["FS"].ES, "FS: pred EF + negative lag")
}

func TestComputeTiming_Milestone(t *testing.T) {
	timing := mustTiming(t, TimingOptions{},
		testutil.NewTestActivity("A", 0, 45),
		testutil.NewTestActivity("M", 0, 0, testutil.After("A")),
	)

	m := timing["M"]
	assert.Equal(t, m.ES, m.EF)
	assert.Equal(t, testutil.At(45), m.ES)
}

func TestComputeTiming_ActualStartPinsES(t *testing.T) {
	timing := mustTiming(t, TimingOptions{},
		testutil.NewTestActivity("A", 0, 60),
		testutil.NewTestActivity("B", 60, 30, testutil.After("A"), testutil.WithActual(30, -1, 0)),
	)

	assert.Equal(t, testutil.At(30), timing["B"].ES)
	assert.Equal(t, testutil.At(60), timing["B"].EF)
}

func TestComputeTiming_ZeroPredecessorsUsePlanThenEpoch(t *testing.T) {
	timing := mustTiming(t, TimingOptions{},
		testutil.NewTestActivity("A", 120, 10),
		testutil.NewTestActivity("B", 0, 10, testutil.WithoutPlan()),
	)

	assert.Equal(t, testutil.At(120), timing["A"].ES)
	assert.Equal(t, testutil.Epoch, timing["B"].ES)
}

func TestComputeTiming_ConstraintWindows(t *testing.T) {
	timing := mustTiming(t, TimingOptions{},
		testutil.NewTestActivity("A", 0, 30,
			testutil.WithConstraint(domain.ConstraintStartWindow, testutil.AtPtr(100), nil)),
		testutil.NewTestActivity("B", 0, 30,
			testutil.WithConstraint(domain.ConstraintFinishWindow, testutil.AtPtr(200), nil)),
		testutil.NewTestActivity("C", 0, 10,
			testutil.WithConstraint(domain.ConstraintFinishWindow, nil, testutil.AtPtr(50))),
	)

	assert.Equal(t, testutil.At(100), timing["A"].ES, "start window floors ES")
	assert.Equal(t, testutil.At(170), timing["B"].ES, "finish window floors EF")
	assert.Equal(t, testutil.At(50), timing["C"].LF, "finish window caps LF")
	assert.Equal(t, int64(40), timing["C"].TotalFloatMin)
}

func TestComputeTiming_WorkDrivenRemaining(t *testing.T) {
	timing := mustTiming(t, TimingOptions{AsOf: testutil.At(50)},
		testutil.NewTestActivity("A", 0, 100, testutil.WithWorkDriven(), testutil.WithActual(0, -1, 40)),
	)

	assert.Equal(t, testutil.At(0), timing["A"].ES)
	assert.Equal(t, testutil.At(110), timing["A"].EF, "60 minutes remaining counted from as-of")
}

func TestComputeTiming_FinishedUsesActualEnd(t *testing.T) {
	timing := mustTiming(t, TimingOptions{},
		testutil.NewTestActivity("A", 0, 60, testutil.WithActual(5, 95, 100), testutil.WithState(domain.StateCompleted)),
		testutil.NewTestActivity("B", 60, 10, testutil.After("A")),
	)

	assert.Equal(t, testutil.At(95), timing["A"].EF)
	assert.Equal(t, testutil.At(95), timing["B"].ES)
}

func TestComputeTiming_CycleFails(t *testing.T) {
	g := mustGraph(t,
		testutil.NewTestActivity("A", 0, 10, testutil.After("B")),
		testutil.NewTestActivity("B", 0, 10, testutil.After("A")),
	)

	_, err := ComputeTiming(context.Background(), g, TimingOptions{})
	assert.ErrorIs(t, err, ErrCycleDetected)
}

func TestComputeTiming_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ComputeTiming(ctx, mustGraph(t, testutil.NewTestActivity("A", 0, 10)), TimingOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemaining_RoundsUp(t *testing.T) {
	assert.Equal(t, int64(100), remaining(100, 0))
	assert.Equal(t, int64(0), remaining(100, 100))
	assert.Equal(t, int64(7), remaining(10, 33))
	assert.Equal(t, int64(10), remaining(10, -5), "progress clamped to 0")
}
