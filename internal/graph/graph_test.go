package graph

import (
	"errors"
	"testing"

	"github.com/macho715/tr-dash/internal/domain"
	"github.com/macho715/tr-dash/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_IndexesInLexicalOrder(t *testing.T) {
	s := testutil.NewTestSnapshot(
		testutil.NewTestActivity("C", 0, 10, testutil.After("A", "B")),
		testutil.NewTestActivity("A", 0, 10),
		testutil.NewTestActivity("B", 0, 10, testutil.After("A")),
	)

	g, err := Build(s)
	require.NoError(t, err)
	require.Equal(t, 3, g.Len())
	assert.Equal(t, "A", g.ID(0))
	assert.Equal(t, "C", g.ID(2))

	a, _ := g.Index("A")
	succ := g.Successors(a)
	require.Len(t, succ, 2)
	assert.Equal(t, "B", g.ID(succ[0].To))
	assert.Equal(t, "C", g.ID(succ[1].To))

	c, _ := g.Index("C")
	assert.Len(t, g.Predecessors(c), 2)
	assert.Len(t, g.Edges(), 3)
}

func TestBuild_UnknownPredecessor(t *testing.T) {
	s := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 10, testutil.After("ghost")),
	)

	_, err := Build(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedDependency)

	var me *MalformedError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "A", me.ActivityID)
	assert.Contains(t, me.Error(), "ghost")
}

func TestBuild_UnknownRelationType(t *testing.T) {
	s := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 10),
		testutil.NewTestActivity("B", 0, 10, testutil.WithDependency("A", "XX", 0)),
	)

	_, err := Build(s)
	assert.ErrorIs(t, err, ErrMalformedDependency)
}

func TestBuild_MalformedConstraint(t *testing.T) {
	s := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 10,
			testutil.WithConstraint(domain.ConstraintStartWindow, testutil.AtPtr(100), testutil.AtPtr(50))),
	)

	_, err := Build(s)
	assert.ErrorIs(t, err, ErrMalformedConstraint)
}

func TestBuild_CollectsAllErrors(t *testing.T) {
	s := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 10, testutil.After("ghost")),
		testutil.NewTestActivity("B", 0, 10, testutil.WithConstraint(domain.ConstraintFinishWindow, nil, nil)),
	)

	_, err := Build(s)
	assert.ErrorIs(t, err, ErrMalformedDependency)
	assert.ErrorIs(t, err, ErrMalformedConstraint)
}

func TestValidate_ThreeNodeCycle(t *testing.T) {
	s := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 10, testutil.After("C")),
		testutil.NewTestActivity("B", 0, 10, testutil.After("A")),
		testutil.NewTestActivity("C", 0, 10, testutil.After("B")),
		testutil.NewTestActivity("D", 0, 10, testutil.After("C")),
	)
	g, err := Build(s)
	require.NoError(t, err)

	cs := Validate(g)
	require.Len(t, cs, 1)
	assert.Equal(t, domain.CollisionDependencyCycle, cs[0].Kind)
	assert.Equal(t, domain.SeverityBlocking, cs[0].Severity)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, cs[0].ActivityIDs)
	assert.Contains(t, cs[0].Message, "A -> B -> C -> A")

	_, err = g.TopologicalOrder()
	assert.ErrorIs(t, err, ErrCycleDetected)
}

func TestValidate_SelfLoop(t *testing.T) {
	s := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 10, testutil.After("A")),
	)
	g, err := Build(s)
	require.NoError(t, err)

	cs := Validate(g)
	require.Len(t, cs, 1)
	assert.Equal(t, []string{"A"}, cs[0].ActivityIDs)

	_, err = g.TopologicalOrder()
	assert.ErrorIs(t, err, ErrCycleDetected)
}

func TestValidate_AcyclicDiamond(t *testing.T) {
	s := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 10),
		testutil.NewTestActivity("B", 0, 10, testutil.After("A")),
		testutil.NewTestActivity("C", 0, 10, testutil.After("A")),
		testutil.NewTestActivity("D", 0, 10, testutil.After("B", "C")),
	)
	g, err := Build(s)
	require.NoError(t, err)
	assert.Empty(t, Validate(g))
}

func TestFindCycles_TwoDisjointCycles(t *testing.T) {
	s := testutil.NewTestSnapshot(
		testutil.NewTestActivity("A", 0, 10, testutil.After("B")),
		testutil.NewTestActivity("B", 0, 10, testutil.After("A")),
		testutil.NewTestActivity("X", 0, 10, testutil.After("Y")),
		testutil.NewTestActivity("Y", 0, 10, testutil.After("X")),
	)
	g, err := Build(s)
	require.NoError(t, err)

	cycles := FindCycles(g)
	require.Len(t, cycles, 2)
	assert.Equal(t, "A -> B -> A", cycles[0].String())
	assert.Equal(t, "X -> Y -> X", cycles[1].String())
}

func TestTopologicalOrder_Stable(t *testing.T) {
	s := testutil.NewTestSnapshot(
		testutil.NewTestActivity("D", 0, 10, testutil.After("B")),
		testutil.NewTestActivity("C", 0, 10),
		testutil.NewTestActivity("B", 0, 10),
		testutil.NewTestActivity("A", 0, 10, testutil.After("D")),
	)
	g, err := Build(s)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		ids := make([]string, len(order))
		for k, idx := range order {
			ids[k] = g.ID(idx)
		}
		assert.Equal(t, []string{"B", "C", "D", "A"}, ids)
	}
}
