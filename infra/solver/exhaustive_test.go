package solver

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evrptw/core/milp"
)

func TestExhaustiveKnapsack(t *testing.T) {
	m := milp.NewModel("knapsack")
	a := m.AddVar("a", milp.Binary, 0, 1)
	b := m.AddVar("b", milp.Binary, 0, 1)
	c := m.AddVar("c", milp.Binary, 0, 1)
	m.Objective.Add(a, -3).Add(b, -2).Add(c, -4)
	var w milp.Expr
	w.Add(a, 2).Add(b, 1).Add(c, 3)
	m.AddConstraint("weight", w, milp.LessEq, 4)

	sol, err := NewExhaustive(0).Optimize(context.Background(), m, milp.Params{})
	require.NoError(t, err)
	assert.Equal(t, milp.StatusOptimal, sol.Status)
	assert.InDelta(t, -6, sol.Objective, 1e-9)
	assert.Zero(t, sol.Gap)
	assert.False(t, sol.Active(a))
	assert.True(t, sol.Active(b))
	assert.True(t, sol.Active(c))
	require.NoError(t, m.Feasible(sol.Values, 1e-6))
}

func TestExhaustiveMixed(t *testing.T) {
	m := milp.NewModel("mixed")
	a := m.AddVar("a", milp.Binary, 0, 1)
	y := m.AddVar("y", milp.Continuous, 0, math.Inf(1))
	m.Objective.Add(y, 1).Add(a, 1)
	var e milp.Expr
	e.Add(y, 1).Add(a, 5)
	m.AddConstraint("cover", e, milp.GreaterEq, 3)

	sol, err := NewExhaustive(0).Optimize(context.Background(), m, milp.Params{})
	require.NoError(t, err)
	assert.Equal(t, milp.StatusOptimal, sol.Status)
	assert.InDelta(t, 1, sol.Objective, 1e-7)
	assert.True(t, sol.Active(a))
	assert.InDelta(t, 0, sol.Value(y), 1e-7)
}

func TestExhaustiveEquality(t *testing.T) {
	m := milp.NewModel("eq")
	a := m.AddVar("a", milp.Binary, 0, 1)
	y := m.AddVar("y", milp.Continuous, 0, 10)
	m.Objective.Add(y, -1)
	var e milp.Expr
	e.Add(y, 1).Add(a, -4)
	m.AddConstraint("link", e, milp.Equal, 2)

	sol, err := NewExhaustive(0).Optimize(context.Background(), m, milp.Params{})
	require.NoError(t, err)
	assert.Equal(t, milp.StatusOptimal, sol.Status)
	assert.InDelta(t, -6, sol.Objective, 1e-7)
	assert.InDelta(t, 6, sol.Value(y), 1e-7)
}

func TestExhaustiveInfeasible(t *testing.T) {
	m := milp.NewModel("infeasible")
	a := m.AddVar("a", milp.Binary, 0, 1)
	b := m.AddVar("b", milp.Binary, 0, 1)
	var one, two milp.Expr
	one.Add(a, 1).Add(b, 1)
	two.Add(a, 1).Add(b, 1)
	m.AddConstraint("one", one, milp.Equal, 1)
	m.AddConstraint("two", two, milp.GreaterEq, 2)

	sol, err := NewExhaustive(0).Optimize(context.Background(), m, milp.Params{})
	require.NoError(t, err)
	assert.Equal(t, milp.StatusInfeasible, sol.Status)
	assert.False(t, sol.Feasible())
	assert.False(t, sol.HasObjective)
}

func TestExhaustiveContinuousInfeasible(t *testing.T) {
	m := milp.NewModel("lp-infeasible")
	a := m.AddVar("a", milp.Binary, 0, 1)
	y := m.AddVar("y", milp.Continuous, 0, 1)
	var e milp.Expr
	e.Add(y, 1).Add(a, 1)
	m.AddConstraint("high", e, milp.GreaterEq, 5)

	sol, err := NewExhaustive(0).Optimize(context.Background(), m, milp.Params{})
	require.NoError(t, err)
	assert.Equal(t, milp.StatusInfeasible, sol.Status)
}

func TestExhaustiveTooLarge(t *testing.T) {
	m := milp.NewModel("large")
	var e milp.Expr
	for i := 0; i < 3; i++ {
		e.Add(m.AddVar("b", milp.Binary, 0, 1), 1)
	}
	m.AddConstraint("sum", e, milp.LessEq, 2)

	_, err := NewExhaustive(2).Optimize(context.Background(), m, milp.Params{})
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestExhaustiveIgnoresUnreferencedBinaries(t *testing.T) {
	m := milp.NewModel("loose")
	for i := 0; i < 50; i++ {
		m.AddVar("free", milp.Binary, 0, 1)
	}
	sol, err := NewExhaustive(2).Optimize(context.Background(), m, milp.Params{})
	require.NoError(t, err)
	assert.Equal(t, milp.StatusOptimal, sol.Status)
	for _, v := range sol.Values {
		assert.Zero(t, v)
	}
}

func TestExhaustiveCancelled(t *testing.T) {
	m := milp.NewModel("cancelled")
	y := m.AddVar("y", milp.Continuous, 0, math.Inf(1))
	m.Objective.Add(y, 1)
	for i := 0; i < 16; i++ {
		b := m.AddVar("b", milp.Binary, 0, 1)
		var e milp.Expr
		e.Add(y, 1).Add(b, -1)
		m.AddConstraint("cover", e, milp.GreaterEq, 0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sol, err := NewExhaustive(0).Optimize(ctx, m, milp.Params{})
	require.NoError(t, err)
	assert.Equal(t, milp.StatusInterrupted, sol.Status)
}
