package milp

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallModel() *Model {
	m := NewModel("small")
	x := m.AddVar("x_0_1", Binary, -5, 5)
	y := m.AddVar("tau_1", Continuous, 0, math.Inf(1))
	m.Objective.Add(x, 3.5)
	var e Expr
	e.Add(x, 2).Add(y, -1).AddConst(1)
	m.AddConstraint("time", e, LessEq, 4)
	var one Expr
	one.Add(x, 1)
	m.AddConstraint("visit", one, Equal, 1)
	return m
}

func TestModelBasics(t *testing.T) {
	m := smallModel()
	assert.Equal(t, Var{Name: "x_0_1", Kind: Binary, Lower: 0, Upper: 1}, m.Vars[0])
	assert.Equal(t, 1, m.NumBinaries())
	assert.Equal(t, map[string]int{"time": 1, "visit": 1}, m.FamilyCounts())
	assert.Equal(t, "time_0", m.Constraints[0].Name)

	require.NoError(t, m.Feasible([]float64{1, 0}, 1e-9))
	assert.Error(t, m.Feasible([]float64{0, 0}, 1e-9))
	assert.Error(t, m.Feasible([]float64{0.5, 0}, 1e-9))
	assert.Error(t, m.Feasible([]float64{1}, 1e-9))
	assert.Equal(t, 3.5, m.Objective.Eval([]float64{1, 7}))
}

func TestSolutionActive(t *testing.T) {
	var none *Solution
	assert.False(t, none.Feasible())
	s := &Solution{Values: []float64{0.995, 0.98, 1}}
	assert.True(t, s.Active(0))
	assert.False(t, s.Active(1))
	assert.False(t, s.Active(7))
	assert.Equal(t, "TIME_LIMIT", StatusTimeLimit.String())
	assert.Equal(t, "OPTIMAL", StatusOptimal.String())
	assert.Equal(t, 9, int(StatusTimeLimit))
	assert.Equal(t, "STATUS_99", Status(99).String())
}

func TestWriteLP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLP(&buf, smallModel()))
	out := buf.String()
	for _, want := range []string{
		"Minimize\n obj: + 3.5 x_0_1\n",
		" time_0: + 2 x_0_1 - 1 tau_1 <= 3\n",
		" visit_1: + 1 x_0_1 = 1\n",
		" 0 <= tau_1 <= +inf\n",
		"Binaries\n x_0_1\n",
	} {
		assert.Contains(t, out, want)
	}
	assert.True(t, strings.HasSuffix(out, "End\n"))
}

func TestWriteLPWrapsLongRows(t *testing.T) {
	m := NewModel("wide")
	var e Expr
	for i := 0; i < 100; i++ {
		e.Add(m.AddVar("x_long_name_"+strings.Repeat("a", 5), Binary, 0, 1), 1)
	}
	m.AddConstraint("wide", e, LessEq, 1)
	var buf bytes.Buffer
	require.NoError(t, WriteLP(&buf, m))
	for _, line := range strings.Split(buf.String(), "\n") {
		assert.Less(t, len(line), 255)
	}
}
