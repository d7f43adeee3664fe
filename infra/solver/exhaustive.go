package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/evrptw/core/milp"
	"github.com/kilianp07/evrptw/infra/logger"
)

// DefaultMaxBinaries bounds the models Exhaustive accepts.
const DefaultMaxBinaries = 40

// ErrTooLarge is returned for models with more branching binaries than the
// configured maximum.
var ErrTooLarge = errors.New("model too large for exhaustive search")

const (
	feasTol    = 1e-7
	simplexTol = 1e-9
	checkEvery = 512
)

// Exhaustive enumerates binary assignments depth first, pruning with the
// rows that only involve binaries and with the objective bound, and solves
// the continuous rows of every complete assignment as an LP.
type Exhaustive struct {
	MaxBinaries int
	log         logger.Logger
}

// NewExhaustive returns a solver accepting up to maxBinaries branching
// binaries; 0 selects DefaultMaxBinaries.
func NewExhaustive(maxBinaries int) *Exhaustive {
	if maxBinaries <= 0 {
		maxBinaries = DefaultMaxBinaries
	}
	return &Exhaustive{MaxBinaries: maxBinaries, log: logger.New("exhaustive")}
}

type binRow struct {
	sense   milp.Sense
	rhs     float64
	fixed   float64
	minRest float64
	maxRest float64
}

func (r *binRow) ok() bool {
	switch r.sense {
	case milp.LessEq:
		return r.fixed+r.minRest <= r.rhs+feasTol
	case milp.GreaterEq:
		return r.fixed+r.maxRest >= r.rhs-feasTol
	default:
		return r.fixed+r.minRest <= r.rhs+feasTol && r.fixed+r.maxRest >= r.rhs-feasTol
	}
}

type rowRef struct {
	row  int
	coef float64
}

type search struct {
	ctx      context.Context
	m        *milp.Model
	deadline time.Time

	order    []int // branching binaries
	rows     []binRow
	touches  map[int][]rowRef
	mixed    []milp.Constraint
	cont     []int
	objBin   []float64 // by variable index
	negAfter []float64 // sum of negative objective coefs of order[k:]
	contObj  bool

	values   []float64
	objFixed float64

	best     []float64
	bestObj  float64
	nodes    int
	leaves   int
	stopped  milp.Status
	lpErr    error
}

// Optimize implements milp.Solver. Threads are ignored: the search is
// sequential.
func (e *Exhaustive) Optimize(ctx context.Context, m *milp.Model, p milp.Params) (*milp.Solution, error) {
	start := time.Now()
	s := e.prepare(ctx, m)
	if len(s.order) > e.MaxBinaries {
		return nil, fmt.Errorf("%w: %d binaries, limit %d", ErrTooLarge, len(s.order), e.MaxBinaries)
	}
	if p.TimeLimit > 0 {
		s.deadline = start.Add(p.TimeLimit)
	}
	for i := range s.rows {
		if !s.rows[i].ok() {
			return e.finish(s, m, start), nil
		}
	}
	s.dfs(0)
	if s.lpErr != nil {
		return nil, s.lpErr
	}
	return e.finish(s, m, start), nil
}

func (e *Exhaustive) finish(s *search, m *milp.Model, start time.Time) *milp.Solution {
	sol := &milp.Solution{Runtime: time.Since(start), Gap: math.Inf(1)}
	switch {
	case s.stopped != milp.StatusUnknown:
		sol.Status = s.stopped
	case s.best == nil:
		sol.Status = milp.StatusInfeasible
	default:
		sol.Status = milp.StatusOptimal
	}
	if s.best != nil {
		sol.Values = s.best
		sol.Objective = s.bestObj
		sol.HasObjective = true
		sol.Gap = 0
		if sol.Status != milp.StatusOptimal {
			sol.Gap = relGap(s.bestObj, m.Objective.Const+s.negAfter[0])
		}
	}
	e.log.Debugw("exhaustive search done", map[string]any{
		"model":  m.Name,
		"status": sol.Status.String(),
		"nodes":  s.nodes,
		"leaves": s.leaves,
	})
	return sol
}

func relGap(obj, bound float64) float64 {
	if obj == 0 {
		if bound == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(obj-bound) / math.Abs(obj)
}

func (e *Exhaustive) prepare(ctx context.Context, m *milp.Model) *search {
	n := len(m.Vars)
	s := &search{
		ctx:     ctx,
		m:       m,
		touches: make(map[int][]rowRef),
		objBin:  make([]float64, n),
		values:  make([]float64, n),
	}
	referenced := make([]bool, n)
	for _, t := range m.Objective.Terms {
		if m.Vars[t.Var].Kind == milp.Binary {
			s.objBin[t.Var] += t.Coef
		} else {
			s.contObj = true
		}
		referenced[t.Var] = true
	}
	for _, c := range m.Constraints {
		pure := true
		for _, t := range c.Expr.Terms {
			referenced[t.Var] = true
			if m.Vars[t.Var].Kind != milp.Binary {
				pure = false
			}
		}
		if !pure {
			s.mixed = append(s.mixed, c)
			continue
		}
		r := binRow{sense: c.Sense, rhs: c.RHS, fixed: c.Expr.Const}
		idx := len(s.rows)
		for _, t := range c.Expr.Terms {
			if t.Coef < 0 {
				r.minRest += t.Coef
			} else {
				r.maxRest += t.Coef
			}
			s.touches[t.Var] = append(s.touches[t.Var], rowRef{row: idx, coef: t.Coef})
		}
		s.rows = append(s.rows, r)
	}
	for i, v := range m.Vars {
		if v.Kind != milp.Binary {
			s.cont = append(s.cont, i)
			continue
		}
		// Binaries nothing refers to stay at zero.
		if referenced[i] {
			s.order = append(s.order, i)
		}
	}
	s.negAfter = make([]float64, len(s.order)+1)
	for k := len(s.order) - 1; k >= 0; k-- {
		s.negAfter[k] = s.negAfter[k+1] + math.Min(0, s.objBin[s.order[k]])
	}
	s.objFixed = m.Objective.Const
	return s
}

func (s *search) halted() bool {
	if s.stopped != milp.StatusUnknown || s.lpErr != nil {
		return true
	}
	s.nodes++
	if s.nodes%checkEvery != 0 {
		return false
	}
	if s.ctx.Err() != nil {
		s.stopped = milp.StatusInterrupted
		return true
	}
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		s.stopped = milp.StatusTimeLimit
		return true
	}
	return false
}

func (s *search) dfs(k int) {
	if s.halted() {
		return
	}
	if !s.contObj && s.best != nil && s.objFixed+s.negAfter[k] >= s.bestObj-feasTol {
		return
	}
	if k == len(s.order) {
		s.leaf()
		return
	}
	v := s.order[k]
	for _, val := range [2]float64{0, 1} {
		if s.assign(v, val) {
			s.dfs(k + 1)
		}
		s.unassign(v, val)
	}
}

// assign fixes v and reports whether every pure-binary row it touches can
// still be satisfied.
func (s *search) assign(v int, val float64) bool {
	s.values[v] = val
	s.objFixed += s.objBin[v] * val
	ok := true
	for _, ref := range s.touches[v] {
		r := &s.rows[ref.row]
		r.fixed += ref.coef * val
		if ref.coef < 0 {
			r.minRest -= ref.coef
		} else {
			r.maxRest -= ref.coef
		}
		if !r.ok() {
			ok = false
		}
	}
	return ok
}

func (s *search) unassign(v int, val float64) {
	s.values[v] = 0
	s.objFixed -= s.objBin[v] * val
	for _, ref := range s.touches[v] {
		r := &s.rows[ref.row]
		r.fixed -= ref.coef * val
		if ref.coef < 0 {
			r.minRest += ref.coef
		} else {
			r.maxRest += ref.coef
		}
	}
}

func (s *search) leaf() {
	s.leaves++
	contVals, contObj, ok, err := s.solveContinuous()
	if err != nil {
		s.lpErr = err
		return
	}
	if !ok {
		return
	}
	obj := s.objFixed + contObj
	if s.best != nil && obj >= s.bestObj-feasTol {
		return
	}
	best := make([]float64, len(s.values))
	copy(best, s.values)
	for i, v := range s.cont {
		best[v] = contVals[i]
	}
	s.best, s.bestObj = best, obj
}

// solveContinuous solves the LP left once every binary is fixed. Rows are
// written as G y <= h; bounds become rows as well so every column has a
// nonzero entry.
func (s *search) solveContinuous() ([]float64, float64, bool, error) {
	nc := len(s.cont)
	col := make(map[int]int, nc)
	for i, v := range s.cont {
		col[v] = i
	}
	var g [][]float64
	var h []float64
	addRow := func(coefs []float64, rhs float64) {
		g = append(g, coefs)
		h = append(h, rhs)
	}
	for _, c := range s.mixed {
		row := make([]float64, nc)
		constant := c.Expr.Const
		for _, t := range c.Expr.Terms {
			if j, ok := col[t.Var]; ok {
				row[j] += t.Coef
			} else {
				constant += t.Coef * s.values[t.Var]
			}
		}
		rhs := c.RHS - constant
		if floats.Norm(row, math.Inf(1)) == 0 {
			if !constSatisfied(c.Sense, rhs) {
				return nil, 0, false, nil
			}
			continue
		}
		switch c.Sense {
		case milp.LessEq:
			addRow(row, rhs)
		case milp.GreaterEq:
			floats.Scale(-1, row)
			addRow(row, -rhs)
		default:
			neg := make([]float64, nc)
			floats.ScaleTo(neg, -1, row)
			addRow(row, rhs)
			addRow(neg, -rhs)
		}
	}
	obj := make([]float64, nc)
	for _, t := range s.m.Objective.Terms {
		if j, ok := col[t.Var]; ok {
			obj[j] += t.Coef
		}
	}
	used := make([]bool, nc)
	for _, r := range g {
		for j, a := range r {
			if a != 0 {
				used[j] = true
			}
		}
	}
	for j, v := range s.cont {
		bv := s.m.Vars[v]
		if !math.IsInf(bv.Lower, -1) {
			row := make([]float64, nc)
			row[j] = -1
			addRow(row, -bv.Lower)
			used[j] = true
		}
		if !math.IsInf(bv.Upper, 1) {
			row := make([]float64, nc)
			row[j] = 1
			addRow(row, bv.Upper)
			used[j] = true
		}
	}
	for j := range used {
		if !used[j] {
			if obj[j] != 0 {
				return nil, 0, false, fmt.Errorf("%s: unbounded free variable %s", s.m.Name, s.m.Vars[s.cont[j]].Name)
			}
		}
	}
	if nc == 0 || len(g) == 0 {
		return make([]float64, nc), 0, true, nil
	}

	// Compact away columns that appear in no row; they stay at zero.
	var keep []int
	for j := range used {
		if used[j] {
			keep = append(keep, j)
		}
	}
	gm := mat.NewDense(len(g), len(keep), nil)
	for i, r := range g {
		for k, j := range keep {
			gm.Set(i, k, r[j])
		}
	}
	c := make([]float64, len(keep))
	for k, j := range keep {
		c[k] = obj[j]
	}
	cStd, aStd, bStd := lp.Convert(c, gm, h, nil, nil)
	optF, x, err := lp.Simplex(cStd, aStd, bStd, simplexTol, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return nil, 0, false, nil
	case errors.Is(err, lp.ErrUnbounded):
		s.stopped = milp.StatusUnbounded
		return nil, 0, false, nil
	case err != nil:
		return nil, 0, false, fmt.Errorf("%s: simplex: %w", s.m.Name, err)
	}
	out := make([]float64, nc)
	nk := len(keep)
	for k, j := range keep {
		out[j] = x[k] - x[nk+k]
	}
	return out, optF, true, nil
}

func constSatisfied(sense milp.Sense, rhs float64) bool {
	switch sense {
	case milp.LessEq:
		return 0 <= rhs+feasTol
	case milp.GreaterEq:
		return 0 >= rhs-feasTol
	default:
		return math.Abs(rhs) <= feasTol
	}
}
