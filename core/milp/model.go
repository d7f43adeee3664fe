package milp

import (
	"fmt"
	"math"
)

// VarKind distinguishes continuous from binary variables.
type VarKind int

const (
	Continuous VarKind = iota
	Binary
)

func (k VarKind) String() string {
	if k == Binary {
		return "binary"
	}
	return "continuous"
}

// Var is a decision variable. Bounds of binaries are always [0, 1].
type Var struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Term is coef * var.
type Term struct {
	Var  int
	Coef float64
}

// Expr is a linear expression sum(terms) + Const.
type Expr struct {
	Terms []Term
	Const float64
}

// Add appends coef * v to the expression.
func (e *Expr) Add(v int, coef float64) *Expr {
	if coef != 0 {
		e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
	}
	return e
}

// AddConst adds c to the constant part.
func (e *Expr) AddConst(c float64) *Expr {
	e.Const += c
	return e
}

// Eval evaluates the expression for the given variable values.
func (e Expr) Eval(values []float64) float64 {
	s := e.Const
	for _, t := range e.Terms {
		s += t.Coef * values[t.Var]
	}
	return s
}

// Sense is the relation of a constraint.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	default:
		return "="
	}
}

// Constraint is Expr <sense> RHS. Family groups constraints generated by the
// same rule.
type Constraint struct {
	Name   string
	Family string
	Expr   Expr
	Sense  Sense
	RHS    float64
}

// Satisfied reports whether values meet the constraint within tol.
func (c Constraint) Satisfied(values []float64, tol float64) bool {
	lhs := c.Expr.Eval(values)
	switch c.Sense {
	case LessEq:
		return lhs <= c.RHS+tol
	case GreaterEq:
		return lhs >= c.RHS-tol
	default:
		return math.Abs(lhs-c.RHS) <= tol
	}
}

// Model is a minimisation MILP.
type Model struct {
	Name        string
	Vars        []Var
	Objective   Expr
	Constraints []Constraint
}

// NewModel returns an empty model.
func NewModel(name string) *Model { return &Model{Name: name} }

// AddVar adds a variable and returns its index.
func (m *Model) AddVar(name string, kind VarKind, lower, upper float64) int {
	if kind == Binary {
		lower, upper = 0, 1
	}
	m.Vars = append(m.Vars, Var{Name: name, Kind: kind, Lower: lower, Upper: upper})
	return len(m.Vars) - 1
}

// AddConstraint appends a constraint and returns its index.
func (m *Model) AddConstraint(family string, e Expr, s Sense, rhs float64) int {
	name := fmt.Sprintf("%s_%d", family, len(m.Constraints))
	m.Constraints = append(m.Constraints, Constraint{Name: name, Family: family, Expr: e, Sense: s, RHS: rhs})
	return len(m.Constraints) - 1
}

// FamilyCounts returns the number of constraints per family.
func (m *Model) FamilyCounts() map[string]int {
	out := make(map[string]int)
	for _, c := range m.Constraints {
		out[c.Family]++
	}
	return out
}

// NumBinaries counts binary variables.
func (m *Model) NumBinaries() int {
	n := 0
	for _, v := range m.Vars {
		if v.Kind == Binary {
			n++
		}
	}
	return n
}

// Feasible checks values against bounds, integrality and every constraint.
func (m *Model) Feasible(values []float64, tol float64) error {
	if len(values) != len(m.Vars) {
		return fmt.Errorf("got %d values for %d variables", len(values), len(m.Vars))
	}
	for i, v := range m.Vars {
		x := values[i]
		if x < v.Lower-tol || x > v.Upper+tol {
			return fmt.Errorf("%s=%v outside [%v, %v]", v.Name, x, v.Lower, v.Upper)
		}
		if v.Kind == Binary && math.Abs(x-math.Round(x)) > tol {
			return fmt.Errorf("%s=%v is not integral", v.Name, x)
		}
	}
	for _, c := range m.Constraints {
		if !c.Satisfied(values, tol) {
			return fmt.Errorf("constraint %s violated: %v %s %v", c.Name, c.Expr.Eval(values), c.Sense, c.RHS)
		}
	}
	return nil
}
