package milp

import (
	"context"
	"fmt"
	"time"
)

// ActiveThreshold is the value above which a binary counts as set, to absorb
// solver tolerances.
const ActiveThreshold = 0.99

// Status is the termination code of a solve. The numbering follows the
// status codes reported by commercial MILP solvers.
type Status int

const (
	StatusUnknown Status = iota
	StatusLoaded
	StatusOptimal
	StatusInfeasible
	StatusInfOrUnbd
	StatusUnbounded
	StatusCutoff
	StatusIterationLimit
	StatusNodeLimit
	StatusTimeLimit
	StatusSolutionLimit
	StatusInterrupted
	StatusNumeric
	StatusSuboptimal
	StatusInProgress
	StatusUserObjLimit
	StatusWorkLimit
	StatusMemLimit
)

var statusNames = map[Status]string{
	StatusLoaded:         "LOADED",
	StatusOptimal:        "OPTIMAL",
	StatusInfeasible:     "INFEASIBLE",
	StatusInfOrUnbd:      "INF_OR_UNBD",
	StatusUnbounded:      "UNBOUNDED",
	StatusCutoff:         "CUTOFF",
	StatusIterationLimit: "ITERATION_LIMIT",
	StatusNodeLimit:      "NODE_LIMIT",
	StatusTimeLimit:      "TIME_LIMIT",
	StatusSolutionLimit:  "SOLUTION_LIMIT",
	StatusInterrupted:    "INTERRUPTED",
	StatusNumeric:        "NUMERIC",
	StatusSuboptimal:     "SUBOPTIMAL",
	StatusInProgress:     "INPROGRESS",
	StatusUserObjLimit:   "USER_OBJ_LIMIT",
	StatusWorkLimit:      "WORK_LIMIT",
	StatusMemLimit:       "MEM_LIMIT",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("STATUS_%d", int(s))
}

// Solution is what a solver hands back. Values is nil when no feasible
// assignment was found, in which case Objective is meaningless.
type Solution struct {
	Status       Status
	Objective    float64
	HasObjective bool
	Runtime      time.Duration
	Gap          float64
	Values       []float64
}

// Feasible reports whether the solution carries an assignment.
func (s *Solution) Feasible() bool { return s != nil && s.Values != nil }

// Value returns the assignment of variable v, 0 when there is none.
func (s *Solution) Value(v int) float64 {
	if !s.Feasible() || v < 0 || v >= len(s.Values) {
		return 0
	}
	return s.Values[v]
}

// Active reports whether binary v is set.
func (s *Solution) Active(v int) bool { return s.Value(v) > ActiveThreshold }

// Params are per-call solver settings. Threads is the solver's own
// parallelism and is independent of how many models run concurrently.
type Params struct {
	Threads   int
	TimeLimit time.Duration
}

// Solver optimises a compiled model.
type Solver interface {
	Optimize(ctx context.Context, m *Model, p Params) (*Solution, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, m *Model, p Params) (*Solution, error)

func (f SolverFunc) Optimize(ctx context.Context, m *Model, p Params) (*Solution, error) {
	return f(ctx, m, p)
}
