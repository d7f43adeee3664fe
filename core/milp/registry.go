package milp

import "github.com/kilianp07/evrptw/core/factory"

var solverRegistry = factory.NewRegistry[Solver]()

// RegisterSolver adds a solver factory identified by name.
func RegisterSolver(name string, f factory.Factory[Solver]) error {
	return solverRegistry.Register(name, f)
}

// NewSolver creates the solver selected by cfg.
func NewSolver(cfg factory.ModuleConfig) (Solver, error) {
	return solverRegistry.Create(cfg)
}

// SolverNames lists the registered solver types.
func SolverNames() []string { return solverRegistry.Names() }
