// Package solver contains the Solver adapters. Highs drives the HiGHS
// command-line solver as an external process; Exhaustive enumerates the
// binaries of tiny models and checks each assignment with gonum's simplex,
// which makes it usable as a reference in tests. Both are registered with
// the milp solver registry under "highs" and "exhaustive".
package solver
