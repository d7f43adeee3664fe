// Package pipeline chains graph construction, compilation, solving and
// decoding for one instance, and runs batches of instances on a bounded
// worker pool.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/evrptw/core/decode"
	"github.com/kilianp07/evrptw/core/formulation"
	"github.com/kilianp07/evrptw/core/graph"
	"github.com/kilianp07/evrptw/core/logger"
	"github.com/kilianp07/evrptw/core/milp"
	"github.com/kilianp07/evrptw/core/model"
	"github.com/kilianp07/evrptw/core/report"
)

// Options configure how an instance is turned into a model and solved.
type Options struct {
	Formulation model.Formulation
	// StationCopies is the number of graph copies per recharge station for
	// EVRPTW; nil selects graph.DefaultStationCopies and 0 drops every
	// station. VRPTW never has stations in its graph.
	StationCopies *int
	// SpeedOverride replaces the parsed vehicle speed when positive; 0
	// selects the formulation default.
	SpeedOverride float64
	Params        milp.Params
}

// GraphOptions returns the graph construction settings for o.
func (o Options) GraphOptions() graph.Options {
	speed := model.DefaultSpeedPolicy(o.Formulation)
	if o.SpeedOverride > 0 {
		speed = model.SpeedPolicy{Override: o.SpeedOverride}
	}
	copies := graph.DefaultStationCopies
	switch {
	case o.Formulation == model.VRPTW:
		copies = 0
	case o.StationCopies != nil:
		copies = *o.StationCopies
	}
	return graph.Options{StationCopies: copies, Speed: speed}
}

// Copies returns n as an explicit station copy count for Options.
func Copies(n int) *int { return &n }

// Result is the outcome of one instance.
type Result struct {
	Instance    string
	Formulation model.Formulation
	Compiled    *formulation.Compiled
	Solution    *milp.Solution
	Metrics     decode.Metrics
}

// Compile builds the graph of inst and compiles it. It also checks that the
// big-M constants dominate the instance data.
func Compile(inst *model.Instance, o Options) (*formulation.Compiled, error) {
	g, err := graph.Build(inst, o.GraphOptions())
	if err != nil {
		return nil, fmt.Errorf("build graph %s: %w", inst.Name, err)
	}
	c := formulation.Compile(g, o.Formulation)
	if err := c.BigM.Dominates(g); err != nil {
		return nil, fmt.Errorf("compile %s: %w", inst.Name, err)
	}
	return c, nil
}

// SolveInstance compiles inst, hands the model to solver and decodes the
// returned assignment. Infeasibility and time limits are outcomes, not
// errors; only construction and solver failures are returned.
func SolveInstance(ctx context.Context, inst *model.Instance, solver milp.Solver, o Options, log logger.Logger) (*Result, error) {
	c, err := Compile(inst, o)
	if err != nil {
		return nil, err
	}
	log.Debugw("model compiled", map[string]any{
		"instance":    inst.Name,
		"formulation": o.Formulation.String(),
		"nodes":       c.Graph.Table.Len(),
		"vars":        len(c.Model.Vars),
		"binaries":    c.Model.NumBinaries(),
		"constraints": len(c.Model.Constraints),
	})
	sol, err := solver.Optimize(ctx, c.Model, o.Params)
	if err != nil {
		return nil, fmt.Errorf("solve %s: %w", inst.Name, err)
	}
	res := &Result{
		Instance:    inst.Name,
		Formulation: o.Formulation,
		Compiled:    c,
		Solution:    sol,
		Metrics:     decode.Decode(c, sol),
	}
	log.Infof("%s: %s obj=%.4f vehicles=%d runtime=%s",
		inst.Name, sol.Status, res.Metrics.Objective, res.Metrics.VehiclesUsed, sol.Runtime.Round(time.Millisecond))
	return res, nil
}

// Record converts r into a result record.
func (r *Result) Record(runID string, at time.Time) report.Record {
	rec := report.Record{
		RunID:          runID,
		Instance:       r.Instance,
		Formulation:    r.Formulation.String(),
		VehiclesUsed:   r.Metrics.VehiclesUsed,
		VehiclesBack:   r.Metrics.VehiclesBack,
		TotalRouteTime: r.Metrics.TotalRouteTime,
		Recharge:       r.Metrics.Recharge,
		Status:         r.Solution.Status.String(),
		Runtime:        r.Solution.Runtime,
		MIPGap:         report.Finite(r.Solution.Gap),
		Routes:         r.Metrics.Routes,
		Time:           at,
	}
	if r.Metrics.HasObjective {
		rec.Objective = report.Finite(r.Metrics.Objective)
	}
	return rec
}
