package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/evrptw/core/logger"
	"github.com/kilianp07/evrptw/core/milp"
	"github.com/kilianp07/evrptw/core/model"
	"github.com/kilianp07/evrptw/core/report"
)

// Job is one instance of a batch. Load is called on the worker.
type Job struct {
	Name string
	Load func() (*model.Instance, error)
}

// InstanceJob wraps an already parsed instance.
func InstanceJob(inst *model.Instance) Job {
	return Job{Name: inst.Name, Load: func() (*model.Instance, error) { return inst, nil }}
}

// Summary describes a finished batch.
type Summary struct {
	RunID    string
	Total    int
	Done     int
	Failed   int
	Skipped  int
	ByStatus map[string]int
	Elapsed  time.Duration
}

// Runner solves batches of instances with at most Parallelism concurrent
// solver invocations. Each invocation uses Options.Params.Threads threads.
type Runner struct {
	Solver      milp.Solver
	Sink        report.Sink
	Options     Options
	Parallelism int
	RunID       string

	log logger.Logger
	now func() time.Time
}

// NewRunner returns a Runner tagged with a fresh run ID.
func NewRunner(solver milp.Solver, sink report.Sink, o Options, parallelism int, log logger.Logger) *Runner {
	if sink == nil {
		sink = report.NopSink{}
	}
	id := uuid.NewString()
	return &Runner{
		Solver:      solver,
		Sink:        sink,
		Options:     o,
		Parallelism: parallelism,
		RunID:       id,
		log:         log.With("run_id", id),
		now:         time.Now,
	}
}

type outcome struct {
	rec report.Record
	err error
}

// Run solves jobs and writes one record per dispatched job to the sink in
// completion order. A failing job yields an ERROR record and does not stop
// the others; the returned error joins every job and sink failure.
// Cancelling ctx stops dispatching new jobs.
func (r *Runner) Run(ctx context.Context, jobs []Job) (Summary, error) {
	start := r.now()
	sum := Summary{RunID: r.RunID, Total: len(jobs), ByStatus: make(map[string]int)}
	if len(jobs) == 0 {
		return sum, nil
	}
	workers := min(max(r.Parallelism, 1), len(jobs))
	r.log.Infof("solving %d instances (%s) with %d workers, %d threads each",
		len(jobs), r.Options.Formulation, workers, r.Options.Params.Threads)

	results := make(chan outcome)
	var dispatched atomic.Int64
	go func() {
		var g errgroup.Group
		g.SetLimit(workers)
		for _, j := range jobs {
			if ctx.Err() != nil {
				break
			}
			dispatched.Add(1)
			j := j
			g.Go(func() error {
				results <- r.solveJob(ctx, j)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	var errs []error
	for out := range results {
		sum.Done++
		sum.ByStatus[out.rec.Status]++
		if out.err != nil {
			sum.Failed++
			errs = append(errs, out.err)
		}
		if err := r.Sink.Write(ctx, out.rec); err != nil {
			r.log.Errorf("sink write %s: %v", out.rec.Instance, err)
			errs = append(errs, fmt.Errorf("write %s: %w", out.rec.Instance, err))
		}
	}
	sum.Skipped = len(jobs) - int(dispatched.Load())
	if sum.Skipped > 0 {
		r.log.Warnf("%d instances not dispatched: %v", sum.Skipped, ctx.Err())
		errs = append(errs, fmt.Errorf("batch interrupted: %w", ctx.Err()))
	}
	sum.Elapsed = r.now().Sub(start)
	return sum, errors.Join(errs...)
}

func (r *Runner) solveJob(ctx context.Context, j Job) outcome {
	log := r.log.With("instance", j.Name)
	fail := func(err error) outcome {
		log.Errorf("instance failed: %v", err)
		return outcome{
			rec: report.Record{
				RunID:       r.RunID,
				Instance:    j.Name,
				Formulation: r.Options.Formulation.String(),
				Status:      report.StatusError,
				Error:       err.Error(),
				Time:        r.now(),
			},
			err: fmt.Errorf("%s: %w", j.Name, err),
		}
	}
	inst, err := j.Load()
	if err != nil {
		return fail(err)
	}
	res, err := SolveInstance(ctx, inst, r.Solver, r.Options, log)
	if err != nil {
		return fail(err)
	}
	rec := res.Record(r.RunID, r.now())
	rec.Instance = j.Name
	return outcome{rec: rec}
}
