package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evrptw/core/factory"
	"github.com/kilianp07/evrptw/core/milp"
	"github.com/kilianp07/evrptw/core/model"
	"github.com/kilianp07/evrptw/core/pipeline"
	"github.com/kilianp07/evrptw/core/report"
	"github.com/kilianp07/evrptw/infra/instance"
	"github.com/kilianp07/evrptw/infra/logger"
	inforeport "github.com/kilianp07/evrptw/infra/report"
	_ "github.com/kilianp07/evrptw/infra/solver"
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a set of benchmark instances",
	Args:  cobra.NoArgs,
	RunE:  runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.IntP("time-limit", "l", 0, "time limit per instance in seconds")
	f.IntP("threads", "t", 0, "solver threads per instance")
	f.IntP("parallelism", "p", 0, "instances solved concurrently")
	f.String("instances", "", "instance set: small, large or all")
	f.String("dir", "", "instance directory")
	f.String("out", "", "results file of the csv sink")
	f.String("solver", "", "solver type ("+strings.Join(milp.SolverNames(), ", ")+")")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address during the batch")
	f.String("chart-dir", "", "write an HTML route chart per instance into this directory")
	f.Bool("routes", false, "print the decoded routes of every instance")
	addModelFlags(solveCmd)
	rootCmd.AddCommand(solveCmd)
}

// applySolveFlags copies explicitly set flags into the loaded configuration.
func applySolveFlags(c *cobra.Command) error {
	f := c.Flags()
	if f.Changed("time-limit") {
		cfg.Solve.TimeLimitSeconds, _ = f.GetInt("time-limit")
	}
	if f.Changed("threads") {
		cfg.Solve.Threads, _ = f.GetInt("threads")
	}
	if f.Changed("parallelism") {
		cfg.Solve.Parallelism, _ = f.GetInt("parallelism")
	}
	if f.Changed("instances") {
		cfg.Solve.InstanceSet, _ = f.GetString("instances")
	}
	if f.Changed("dir") {
		cfg.Solve.InstanceDir, _ = f.GetString("dir")
	}
	if f.Changed("solver") {
		name, _ := f.GetString("solver")
		if name != cfg.Solver.Type {
			cfg.Solver = factory.ModuleConfig{Type: name}
		}
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.PrometheusAddr, _ = f.GetString("metrics-addr")
	}
	if f.Changed("out") {
		out, _ := f.GetString("out")
		cfg.Output.Sinks = withCSVPath(cfg.Output.Sinks, out)
	}
	if f.Changed("chart-dir") {
		dir, _ := f.GetString("chart-dir")
		cfg.Output.Sinks = append(cfg.Output.Sinks, factory.ModuleConfig{Type: "chart", Conf: map[string]any{"dir": dir}})
	}
	if cfg.Metrics.PrometheusAddr != "" && !hasSink(cfg.Output.Sinks, "prometheus") {
		cfg.Output.Sinks = append(cfg.Output.Sinks, factory.ModuleConfig{Type: "prometheus"})
	}
	return applyModelFlags(c)
}

func withCSVPath(sinks []factory.ModuleConfig, path string) []factory.ModuleConfig {
	out := make([]factory.ModuleConfig, 0, len(sinks)+1)
	found := false
	for _, s := range sinks {
		if s.Type == "csv" {
			conf := map[string]any{}
			for k, v := range s.Conf {
				conf[k] = v
			}
			conf["path"] = path
			s.Conf = conf
			found = true
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, factory.ModuleConfig{Type: "csv", Conf: map[string]any{"path": path}})
	}
	return out
}

func hasSink(sinks []factory.ModuleConfig, typ string) bool {
	for _, s := range sinks {
		if s.Type == typ {
			return true
		}
	}
	return false
}

func runSolve(cmd *cobra.Command, _ []string) error {
	if err := applySolveFlags(cmd); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger.New("solve")

	sc := cfg.Solve
	set, _ := instance.ParseSet(sc.InstanceSet)
	paths, err := instance.Select(sc.InstanceDir, set)
	if err != nil {
		return fmt.Errorf("list instances: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no %s instances in %s", set, sc.InstanceDir)
	}
	jobs := make([]pipeline.Job, len(paths))
	for i, p := range paths {
		jobs[i] = pipeline.Job{Name: instance.Name(p), Load: func() (*model.Instance, error) { return instance.Load(p) }}
	}

	solver, err := milp.NewSolver(cfg.Solver)
	if err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	sink, err := report.NewSink(cfg.Output.Sinks)
	if err != nil {
		return fmt.Errorf("sinks: %w", err)
	}
	if show, _ := cmd.Flags().GetBool("routes"); show {
		sink = report.NewMultiSink(sink, &routePrinter{w: cmd.OutOrStdout()})
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Errorf("close sinks: %v", err)
		}
	}()

	if addr := cfg.Metrics.PrometheusAddr; addr != "" {
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := inforeport.StartPromServer(srvCtx, addr); err != nil {
				log.Errorf("prom server: %v", err)
			}
		}()
	}

	opts := sc.Options()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, strings.ToUpper(opts.Formulation.String()))
	fmt.Fprintf(out, "Time Limit: %ds\tThreads: %d\tParallelism: %d\tInstances: %s\tSolver: %s\n\n",
		sc.TimeLimitSeconds, sc.Threads, sc.Parallelism, set, cfg.Solver.Type)

	runner := pipeline.NewRunner(solver, sink, opts, sc.Parallelism, logger.New("runner"))
	sum, runErr := runner.Run(ctx, jobs)
	printSummary(out, sum)
	return runErr
}

func printSummary(w io.Writer, s pipeline.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", s.RunID)
	fmt.Fprintf(tw, "instances\t%d (done %d, failed %d, skipped %d)\n", s.Total, s.Done, s.Failed, s.Skipped)
	for _, st := range sortedKeys(s.ByStatus) {
		fmt.Fprintf(tw, "%s\t%d\n", st, s.ByStatus[st])
	}
	fmt.Fprintf(tw, "elapsed\t%s\n", s.Elapsed.Round(time.Millisecond))
	_ = tw.Flush()
}

// routePrinter is a sink that prints the decoded routes of each record.
type routePrinter struct {
	w io.Writer
}

func (p *routePrinter) Write(_ context.Context, rec report.Record) error {
	if len(rec.Routes) == 0 {
		_, err := fmt.Fprintf(p.w, "%s: %s, no routes\n", rec.Instance, rec.Status)
		return err
	}
	for i, r := range rec.Routes {
		suffix := ""
		if !r.Closed {
			suffix = " (open)"
		}
		if _, err := fmt.Fprintf(p.w, "%s route %d: %s dist=%.4f%s\n",
			rec.Instance, i+1, strings.Join(r.Labels, " -> "), r.Distance, suffix); err != nil {
			return err
		}
	}
	return nil
}

func (p *routePrinter) Close() error { return nil }
