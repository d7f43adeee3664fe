package solver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/evrptw/core/milp"
	"github.com/kilianp07/evrptw/infra/logger"
)

// HighsConfig configures the HiGHS adapter.
type HighsConfig struct {
	// Binary is the HiGHS executable, looked up in PATH when not absolute.
	Binary string `json:"binary"`
	// WorkDir hosts the per-solve temporary directories; empty uses the
	// system default.
	WorkDir string `json:"work_dir"`
	// KeepFiles leaves the model and solution files on disk for inspection.
	KeepFiles bool `json:"keep_files"`
	// Options are written verbatim to the HiGHS options file.
	Options map[string]string `json:"options"`
}

// SetDefaults applies default values.
func (c *HighsConfig) SetDefaults() {
	if c.Binary == "" {
		c.Binary = "highs"
	}
}

type commandRunner func(ctx context.Context, bin string, args []string) ([]byte, error)

func execRunner(ctx context.Context, bin string, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, bin, args...).CombinedOutput()
}

// Highs solves models by writing them in LP format and running the HiGHS
// command-line solver.
type Highs struct {
	cfg HighsConfig
	run commandRunner
	log logger.Logger
}

// NewHighs returns a HiGHS adapter.
func NewHighs(cfg HighsConfig) *Highs {
	cfg.SetDefaults()
	return &Highs{cfg: cfg, run: execRunner, log: logger.New("highs")}
}

// Optimize implements milp.Solver.
func (h *Highs) Optimize(ctx context.Context, m *milp.Model, p milp.Params) (*milp.Solution, error) {
	dir, err := os.MkdirTemp(h.cfg.WorkDir, "highs-*")
	if err != nil {
		return nil, fmt.Errorf("highs workdir: %w", err)
	}
	if h.cfg.KeepFiles {
		h.log.Infof("highs files for %s kept in %s", m.Name, dir)
	} else {
		defer os.RemoveAll(dir)
	}
	modelPath := filepath.Join(dir, "model.lp")
	optsPath := filepath.Join(dir, "highs.opt")
	solPath := filepath.Join(dir, "model.sol")
	if err := writeFile(modelPath, func(w io.Writer) error { return milp.WriteLP(w, m) }); err != nil {
		return nil, fmt.Errorf("write model %s: %w", m.Name, err)
	}
	if err := writeFile(optsPath, func(w io.Writer) error { return h.writeOptions(w, p) }); err != nil {
		return nil, fmt.Errorf("write options %s: %w", m.Name, err)
	}

	args := []string{"--model_file", modelPath, "--options_file", optsPath, "--solution_file", solPath}
	start := time.Now()
	out, runErr := h.run(ctx, h.cfg.Binary, args)
	runtime := time.Since(start)
	if ctx.Err() != nil {
		return nil, fmt.Errorf("highs %s: %w", m.Name, ctx.Err())
	}

	f, err := os.Open(solPath)
	if err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("highs %s: %w: %s", m.Name, runErr, tail(out, 400))
		}
		return nil, fmt.Errorf("highs %s: no solution file: %w", m.Name, err)
	}
	defer f.Close()
	sol, err := parseHighsSolution(f, m)
	if err != nil {
		return nil, fmt.Errorf("highs %s: %w", m.Name, err)
	}
	if runErr != nil {
		h.log.Warnf("highs %s exited with %v after writing a solution", m.Name, runErr)
	}
	sol.Runtime = runtime
	sol.Gap = parseHighsGap(out, sol)
	h.log.Debugw("highs solve done", map[string]any{
		"model":   m.Name,
		"status":  sol.Status.String(),
		"runtime": runtime.String(),
	})
	return sol, nil
}

func (h *Highs) writeOptions(w io.Writer, p milp.Params) error {
	opts := map[string]string{"write_solution_style": "0"}
	if p.Threads > 0 {
		opts["threads"] = strconv.Itoa(p.Threads)
	}
	if p.TimeLimit > 0 {
		opts["time_limit"] = strconv.FormatFloat(p.TimeLimit.Seconds(), 'f', -1, 64)
	}
	for k, v := range h.cfg.Options {
		opts[k] = v
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s = %s\n", k, opts[k]); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, fill func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := fill(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		s = "..." + s[len(s)-n:]
	}
	return s
}

var highsStatus = map[string]milp.Status{
	"Optimal":                        milp.StatusOptimal,
	"Empty":                          milp.StatusOptimal,
	"Infeasible":                     milp.StatusInfeasible,
	"Primal infeasible or unbounded": milp.StatusInfOrUnbd,
	"Unbounded":                      milp.StatusUnbounded,
	"Bound on objective reached":     milp.StatusCutoff,
	"Target for objective reached":   milp.StatusUserObjLimit,
	"Time limit reached":             milp.StatusTimeLimit,
	"Iteration limit reached":        milp.StatusIterationLimit,
	"Solution limit reached":         milp.StatusSolutionLimit,
	"Interrupted by user":            milp.StatusInterrupted,
	"Memory limit reached":           milp.StatusMemLimit,
	"Not Set":                        milp.StatusUnknown,
	"Unknown":                        milp.StatusUnknown,
}

// ErrSolverFailed reports a HiGHS error status (load, presolve, solve...).
var ErrSolverFailed = errors.New("solver reported an error")

// parseHighsSolution reads a raw-style HiGHS solution file. Columns are
// matched to model variables by name; columns absent from the file are 0.
func parseHighsSolution(r io.Reader, m *milp.Model) (*milp.Solution, error) {
	index := make(map[string]int, len(m.Vars))
	for i, v := range m.Vars {
		index[v.Name] = i
	}
	sol := &milp.Solution{Gap: math.Inf(1)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	const (
		top = iota
		status
		primal
		columns
		skip
	)
	state := top
	remaining := 0
	var values []float64
	seenStatus := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "Model status":
			state = status
			continue
		case strings.HasPrefix(line, "# Primal solution values"):
			state = primal
			continue
		case strings.HasPrefix(line, "# Dual solution values"), strings.HasPrefix(line, "# Basis"):
			state = skip
			continue
		}
		switch state {
		case status:
			if line == "" {
				continue
			}
			st, ok := highsStatus[line]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrSolverFailed, line)
			}
			sol.Status = st
			seenStatus = true
			state = top
		case primal:
			switch {
			case line == "Feasible":
				values = make([]float64, len(m.Vars))
			case line == "None" || line == "Infeasible":
				state = skip
			case strings.HasPrefix(line, "Objective"):
				v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "Objective")), 64)
				if err != nil {
					return nil, fmt.Errorf("objective line %q: %w", line, err)
				}
				sol.Objective = v
			case strings.HasPrefix(line, "# Columns"):
				n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "# Columns")))
				if err != nil {
					return nil, fmt.Errorf("columns line %q: %w", line, err)
				}
				remaining = n
				state = columns
			}
		case columns:
			if remaining == 0 {
				state = skip
				continue
			}
			fields := strings.Fields(line)
			if len(fields) != 2 {
				return nil, fmt.Errorf("column line %q", line)
			}
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", fields[0], err)
			}
			if i, ok := index[fields[0]]; ok && values != nil {
				values[i] = v
			}
			remaining--
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !seenStatus {
		return nil, errors.New("solution file has no model status")
	}
	if values != nil {
		sol.Values = values
		sol.HasObjective = true
	}
	if sol.Status == milp.StatusOptimal {
		sol.Gap = 0
	}
	return sol, nil
}

var gapRe = regexp.MustCompile(`(?m)^\s*Gap\s+([0-9.eE+-]+%|inf)`)

// parseHighsGap extracts the relative MIP gap from the solver log.
func parseHighsGap(out []byte, sol *milp.Solution) float64 {
	matches := gapRe.FindAllSubmatch(out, -1)
	if len(matches) == 0 {
		return sol.Gap
	}
	last := string(matches[len(matches)-1][1])
	if last == "inf" {
		return math.Inf(1)
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(last, "%"), 64)
	if err != nil {
		return sol.Gap
	}
	return v / 100
}
