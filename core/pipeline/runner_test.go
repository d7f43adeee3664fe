package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evrptw/core/milp"
	"github.com/kilianp07/evrptw/core/model"
	"github.com/kilianp07/evrptw/core/report"
	"github.com/kilianp07/evrptw/infra/logger"
)

type memSink struct {
	mu      sync.Mutex
	recs    []report.Record
	onWrite func(report.Record)
}

func (m *memSink) Write(_ context.Context, r report.Record) error {
	m.mu.Lock()
	m.recs = append(m.recs, r)
	m.mu.Unlock()
	if m.onWrite != nil {
		m.onWrite(r)
	}
	return nil
}

func (m *memSink) Close() error { return nil }

func (m *memSink) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.recs))
	for i, r := range m.recs {
		out[i] = r.Instance
	}
	return out
}

func infeasibleSolver(hook func(m *milp.Model)) milp.Solver {
	return milp.SolverFunc(func(_ context.Context, m *milp.Model, _ milp.Params) (*milp.Solution, error) {
		if hook != nil {
			hook(m)
		}
		return &milp.Solution{Status: milp.StatusInfeasible, Gap: 1}, nil
	})
}

func namedJob(t *testing.T, name string) Job {
	inst := oneClient(t, 5)
	inst.Name = name
	return InstanceJob(inst)
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	s := infeasibleSolver(func(*milp.Model) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
	})
	sink := &memSink{}
	r := NewRunner(s, sink, Options{Formulation: model.VRPTW}, 2, logger.NopLogger{})
	var jobs []Job
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		jobs = append(jobs, namedJob(t, n))
	}
	sum, err := r.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 6, sum.Done)
	assert.Equal(t, 6, sum.ByStatus["INFEASIBLE"])
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e", "f"}, sink.names())
	for _, rec := range sink.recs {
		assert.Equal(t, r.RunID, rec.RunID)
	}
}

func TestRunnerCompletionOrder(t *testing.T) {
	fastWritten := make(chan struct{})
	s := milp.SolverFunc(func(ctx context.Context, m *milp.Model, _ milp.Params) (*milp.Solution, error) {
		if strings.HasSuffix(m.Name, "_slow") {
			select {
			case <-fastWritten:
			case <-time.After(5 * time.Second):
				return nil, errors.New("fast instance never written")
			}
		}
		return &milp.Solution{Status: milp.StatusInfeasible}, nil
	})
	sink := &memSink{onWrite: func(r report.Record) {
		if r.Instance == "fast" {
			close(fastWritten)
		}
	}}
	r := NewRunner(s, sink, Options{Formulation: model.VRPTW}, 2, logger.NopLogger{})
	_, err := r.Run(context.Background(), []Job{namedJob(t, "slow"), namedJob(t, "fast")})
	require.NoError(t, err)
	assert.Equal(t, []string{"fast", "slow"}, sink.names())
}

func TestRunnerFailedInstance(t *testing.T) {
	sink := &memSink{}
	boom := errors.New("unreadable")
	jobs := []Job{
		namedJob(t, "ok"),
		{Name: "broken", Load: func() (*model.Instance, error) { return nil, boom }},
	}
	r := NewRunner(infeasibleSolver(nil), sink, Options{Formulation: model.EVRPTW, StationCopies: Copies(1)}, 4, logger.NopLogger{})
	sum, err := r.Run(context.Background(), jobs)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 2, sum.Done)
	require.Len(t, sink.recs, 2)
	var errRec report.Record
	for _, rec := range sink.recs {
		if rec.Instance == "broken" {
			errRec = rec
		}
	}
	assert.Equal(t, report.StatusError, errRec.Status)
	assert.Equal(t, "evrptw", errRec.Formulation)
	assert.Contains(t, errRec.Error, "unreadable")
}

func TestRunnerSolverError(t *testing.T) {
	fail := errors.New("solver crashed")
	s := milp.SolverFunc(func(context.Context, *milp.Model, milp.Params) (*milp.Solution, error) {
		return nil, fail
	})
	sink := &memSink{}
	r := NewRunner(s, sink, Options{Formulation: model.VRPTW}, 1, logger.NopLogger{})
	_, err := r.Run(context.Background(), []Job{namedJob(t, "a"), namedJob(t, "b")})
	require.ErrorIs(t, err, fail)
	assert.Len(t, sink.recs, 2)
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &memSink{}
	r := NewRunner(infeasibleSolver(nil), sink, Options{Formulation: model.VRPTW}, 1, logger.NopLogger{})
	sum, err := r.Run(ctx, []Job{namedJob(t, "a"), namedJob(t, "b")})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, sum.Skipped)
	assert.Empty(t, sink.recs)
}

func TestRunnerEmpty(t *testing.T) {
	r := NewRunner(infeasibleSolver(nil), nil, Options{}, 3, logger.NopLogger{})
	sum, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
	assert.NotEmpty(t, sum.RunID)
}
