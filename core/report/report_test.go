package report

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evrptw/core/factory"
)

func sample(form string) Record {
	obj := 20.7703
	gap := 0.0
	return Record{
		Instance:       "c101C5",
		Formulation:    form,
		VehiclesUsed:   2,
		Objective:      &obj,
		TotalRouteTime: 12.5,
		Recharge:       3.25,
		Status:         "OPTIMAL",
		Runtime:        1500 * time.Millisecond,
		MIPGap:         &gap,
	}
}

func TestCSVSinkEVRPTW(t *testing.T) {
	var buf bytes.Buffer
	s := NewCSVSink(&buf)
	require.NoError(t, s.Write(context.Background(), sample("evrptw")))
	infeasible := Record{Instance: "r201C10", Formulation: "evrptw", Status: "INFEASIBLE"}
	require.NoError(t, s.Write(context.Background(), infeasible))
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "instance, vehicles_used, obj, total_route_time, qtd_recharge, status, runtime, MIPgap", lines[0])
	assert.Equal(t, "c101C5, 2, 20.7703, 12.5000, 3.2500, OPTIMAL, 1.5000, 0.0000", lines[1])
	assert.Equal(t, "r201C10, 0, , 0.0000, 0.0000, INFEASIBLE, 0.0000, inf", lines[2])
}

func TestCSVSinkVRPTW(t *testing.T) {
	var buf bytes.Buffer
	s := NewCSVSink(&buf)
	require.NoError(t, s.Write(context.Background(), sample("vrptw")))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "instance, vehicles_used, obj, total_route_time, status, runtime, MIPgap", lines[0])
	assert.Equal(t, "c101C5, 2, 20.7703, 12.5000, OPTIMAL, 1.5000, 0.0000", lines[1])
}

func TestCSVFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.txt")
	s, err := NewSink([]factory.ModuleConfig{{Type: "csv", Conf: map[string]any{"path": path}}})
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), sample("evrptw")))
	require.NoError(t, s.Close())
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "c101C5, 2, 20.7703")
}

type failSink struct{ closed bool }

func (f *failSink) Write(context.Context, Record) error { return errors.New("boom") }
func (f *failSink) Close() error                         { f.closed = true; return nil }

type memSink struct{ recs []Record }

func (m *memSink) Write(_ context.Context, r Record) error { m.recs = append(m.recs, r); return nil }
func (m *memSink) Close() error                            { return nil }

func TestMultiSinkForwardsDespiteErrors(t *testing.T) {
	fail, mem := &failSink{}, &memSink{}
	m := NewMultiSink(fail, mem)
	err := m.Write(context.Background(), sample("evrptw"))
	require.Error(t, err)
	assert.Len(t, mem.recs, 1)
	require.NoError(t, m.Close())
	assert.True(t, fail.closed)
}

func TestNewSinkDefaults(t *testing.T) {
	s, err := NewSink(nil)
	require.NoError(t, err)
	assert.IsType(t, NopSink{}, s)

	_, err = NewSink([]factory.ModuleConfig{{Type: "nope"}})
	require.Error(t, err)

	s, err = NewSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, &MultiSink{}, s)
}

func TestFinite(t *testing.T) {
	assert.Nil(t, Finite(math.Inf(1)))
	assert.Nil(t, Finite(math.NaN()))
	require.NotNil(t, Finite(0.5))
	assert.Equal(t, 0.5, *Finite(0.5))
	r := Record{}
	assert.Equal(t, -1.0, r.ObjectiveOr(-1))
	assert.Equal(t, 2.0, r.GapOr(2))
}
