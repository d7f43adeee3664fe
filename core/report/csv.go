package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kilianp07/evrptw/core/model"
)

// DefaultResultsFile is where the csv sink writes when no path is given.
const DefaultResultsFile = "resultados.txt"

var (
	evrptwColumns = []string{"instance", "vehicles_used", "obj", "total_route_time", "qtd_recharge", "status", "runtime", "MIPgap"}
	vrptwColumns  = []string{"instance", "vehicles_used", "obj", "total_route_time", "status", "runtime", "MIPgap"}
)

// CSVConfig configures the csv sink.
type CSVConfig struct {
	Path string `json:"path"`
}

// CSVSink writes one ", "-separated line per record. The header is written
// before the first record and depends on its formulation: VRPTW rows carry
// no recharge column.
type CSVSink struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	header bool
}

// NewCSVSink writes to w. Close flushes and closes w if it is an io.Closer.
func NewCSVSink(w io.Writer) *CSVSink {
	s := &CSVSink{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// NewCSVFileSink truncates or creates the results file.
func NewCSVFileSink(cfg CSVConfig) (*CSVSink, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultResultsFile
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open results file: %w", err)
	}
	return NewCSVSink(f), nil
}

// Write appends rec and flushes, so a crashed batch keeps its finished rows.
func (s *CSVSink) Write(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	vrptw := rec.Formulation == model.VRPTW.String()
	if !s.header {
		cols := evrptwColumns
		if vrptw {
			cols = vrptwColumns
		}
		if _, err := fmt.Fprintln(s.w, strings.Join(cols, ", ")); err != nil {
			return err
		}
		s.header = true
	}
	if _, err := fmt.Fprintln(s.w, strings.Join(FormatRow(rec), ", ")); err != nil {
		return err
	}
	return s.w.Flush()
}

// FormatRow renders rec with four decimals per numeric column. An undefined
// objective is an empty field and an undefined gap is "inf".
func FormatRow(rec Record) []string {
	obj := ""
	if rec.Objective != nil {
		obj = f4(*rec.Objective)
	}
	gap := "inf"
	if rec.MIPGap != nil {
		gap = f4(*rec.MIPGap)
	}
	row := []string{rec.Instance, fmt.Sprint(rec.VehiclesUsed), obj, f4(rec.TotalRouteTime)}
	if rec.Formulation != model.VRPTW.String() {
		row = append(row, f4(rec.Recharge))
	}
	return append(row, rec.Status, f4(rec.Runtime.Seconds()), gap)
}

func f4(v float64) string { return fmt.Sprintf("%.4f", v) }

// Close flushes pending output.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
