package report

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/kilianp07/evrptw/core/decode"
)

// StatusError marks an instance whose pipeline failed before a solver
// status was available.
const StatusError = "ERROR"

// Record is the per-instance result emitted by a batch run.
type Record struct {
	RunID          string         `json:"run_id"`
	Instance       string         `json:"instance"`
	Formulation    string         `json:"formulation"`
	VehiclesUsed   int            `json:"vehicles_used"`
	VehiclesBack   int            `json:"vehicles_back"`
	Objective      *float64       `json:"obj"`
	TotalRouteTime float64        `json:"total_route_time"`
	Recharge       float64        `json:"qtd_recharge"`
	Status         string         `json:"status"`
	Runtime        time.Duration  `json:"runtime_ns"`
	MIPGap         *float64       `json:"mip_gap"`
	Error          string         `json:"error,omitempty"`
	Routes         []decode.Route `json:"routes,omitempty"`
	Time           time.Time      `json:"timestamp"`
}

// ObjectiveOr returns the objective or def when it is undefined.
func (r Record) ObjectiveOr(def float64) float64 {
	if r.Objective == nil {
		return def
	}
	return *r.Objective
}

// GapOr returns the MIP gap or def when it is undefined or infinite.
func (r Record) GapOr(def float64) float64 {
	if r.MIPGap == nil {
		return def
	}
	return *r.MIPGap
}

// Finite returns a pointer to v, or nil when v is NaN or infinite.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Sink receives result records. Implementations must be safe for use by
// one writer at a time; the batch runner never writes concurrently but
// sinks serialize anyway.
type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

// NopSink discards records.
type NopSink struct{}

func (NopSink) Write(context.Context, Record) error { return nil }
func (NopSink) Close() error                        { return nil }

// MultiSink forwards records to every sink.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// Write forwards the record to all sinks and joins their errors.
func (m *MultiSink) Write(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
