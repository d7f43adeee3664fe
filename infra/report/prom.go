package report

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	corereport "github.com/kilianp07/evrptw/core/report"
	"github.com/kilianp07/evrptw/infra/logger"
)

// PromSink exposes solve outcomes as Prometheus metrics.
type PromSink struct {
	mu        sync.Mutex
	solved    *prometheus.CounterVec
	runtime   *prometheus.HistogramVec
	gap       *prometheus.GaugeVec
	objective *prometheus.GaugeVec
}

// NewPromSink registers metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	solved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evrptw_instances_solved_total",
		Help: "Instances processed, by formulation and final status",
	}, []string{"formulation", "status"})
	runtime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evrptw_solve_runtime_seconds",
		Help:    "Solver wall-clock time per instance",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"formulation"})
	gap := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "evrptw_mip_gap",
		Help: "Relative optimality gap reported for the last solve of an instance",
	}, []string{"formulation", "instance"})
	objective := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "evrptw_objective",
		Help: "Objective of the best assignment found for an instance",
	}, []string{"formulation", "instance"})

	var err error
	if solved, err = register(reg, solved); err != nil {
		return nil, err
	}
	if runtime, err = register(reg, runtime); err != nil {
		return nil, err
	}
	if gap, err = register(reg, gap); err != nil {
		return nil, err
	}
	if objective, err = register(reg, objective); err != nil {
		return nil, err
	}
	return &PromSink{solved: solved, runtime: runtime, gap: gap, objective: objective}, nil
}

// register returns the collector already registered under the same
// descriptor when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Write updates the metrics for rec.
func (s *PromSink) Write(_ context.Context, rec corereport.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solved.WithLabelValues(rec.Formulation, rec.Status).Inc()
	if rec.Status == corereport.StatusError {
		return nil
	}
	s.runtime.WithLabelValues(rec.Formulation).Observe(rec.Runtime.Seconds())
	if rec.MIPGap != nil {
		s.gap.WithLabelValues(rec.Formulation, rec.Instance).Set(*rec.MIPGap)
	}
	if rec.Objective != nil {
		s.objective.WithLabelValues(rec.Formulation, rec.Instance).Set(*rec.Objective)
	}
	return nil
}

// Close is a no-op; the metrics stay registered.
func (s *PromSink) Close() error { return nil }

// StartPromServer serves the default registry on addr under /metrics until
// ctx is canceled. A dedicated ServeMux is used to avoid interfering with
// other handlers.
func StartPromServer(ctx context.Context, addr string) error {
	log := logger.New("prom-server")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("prom server shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
