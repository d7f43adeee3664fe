package config

import (
	"fmt"

	"github.com/kilianp07/evrptw/core/factory"
	"github.com/kilianp07/evrptw/core/report"
)

// OutputConfig lists the result sinks of a batch.
type OutputConfig struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}

// SetDefaults writes to the historical results file when nothing is set.
func (c *OutputConfig) SetDefaults() {
	if len(c.Sinks) == 0 {
		c.Sinks = []factory.ModuleConfig{{
			Type: "csv",
			Conf: map[string]any{"path": report.DefaultResultsFile},
		}}
	}
}

// Validate checks that every sink names a type.
func (c OutputConfig) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("sink %d has no type", i)
		}
	}
	return nil
}

// MetricsConfig configures the Prometheus endpoint served during a batch.
type MetricsConfig struct {
	PrometheusAddr string `json:"prometheus_addr"`
}
