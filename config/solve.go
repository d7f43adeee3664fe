package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/evrptw/core/graph"
	"github.com/kilianp07/evrptw/core/milp"
	"github.com/kilianp07/evrptw/core/model"
	"github.com/kilianp07/evrptw/core/pipeline"
	"github.com/kilianp07/evrptw/infra/instance"
)

// SolveConfig holds the batch settings. Every field can be overridden by
// the corresponding solve flag.
type SolveConfig struct {
	// Formulation is "evrptw" or "vrptw".
	Formulation string `json:"formulation"`
	// TimeLimitSeconds bounds each solver invocation.
	TimeLimitSeconds int `json:"time_limit_seconds"`
	// Threads is the solver's own parallelism per instance.
	Threads int `json:"threads"`
	// Parallelism is the number of instances solved concurrently.
	Parallelism int `json:"parallelism"`
	// StationCopies is how many graph nodes stand for each recharge station.
	// Unset selects graph.DefaultStationCopies; 0 removes the stations.
	StationCopies *int `json:"station_copies"`
	// SpeedOverride replaces the parsed vehicle speed when positive.
	SpeedOverride float64 `json:"speed_override"`
	InstanceDir   string  `json:"instance_dir"`
	// InstanceSet is "small", "large" or "all".
	InstanceSet string `json:"instance_set"`
}

// SetDefaults applies the historical driver defaults.
func (c *SolveConfig) SetDefaults() {
	if c.Formulation == "" {
		c.Formulation = model.EVRPTW.String()
	}
	if c.TimeLimitSeconds == 0 {
		c.TimeLimitSeconds = 500
	}
	if c.Threads == 0 {
		c.Threads = 1
	}
	if c.Parallelism == 0 {
		c.Parallelism = 1
	}
	if c.StationCopies == nil {
		c.StationCopies = pipeline.Copies(graph.DefaultStationCopies)
	}
	if c.InstanceDir == "" {
		c.InstanceDir = "instances"
	}
	if c.InstanceSet == "" {
		c.InstanceSet = string(instance.SetAll)
	}
}

// Validate checks ranges and names.
func (c SolveConfig) Validate() error {
	if _, err := model.ParseFormulation(c.Formulation); err != nil {
		return err
	}
	if c.TimeLimitSeconds <= 0 {
		return fmt.Errorf("time_limit_seconds must be positive")
	}
	if c.Threads < 1 || c.Parallelism < 1 {
		return fmt.Errorf("threads and parallelism must be at least 1")
	}
	if c.StationCopies != nil && *c.StationCopies < 0 {
		return fmt.Errorf("station_copies must not be negative")
	}
	if c.SpeedOverride < 0 {
		return fmt.Errorf("speed_override must not be negative")
	}
	if _, err := instance.ParseSet(c.InstanceSet); err != nil {
		return err
	}
	return nil
}

// Options converts the settings into pipeline options. Validate must have
// succeeded.
func (c SolveConfig) Options() pipeline.Options {
	f, _ := model.ParseFormulation(c.Formulation)
	return pipeline.Options{
		Formulation:   f,
		StationCopies: c.StationCopies,
		SpeedOverride: c.SpeedOverride,
		Params: milp.Params{
			Threads:   c.Threads,
			TimeLimit: time.Duration(c.TimeLimitSeconds) * time.Second,
		},
	}
}
