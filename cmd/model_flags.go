package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evrptw/core/formulation"
	"github.com/kilianp07/evrptw/core/model"
	"github.com/kilianp07/evrptw/core/pipeline"
	"github.com/kilianp07/evrptw/infra/instance"
)

// addModelFlags registers the flags that change how an instance is
// compiled.
func addModelFlags(c *cobra.Command) {
	c.Flags().Bool("vrptw", false, "use the VRPTW formulation (no battery, no stations)")
	c.Flags().Int("station-copies", 0, "graph copies per recharge station")
	c.Flags().Float64("speed", 0, "override the vehicle speed")
}

// applyModelFlags copies explicitly set model flags into the loaded
// configuration.
func applyModelFlags(c *cobra.Command) error {
	f := c.Flags()
	if f.Changed("vrptw") {
		v, _ := f.GetBool("vrptw")
		cfg.Solve.Formulation = model.EVRPTW.String()
		if v {
			cfg.Solve.Formulation = model.VRPTW.String()
		}
	}
	if f.Changed("station-copies") {
		n, _ := f.GetInt("station-copies")
		cfg.Solve.StationCopies = pipeline.Copies(n)
	}
	if f.Changed("speed") {
		cfg.Solve.SpeedOverride, _ = f.GetFloat64("speed")
	}
	if err := cfg.Solve.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// compileFile loads and compiles the instance at path with the current
// configuration.
func compileFile(path string) (*formulation.Compiled, error) {
	inst, err := instance.Load(path)
	if err != nil {
		return nil, err
	}
	return pipeline.Compile(inst, cfg.Solve.Options())
}
