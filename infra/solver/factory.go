package solver

import (
	"github.com/kilianp07/evrptw/core/factory"
	"github.com/kilianp07/evrptw/core/milp"
)

type exhaustiveConfig struct {
	MaxBinaries int `json:"max_binaries"`
}

func init() {
	_ = milp.RegisterSolver("highs", func(conf map[string]any) (milp.Solver, error) {
		var cfg HighsConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewHighs(cfg), nil
	})
	_ = milp.RegisterSolver("exhaustive", func(conf map[string]any) (milp.Solver, error) {
		var cfg exhaustiveConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewExhaustive(cfg.MaxBinaries), nil
	})
}
