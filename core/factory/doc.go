// Package factory provides a small generic registry used to instantiate
// solvers and result sinks from configuration. A module is selected by a
// type string and a map of raw settings; its factory decodes the settings
// into a typed struct and returns the implementation.
//
//	reg := factory.NewRegistry[milp.Solver]()
//	reg.Register("highs", func(conf map[string]any) (milp.Solver, error) {
//	    var c solver.HighsConfig
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return solver.NewHighs(c), nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "highs", Conf: map[string]any{"binary": "highs"}})
package factory
