package report

import "github.com/kilianp07/evrptw/core/factory"

var sinkRegistry = factory.NewRegistry[Sink]()

func init() {
	_ = RegisterSink("nop", func(map[string]any) (Sink, error) { return NopSink{}, nil })
	_ = RegisterSink("csv", func(conf map[string]any) (Sink, error) {
		var c CSVConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewCSVFileSink(c)
	})
}

// RegisterSink adds a sink factory identified by name.
func RegisterSink(name string, f factory.Factory[Sink]) error {
	return sinkRegistry.Register(name, f)
}

// NewSink creates a Sink from the provided configurations. No
// configuration yields a NopSink; several yield a MultiSink.
func NewSink(cfgs []factory.ModuleConfig) (Sink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]Sink, 0, len(cfgs))
	for _, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			_ = NewMultiSink(sinks...).Close()
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return NewMultiSink(sinks...), nil
}

// SinkNames lists the registered sink types.
func SinkNames() []string { return sinkRegistry.Names() }
