package report

import (
	"github.com/kilianp07/evrptw/core/factory"
	corereport "github.com/kilianp07/evrptw/core/report"
)

// init registers the externally backed sinks.
func init() {
	_ = corereport.RegisterSink("jsonl", func(conf map[string]any) (corereport.Sink, error) {
		var c JSONLConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewJSONLSink(c)
	})
	_ = corereport.RegisterSink("sqlite", func(conf map[string]any) (corereport.Sink, error) {
		var c SQLiteConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSQLiteSink(c)
	})
	_ = corereport.RegisterSink("influx", func(conf map[string]any) (corereport.Sink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})
	_ = corereport.RegisterSink("prometheus", func(map[string]any) (corereport.Sink, error) {
		return NewPromSink()
	})
	_ = corereport.RegisterSink("mqtt", func(conf map[string]any) (corereport.Sink, error) {
		var c MQTTConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewMQTTSink(c)
	})
	_ = corereport.RegisterSink("chart", func(conf map[string]any) (corereport.Sink, error) {
		var c ChartConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewChartSink(c)
	})
}
