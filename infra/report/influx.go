package report

import (
	"context"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	corereport "github.com/kilianp07/evrptw/core/report"
	"github.com/kilianp07/evrptw/infra/logger"
)

// InfluxConfig configures the InfluxDB sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes one solve_result point per record.
type InfluxSink struct {
	mu       sync.Mutex
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails, so a missing database never aborts a
// batch.
func NewInfluxSinkWithFallback(cfg InfluxConfig) corereport.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return corereport.NopSink{}
	}
	return sink
}

// Point converts rec to line-protocol form. Undefined values are omitted.
func Point(rec corereport.Record) *write.Point {
	p := write.NewPointWithMeasurement("solve_result").
		AddTag("run_id", rec.RunID).
		AddTag("instance", rec.Instance).
		AddTag("formulation", rec.Formulation).
		AddTag("status", rec.Status).
		AddField("vehicles_used", rec.VehiclesUsed).
		AddField("total_route_time", round4(rec.TotalRouteTime)).
		AddField("qtd_recharge", round4(rec.Recharge)).
		AddField("runtime_s", round4(rec.Runtime.Seconds())).
		SetTime(rec.Time)
	if rec.Objective != nil {
		p.AddField("obj", round4(*rec.Objective))
	}
	if rec.MIPGap != nil {
		p.AddField("mip_gap", round4(*rec.MIPGap))
	}
	if rec.Error != "" {
		p.AddField("error", rec.Error)
	}
	return p
}

// Write sends the point for rec.
func (s *InfluxSink) Write(ctx context.Context, rec corereport.Record) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAPI.WritePoint(ctx, Point(rec))
}

// Close releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }
