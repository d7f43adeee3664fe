package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	corereport "github.com/kilianp07/evrptw/core/report"
)

// ChartConfig configures the route chart sink.
type ChartConfig struct {
	Dir string `json:"dir"`
}

// ChartSink renders the decoded routes of each record as an HTML chart,
// one file per instance and formulation.
type ChartSink struct {
	dir string
}

// NewChartSink creates the output directory.
func NewChartSink(cfg ChartConfig) (*ChartSink, error) {
	if cfg.Dir == "" {
		cfg.Dir = "charts"
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &ChartSink{dir: cfg.Dir}, nil
}

// Path returns the file written for rec.
func (s *ChartSink) Path(rec corereport.Record) string {
	name := rec.Instance + "_" + strings.ToLower(rec.Formulation) + ".html"
	return filepath.Join(s.dir, name)
}

// Write renders rec. Records without routes are skipped.
func (s *ChartSink) Write(_ context.Context, rec corereport.Record) error {
	if len(rec.Routes) == 0 {
		return nil
	}
	html, err := RouteChartHTML(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path(rec), []byte(html), 0o644)
}

// Close is a no-op.
func (s *ChartSink) Close() error { return nil }

// RouteChartHTML plots every route of rec as a polyline over the node
// coordinates, with the visited nodes overlaid as points.
func RouteChartHTML(rec corereport.Record) (string, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    rec.Instance + " " + strings.ToUpper(rec.Formulation),
			Subtitle: fmt.Sprintf("status %s, objective %s", rec.Status, objectiveLabel(rec)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "y", Type: "value"}),
	)

	scatter := charts.NewScatter()
	var points []opts.ScatterData
	for i, r := range rec.Routes {
		data := make([]opts.LineData, 0, len(r.Coords))
		for k, c := range r.Coords {
			data = append(data, opts.LineData{Name: r.Labels[k], Value: []any{c[0], c[1]}})
			points = append(points, opts.ScatterData{Name: r.Labels[k], Value: []any{c[0], c[1]}})
		}
		line.AddSeries(fmt.Sprintf("route %d", i+1), data)
	}
	scatter.AddSeries("nodes", points)
	line.Overlap(scatter)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return "", fmt.Errorf("render route chart: %w", err)
	}
	return buf.String(), nil
}

func objectiveLabel(rec corereport.Record) string {
	if rec.Objective == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *rec.Objective)
}
