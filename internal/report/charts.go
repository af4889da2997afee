// Package report renders Markdown ledger reports and their PNG charts.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// LabelValue is one slice of a pie chart.
type LabelValue struct {
	Label string
	Value float64
}

// TimePoint is one point of a time-indexed line series.
type TimePoint struct {
	Date  time.Time
	Value float64
}

// LineSeries is a named series of time points.
type LineSeries struct {
	Name   string
	Points []TimePoint
}

// ChartRenderer produces chart files and returns the file name written.
// Renderers return ("", nil) when the data cannot make a meaningful chart,
// and report layouts skip the image reference in that case.
type ChartRenderer interface {
	Pie(name, title string, values []LabelValue) (string, error)
	Line(name, title string, series []LineSeries) (string, error)
}

// PNGChartRenderer writes go-chart PNGs into a directory.
type PNGChartRenderer struct {
	dir string
}

func NewPNGChartRenderer(dir string) (*PNGChartRenderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart directory: %w", err)
	}
	return &PNGChartRenderer{dir: dir}, nil
}

var sliceColors = []drawing.Color{
	drawing.ColorFromHex("2563eb"),
	drawing.ColorFromHex("dc2626"),
	drawing.ColorFromHex("16a34a"),
	drawing.ColorFromHex("d97706"),
	drawing.ColorFromHex("7c3aed"),
	drawing.ColorFromHex("0891b2"),
	drawing.ColorFromHex("db2777"),
	drawing.ColorFromHex("65a30d"),
}

// Pie renders a pie chart of the positive values. All-zero or empty input
// produces no file.
func (r *PNGChartRenderer) Pie(name, title string, values []LabelValue) (string, error) {
	chartValues := make([]chart.Value, 0, len(values))
	for i, v := range values {
		if v.Value <= 0 {
			continue
		}
		chartValues = append(chartValues, chart.Value{
			Label: fmt.Sprintf("%s (%.2f)", v.Label, v.Value),
			Value: v.Value,
			Style: chart.Style{FillColor: sliceColors[i%len(sliceColors)]},
		})
	}
	if len(chartValues) == 0 {
		return "", nil
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  600,
		Height: 600,
		Values: chartValues,
	}

	fileName := name + ".png"
	f, err := os.Create(filepath.Join(r.dir, fileName))
	if err != nil {
		return "", fmt.Errorf("create chart file %s: %w", fileName, err)
	}
	defer f.Close()

	if err := pie.Render(chart.PNG, f); err != nil {
		return "", fmt.Errorf("render pie chart %s: %w", fileName, err)
	}
	return fileName, nil
}

// Line renders a time-series line chart. Series need at least two points to
// draw a line; when no series qualifies, no file is produced.
func (r *PNGChartRenderer) Line(name, title string, series []LineSeries) (string, error) {
	chartSeries := make([]chart.Series, 0, len(series))
	for i, s := range series {
		if len(s.Points) < 2 {
			continue
		}
		xValues := make([]time.Time, len(s.Points))
		yValues := make([]float64, len(s.Points))
		for j, p := range s.Points {
			xValues[j] = p.Date
			yValues[j] = p.Value
		}
		chartSeries = append(chartSeries, chart.TimeSeries{
			Name: s.Name,
			Style: chart.Style{
				StrokeColor: sliceColors[i%len(sliceColors)],
				StrokeWidth: 2.0,
			},
			XValues: xValues,
			YValues: yValues,
		})
	}
	if len(chartSeries) == 0 {
		return "", nil
	}

	graph := chart.Chart{
		Title:  title,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 02")
				}
				return ""
			},
		},
		Series: chartSeries,
	}
	if len(chartSeries) > 1 {
		graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}
	}

	fileName := name + ".png"
	f, err := os.Create(filepath.Join(r.dir, fileName))
	if err != nil {
		return "", fmt.Errorf("create chart file %s: %w", fileName, err)
	}
	defer f.Close()

	if err := graph.Render(chart.PNG, f); err != nil {
		return "", fmt.Errorf("render line chart %s: %w", fileName, err)
	}
	return fileName, nil
}
