package history

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/folio/internal/models"
)

// RenderPerformanceChart renders a PNG line chart of total portfolio value
// from a reconstructed series. Returns raw PNG bytes.
func RenderPerformanceChart(summary *models.PerformanceSummary) ([]byte, error) {
	if summary == nil || len(summary.Series) < 2 {
		return nil, fmt.Errorf("need at least 2 data points to chart")
	}

	xValues := make([]time.Time, len(summary.Series))
	yValues := make([]float64, len(summary.Series))
	for i, p := range summary.Series {
		xValues[i] = time.UnixMilli(p.Timestamp).UTC()
		yValues[i] = p.Total
	}

	strokeColor := drawing.ColorFromHex("2563eb") // blue-600
	if summary.Change < 0 {
		strokeColor = drawing.ColorFromHex("dc2626") // red-600
	}

	valueSeries := chart.TimeSeries{
		Name: "Portfolio Value",
		Style: chart.Style{
			StrokeColor: strokeColor,
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: yValues,
	}

	title := "Portfolio Value"
	if summary.Accuracy != models.AccuracyAccurate {
		title = fmt.Sprintf("Portfolio Value (%s)", summary.Accuracy)
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
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.2f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{valueSeries},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
