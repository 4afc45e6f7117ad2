package report

import (
	"fmt"
	"os"
	"path/filepath"

	chart "github.com/wcharczuk/go-chart/v2"

	"immoval/server/internal/models"
)

// ChartRenderer writes yearly price-per-sqm trend charts as PNG files
// for embedding into generated reports.
type ChartRenderer struct {
	outputDir string
}

func NewChartRenderer(outputDir string) *ChartRenderer {
	return &ChartRenderer{outputDir: outputDir}
}

// RenderTrend plots year against mean price-per-sqm as a line series
// with point markers. Returns the written file path, or "" when the
// trend has no data points.
func (r *ChartRenderer) RenderTrend(postalCode string, trend models.YearlyTrend) (string, error) {
	if len(trend) == 0 {
		return "", nil
	}

	xs := make([]float64, len(trend))
	ys := make([]float64, len(trend))
	for i, point := range trend {
		xs[i] = float64(point.Year)
		ys[i] = point.MeanPriceSqm
	}

	xAxis := chart.XAxis{
		ValueFormatter: func(v interface{}) string {
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%.0f", f)
			}
			return ""
		},
	}
	yAxis := chart.YAxis{
		Name: "€/m²",
	}
	if len(trend) == 1 {
		// A single year gives a zero-delta range, which the renderer
		// rejects; pad the axes around the lone point instead of
		// dropping the chart.
		xAxis.Range = &chart.ContinuousRange{Min: xs[0] - 1, Max: xs[0] + 1}
		yAxis.Range = &chart.ContinuousRange{Min: ys[0] * 0.9, Max: ys[0] * 1.1}
	}

	graph := chart.Chart{
		Title: fmt.Sprintf("Prix moyen au m² - %s", postalCode),
		XAxis: xAxis,
		YAxis: yAxis,
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: 2,
					DotWidth:    4,
				},
			},
		},
	}

	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create chart directory: %w", err)
	}

	path := filepath.Join(r.outputDir, fmt.Sprintf("trend_%s.png", postalCode))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create chart file: %w", err)
	}
	defer file.Close()

	if err := graph.Render(chart.PNG, file); err != nil {
		return "", fmt.Errorf("failed to render trend chart: %w", err)
	}
	return path, nil
}
