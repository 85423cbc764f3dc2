package core

import (
	"github.com/JonMunkholm/dataplay/internal/table"
)

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries is one data series.
type ChartSeries struct {
	Name string       `json:"name"`
	Data []ChartPoint `json:"data"`
}

// ChartPoint is a single bar.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// MaxChartPoints caps the bars drawn; the table still holds every group.
const MaxChartPoints = 50

// barChart plots "<value>_<first func>" against the key for single-key,
// single-value groupings. It returns nil for any other grouping or when the
// plotted column is not numeric (min or max of a text column).
func barChart(out *table.Table, spec table.GroupSpec) *ChartConfig {
	keys, values, funcs := spec.Keys(), spec.Values(), spec.Funcs()
	if len(keys) != 1 || len(values) != 1 || len(funcs) == 0 {
		return nil
	}
	yName := table.OutputName(values[0], funcs[0])
	x, errX := out.Column(keys[0])
	y, errY := out.Column(yName)
	if errX != nil || errY != nil || y.Type() != table.Numeric {
		return nil
	}

	n := out.NumRows()
	if n > MaxChartPoints {
		n = MaxChartPoints
	}
	points := make([]ChartPoint, 0, n)
	for i := 0; i < n; i++ {
		v, ok := table.Float(y.Value(i))
		if !ok {
			continue // null statistic, e.g. std of a single value
		}
		points = append(points, ChartPoint{Label: table.FormatValue(x.Value(i)), Value: v})
	}

	return &ChartConfig{
		ChartType: "bar",
		Title:     yName + " by " + keys[0],
		XAxis:     keys[0],
		YAxis:     yName,
		Series:    []ChartSeries{{Name: yName, Data: points}},
		ShowGrid:  true,
	}
}
