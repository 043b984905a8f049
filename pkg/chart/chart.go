// Package chart renders the capacity-vs-workload bar chart.
package chart

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/harrisonrobin/qplan/pkg/capacity"
	"github.com/harrisonrobin/qplan/pkg/model"
)

const (
	Title         = "Capacity vs Workload"
	CapacityName  = "Total Capacity"
	capacityColor = "lightgrey"
)

var typeColors = map[model.TaskType]string{
	model.OwnTask:         "#636efa",
	model.IncomingBlocker: "#ef553b",
	model.IncomingEnabler: "#00cc96",
}

// Series is one named bar series aligned with the chart's teams.
type Series struct {
	Name   string
	Values []float64
}

// Data is the chart input: teams on the x axis, the capacity series, and
// one load series per task type that has any load.
type Data struct {
	Teams    []string
	Capacity Series
	Load     []Series
}

// Build prepares chart data from summary lines.
func Build(lines []capacity.Line) Data {
	d := Data{Capacity: Series{Name: CapacityName}}
	for _, l := range lines {
		d.Teams = append(d.Teams, l.Team)
		d.Capacity.Values = append(d.Capacity.Values, l.Capacity)
	}
	for _, t := range model.TaskTypes {
		s := Series{Name: string(t), Values: make([]float64, len(lines))}
		nonzero := false
		for i, l := range lines {
			s.Values[i] = l.Load[t]
			if l.Load[t] != 0 {
				nonzero = true
			}
		}
		if nonzero {
			d.Load = append(d.Load, s)
		}
	}
	return d
}

func barData(values []float64) []opts.BarData {
	items := make([]opts.BarData, len(values))
	for i, v := range values {
		items[i] = opts.BarData{Value: v}
	}
	return items
}

// New builds an overlaid bar chart: load bars are drawn over the grey
// capacity bar of the same team.
func New(d Data) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: Title,
			Width:     "100%",
			Height:    "480px",
		}),
		charts.WithTitleOpts(opts.Title{Title: Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "SP"}),
	)

	bar.SetXAxis(d.Teams).
		AddSeries(d.Capacity.Name, barData(d.Capacity.Values),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: capacityColor}),
			charts.WithBarChartOpts(opts.BarChart{BarGap: "-100%"}),
		)

	for _, s := range d.Load {
		bar.AddSeries(s.Name, barData(s.Values),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: typeColors[model.TaskType(s.Name)]}),
			charts.WithBarChartOpts(opts.BarChart{BarGap: "-100%"}),
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "inside"}),
		)
	}
	return bar
}

// Render writes the chart as a standalone HTML page.
func Render(w io.Writer, lines []capacity.Line) error {
	return New(Build(lines)).Render(w)
}
