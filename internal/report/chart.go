package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/jagreenwood/healthkit-workout-splits/internal/splits"
	"github.com/jagreenwood/healthkit-workout-splits/internal/units"
)

// PaceChart renders an HTML page with a bar chart of minutes per distUnit
// per split and a line of speed in speedUnits.
func PaceChart(w io.Writer, title string, in []splits.Split, distUnit, speedUnits string) error {
	paces := paceMinutes(in, distUnit)
	paceData := make([]opts.BarData, len(in))
	speedData := make([]opts.LineData, len(in))
	for i, sp := range in {
		paceData[i] = opts.BarData{Value: round2(paces[i])}
		speedData[i] = opts.LineData{Value: round2(units.ConvertSpeed(sp.PaceMetersPerSecond, speedUnits))}
	}

	sum := Summarize(in)
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "540px"}),
		charts.WithTitleOpts(opts.Title{
			Title: title,
			Subtitle: fmt.Sprintf("%d splits, %.2f %s in %s", sum.Count,
				units.FromMeters(sum.TotalMeters, distUnit), distUnit, units.FormatDuration(sum.TotalSeconds)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Split"}),
		charts.WithYAxisOpts(opts.YAxis{Name: fmt.Sprintf("min/%s", distUnit)}),
	)
	bar.ExtendYAxis(opts.YAxis{Name: speedUnits})
	bar.SetXAxis(splitLabels(in)).
		AddSeries("pace", paceData,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	line := charts.NewLine()
	line.SetXAxis(splitLabels(in)).
		AddSeries("speed", speedData, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}))
	bar.Overlap(line)

	page := components.NewPage()
	page.AddCharts(bar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
