package report

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/jagreenwood/healthkit-workout-splits/internal/fsutil"
	"github.com/jagreenwood/healthkit-workout-splits/internal/splits"
	"github.com/jagreenwood/healthkit-workout-splits/internal/units"
)

// splitLabels returns "1", "2", ... with partial splits marked by "*".
func splitLabels(in []splits.Split) []string {
	labels := make([]string, len(in))
	for i, sp := range in {
		labels[i] = fmt.Sprintf("%d", sp.Index)
		if sp.IsPartial {
			labels[i] += "*"
		}
	}
	return labels
}

// paceMinutes returns each split's pace in minutes per distUnit. Splits
// without pace are 0.
func paceMinutes(in []splits.Split, distUnit string) []float64 {
	out := make([]float64, len(in))
	for i, sp := range in {
		out[i] = units.PacePerUnit(sp.PaceMetersPerSecond, distUnit) / 60
	}
	return out
}

// newPacePlot builds a bar chart of minutes per distUnit for each split,
// with the average pace as a horizontal line.
func newPacePlot(in []splits.Split, distUnit string) (*plot.Plot, vg.Length, error) {
	if len(in) == 0 {
		return nil, 0, fmt.Errorf("no splits to plot")
	}

	p := plot.New()
	p.Title.Text = "Split pace"
	p.X.Label.Text = "Split"
	p.Y.Label.Text = fmt.Sprintf("min/%s", distUnit)

	values := plotter.Values(paceMinutes(in, distUnit))
	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create bar chart: %w", err)
	}
	bars.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(splitLabels(in)...)

	avg := units.PacePerUnit(Summarize(in).AveragePace, distUnit) / 60
	if avg > 0 && !math.IsInf(avg, 0) {
		line, err := plotter.NewLine(plotter.XYs{{X: -0.5, Y: avg}, {X: float64(len(in)) - 0.5, Y: avg}})
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create average line: %w", err)
		}
		line.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
		line.Width = vg.Points(1)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(line)
		p.Legend.Add("average", line)
		p.Legend.Top = true
	}
	p.Add(plotter.NewGrid())

	width := vg.Length(math.Max(6, float64(len(in))*0.5)) * vg.Inch
	return p, width, nil
}

// WritePacePlot renders the pace chart to w in format ("png", "svg",
// "pdf", ...).
func WritePacePlot(w io.Writer, in []splits.Split, distUnit, format string) error {
	p, width, err := newPacePlot(in, distUnit)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, 4*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}

// SavePacePlot writes the pace chart to path on fsys, creating parent
// directories. The extension picks the image format.
func SavePacePlot(fsys fsutil.FileSystem, in []splits.Split, distUnit, path string) error {
	if len(in) == 0 {
		return fmt.Errorf("no splits to plot")
	}
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if format == "" {
		return fmt.Errorf("plot path %q has no extension", path)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create plot file: %w", err)
	}
	if err := WritePacePlot(f, in, distUnit, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
