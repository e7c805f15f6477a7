package output

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"bactosim/internal/sim"
)

// GrowthPlot accumulates per-step colony counts and renders them as a line
// chart.
type GrowthPlot struct {
	Title    string
	steps    []float64
	cells    []float64
	contacts []float64
}

// NewGrowthPlot returns an empty plot.
func NewGrowthPlot(title string) *GrowthPlot {
	return &GrowthPlot{Title: title}
}

// Record appends one step report.
func (g *GrowthPlot) Record(rep sim.Report) {
	g.steps = append(g.steps, float64(rep.Step))
	g.cells = append(g.cells, float64(rep.Cells))
	g.contacts = append(g.contacts, float64(rep.Physics.Contacts))
}

// Len returns the number of recorded steps.
func (g *GrowthPlot) Len() int { return len(g.steps) }

func (g *GrowthPlot) series(ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(ys))
	for i := range pts {
		pts[i].X = g.steps[i]
		pts[i].Y = ys[i]
	}
	return pts
}

// Save writes the chart to path; the extension picks the format.
func (g *GrowthPlot) Save(path string) error {
	if len(g.steps) == 0 {
		return fmt.Errorf("growth plot: no data")
	}
	p := plot.New()
	p.Title.Text = g.Title
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Count"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{}
	if err := plotutil.AddLinePoints(p,
		"Cells", g.series(positive(g.cells)),
		"Contacts", g.series(positive(g.contacts)),
	); err != nil {
		return fmt.Errorf("growth plot: %w", err)
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save growth plot: %w", err)
	}
	return nil
}

// positive floors counts at 1 so they survive the log axis.
func positive(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = max(x, 1)
	}
	return out
}
