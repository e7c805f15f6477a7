package regulation

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"bactosim/internal/sim"
)

// WellMixed is a SignalSolver for a single shared compartment: every cell
// sees the same level, which rises with total secretion and decays at Decay.
// Volume is the compartment size secretion is diluted into.
type WellMixed struct {
	Model  SignalRateModel
	Decay  []float64
	Volume float64

	level []float64
	buf   []float64
	total []float64
}

// NewWellMixed returns a solver with all levels at zero.
func NewWellMixed(m SignalRateModel, decay []float64, volume float64) *WellMixed {
	n := m.NumSignals()
	d := make([]float64, n)
	copy(d, decay)
	return &WellMixed{
		Model:  m,
		Decay:  d,
		Volume: volume,
		level:  make([]float64, n),
		buf:    make([]float64, n),
		total:  make([]float64, n),
	}
}

// Levels returns the current compartment levels.
func (w *WellMixed) Levels() []float64 { return append([]float64(nil), w.level...) }

// Step implements sim.SignalSolver.
func (w *WellMixed) Step(dt float64, cells []*sim.CellState) error {
	if w.Volume <= 0 {
		return fmt.Errorf("well-mixed volume %g must be positive", w.Volume)
	}
	n := len(w.level)
	for k := range w.total {
		w.total[k] = 0
	}
	for _, c := range cells {
		w.Model.SignalRates(c, w.buf)
		floats.AddScaled(w.total, c.Volume, w.buf)
	}
	for k := 0; k < n; k++ {
		w.level[k] += dt * (w.total[k]/w.Volume - w.Decay[k]*w.level[k])
		if w.level[k] < 0 {
			w.level[k] = 0
		}
	}
	for _, c := range cells {
		if len(c.Signals) != n {
			c.Signals = make([]float64, n)
		}
		copy(c.Signals, w.level)
	}
	return nil
}
