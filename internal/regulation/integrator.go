package regulation

import (
	"gonum.org/v1/gonum/floats"

	"bactosim/internal/sim"
)

// Euler advances intracellular species with forward Euler:
//
//	s += dt * (rate(s) - effGrowth*s)
//
// The dilution term accounts for volume growth since the last step.
type Euler struct {
	Model SpeciesRateModel

	rates []float64
	dil   []float64
}

// NewEuler wraps a rate model.
func NewEuler(m SpeciesRateModel) *Euler {
	n := m.NumSpecies()
	return &Euler{Model: m, rates: make([]float64, n), dil: make([]float64, n)}
}

// Step implements sim.Integrator.
func (e *Euler) Step(dt float64, cells []*sim.CellState) {
	n := e.Model.NumSpecies()
	for _, c := range cells {
		if len(c.Species) != n {
			c.Species = resize(c.Species, n)
		}
		e.Model.SpeciesRates(c, e.rates)
		copy(e.dil, c.Species)
		floats.Scale(-c.EffGrowth, e.dil)
		floats.Add(e.rates, e.dil)
		floats.AddScaled(c.Species, dt, e.rates)
		for k, v := range c.Species {
			if v < 0 {
				c.Species[k] = 0
			}
		}
	}
}

func resize(s []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, s)
	return out
}
