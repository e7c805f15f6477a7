package regulation

import (
	"math"

	"bactosim/internal/sim"
)

// SpeciesRateModel computes d(species)/dt for one cell, excluding dilution.
// out has NumSpecies entries.
type SpeciesRateModel interface {
	NumSpecies() int
	SpeciesRates(c *sim.CellState, out []float64)
}

// SignalRateModel computes the secretion rate of each signal by one cell.
type SignalRateModel interface {
	NumSignals() int
	SignalRates(c *sim.CellState, out []float64)
}

// Expression is a constitutive production/degradation model: each species k
// is produced at Production[cellType][k] and decays at Degradation[k].
type Expression struct {
	Production  map[int][]float64
	Degradation []float64
	// Repression, when non-nil, divides production of species k by
	// 1 + (level of species Repression[k].By / K)^N.
	Repression map[int]Repressor
}

// Repressor describes Hill-type repression of one species by another.
type Repressor struct {
	By int
	K  float64
	N  float64
}

// NumSpecies implements SpeciesRateModel.
func (e *Expression) NumSpecies() int { return len(e.Degradation) }

// SpeciesRates implements SpeciesRateModel.
func (e *Expression) SpeciesRates(c *sim.CellState, out []float64) {
	prod := e.Production[c.CellType]
	for k := range out {
		p := 0.0
		if k < len(prod) {
			p = prod[k]
		}
		if rep, ok := e.Repression[k]; ok && rep.By < len(c.Species) && rep.K > 0 {
			p /= 1 + math.Pow(c.Species[rep.By]/rep.K, rep.N)
		}
		level := 0.0
		if k < len(c.Species) {
			level = c.Species[k]
		}
		out[k] = p - e.Degradation[k]*level
	}
}

// Secretion is a SignalRateModel where each cell type secretes at a fixed rate.
type Secretion struct {
	Rates map[int][]float64
	N     int
}

// NumSignals implements SignalRateModel.
func (s *Secretion) NumSignals() int { return s.N }

// SignalRates implements SignalRateModel.
func (s *Secretion) SignalRates(c *sim.CellState, out []float64) {
	r := s.Rates[c.CellType]
	for k := range out {
		out[k] = 0
		if k < len(r) {
			out[k] = r[k]
		}
	}
}
