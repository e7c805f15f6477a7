package regulation

import (
	"bactosim/internal/sim"
	"bactosim/pkg/core"
)

// TargetLength grows every cell at a per-type rate and flags it for division
// once its length passes a target drawn at birth as length + N(Delta, Sigma).
type TargetLength struct {
	GrowthRates map[int]float64
	// DefaultRate applies to cell types missing from GrowthRates.
	DefaultRate float64
	Delta       float64
	Sigma       float64

	rng *core.RNG
}

// NewTargetLength returns the standard size-triggered regulator.
func NewTargetLength(seed int64) *TargetLength {
	return &TargetLength{
		DefaultRate: 1.0,
		Delta:       2.0,
		Sigma:       0.45,
		rng:         core.NewRNG(seed),
	}
}

func (t *TargetLength) rate(cellType int) float64 {
	if r, ok := t.GrowthRates[cellType]; ok {
		return r
	}
	return t.DefaultRate
}

func (t *TargetLength) newTarget(c *sim.CellState) {
	c.TargetLength = c.Length + t.rng.Gauss(t.Delta, t.Sigma)
}

// Init implements sim.Regulator.
func (t *TargetLength) Init(c *sim.CellState) {
	c.GrowthRate = t.rate(c.CellType)
	t.newTarget(c)
}

// Update implements sim.Regulator.
func (t *TargetLength) Update(cells []*sim.CellState) {
	for _, c := range cells {
		c.GrowthRate = t.rate(c.CellType)
		if c.Length > c.TargetLength {
			c.DivideFlag = true
		}
	}
}

// Divide implements sim.Regulator.
func (t *TargetLength) Divide(_, d1, d2 *sim.CellState) {
	t.newTarget(d1)
	t.newTarget(d2)
}

// Conjugation layers plasmid transfer on top of TargetLength: a recipient
// touching a donor or transconjugant becomes a transconjugant with
// probability proportional to the partner's effective growth.
type Conjugation struct {
	*TargetLength
	Recipient      int
	Donor          int
	Transconjugant int
	// Efficiency scales partner effective growth into a per-step probability.
	Efficiency float64

	byID map[int]*sim.CellState
}

// NewConjugation returns a conjugation regulator with types 0, 1 and 2.
func NewConjugation(seed int64) *Conjugation {
	return &Conjugation{
		TargetLength:   NewTargetLength(seed),
		Recipient:      0,
		Donor:          1,
		Transconjugant: 2,
		Efficiency:     0.1,
		byID:           make(map[int]*sim.CellState),
	}
}

// Update implements sim.Regulator. Neighbour lists require
// physics.Config.ComputeNeighbours.
func (c *Conjugation) Update(cells []*sim.CellState) {
	c.TargetLength.Update(cells)
	clear(c.byID)
	for _, cell := range cells {
		c.byID[cell.ID] = cell
	}
	for _, cell := range cells {
		if cell.CellType != c.Recipient {
			continue
		}
		for _, id := range cell.Neighbours {
			nb, ok := c.byID[id]
			if !ok || nb.CellType == c.Recipient {
				continue
			}
			if c.rng.Float64() < nb.EffGrowth*c.Efficiency {
				cell.CellType = c.Transconjugant
				break
			}
		}
	}
}
