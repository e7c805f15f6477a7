package sim

import (
	"github.com/go-gl/mathgl/mgl64"
)

// CellSpec is the initial state passed to AddCell.
type CellSpec struct {
	CellType   int
	Pos        mgl64.Vec3
	Dir        mgl64.Vec3
	Length     float64
	Radius     float64
	GrowthRate float64
	Adhesion   float64
}

// CellState is the per-cell record shared with regulators, integrators and
// signal solvers. Geometry fields are refreshed from the engine after every
// step and must be treated as read-only by callers; GrowthRate, Adhesion,
// DivideFlag, the division fractions, Species and Signals are writable.
type CellState struct {
	ID       int
	Index    int
	CellType int

	Pos        mgl64.Vec3
	Dir        mgl64.Vec3
	Length     float64
	Radius     float64
	Ends       [2]mgl64.Vec3
	Area       float64
	Volume     float64
	OldVolume  float64
	Vel        mgl64.Vec3
	StrainRate float64
	EffGrowth  float64
	Age        int

	Neighbours      []int
	AvgNeighbourDir mgl64.Vec3

	GrowthRate float64
	Adhesion   float64
	DivideFlag bool
	// DivisionFractions sets the daughter length ratio. Zero values mean an
	// even split.
	DivisionFractions [2]float64
	// TargetLength is free for regulators that divide on size.
	TargetLength float64

	Species []float64
	Signals []float64
}

func (c *CellState) clone() *CellState {
	cp := *c
	cp.Neighbours = append([]int(nil), c.Neighbours...)
	cp.Species = append([]float64(nil), c.Species...)
	cp.Signals = append([]float64(nil), c.Signals...)
	return &cp
}
