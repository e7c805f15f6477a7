package regulation

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"bactosim/internal/sim"
)

func TestTargetLengthFlagsLongCells(t *testing.T) {
	r := NewTargetLength(3)
	r.GrowthRates = map[int]float64{1: 0.5}
	short := &sim.CellState{CellType: 0, Length: 2}
	long := &sim.CellState{CellType: 1, Length: 2}
	r.Init(short)
	r.Init(long)
	if short.GrowthRate != 1 || long.GrowthRate != 0.5 {
		t.Fatalf("growth rates %v %v", short.GrowthRate, long.GrowthRate)
	}
	if short.TargetLength <= short.Length {
		t.Fatalf("target %v not beyond length %v", short.TargetLength, short.Length)
	}
	long.Length = long.TargetLength + 0.1
	r.Update([]*sim.CellState{short, long})
	if short.DivideFlag {
		t.Fatal("short cell flagged")
	}
	if !long.DivideFlag {
		t.Fatal("long cell not flagged")
	}
}

func TestTargetLengthDaughtersGetFreshTargets(t *testing.T) {
	r := NewTargetLength(5)
	r.Sigma = 0
	d1 := &sim.CellState{Length: 1.5}
	d2 := &sim.CellState{Length: 1.0}
	r.Divide(nil, d1, d2)
	if d1.TargetLength != 3.5 || d2.TargetLength != 3.0 {
		t.Fatalf("targets %v %v", d1.TargetLength, d2.TargetLength)
	}
}

func TestConjugationNeedsNonRecipientNeighbour(t *testing.T) {
	r := NewConjugation(1)
	r.Efficiency = 1e6
	recipient := &sim.CellState{ID: 0, CellType: 0, Length: 2, TargetLength: 10, Neighbours: []int{1}}
	donor := &sim.CellState{ID: 1, CellType: 1, Length: 2, TargetLength: 10, EffGrowth: 1, Neighbours: []int{0}}
	lonely := &sim.CellState{ID: 2, CellType: 0, Length: 2, TargetLength: 10}
	r.Update([]*sim.CellState{recipient, donor, lonely})
	if recipient.CellType != 2 {
		t.Fatalf("recipient type %d, want transconjugant", recipient.CellType)
	}
	if lonely.CellType != 0 || donor.CellType != 1 {
		t.Fatalf("unexpected types %d %d", lonely.CellType, donor.CellType)
	}
}

func TestEulerProductionAndDilution(t *testing.T) {
	m := &Expression{
		Production:  map[int][]float64{0: {2}},
		Degradation: []float64{0.5},
	}
	e := NewEuler(m)
	c := &sim.CellState{Species: []float64{1}, EffGrowth: 1}
	e.Step(0.1, []*sim.CellState{c})
	// 1 + 0.1*(2 - 0.5 - 1) = 1.05
	if math.Abs(c.Species[0]-1.05) > 1e-12 {
		t.Fatalf("species %v", c.Species[0])
	}
}

func TestEulerResizesAndClamps(t *testing.T) {
	m := &Expression{Degradation: []float64{100, 0}}
	e := NewEuler(m)
	c := &sim.CellState{Species: []float64{1}}
	e.Step(1, []*sim.CellState{c})
	if len(c.Species) != 2 {
		t.Fatalf("species len %d", len(c.Species))
	}
	if c.Species[0] != 0 {
		t.Fatalf("negative level not clamped: %v", c.Species[0])
	}
}

func TestRepressionLowersProduction(t *testing.T) {
	m := &Expression{
		Production:  map[int][]float64{0: {1, 0}},
		Degradation: []float64{0, 0},
		Repression:  map[int]Repressor{0: {By: 1, K: 1, N: 2}},
	}
	out := make([]float64, 2)
	m.SpeciesRates(&sim.CellState{Species: []float64{0, 1}}, out)
	if math.Abs(out[0]-0.5) > 1e-12 {
		t.Fatalf("repressed rate %v", out[0])
	}
}

func TestWellMixedAccumulates(t *testing.T) {
	sec := &Secretion{Rates: map[int][]float64{0: {1}}, N: 1}
	w := NewWellMixed(sec, []float64{0}, 10)
	cells := []*sim.CellState{{Volume: 2}, {Volume: 3}}
	if err := w.Step(1, cells); err != nil {
		t.Fatal(err)
	}
	if got := w.Levels()[0]; math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("level %v", got)
	}
	for _, c := range cells {
		if len(c.Signals) != 1 || c.Signals[0] != w.Levels()[0] {
			t.Fatalf("cell signals %v", c.Signals)
		}
	}
}

func TestWellMixedRejectsZeroVolume(t *testing.T) {
	w := NewWellMixed(&Secretion{N: 1}, nil, 0)
	if err := w.Step(1, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestColonyDividesUnderTargetLength(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Physics.Workers = 1
	reg := NewTargetLength(1)
	s := sim.New(cfg, sim.WithRegulator(reg))
	if _, err := s.AddCell(sim.CellSpec{
		Pos:    mgl64.Vec3{},
		Dir:    mgl64.Vec3{1, 0, 0},
		Length: 2,
		Radius: 0.5,
	}); err != nil {
		t.Fatal(err)
	}
	divisions := 0
	for i := 0; i < 200; i++ {
		rep, err := s.Step()
		if err != nil {
			t.Fatal(err)
		}
		divisions += rep.Divisions
	}
	if divisions == 0 || s.Len() != 1+divisions {
		t.Fatalf("divisions %d cells %d", divisions, s.Len())
	}
	for id, parent := range s.Lineage() {
		if parent >= id {
			t.Fatalf("daughter %d has later parent %d", id, parent)
		}
	}
}
