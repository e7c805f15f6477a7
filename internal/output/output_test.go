package output

import (
	"os"
	"path/filepath"
	"testing"

	"bactosim/internal/core"
	"bactosim/internal/physics"
	"bactosim/internal/render"
	"bactosim/internal/sim"
)

func TestMovieWritesFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colony.avi")
	m, err := NewMovie(path, 16, 8, 2, 5, render.DefaultPalette)
	if err != nil {
		t.Fatal(err)
	}
	g := core.NewByteGrid(16, 8)
	for i := 0; i < 3; i++ {
		g.Cells()[i] = 1
		if err := m.Add(g); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Add(core.NewByteGrid(4, 4)); err == nil {
		t.Fatal("mismatched frame accepted")
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if m.Frames() != 3 {
		t.Fatalf("frames %d", m.Frames())
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("movie file: %v %v", info, err)
	}
}

func TestGrowthPlotSaves(t *testing.T) {
	g := NewGrowthPlot("colony")
	if err := g.Save(filepath.Join(t.TempDir(), "empty.png")); err == nil {
		t.Fatal("empty plot saved")
	}
	for i := 1; i <= 10; i++ {
		g.Record(sim.Report{Step: i, Cells: i * i, Physics: physics.StepStats{Contacts: i}})
	}
	path := filepath.Join(t.TempDir(), "growth.png")
	if err := g.Save(path); err != nil {
		t.Fatal(err)
	}
	if g.Len() != 10 {
		t.Fatalf("len %d", g.Len())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
}
