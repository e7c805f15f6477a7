package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestDivideSymmetricGeometry(t *testing.T) {
	e := New(testConfig())
	parent := mustAdd(t, e, rod(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{1, 0, 0}, 4, 0.5))
	mustAdd(t, e, rod(mgl64.Vec3{20, 0, 0}, mgl64.Vec3{1, 0, 0}, 1, 0.5))
	before, _ := e.Geometry(parent)

	d1, d2, err := e.Divide(parent, 1, 1)
	if err != nil {
		t.Fatalf("divide: %v", err)
	}
	if d1 != parent || d2 != 2 {
		t.Fatalf("expected daughters (%d, 2), got (%d, %d)", parent, d1, d2)
	}
	g1, _ := e.Geometry(d1)
	g2, _ := e.Geometry(d2)
	want := 4.0/2 - 0.5
	if !near(g1.Length, want, 1e-12) || !near(g2.Length, want, 1e-12) {
		t.Fatalf("daughter lengths %v %v, want %v", g1.Length, g2.Length, want)
	}
	offset := 4.0/4 - 0.5/2 + 0.5
	if !nearVec(g1.Center, mgl64.Vec3{1 - offset, 2, 3}, 1e-12) || !nearVec(g2.Center, mgl64.Vec3{1 + offset, 2, 3}, 1e-12) {
		t.Fatalf("daughter centers %v %v", g1.Center, g2.Center)
	}
	if g1.Radius != 0.5 || g2.Radius != 0.5 {
		t.Fatal("radius must be copied")
	}
	if !near(g1.Volume+g2.Volume, before.Volume, 1e-12) || !near(g1.Volume, g2.Volume, 1e-12) {
		t.Fatalf("volume not halved: %v + %v vs %v", g1.Volume, g2.Volume, before.Volume)
	}
	// Daughters end up tangent.
	if gap := g2.Center.Sub(g1.Center).Len() - (g1.Length/2 + g2.Length/2 + 1); !near(gap, 0, 1e-12) {
		t.Fatalf("daughters should touch end to end, gap %v", gap)
	}
}

func TestDivideInheritsMotion(t *testing.T) {
	e := New(testConfig())
	parent := mustAdd(t, e, rod(mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}, 3, 0.4))
	dc := mgl64.Vec3{0.1, -0.2, 0.05}
	dang := mgl64.Vec3{0, 0, 0.3}
	if err := e.SetMotion(parent, dc, dang); err != nil {
		t.Fatal(err)
	}
	d1, d2, err := e.Divide(parent, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range []int{d1, d2} {
		gotC, gotA, _ := e.Motion(d)
		if gotC != dc || gotA != dang {
			t.Fatalf("daughter %d motion %v %v, want %v %v", d, gotC, gotA, dc, dang)
		}
	}
}

func TestDivideAsymmetric(t *testing.T) {
	e := New(testConfig())
	parent := mustAdd(t, e, rod(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 4, 0.5))
	vol := CapsuleVolume(4, 0.5)
	d1, d2, err := e.Divide(parent, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	g1, _ := e.Geometry(d1)
	g2, _ := e.Geometry(d2)
	if !near(g1.Length, 0.75, 1e-12) || !near(g2.Length, 2.25, 1e-12) {
		t.Fatalf("lengths %v %v", g1.Length, g2.Length)
	}
	if !near(g1.Volume, vol/4, 1e-12) || !near(g2.Volume, 3*vol/4, 1e-12) {
		t.Fatalf("volumes %v %v", g1.Volume, g2.Volume)
	}
	if !nearVec(g1.Ends[0], mgl64.Vec3{-2, 0, 0}, 1e-12) || !nearVec(g2.Ends[1], mgl64.Vec3{2, 0, 0}, 1e-12) {
		t.Fatalf("daughters should keep the parent's outer ends: %v %v", g1.Ends, g2.Ends)
	}
}

func TestDivideRefusedAtCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCells = 1
	e := New(cfg)
	parent := mustAdd(t, e, rod(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 4, 0.5))
	before, _ := e.Pose(parent)
	if _, _, err := e.Divide(parent, 1, 1); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
	after, _ := e.Pose(parent)
	if e.Len() != 1 || before != after {
		t.Fatal("refused division must not change the store")
	}
	if e.Events().DroppedCells != 1 {
		t.Fatalf("expected a dropped-cell event, got %+v", e.Events())
	}
	if _, err := e.AddCell(before); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity from AddCell, got %v", err)
	}
	if _, _, err := e.Divide(5, 1, 1); !errors.Is(err, ErrBadIndex) {
		t.Fatalf("expected ErrBadIndex, got %v", err)
	}
}

func TestDivideAlternateRotatesAxis(t *testing.T) {
	cfg := testConfig()
	cfg.AlternateDivisions = true
	cfg.DivisionJitter = 0.05
	e := New(cfg)
	parent := mustAdd(t, e, rod(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 4, 0.5))
	d1, d2, _ := e.Divide(parent, 1, 1)
	for _, d := range []int{d1, d2} {
		g, _ := e.Geometry(d)
		if !nearVec(g.Dir, mgl64.Vec3{0, 1, 0}, 1e-12) {
			t.Fatalf("daughter %d dir %v, want +y", d, g.Dir)
		}
	}
}

func TestDivideJitter(t *testing.T) {
	cfg := testConfig()
	cfg.DivisionJitter = 0.05
	cfg.JitterZ = false
	e := New(cfg)
	parent := mustAdd(t, e, rod(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 4, 0.5))
	d1, d2, _ := e.Divide(parent, 1, 1)
	g1, _ := e.Geometry(d1)
	g2, _ := e.Geometry(d2)
	for _, g := range []CellGeom{g1, g2} {
		if !near(g.Dir.Len(), 1, 1e-12) || g.Dir.Z() != 0 {
			t.Fatalf("jittered dir %v must be unit and planar", g.Dir)
		}
		if math.Acos(clamp(g.Dir.X(), -1, 1)) > 0.1 {
			t.Fatalf("jitter too large: %v", g.Dir)
		}
	}
	if g1.Dir == g2.Dir {
		t.Fatal("daughters should be jittered independently")
	}

	// The same seed reproduces the same jitter.
	e2 := New(cfg)
	parent = mustAdd(t, e2, rod(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 4, 0.5))
	r1, _, _ := e2.Divide(parent, 1, 1)
	h1, _ := e2.Geometry(r1)
	if h1.Dir != g1.Dir {
		t.Fatalf("jitter not deterministic: %v vs %v", h1.Dir, g1.Dir)
	}
}
