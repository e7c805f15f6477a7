package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats"

	"bactosim/pkg/core"
)

func assemble(e *Engine) {
	detect(e)
	e.buildMatrix()
	e.buildRHS(0)
}

func TestSolveWithoutContactsIsZero(t *testing.T) {
	e := New(testConfig())
	mustAdd(t, e, rod(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, 2, 0.5))
	mustAdd(t, e, rod(mgl64.Vec3{10, 0, 0}, mgl64.Vec3{0, 1, 0}, 2, 0.5))
	assemble(e)
	st := e.solve()
	if st.Iterations > 1 || !st.Converged {
		t.Fatalf("expected trivial solve, got %+v", st)
	}
	for k, v := range e.solver.x[:e.Len()*dofs] {
		if v != 0 {
			t.Fatalf("x[%d] = %v, want 0", k, v)
		}
	}
}

func TestSolveEmptyStore(t *testing.T) {
	e := New(testConfig())
	if st := e.solve(); st.Iterations != 0 || !st.Converged {
		t.Fatalf("empty store solve: %+v", st)
	}
	st := e.Step(0.1)
	if st.Solves != 0 || st.Ticks != 1 {
		t.Fatalf("empty step: %+v", st)
	}
}

func overlappingCluster(t *testing.T, e *Engine) {
	t.Helper()
	for ix := 0; ix < 3; ix++ {
		for iy := 0; iy < 3; iy++ {
			dir := mgl64.Vec3{1, 0.05 * float64(ix-iy), 0}
			mustAdd(t, e, rod(mgl64.Vec3{2.5 * float64(ix), 0.8 * float64(iy), 0}, dir, 2, 0.5))
		}
	}
}

func TestOperatorIsSymmetricPositiveDefinite(t *testing.T) {
	e := New(testConfig())
	overlappingCluster(t, e)
	assemble(e)
	if e.ContactCount() == 0 {
		t.Fatal("cluster should produce contacts")
	}
	m := e.Len() * dofs
	rng := core.NewRNG(5)
	u := make([]float64, m)
	v := make([]float64, m)
	for k := range u {
		u[k] = rng.Uniform(-1, 1)
		v[k] = rng.Uniform(-1, 1)
	}
	au := make([]float64, m)
	av := make([]float64, m)
	e.applyA(u, au)
	e.applyA(v, av)
	uav := floats.Dot(u, av)
	vau := floats.Dot(v, au)
	if math.Abs(uav-vau) > 1e-9*math.Max(1, math.Abs(uav)) {
		t.Fatalf("operator not symmetric: %v vs %v", uav, vau)
	}
	if floats.Dot(u, au) <= 0 || floats.Dot(v, av) <= 0 {
		t.Fatal("operator not positive definite")
	}
}

func TestSolveReducesOverlap(t *testing.T) {
	e := New(testConfig())
	mustAdd(t, e, rod(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, 2, 0.5))
	mustAdd(t, e, rod(mgl64.Vec3{0, 0.6, 0}, mgl64.Vec3{1, 0, 0}, 2, 0.5))
	assemble(e)
	before := e.maxWeightedOverlap()
	st := e.solve()
	if !st.Converged || st.Iterations == 0 {
		t.Fatalf("solve did not run: %+v", st)
	}
	if st.Iterations > cgIterFactor*e.Len() {
		t.Fatalf("iteration cap exceeded: %d", st.Iterations)
	}
	e.applyImpulse()
	e.predict()
	e.findContacts()
	after := e.maxWeightedOverlap()
	if !(after < 0.5*before) {
		t.Fatalf("overlap %v -> %v did not shrink", before, after)
	}
	dc0, _, _ := e.Motion(0)
	dc1, _, _ := e.Motion(1)
	if dc0.Y() >= 0 || dc1.Y() <= 0 {
		t.Fatalf("cells should be pushed apart, got %v %v", dc0, dc1)
	}
	if !near(dc0.Y(), -dc1.Y(), 1e-9) {
		t.Fatalf("equal cells should move symmetrically: %v %v", dc0, dc1)
	}
}

func TestPropulsionMovesFreeCellAlongAxis(t *testing.T) {
	cfg := testConfig()
	cfg.Propulsion = 2
	cfg.CGSTolerance = 1e-9
	e := New(cfg)
	mustAdd(t, e, rod(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 1, 0}, 2, 0.5))
	e.Step(0.5)
	p, _ := e.Pose(0)
	if !nearVec(p.Center, mgl64.Vec3{0, 1, 0}, 1e-6) {
		t.Fatalf("expected displacement of 1 along +y, got %v", p.Center)
	}
}

func TestScrubNonFinite(t *testing.T) {
	e := New(testConfig())
	x := make([]float64, 2*dofs)
	x[3] = math.NaN()
	x[dofs] = 1
	if e.scrubNonFinite(x) {
		t.Fatal("NaN not detected")
	}
	for k := 0; k < dofs; k++ {
		if x[k] != 0 {
			t.Fatalf("poisoned block not cleared at %d", k)
		}
	}
	if x[dofs] != 1 {
		t.Fatal("clean block must be kept")
	}
}
