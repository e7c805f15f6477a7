package physics

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxCells = 64
	cfg.Workers = 1
	cfg.DivisionJitter = 0
	return cfg
}

func mustAdd(t *testing.T, e *Engine, p Pose) int {
	t.Helper()
	i, err := e.AddCell(p)
	if err != nil {
		t.Fatalf("add cell: %v", err)
	}
	return i
}

func rod(center, dir mgl64.Vec3, length, radius float64) Pose {
	return Pose{Center: center, Dir: dir, Length: length, Radius: radius}
}

// detect runs one predict and contact pass without solving.
func detect(e *Engine) int {
	e.initTick(0)
	e.predict()
	n := e.findContacts()
	e.collectTos()
	return n
}

func TestCellContactCanonicalDirection(t *testing.T) {
	e := New(testConfig())
	a := mustAdd(t, e, rod(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, 2, 0.5))
	b := mustAdd(t, e, rod(mgl64.Vec3{0, 0.8, 0}, mgl64.Vec3{1, 0, 0}, 2, 0.5))

	if n := detect(e); n != 1 {
		t.Fatalf("expected 1 new contact, got %d", n)
	}
	cts := e.Contacts(a)
	if len(cts) != 1 {
		t.Fatalf("expected one contact on lower index, got %d", len(cts))
	}
	if len(e.Contacts(b)) != 0 {
		t.Fatal("higher index must not own the pair")
	}
	ct := cts[0]
	if ct.From != a || ct.To != b || ct.IsStatic() {
		t.Fatalf("unexpected pair %d->%d", ct.From, ct.To)
	}
	if !near(ct.Dist, -0.2, 1e-9) || !near(ct.Overlap(), 0.2, 1e-9) {
		t.Fatalf("expected overlap 0.2, got dist %v", ct.Dist)
	}
	if !nearVec(ct.Normal, mgl64.Vec3{0, -1, 0}, 1e-9) {
		t.Fatalf("normal should point toward the from cell, got %v", ct.Normal)
	}
	if ct.Stiffness != 1 {
		t.Fatalf("overlapping pair should have unit stiffness, got %v", ct.Stiffness)
	}
	if got := e.Neighbours(b); len(got) != 1 || got[0] != a {
		t.Fatalf("back contact missing: %v", got)
	}
}

func TestSeparatedCellsUseAdhesionBlend(t *testing.T) {
	e := New(testConfig())
	a := mustAdd(t, e, Pose{Center: mgl64.Vec3{0, 0, 0}, Dir: mgl64.Vec3{1, 0, 0}, Length: 2, Radius: 0.5, Adhesion: 0.4})
	mustAdd(t, e, Pose{Center: mgl64.Vec3{0, 1.05, 0}, Dir: mgl64.Vec3{1, 0, 0}, Length: 2, Radius: 0.5, Adhesion: 0.9})
	detect(e)
	cts := e.Contacts(a)
	if len(cts) != 1 {
		t.Fatalf("pair within margin should be kept, got %d", len(cts))
	}
	if !near(cts[0].Stiffness, 0.4, 1e-12) {
		t.Fatalf("expected min adhesion 0.4, got %v", cts[0].Stiffness)
	}

	e2 := New(testConfig(), WithAdhesionBlend(func(a, b float64) float64 { return a + b }))
	a = mustAdd(t, e2, Pose{Center: mgl64.Vec3{0, 0, 0}, Dir: mgl64.Vec3{1, 0, 0}, Length: 2, Radius: 0.5, Adhesion: 0.4})
	mustAdd(t, e2, Pose{Center: mgl64.Vec3{0, 1.05, 0}, Dir: mgl64.Vec3{1, 0, 0}, Length: 2, Radius: 0.5, Adhesion: 0.9})
	detect(e2)
	if got := e2.Contacts(a)[0].Stiffness; !near(got, 1.3, 1e-12) {
		t.Fatalf("custom blend not used, got %v", got)
	}
}

func TestPlaneContactsPerEnd(t *testing.T) {
	e := New(testConfig())
	if err := e.AddPlane(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, 2}, 0.7); err != nil {
		t.Fatalf("add plane: %v", err)
	}
	i := mustAdd(t, e, rod(mgl64.Vec3{0, 0, 0.2}, mgl64.Vec3{1, 0, 0}, 2, 0.5))
	detect(e)
	cts := e.Contacts(i)
	if len(cts) != 2 {
		t.Fatalf("expected a contact at each end, got %d", len(cts))
	}
	for k, ct := range cts {
		if ct.To != planeSentinel(0, k) || !ct.IsStatic() {
			t.Fatalf("contact %d has sentinel %d", k, ct.To)
		}
		if !near(ct.Dist, -0.3, 1e-9) {
			t.Fatalf("expected overlap 0.3, got %v", ct.Dist)
		}
		if ct.Stiffness != 0.7 {
			t.Fatalf("plane stiffness not applied: %v", ct.Stiffness)
		}
		if !nearVec(ct.Normal, mgl64.Vec3{0, 0, 1}, 1e-12) {
			t.Fatalf("plane normal not normalized: %v", ct.Normal)
		}
	}
}

func TestSphereConfinesInside(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)
	if err := e.AddSphere(mgl64.Vec3{}, 5, 1, -1); err != nil {
		t.Fatalf("add sphere: %v", err)
	}
	i := mustAdd(t, e, rod(mgl64.Vec3{4, 0, 0}, mgl64.Vec3{1, 0, 0}, 2, 0.5))
	detect(e)
	cts := e.Contacts(i)
	if len(cts) != 1 {
		t.Fatalf("only the outer end should touch, got %d contacts", len(cts))
	}
	ct := cts[0]
	if ct.To != e.sphereSentinel(0, 1) || ct.To != -1-(2*cfg.MaxPlanes+1) {
		t.Fatalf("unexpected sphere sentinel %d", ct.To)
	}
	if !near(ct.Dist, -0.5, 1e-9) || !nearVec(ct.Normal, mgl64.Vec3{-1, 0, 0}, 1e-12) {
		t.Fatalf("unexpected sphere contact %+v", ct)
	}
}

func TestStaticCapacityIsCounted(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPlanes = 1
	cfg.MaxSpheres = 0
	e := New(cfg)
	if err := e.AddPlane(mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}, 1); err != nil {
		t.Fatalf("first plane: %v", err)
	}
	if err := e.AddPlane(mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}, 1); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
	if err := e.AddSphere(mgl64.Vec3{}, 1, 1, 1); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity for sphere, got %v", err)
	}
	ev := e.Events()
	if ev.DroppedPlanes != 1 || ev.DroppedSpheres != 1 {
		t.Fatalf("unexpected events %+v", ev)
	}
	if len(e.Planes()) != 1 || len(e.Spheres()) != 0 {
		t.Fatal("refused statics must not be stored")
	}
}

func TestContactSaturationDropsAndCounts(t *testing.T) {
	cfg := testConfig()
	cfg.MaxContacts = 2
	e := New(cfg)
	for k := 0; k < 5; k++ {
		mustAdd(t, e, rod(mgl64.Vec3{0, 0.1 * float64(k), 0}, mgl64.Vec3{1, 0, 0}, 2, 0.5))
	}
	detect(e)
	if got := len(e.Contacts(0)); got != 2 {
		t.Fatalf("cell 0 should hold exactly MaxContacts, got %d", got)
	}
	// Cells 0, 1 and 2 see 4, 3 and 2 higher neighbours.
	if got := e.Events().DroppedContacts; got != 3 {
		t.Fatalf("expected 3 dropped contacts, got %d", got)
	}
	for i := 0; i < e.Len(); i++ {
		for _, ct := range e.Contacts(i) {
			if ct.To <= ct.From {
				t.Fatalf("contact %d->%d breaks index order", ct.From, ct.To)
			}
		}
	}
}

func TestRetainedContactsAreNotNew(t *testing.T) {
	e := New(testConfig())
	mustAdd(t, e, rod(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, 2, 0.5))
	mustAdd(t, e, rod(mgl64.Vec3{0, 0.9, 0}, mgl64.Vec3{1, 0, 0}, 2, 0.5))
	if n := detect(e); n != 1 {
		t.Fatalf("expected 1 new pair, got %d", n)
	}
	e.predict()
	if n := e.findContacts(); n != 0 {
		t.Fatalf("retained pair counted as new: %d", n)
	}
	if got := e.ContactCount(); got != 1 {
		t.Fatalf("expected the pair once, got %d", got)
	}
}

func TestNeighbourDirections(t *testing.T) {
	cfg := testConfig()
	cfg.ComputeNeighbours = true
	e := New(cfg)
	mustAdd(t, e, rod(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, 2, 0.5))
	mustAdd(t, e, rod(mgl64.Vec3{0, 0.95, 0}, mgl64.Vec3{-1, 0, 0}, 2, 0.5))
	e.Step(0.01)
	g, err := e.Geometry(0)
	if err != nil {
		t.Fatal(err)
	}
	if !near(g.AvgNeighbourDir.Len(), 1, 1e-9) || g.AvgNeighbourDir.X() <= 0.99 {
		t.Fatalf("expected aligned neighbour dir, got %v", g.AvgNeighbourDir)
	}
}

func TestExcludingSphereTouchesAxisMidpoint(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)
	if err := e.AddSphere(mgl64.Vec3{}, 1, 1, 1); err != nil {
		t.Fatalf("add sphere: %v", err)
	}
	// Both ends are far outside the sphere; only the middle of the axis overlaps.
	i := mustAdd(t, e, rod(mgl64.Vec3{0, 0, 1.2}, mgl64.Vec3{1, 0, 0}, 10, 0.5))
	detect(e)
	cts := e.Contacts(i)
	if len(cts) != 1 {
		t.Fatalf("expected a single sphere contact, got %d", len(cts))
	}
	ct := cts[0]
	if ct.To != e.sphereSentinel(0, 0) {
		t.Fatalf("unexpected sphere sentinel %d", ct.To)
	}
	if !near(ct.Dist, -0.3, 1e-9) || !nearVec(ct.Normal, mgl64.Vec3{0, 0, 1}, 1e-12) {
		t.Fatalf("unexpected sphere contact %+v", ct)
	}

	for k := 0; k < 10; k++ {
		e.Step(0.1)
	}
	p, err := e.Pose(i)
	if err != nil {
		t.Fatalf("pose: %v", err)
	}
	half := p.Dir.Mul(0.5 * p.Length)
	_, q := closestPointOnSegment(p.Center.Sub(half), p.Center.Add(half), mgl64.Vec3{})
	if d := q.Len(); d < 1+0.5-0.05 {
		t.Fatalf("capsule still inside excluding sphere: axis distance %.4f", d)
	}
}
